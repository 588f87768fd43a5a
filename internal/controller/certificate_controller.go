package controller

import (
	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	CertificateService *service.CertificateService
}

func NewCertificateController(certificateService *service.CertificateService) *CertificateController {
	return &CertificateController{CertificateService: certificateService}
}

// @Summary 获取我的课程证书
// @Description 证书存在时直接返回；文件缺失时自动补生成；课程已完成但此前
// @Description 签发失败的，这里会再签发一次。课程未完成时返回404。
// @Tags 证书
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId}/certificate [get]
func (c *CertificateController) GetCourseCertificate(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID := util.MustParseUint(ctx.Param("courseId"))

	issued, err := c.CertificateService.IssueOrRegenerate(user.UserID, courseID)
	if err != nil {
		if err == util.ErrCertificateNotFound {
			util.NotFoundMessage(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, issued.Certificate)
}

// @Summary 下载证书文件
// @Tags 证书
// @Produce html
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Success 200 {file} file
// @Router /api/courses/{courseId}/certificate/download [get]
func (c *CertificateController) DownloadCertificate(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID := util.MustParseUint(ctx.Param("courseId"))

	issued, err := c.CertificateService.IssueOrRegenerate(user.UserID, courseID)
	if err != nil {
		if err == util.ErrCertificateNotFound {
			util.NotFoundMessage(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	ctx.FileAttachment(issued.FilePath, issued.Certificate.SerialNumber+".html")
}

// @Summary 我的证书列表
// @Tags 证书
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/certificates [get]
func (c *CertificateController) MyCertificates(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	certs, err := c.CertificateService.ListByUser(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, certs)
}

// @Summary 证书详情
// @Description 按证书编号查询完整记录，仅持有人和管理员可见
// @Tags 证书
// @Produce json
// @Security BearerAuth
// @Param certificateId path string true "证书编号"
// @Success 200 {object} util.Response
// @Router /api/certificates/{certificateId} [get]
func (c *CertificateController) GetDetails(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	serial := ctx.Param("certificateId")

	cert, err := c.CertificateService.GetDetails(serial)
	if err != nil {
		if err == util.ErrCertificateNotFound {
			util.NotFoundMessage(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	if user.Role != model.Admin && cert.UserID != user.UserID {
		util.Forbidden(ctx)
		return
	}

	util.Success(ctx, cert)
}

// @Summary 证书公开验证
// @Description 无需登录，按证书编号返回最小验证信息
// @Tags 证书
// @Produce json
// @Param certificateId path string true "证书编号"
// @Success 200 {object} util.Response
// @Router /api/public/certificates/{certificateId}/verify [get]
func (c *CertificateController) Verify(ctx *gin.Context) {
	serial := ctx.Param("certificateId")

	view, err := c.CertificateService.Verify(ctx.Request.Context(), serial)
	if err != nil {
		if err == util.ErrCertificateNotFound {
			util.NotFoundMessage(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, view)
}
