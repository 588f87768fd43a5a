package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

type CompleteLessonRequest struct {
	TimeSpent int `json:"timeSpent" binding:"min=0"` // 本次学习时长（秒）
}

// @Summary 完成课时
// @Description 记录课时完成并重算课程进度；课程100%完成时自动签发证书。
// @Description 重复完成同一课时只做合并更新，不会产生重复记录或重复证书。
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lessonId path int true "课时ID"
// @Param body body CompleteLessonRequest true "学习时长"
// @Success 200 {object} util.Response
// @Router /api/lessons/{lessonId}/complete [post]
func (c *ProgressController) CompleteLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID := util.MustParseUint(ctx.Param("lessonId"))

	var req CompleteLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ProgressService.CompleteLesson(user.UserID, lessonID, req.TimeSpent)
	if err != nil {
		switch err {
		case util.ErrLessonNotFound, util.ErrEnrollmentNotFound:
			util.NotFoundMessage(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, result)
}

// @Summary 查询课程进度
// @Description 按当前已发布课时集合实时计算，不走缓存
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId}/progress [get]
func (c *ProgressController) GetCourseProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID := util.MustParseUint(ctx.Param("courseId"))

	progress, err := c.ProgressService.GetCourseProgress(user.UserID, courseID)
	if err != nil {
		if err == util.ErrCourseNotFound {
			util.NotFoundMessage(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary 课时完成情况
// @Description 教师端查看某课时的所有完成记录，按完成时间倒序
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param lessonId path int true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/lessons/{lessonId}/completions [get]
func (c *ProgressController) ListLessonCompletions(ctx *gin.Context) {
	lessonID := util.MustParseUint(ctx.Param("lessonId"))

	completions, err := c.ProgressService.ListLessonCompletions(lessonID)
	if err != nil {
		if err == util.ErrLessonNotFound {
			util.NotFoundMessage(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, completions)
}
