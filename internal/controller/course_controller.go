package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// @Summary 创建课程
// @Description 讲师创建新课程
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.CreateCourse(user.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, course)
}

// @Summary 课程列表
// @Tags 课程
// @Produce json
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	page := int(util.MustParseUint(ctx.DefaultQuery("page", "1")))
	limit := int(util.MustParseUint(ctx.DefaultQuery("limit", "20")))

	courses, total, err := c.CourseService.ListCourses(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  courses,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// @Summary 课程详情
// @Description 已登录且已选课的用户，响应里会附带选课记录
// @Tags 课程
// @Produce json
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{courseId} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	courseID := util.MustParseUint(ctx.Param("courseId"))

	course, err := c.CourseService.GetCourse(courseID)
	if err != nil {
		if err == util.ErrCourseNotFound {
			util.NotFoundMessage(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	if user := util.GetUserFromContext(ctx); user != nil {
		if enrollment, err := c.CourseService.GetEnrollment(user.UserID, courseID); err == nil {
			util.Success(ctx, gin.H{"course": course, "enrollment": enrollment})
			return
		}
	}

	util.Success(ctx, course)
}

// @Summary 添加课时
// @Description 课程讲师或管理员为课程添加课时
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Param body body service.LessonRequest true "课时信息"
// @Success 201 {object} util.Response
// @Router /api/courses/{courseId}/lessons [post]
func (c *CourseController) AddLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID := util.MustParseUint(ctx.Param("courseId"))

	var req service.LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.CourseService.AddLesson(user.UserID, user.Role, courseID, req)
	if err != nil {
		switch err {
		case util.ErrCourseNotFound:
			util.NotFoundMessage(ctx, err.Error())
		case util.ErrPermissionDenied:
			util.Forbidden(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, lesson)
}

type publishRequest struct {
	Published bool `json:"published"`
}

// @Summary 上架/下架课时
// @Description 下架的课时不再计入课程进度分母，已签发证书不受影响
// @Tags 课程
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lessonId path int true "课时ID"
// @Param body body publishRequest true "发布状态"
// @Success 200 {object} util.Response
// @Router /api/lessons/{lessonId}/publish [put]
func (c *CourseController) SetLessonPublished(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID := util.MustParseUint(ctx.Param("lessonId"))

	var req publishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.CourseService.SetLessonPublished(user.UserID, user.Role, lessonID, req.Published)
	if err != nil {
		switch err {
		case util.ErrLessonNotFound:
			util.NotFoundMessage(ctx, err.Error())
		case util.ErrPermissionDenied:
			util.Forbidden(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, lesson)
}

// @Summary 选课
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Param courseId path int true "课程ID"
// @Success 201 {object} util.Response
// @Router /api/courses/{courseId}/enroll [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID := util.MustParseUint(ctx.Param("courseId"))

	enrollment, err := c.CourseService.Enroll(user.UserID, courseID)
	if err != nil {
		switch err {
		case util.ErrCourseNotFound:
			util.NotFoundMessage(ctx, err.Error())
		case util.ErrAlreadyEnrolled:
			util.Error(ctx, http.StatusConflict, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, enrollment)
}

// @Summary 我的选课
// @Tags 课程
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/enrollments [get]
func (c *CourseController) MyEnrollments(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollments, err := c.CourseService.MyEnrollments(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, enrollments)
}
