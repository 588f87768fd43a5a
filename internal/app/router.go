package app

import (
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerInstructorRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	// 游客可浏览，带合法 token 时课程详情会附带选课进度
	public := router.Group("/api")
	public.Use(middleware.TryAuthMiddleware(cfg))
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/courses", c.course.ListCourses)
		public.GET("/courses/:courseId", c.course.GetCourse)
	}

	// 证书公开验证，游客可访问
	publicAPI := router.Group("/api/public")
	{
		publicAPI.GET("/certificates/:certificateId/verify", c.certificate.Verify)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)

	rg.POST("/courses/:courseId/enroll", c.course.Enroll)
	rg.GET("/enrollments", c.course.MyEnrollments)

	rg.POST("/lessons/:lessonId/complete", c.progress.CompleteLesson)
	rg.GET("/courses/:courseId/progress", c.progress.GetCourseProgress)

	rg.GET("/courses/:courseId/certificate", c.certificate.GetCourseCertificate)
	rg.GET("/courses/:courseId/certificate/download", c.certificate.DownloadCertificate)
	rg.GET("/certificates", c.certificate.MyCertificates)
	rg.GET("/certificates/:certificateId", c.certificate.GetDetails)
}

func (a *App) registerInstructorRoutes(rg *gin.RouterGroup, c *controllers) {
	instructor := rg.Group("/")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.POST("/courses", c.course.CreateCourse)
		instructor.POST("/courses/:courseId/lessons", c.course.AddLesson)
		instructor.PUT("/lessons/:lessonId/publish", c.course.SetLessonPublished)
		instructor.GET("/lessons/:lessonId/completions", c.progress.ListLessonCompletions)
	}
}
