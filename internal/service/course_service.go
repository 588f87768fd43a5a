package service

import (
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type CourseService struct {
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
}

func NewCourseService(courseRepo *repository.CourseRepository, enrollmentRepo *repository.EnrollmentRepository) *CourseService {
	return &CourseService{
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
	}
}

type CourseRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	Level       model.CourseLevel `json:"level"`
	CoverURL    string            `json:"coverUrl"`
	Published   bool              `json:"published"`
}

type LessonRequest struct {
	Title     string `json:"title" binding:"required"`
	Content   string `json:"content"`
	VideoURL  string `json:"videoUrl"`
	Order     int    `json:"order"`
	Duration  int    `json:"duration"`
	Published bool   `json:"published"`
}

func (s *CourseService) CreateCourse(instructorID uint, req CourseRequest) (*model.Course, error) {
	course := &model.Course{
		Title:        req.Title,
		Description:  req.Description,
		Level:        req.Level,
		CoverURL:     req.CoverURL,
		Published:    req.Published,
		InstructorID: instructorID,
	}
	if course.Level == "" {
		course.Level = model.Beginner
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) GetCourse(courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByIDWithLessons(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}

func (s *CourseService) ListCourses(page, limit int) ([]model.Course, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.CourseRepo.List(page, limit)
}

// AddLesson 只允许课程讲师本人或管理员添加课时
func (s *CourseService) AddLesson(actorID uint, actorRole model.UserRole, courseID uint, req LessonRequest) (*model.Lesson, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	if actorRole != model.Admin && course.InstructorID != actorID {
		return nil, util.ErrPermissionDenied
	}

	lesson := &model.Lesson{
		CourseID:  courseID,
		Title:     req.Title,
		Content:   req.Content,
		VideoURL:  req.VideoURL,
		Order:     req.Order,
		Duration:  req.Duration,
		Published: req.Published,
	}
	if err := s.CourseRepo.CreateLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// SetLessonPublished 上架/下架课时。下架会把该课时从进度分母里拿掉，
// 已签发的证书不受影响。
func (s *CourseService) SetLessonPublished(actorID uint, actorRole model.UserRole, lessonID uint, published bool) (*model.Lesson, error) {
	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	course, err := s.CourseRepo.FindByID(lesson.CourseID)
	if err != nil {
		return nil, err
	}
	if actorRole != model.Admin && course.InstructorID != actorID {
		return nil, util.ErrPermissionDenied
	}

	lesson.Published = published
	if err := s.CourseRepo.SaveLesson(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

// Enroll 选课，重复选课返回已有记录对应的错误
func (s *CourseService) Enroll(userID, courseID uint) (*model.Enrollment, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if !course.Published {
		return nil, util.ErrCourseNotFound
	}

	enrollment := &model.Enrollment{
		UserID:   userID,
		CourseID: courseID,
	}
	if err := s.EnrollmentRepo.Create(enrollment); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrAlreadyEnrolled
		}
		return nil, err
	}
	return enrollment, nil
}

func (s *CourseService) MyEnrollments(userID uint) ([]model.Enrollment, error) {
	return s.EnrollmentRepo.ListByUser(userID)
}

func (s *CourseService) GetEnrollment(userID, courseID uint) (*model.Enrollment, error) {
	return s.EnrollmentRepo.FindByUserAndCourse(userID, courseID)
}
