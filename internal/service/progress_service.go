package service

import (
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"math"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CourseProgress 课程层面的进度聚合，每次触发都重新计算，不作为事实来源缓存
type CourseProgress struct {
	TotalLessons     int     `json:"totalLessons"`
	CompletedLessons int     `json:"completedLessons"`
	Percentage       float64 `json:"percentage"`
	Completed        bool    `json:"completed"`
}

// CompleteLessonResult 完成课时的结构化返回
// CertificateGenerated 只在本次调用新签发证书时为 true；
// 签发失败不影响完成结果本身。
type CompleteLessonResult struct {
	LessonProgress       *model.LessonCompletion `json:"lessonProgress"`
	CourseProgress       CourseProgress          `json:"courseProgress"`
	CertificateGenerated bool                    `json:"certificateGenerated"`
}

type ProgressService struct {
	CourseRepo     *repository.CourseRepository
	CompletionRepo *repository.CompletionRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Certificates   *CertificateService
}

func NewProgressService(
	courseRepo *repository.CourseRepository,
	completionRepo *repository.CompletionRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	certificates *CertificateService,
) *ProgressService {
	return &ProgressService{
		CourseRepo:     courseRepo,
		CompletionRepo: completionRepo,
		EnrollmentRepo: enrollmentRepo,
		Certificates:   certificates,
	}
}

// aggregateProgress 百分比保留两位小数；没有已发布课时的课程永远不算完成
func aggregateProgress(totalLessons, completedLessons int) CourseProgress {
	progress := CourseProgress{
		TotalLessons:     totalLessons,
		CompletedLessons: completedLessons,
	}
	if totalLessons == 0 {
		return progress
	}
	progress.Percentage = math.Round(float64(completedLessons)/float64(totalLessons)*100*100) / 100
	progress.Completed = completedLessons >= totalLessons
	return progress
}

// ComputeCourseProgress 已发布课时集合与用户完成记录求交集后聚合
func (s *ProgressService) ComputeCourseProgress(userID, courseID uint) (CourseProgress, error) {
	lessonIDs, err := s.CourseRepo.PublishedLessonIDs(courseID)
	if err != nil {
		return CourseProgress{}, err
	}

	doneIDs, err := s.CompletionRepo.CompletedLessonIDs(userID, lessonIDs)
	if err != nil {
		return CourseProgress{}, err
	}

	return aggregateProgress(len(lessonIDs), len(doneIDs)), nil
}

// ApplyProgress 把聚合结果写进选课记录，用户未选课时返回 ErrEnrollmentNotFound
func (s *ProgressService) ApplyProgress(userID, courseID uint, progress CourseProgress) (*model.Enrollment, error) {
	enrollment, err := s.EnrollmentRepo.ApplyProgress(userID, courseID, progress.Percentage, progress.Completed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEnrollmentNotFound
		}
		return nil, err
	}
	return enrollment, nil
}

// CompleteLesson 完成课时的主流程：
// 校验课时 → 记录完成 → 重算进度 → 写回选课记录 → 课程完成时尝试签发证书。
// 证书签发是尽力而为的副作用，失败只记告警，本次完成调用仍然成功。
func (s *ProgressService) CompleteLesson(userID, lessonID uint, timeSpent int) (*CompleteLessonResult, error) {
	lesson, err := s.CourseRepo.FindLessonByID(lessonID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	fact, err := s.CompletionRepo.RecordCompletion(userID, lessonID, lesson.CourseID, timeSpent)
	if err != nil {
		return nil, err
	}
	monitoring.LessonCompletions.Inc()

	progress, err := s.ComputeCourseProgress(userID, lesson.CourseID)
	if err != nil {
		return nil, err
	}

	if _, err := s.ApplyProgress(userID, lesson.CourseID, progress); err != nil {
		return nil, err
	}

	certificateGenerated := false
	if progress.Completed {
		created, err := s.Certificates.EnsureIssued(userID, lesson.CourseID)
		if err != nil {
			// 等待后续下载或手动触发时重试
			logger.Log.Warn("certificate issuance failed after course completion",
				zap.Uint("userId", userID),
				zap.Uint("courseId", lesson.CourseID),
				zap.Error(err))
		} else {
			certificateGenerated = created
		}
	}

	return &CompleteLessonResult{
		LessonProgress:       fact,
		CourseProgress:       progress,
		CertificateGenerated: certificateGenerated,
	}, nil
}

// GetCourseProgress 查询接口，课程不存在时返回 ErrCourseNotFound
func (s *ProgressService) GetCourseProgress(userID, courseID uint) (CourseProgress, error) {
	if _, err := s.CourseRepo.FindByID(courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CourseProgress{}, util.ErrCourseNotFound
		}
		return CourseProgress{}, err
	}
	return s.ComputeCourseProgress(userID, courseID)
}

// ListLessonCompletions 教师端查看某课时的完成情况，按完成时间倒序
func (s *ProgressService) ListLessonCompletions(lessonID uint) ([]model.LessonCompletion, error) {
	if _, err := s.CourseRepo.FindLessonByID(lessonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	return s.CompletionRepo.ListByLesson(lessonID)
}
