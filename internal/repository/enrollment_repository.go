package repository

import (
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(enrollment *model.Enrollment) error {
	return r.DB.Create(enrollment).Error
}

func (r *EnrollmentRepository) FindByUserAndCourse(userID, courseID uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *EnrollmentRepository) ListByUser(userID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Preload("Course").Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) ListByCourse(courseID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Where("course_id = ?", courseID).Find(&enrollments).Error
	return enrollments, err
}

// ApplyProgress 写入聚合结果，是选课进度的唯一写入口。
// completed_at 只在 false→true 沿上写入，true→false 沿上清空，其余情况保持不变。
func (r *EnrollmentRepository) ApplyProgress(userID, courseID uint, progress float64, completed bool) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).
			First(&enrollment).Error; err != nil {
			return err
		}

		enrollment.Progress = progress
		if completed && !enrollment.Completed {
			now := time.Now()
			enrollment.CompletedAt = &now
		} else if !completed && enrollment.Completed {
			enrollment.CompletedAt = nil
		}
		enrollment.Completed = completed

		return tx.Save(&enrollment).Error
	})
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}
