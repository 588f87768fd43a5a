package repository

import (
	"errors"
	"lms_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type CompletionRepository struct {
	DB *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{DB: db}
}

// RecordCompletion 记录课时完成，(user_id, lesson_id) 上做合并更新：
// completed 置 true，completed_at 刷新，time_spent 取历史和本次的较大值。
// 合并在 SQL 内完成，避免应用层先读后写丢失并发更新。
func (r *CompletionRepository) RecordCompletion(userID, lessonID, courseID uint, timeSpent int) (*model.LessonCompletion, error) {
	if timeSpent < 0 {
		timeSpent = 0
	}

	var fact model.LessonCompletion
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		merge := map[string]interface{}{
			"completed":    true,
			"completed_at": now,
			"time_spent":   gorm.Expr("CASE WHEN time_spent > ? THEN time_spent ELSE ? END", timeSpent, timeSpent),
		}

		res := tx.Model(&model.LessonCompletion{}).
			Where("user_id = ? AND lesson_id = ?", userID, lessonID).
			Updates(merge)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			completion := &model.LessonCompletion{
				UserID:      userID,
				LessonID:    lessonID,
				CourseID:    courseID,
				Completed:   true,
				CompletedAt: now,
				TimeSpent:   timeSpent,
			}
			if err := tx.Create(completion).Error; err != nil {
				if !errors.Is(err, gorm.ErrDuplicatedKey) {
					return err
				}
				// 并发插入输掉竞争，退回到合并更新
				if err := tx.Model(&model.LessonCompletion{}).
					Where("user_id = ? AND lesson_id = ?", userID, lessonID).
					Updates(merge).Error; err != nil {
					return err
				}
			}
		}

		return tx.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&fact).Error
	})
	if err != nil {
		return nil, err
	}
	return &fact, nil
}

func (r *CompletionRepository) GetCompletion(userID, lessonID uint) (*model.LessonCompletion, error) {
	var completion model.LessonCompletion
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&completion).Error
	if err != nil {
		return nil, err
	}
	return &completion, nil
}

// ListByLesson 某课时的全部完成记录，按完成时间倒序，供教师端查看
func (r *CompletionRepository) ListByLesson(lessonID uint) ([]model.LessonCompletion, error) {
	var completions []model.LessonCompletion
	err := r.DB.Where("lesson_id = ? AND completed = ?", lessonID, true).
		Order("completed_at DESC").
		Find(&completions).Error
	return completions, err
}

// CompletedLessonIDs 用户在给定课时集合中已完成的课时 id
func (r *CompletionRepository) CompletedLessonIDs(userID uint, lessonIDs []uint) ([]uint, error) {
	if len(lessonIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.DB.Model(&model.LessonCompletion{}).
		Where("user_id = ? AND completed = ? AND lesson_id IN ?", userID, true, lessonIDs).
		Pluck("lesson_id", &ids).Error
	return ids, err
}
