package model

import (
	"time"
)

// LessonCompletion 记录用户对课时的完成事实
// 同一 (user_id, lesson_id) 只有一条记录；重复完成走合并更新，不产生新行。
// swagger:model LessonCompletion
type LessonCompletion struct {
	BaseModel
	UserID      uint      `gorm:"index:idx_user_lesson,unique;type:bigint unsigned;not null" json:"userId"`
	LessonID    uint      `gorm:"index:idx_user_lesson,unique;type:bigint unsigned;not null" json:"lessonId"`
	CourseID    uint      `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	Completed   bool      `gorm:"default:false" json:"completed"`
	CompletedAt time.Time `json:"completedAt"`
	TimeSpent   int       `gorm:"default:0" json:"timeSpent"` // 累计学习时长（秒），只增不减
}

func (LessonCompletion) TableName() string {
	return "lesson_completions"
}
