package model

import (
	"time"
)

// Enrollment 选课记录，progress 镜像最近一次聚合结果
// completedAt 只在 completed 从 false 变 true 时写入一次。
// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	UserID      uint       `gorm:"index:idx_user_course,unique;type:bigint unsigned;not null" json:"userId"`
	CourseID    uint       `gorm:"index:idx_user_course,unique;type:bigint unsigned;not null" json:"courseId"`
	Progress    float64    `gorm:"default:0" json:"progress"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	Course      *Course    `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
