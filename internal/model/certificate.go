package model

import (
	"time"
)

// Certificate 结业证书，每个 (user_id, course_id) 至多一张
// SerialNumber 是对外公开的证书编号，用于链接与验证，不做保密要求。
// FilePath 为空或文件缺失时仅触发补生成，不产生新行。
// swagger:model Certificate
type Certificate struct {
	BaseModel
	UserID       uint      `gorm:"index:idx_user_course_cert,unique;type:bigint unsigned;not null" json:"userId"`
	CourseID     uint      `gorm:"index:idx_user_course_cert,unique;type:bigint unsigned;not null" json:"courseId"`
	SerialNumber string    `gorm:"size:64;unique;not null" json:"certificateId"`
	IssuedAt     time.Time `json:"issuedAt"`
	FilePath     string    `gorm:"size:255" json:"-"`
	FinalGrade   *float64  `json:"finalGrade,omitempty"`
	User         *User     `gorm:"foreignKey:UserID" json:"-"`
	Course       *Course   `gorm:"foreignKey:CourseID" json:"-"`
}

func (Certificate) TableName() string {
	return "certificates"
}
