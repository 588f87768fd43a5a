package model

// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID  uint   `gorm:"index;type:bigint unsigned;not null" json:"courseId"`
	Title     string `gorm:"size:255;not null" json:"title"`
	Content   string `gorm:"type:text" json:"content"`
	VideoURL  string `gorm:"size:255" json:"videoUrl"`
	Order     int    `gorm:"default:0" json:"order"`
	Duration  int    `gorm:"default:0" json:"duration"` // 预计学习时长（秒）
	Published bool   `gorm:"default:false" json:"published"`
}

func (Lesson) TableName() string {
	return "lessons"
}
