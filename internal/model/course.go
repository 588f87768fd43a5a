package model

type CourseLevel string

const (
	Beginner     CourseLevel = "beginner"
	Intermediate CourseLevel = "intermediate"
	Advanced     CourseLevel = "advanced"
)

// swagger:model Course
type Course struct {
	BaseModel
	Title        string      `gorm:"size:255;not null" json:"title"`
	Description  string      `gorm:"type:text" json:"description"`
	Level        CourseLevel `gorm:"size:20;default:'beginner'" json:"level"`
	InstructorID uint        `gorm:"index;type:bigint unsigned" json:"instructorId"`
	Instructor   *User       `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Published    bool        `gorm:"default:false" json:"published"`
	CoverURL     string      `gorm:"size:255" json:"coverUrl"`
	Lessons      []Lesson    `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}
