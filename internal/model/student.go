package model

// Student 学生表，对应 students
// StudentID 为稳定的代理主键；Name 用于关联 Redis 文档层（同一顾问下唯一，跨顾问可能重名）
type Student struct {
	StudentID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	CounselorID string `gorm:"type:uuid;not null"                             json:"counselor_id"`
	Name        string `gorm:"type:varchar(200);not null"                     json:"name"`
	Description string `gorm:"type:text;not null;default:''"                  json:"description"`
	SoftDeleteModel

	// 关联
	Assignments []UniversityAssignment `gorm:"foreignKey:StudentID;references:StudentID" json:"assignments,omitempty"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }
