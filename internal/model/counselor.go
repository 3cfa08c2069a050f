package model

const (
	RoleCounselor = "counselor"
	RoleAdmin     = "admin"
)

// Counselor 升学顾问表，对应 counselors
// Name 是顾问的显示名，同时作为 Redis 中名册与权重文档的键
type Counselor struct {
	CounselorID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"counselor_id"`
	Name            string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email           string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash    string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role            string `gorm:"type:varchar(20);not null;default:'counselor'"  json:"role"`
	UniversityLimit int    `gorm:"not null;default:0"                             json:"university_limit"` // 0 表示不限
	SoftDeleteModel
}

// TableName 指定表名
func (Counselor) TableName() string { return "counselors" }
