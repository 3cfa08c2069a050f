package model

import (
	"time"

	"gorm.io/datatypes"
)

// UniversityAssignment 学生志愿分配表，对应 university_assignments
// 同一学生下 university_name 忽略大小写唯一
type UniversityAssignment struct {
	AssignmentID   string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	StudentID      string    `gorm:"type:uuid;not null"                             json:"student_id"`
	CounselorID    string    `gorm:"type:uuid;not null"                             json:"counselor_id"`
	UniversityName string    `gorm:"type:varchar(200);not null"                     json:"university_name"`
	Tier           Tier      `gorm:"type:varchar(10);not null"                      json:"tier"` // reach | mid | safety
	AssignedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"assigned_at"`
	SoftDeleteModel

	// 关联
	Progress *ApplicationProgress `gorm:"foreignKey:AssignmentID;references:AssignmentID" json:"progress,omitempty"`
}

// TableName 指定表名
func (UniversityAssignment) TableName() string { return "university_assignments" }

// ── 申请进度 ──

// ApplicationStatus 申请状态，不限制状态之间的流转
type ApplicationStatus string

const (
	StatusNotStarted ApplicationStatus = "not_started"
	StatusInProgress ApplicationStatus = "in_progress"
	StatusSubmitted  ApplicationStatus = "submitted"
	StatusAccepted   ApplicationStatus = "accepted"
	StatusRejected   ApplicationStatus = "rejected"
	StatusDeferred   ApplicationStatus = "deferred"
	StatusWaitlisted ApplicationStatus = "waitlisted"
)

// EssayStatus 文书进度
type EssayStatus string

const (
	EssayNotStarted EssayStatus = "not_started"
	EssayDraft      EssayStatus = "draft"
	EssayReview     EssayStatus = "review"
	EssayFinal      EssayStatus = "final"
)

// ApplicationProgress 申请进度表，对应 application_progress（每个志愿至多一条）
// RecommendationLetters 允许超过 RecommendationLettersNeeded
type ApplicationProgress struct {
	ProgressID                  string                      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"progress_id"`
	AssignmentID                string                      `gorm:"type:uuid;not null"                             json:"assignment_id"`
	StudentID                   string                      `gorm:"type:uuid;not null"                             json:"student_id"`
	CounselorID                 string                      `gorm:"type:uuid;not null"                             json:"counselor_id"`
	Status                      ApplicationStatus           `gorm:"type:varchar(20);not null;default:'not_started'" json:"status"`
	ApplicationDeadline         *datatypes.Date             `json:"application_deadline,omitempty"`
	DecisionDate                *datatypes.Date             `json:"decision_date,omitempty"`
	Notes                       string                      `gorm:"type:text;not null;default:''"                  json:"notes"`
	DocumentsNeeded             datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"               json:"documents_needed"`
	DocumentsCompleted          datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'"               json:"documents_completed"`
	EssayStatus                 EssayStatus                 `gorm:"type:varchar(20);not null;default:'not_started'" json:"essay_status"`
	RecommendationLetters       int                         `gorm:"not null;default:0"                             json:"recommendation_letters"`
	RecommendationLettersNeeded int                         `gorm:"not null;default:0"                             json:"recommendation_letters_needed"`
	SoftDeleteModel
}

// TableName 指定表名
func (ApplicationProgress) TableName() string { return "application_progress" }
