package dto

import (
	"strings"
	"time"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
)

// ── 志愿分配 / 申请进度模块 DTO ──

// UniversityItem 一所大学及其档位
type UniversityItem struct {
	Name string `json:"name" binding:"required,max=200"`
	Tier string `json:"tier" binding:"required,oneof=reach mid safety"`
}

// AssignUniversitiesRequest 为学生分配志愿
// 名称忽略大小写不得重复；数量与顾问设定上限的一致性由 Service 校验
type AssignUniversitiesRequest struct {
	Universities []UniversityItem `json:"universities" binding:"required,min=1,unique_universities,dive"`
}

// ToChoices 转换为领域模型，大学名去除首尾空白
func (r *AssignUniversitiesRequest) ToChoices() []model.UniversityChoice {
	out := make([]model.UniversityChoice, len(r.Universities))
	for i, u := range r.Universities {
		out[i] = model.UniversityChoice{Name: strings.TrimSpace(u.Name), Tier: model.Tier(u.Tier)}
	}
	return out
}

// AssignUniversitiesResponse 分配结果
type AssignUniversitiesResponse struct {
	StudentName  string            `json:"student_name"`
	Universities map[string]string `json:"universities"` // 大学名 → Reach | Mid | Safety
	Recorded     bool              `json:"recorded"`     // 是否同步写入了关系库
}

// CreateProgressRequest 创建申请进度
type CreateProgressRequest struct {
	Status                      string   `json:"status"                        binding:"omitempty,oneof=not_started in_progress submitted accepted rejected deferred waitlisted"`
	ApplicationDeadline         *string  `json:"application_deadline"          binding:"omitempty,datetime=2006-01-02"`
	DecisionDate                *string  `json:"decision_date"                 binding:"omitempty,datetime=2006-01-02"`
	Notes                       string   `json:"notes"                         binding:"omitempty,max=5000"`
	DocumentsNeeded             []string `json:"documents_needed"              binding:"omitempty,dive,max=200"`
	DocumentsCompleted          []string `json:"documents_completed"           binding:"omitempty,dive,max=200"`
	EssayStatus                 string   `json:"essay_status"                  binding:"omitempty,oneof=not_started draft review final"`
	RecommendationLetters       int      `json:"recommendation_letters"        binding:"min=0"`
	RecommendationLettersNeeded int      `json:"recommendation_letters_needed" binding:"min=0"`
}

// UpdateProgressRequest 局部更新申请进度（nil 字段不修改）
type UpdateProgressRequest struct {
	Status                      *string   `json:"status"                        binding:"omitempty,oneof=not_started in_progress submitted accepted rejected deferred waitlisted"`
	ApplicationDeadline         *string   `json:"application_deadline"          binding:"omitempty,datetime=2006-01-02"`
	DecisionDate                *string   `json:"decision_date"                 binding:"omitempty,datetime=2006-01-02"`
	Notes                       *string   `json:"notes"                         binding:"omitempty,max=5000"`
	DocumentsNeeded             *[]string `json:"documents_needed"`
	DocumentsCompleted          *[]string `json:"documents_completed"`
	EssayStatus                 *string   `json:"essay_status"                  binding:"omitempty,oneof=not_started draft review final"`
	RecommendationLetters       *int      `json:"recommendation_letters"        binding:"omitempty,min=0"`
	RecommendationLettersNeeded *int      `json:"recommendation_letters_needed" binding:"omitempty,min=0"`
}

// ProgressResponse 申请进度响应
type ProgressResponse struct {
	ID                          string   `json:"id"`
	AssignmentID                string   `json:"assignment_id"`
	StudentID                   string   `json:"student_id"`
	Status                      string   `json:"status"`
	ApplicationDeadline         *string  `json:"application_deadline"`
	DecisionDate                *string  `json:"decision_date"`
	Notes                       string   `json:"notes"`
	DocumentsNeeded             []string `json:"documents_needed"`
	DocumentsCompleted          []string `json:"documents_completed"`
	EssayStatus                 string   `json:"essay_status"`
	RecommendationLetters       int      `json:"recommendation_letters"`
	RecommendationLettersNeeded int      `json:"recommendation_letters_needed"`
	UpdatedAt                   string   `json:"updated_at"`
}

// AssignmentResponse 志愿响应（附带申请进度）
type AssignmentResponse struct {
	ID             string            `json:"id"`
	UniversityName string            `json:"university_name"`
	Tier           string            `json:"tier"`
	AssignedAt     string            `json:"assigned_at"`
	Progress       *ProgressResponse `json:"progress"`
}

// StudentDetailResponse 已分配学生详情
type StudentDetailResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Assignments []AssignmentResponse `json:"assignments"`
}

// StudentSummaryResponse 已分配学生列表项
type StudentSummaryResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	AssignmentCount int    `json:"assignment_count"`
	LastAssignedAt  string `json:"last_assigned_at"`
}

// NewProgressResponse 由模型构造响应
func NewProgressResponse(p *model.ApplicationProgress) *ProgressResponse {
	if p == nil {
		return nil
	}
	resp := &ProgressResponse{
		ID:                          p.ProgressID,
		AssignmentID:                p.AssignmentID,
		StudentID:                   p.StudentID,
		Status:                      string(p.Status),
		Notes:                       p.Notes,
		DocumentsNeeded:             nonNil(p.DocumentsNeeded),
		DocumentsCompleted:          nonNil(p.DocumentsCompleted),
		EssayStatus:                 string(p.EssayStatus),
		RecommendationLetters:       p.RecommendationLetters,
		RecommendationLettersNeeded: p.RecommendationLettersNeeded,
		UpdatedAt:                   p.UpdatedAt.Format(time.RFC3339),
	}
	if p.ApplicationDeadline != nil {
		s := time.Time(*p.ApplicationDeadline).Format(time.DateOnly)
		resp.ApplicationDeadline = &s
	}
	if p.DecisionDate != nil {
		s := time.Time(*p.DecisionDate).Format(time.DateOnly)
		resp.DecisionDate = &s
	}
	return resp
}

// NewAssignmentResponse 由模型构造响应
func NewAssignmentResponse(a *model.UniversityAssignment) AssignmentResponse {
	return AssignmentResponse{
		ID:             a.AssignmentID,
		UniversityName: a.UniversityName,
		Tier:           string(a.Tier),
		AssignedAt:     a.AssignedAt.Format(time.RFC3339),
		Progress:       NewProgressResponse(a.Progress),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
