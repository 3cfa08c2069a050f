package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/config"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/repository"
	apperrors "github.com/kanatwo544/university-guidance-6-sub001/pkg/errors"
)

// ── 申请进度模块业务错误 ──

var (
	ErrStudentNotFound     = fmt.Errorf("学生不存在: %w", apperrors.ErrNotFound)
	ErrStudentForbidden    = fmt.Errorf("学生不属于当前顾问: %w", apperrors.ErrForbidden)
	ErrAssignmentNotFound  = fmt.Errorf("志愿不存在: %w", apperrors.ErrNotFound)
	ErrAssignmentForbidden = fmt.Errorf("志愿不属于当前顾问: %w", apperrors.ErrForbidden)
	ErrProgressNotFound    = fmt.Errorf("申请进度不存在: %w", apperrors.ErrNotFound)
	ErrProgressForbidden   = fmt.Errorf("申请进度不属于当前顾问: %w", apperrors.ErrForbidden)
	ErrProgressExists      = errors.New("该志愿已存在申请进度")
)

// ProgressService 已分配学生的志愿与申请进度业务接口
// 所有操作都以当前顾问为归属范围：记录不存在返回 NotFound 类错误，属于其他顾问返回 Forbidden 类错误
type ProgressService interface {
	ListAssignedStudents(ctx context.Context, counselorID string, req *dto.PaginationRequest) ([]dto.StudentSummaryResponse, int64, error)
	GetAssignedStudentDetails(ctx context.Context, studentID, counselorID string) (*dto.StudentDetailResponse, error)
	CreateApplicationProgress(ctx context.Context, assignmentID, studentID, counselorID string, req *dto.CreateProgressRequest) (*dto.ProgressResponse, error)
	UpdateApplicationProgress(ctx context.Context, progressID, counselorID string, req *dto.UpdateProgressRequest) (*dto.ProgressResponse, error)
	// RemoveUniversityAssignment 软删除志愿；是否一并删除申请进度由 pool.cascade_progress_delete 决定
	RemoveUniversityAssignment(ctx context.Context, assignmentID, counselorID string) error
}

type progressService struct {
	repo    *repository.Repository
	cascade bool
	logger  *zap.Logger
}

// NewProgressService 创建 ProgressService 实例
func NewProgressService(cfg *config.PoolConfig, repo *repository.Repository, logger *zap.Logger) ProgressService {
	return &progressService{
		repo:    repo,
		cascade: cfg.CascadeProgressDelete,
		logger:  logger,
	}
}

// ────────────────────── ListAssignedStudents ──────────────────────

func (s *progressService) ListAssignedStudents(ctx context.Context, counselorID string, req *dto.PaginationRequest) ([]dto.StudentSummaryResponse, int64, error) {
	students, total, err := s.repo.Student.ListAssigned(ctx, counselorID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询已分配学生失败", zap.Error(err))
		return nil, 0, apperrors.Transport("查询已分配学生", err)
	}

	list := make([]dto.StudentSummaryResponse, 0, len(students))
	for _, st := range students {
		item := dto.StudentSummaryResponse{
			ID:              st.StudentID,
			Name:            st.Name,
			AssignmentCount: len(st.Assignments),
		}
		if n := len(st.Assignments); n > 0 {
			item.LastAssignedAt = st.Assignments[n-1].AssignedAt.Format(time.RFC3339)
		}
		list = append(list, item)
	}
	return list, total, nil
}

// ────────────────────── GetAssignedStudentDetails ──────────────────────

func (s *progressService) GetAssignedStudentDetails(ctx context.Context, studentID, counselorID string) (*dto.StudentDetailResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.Error(err))
		return nil, apperrors.Transport("查询学生", err)
	}
	if student.CounselorID != counselorID {
		return nil, ErrStudentForbidden
	}

	assignments, err := s.repo.Assignment.ListByStudent(ctx, studentID)
	if err != nil {
		s.logger.Error("查询志愿失败", zap.Error(err))
		return nil, apperrors.Transport("查询志愿", err)
	}

	resp := &dto.StudentDetailResponse{
		ID:          student.StudentID,
		Name:        student.Name,
		Description: student.Description,
		Assignments: make([]dto.AssignmentResponse, 0, len(assignments)),
	}
	for i := range assignments {
		resp.Assignments = append(resp.Assignments, dto.NewAssignmentResponse(&assignments[i]))
	}
	return resp, nil
}

// ────────────────────── CreateApplicationProgress ──────────────────────

func (s *progressService) CreateApplicationProgress(ctx context.Context, assignmentID, studentID, counselorID string, req *dto.CreateProgressRequest) (*dto.ProgressResponse, error) {
	assignment, err := s.ownedAssignment(ctx, assignmentID, counselorID)
	if err != nil {
		return nil, err
	}
	if assignment.StudentID != studentID {
		return nil, ErrAssignmentNotFound
	}

	// 每个志愿至多一条进度
	_, err = s.repo.Progress.GetByAssignment(ctx, assignmentID)
	if err == nil {
		return nil, ErrProgressExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询申请进度失败", zap.Error(err))
		return nil, apperrors.Transport("查询申请进度", err)
	}

	progress := &model.ApplicationProgress{
		AssignmentID:                assignmentID,
		StudentID:                   studentID,
		CounselorID:                 counselorID,
		Status:                      model.StatusNotStarted,
		Notes:                       req.Notes,
		DocumentsNeeded:             datatypes.JSONSlice[string](nonNilStrings(req.DocumentsNeeded)),
		DocumentsCompleted:          datatypes.JSONSlice[string](nonNilStrings(req.DocumentsCompleted)),
		EssayStatus:                 model.EssayNotStarted,
		RecommendationLetters:       req.RecommendationLetters,
		RecommendationLettersNeeded: req.RecommendationLettersNeeded,
	}
	if req.Status != "" {
		progress.Status = model.ApplicationStatus(req.Status)
	}
	if req.EssayStatus != "" {
		progress.EssayStatus = model.EssayStatus(req.EssayStatus)
	}
	if progress.ApplicationDeadline, err = parseDate(req.ApplicationDeadline); err != nil {
		return nil, err
	}
	if progress.DecisionDate, err = parseDate(req.DecisionDate); err != nil {
		return nil, err
	}

	if err := s.repo.Progress.Create(ctx, progress); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrProgressExists
		}
		s.logger.Error("创建申请进度失败", zap.Error(err))
		return nil, apperrors.Transport("创建申请进度", err)
	}

	return dto.NewProgressResponse(progress), nil
}

// ────────────────────── UpdateApplicationProgress ──────────────────────

func (s *progressService) UpdateApplicationProgress(ctx context.Context, progressID, counselorID string, req *dto.UpdateProgressRequest) (*dto.ProgressResponse, error) {
	existing, err := s.repo.Progress.GetByID(ctx, progressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProgressNotFound
		}
		s.logger.Error("查询申请进度失败", zap.Error(err))
		return nil, apperrors.Transport("查询申请进度", err)
	}
	if existing.CounselorID != counselorID {
		return nil, ErrProgressForbidden
	}

	fields, err := progressUpdateFields(req)
	if err != nil {
		return nil, err
	}
	fields["updated_at"] = time.Now().UTC()

	// 写入时再次以 counselor_id 过滤
	if err := s.repo.Progress.UpdateFields(ctx, progressID, counselorID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProgressNotFound
		}
		s.logger.Error("更新申请进度失败", zap.Error(err))
		return nil, apperrors.Transport("更新申请进度", err)
	}

	updated, err := s.repo.Progress.GetByID(ctx, progressID)
	if err != nil {
		return nil, apperrors.Transport("查询申请进度", err)
	}
	return dto.NewProgressResponse(updated), nil
}

// progressUpdateFields 只收集请求中出现的字段；状态之间不限制流转
func progressUpdateFields(req *dto.UpdateProgressRequest) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if req.Status != nil {
		fields["status"] = model.ApplicationStatus(*req.Status)
	}
	if req.ApplicationDeadline != nil {
		d, err := parseDate(req.ApplicationDeadline)
		if err != nil {
			return nil, err
		}
		fields["application_deadline"] = d
	}
	if req.DecisionDate != nil {
		d, err := parseDate(req.DecisionDate)
		if err != nil {
			return nil, err
		}
		fields["decision_date"] = d
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if req.DocumentsNeeded != nil {
		fields["documents_needed"] = datatypes.JSONSlice[string](nonNilStrings(*req.DocumentsNeeded))
	}
	if req.DocumentsCompleted != nil {
		fields["documents_completed"] = datatypes.JSONSlice[string](nonNilStrings(*req.DocumentsCompleted))
	}
	if req.EssayStatus != nil {
		fields["essay_status"] = model.EssayStatus(*req.EssayStatus)
	}
	if req.RecommendationLetters != nil {
		fields["recommendation_letters"] = *req.RecommendationLetters
	}
	if req.RecommendationLettersNeeded != nil {
		fields["recommendation_letters_needed"] = *req.RecommendationLettersNeeded
	}
	return fields, nil
}

// ────────────────────── RemoveUniversityAssignment ──────────────────────

func (s *progressService) RemoveUniversityAssignment(ctx context.Context, assignmentID, counselorID string) error {
	if _, err := s.ownedAssignment(ctx, assignmentID, counselorID); err != nil {
		return err
	}

	if err := s.repo.Assignment.Delete(ctx, assignmentID, counselorID, s.cascade); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		s.logger.Error("删除志愿失败", zap.Error(err))
		return apperrors.Transport("删除志愿", err)
	}

	s.logger.Info("志愿已删除",
		zap.String("assignment_id", assignmentID),
		zap.String("counselor_id", counselorID),
		zap.Bool("cascade_progress", s.cascade),
	)
	return nil
}

// ── 辅助函数 ──

func (s *progressService) ownedAssignment(ctx context.Context, assignmentID, counselorID string) (*model.UniversityAssignment, error) {
	assignment, err := s.repo.Assignment.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询志愿失败", zap.Error(err))
		return nil, apperrors.Transport("查询志愿", err)
	}
	if assignment.CounselorID != counselorID {
		return nil, ErrAssignmentForbidden
	}
	return assignment, nil
}

func parseDate(s *string) (*datatypes.Date, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, *s)
	if err != nil {
		return nil, fmt.Errorf("日期格式错误 %q: %w", *s, err)
	}
	d := datatypes.Date(t)
	return &d, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
