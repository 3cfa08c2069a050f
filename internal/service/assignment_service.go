package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/repository"
	apperrors "github.com/kanatwo544/university-guidance-6-sub001/pkg/errors"
)

// ── 志愿分配模块业务错误 ──

// SelectionCountError 选择的大学数量与顾问设定的上限不一致
type SelectionCountError struct {
	Want int
	Got  int
}

func (e *SelectionCountError) Error() string {
	return fmt.Sprintf("需要选择 %d 所大学，实际 %d 所", e.Want, e.Got)
}

// AssignmentService 志愿分配业务接口
type AssignmentService interface {
	// CheckSelection 分配前的入口校验：学生在名册中，数量符合顾问设定的上限（0 表示不限）
	CheckSelection(ctx context.Context, counselorID, counselorName, studentName string, count int) error
	// AssignUniversities 写入学生的志愿表并标记为已分配；本身不做参数校验，可安全重试
	AssignUniversities(ctx context.Context, counselorID, studentName string, choices []model.UniversityChoice) (*dto.AssignUniversitiesResponse, error)
}

type assignmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(repo *repository.Repository, logger *zap.Logger) AssignmentService {
	return &assignmentService{repo: repo, logger: logger}
}

func (s *assignmentService) CheckSelection(ctx context.Context, counselorID, counselorName, studentName string, count int) error {
	counselor, err := s.repo.Counselor.GetByID(ctx, counselorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCounselorNotFound
		}
		return apperrors.Transport("查询顾问", err)
	}
	if counselor.UniversityLimit > 0 && count != counselor.UniversityLimit {
		return &SelectionCountError{Want: counselor.UniversityLimit, Got: count}
	}

	names, err := s.repo.Pool.GetCaseload(ctx, counselorName)
	if err != nil {
		return apperrors.Transport("读取名册", err)
	}
	for _, n := range names {
		if n == studentName {
			return nil
		}
	}
	return ErrStudentNotInCaseload
}

// ═══════════════════════════════════════════════════════════
// AssignUniversities
// ═══════════════════════════════════════════════════════════
//
// 三步写入，彼此之间不构成事务（至少一次语义）：
//  1. 文档层志愿表整体覆盖为 {大学名: Reach|Mid|Safety}
//  2. 池属性局部更新 isAssigned=true
//  3. 关系库中存在该学生时，在单个事务中 upsert 志愿行
//
// 步骤 1 成功而步骤 2 失败时学生仍留在待分配池中，重试即可补齐。

func (s *assignmentService) AssignUniversities(ctx context.Context, counselorID, studentName string, choices []model.UniversityChoice) (*dto.AssignUniversitiesResponse, error) {
	universities := make(map[string]string, len(choices))
	for _, ch := range choices {
		universities[ch.Name] = ch.Tier.Label()
	}

	// 1. 志愿表整体覆盖
	if err := s.repo.Pool.ReplaceAssignments(ctx, studentName, universities); err != nil {
		s.logger.Error("写入志愿表失败", zap.String("student", studentName), zap.Error(err))
		return nil, apperrors.Transport("写入志愿表", err)
	}

	// 2. 标记已分配（只改 isAssigned）
	if err := s.repo.Pool.MarkAssigned(ctx, studentName); err != nil {
		s.logger.Error("标记已分配失败", zap.String("student", studentName), zap.Error(err))
		return nil, apperrors.Transport("标记已分配", err)
	}

	resp := &dto.AssignUniversitiesResponse{
		StudentName:  studentName,
		Universities: universities,
	}

	// 3. 同步关系库
	student, err := s.repo.Student.GetByCounselorAndName(ctx, counselorID, studentName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("关系库中无该学生，跳过志愿行写入",
				zap.String("counselor_id", counselorID),
				zap.String("student", studentName),
			)
			return resp, nil
		}
		return nil, apperrors.Transport("查询学生", err)
	}
	if err := s.repo.Assignment.UpsertBatch(ctx, student.StudentID, counselorID, choices); err != nil {
		s.logger.Error("写入志愿行失败", zap.String("student_id", student.StudentID), zap.Error(err))
		return nil, apperrors.Transport("写入志愿行", err)
	}
	resp.Recorded = true

	s.logger.Info("志愿分配完成",
		zap.String("counselor_id", counselorID),
		zap.String("student", studentName),
		zap.Int("universities", len(choices)),
	)
	return resp, nil
}
