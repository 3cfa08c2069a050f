package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/config"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/repository"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/scoring"
	apperrors "github.com/kanatwo544/university-guidance-6-sub001/pkg/errors"
)

// ── 学生池模块业务错误 ──

var (
	ErrStudentNotInCaseload = fmt.Errorf("学生不在该顾问名册中: %w", apperrors.ErrNotFound)
	ErrPoolDataIncomplete   = fmt.Errorf("学生缺少池属性或学业成绩: %w", apperrors.ErrNotFound)
)

const defaultFetchConcurrency = 8

// PoolService 学生池聚合业务接口
type PoolService interface {
	// GetCounselorPoolData 聚合顾问名册中每个学生的综合分，区分待分配与已分配
	GetCounselorPoolData(ctx context.Context, counselorName string) (*dto.PoolDataResponse, error)
	// GetStudentStrength 优先读取综合分缓存，缺失或权重已变更时重算并回写
	GetStudentStrength(ctx context.Context, counselorName, studentName string) (*dto.StrengthResponse, error)
	// SeedStudent 将学生登记到顾问名册并写入池属性与学业成绩
	SeedStudent(ctx context.Context, req *dto.SeedPoolStudentRequest) error
}

type poolService struct {
	repo        *repository.Repository
	weighting   WeightingService
	concurrency int
	logger      *zap.Logger
}

// NewPoolService 创建 PoolService 实例
func NewPoolService(cfg *config.PoolConfig, repo *repository.Repository, weighting WeightingService, logger *zap.Logger) PoolService {
	concurrency := cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	return &poolService{
		repo:        repo,
		weighting:   weighting,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ═══════════════════════════════════════════════════════════
// GetCounselorPoolData 学生池聚合
// ═══════════════════════════════════════════════════════════
//
// 流程：
//  1. 读取一次权重配置（不存在则为默认值），贯穿本次聚合
//  2. 读取名册；为空直接返回全零结果
//  3. 并发拉取每个学生的池属性与学业成绩：
//     任一缺失 → 跳过该学生（不计入任何统计）；读取出错 → 整体失败
//  4. 计算综合分（保留一位小数）并回写缓存，回写失败只记录日志
//  5. 按名册顺序汇总：已分配计入 TotalAssigned，其余进入 ActiveStudents

func (s *poolService) GetCounselorPoolData(ctx context.Context, counselorName string) (*dto.PoolDataResponse, error) {
	cfg, err := s.weighting.Get(ctx, counselorName)
	if err != nil {
		return nil, err
	}

	names, err := s.repo.Pool.GetCaseload(ctx, counselorName)
	if err != nil {
		s.logger.Error("读取名册失败", zap.String("counselor", counselorName), zap.Error(err))
		return nil, apperrors.Transport("读取名册", err)
	}

	result := &dto.PoolDataResponse{
		ActiveStudents:   []model.PoolStudent{},
		AssignedStudents: []model.PoolStudent{},
		TotalCaseload:    len(names),
	}
	if len(names) == 0 {
		return result, nil
	}

	// 每个 goroutine 只写自己的下标，nil 表示被跳过
	loaded := make([]*model.PoolStudent, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			student, err := s.loadStudent(gctx, name, cfg)
			if err != nil {
				return err
			}
			if student == nil {
				return nil
			}
			s.cacheStrength(gctx, name, student.CompositeStrength, cfg)
			loaded[i] = student
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("学生池聚合失败", zap.String("counselor", counselorName), zap.Error(err))
		return nil, err
	}

	scores := make([]float64, 0, len(names))
	skipped := 0
	for _, student := range loaded {
		if student == nil {
			skipped++
			continue
		}
		scores = append(scores, student.CompositeStrength)
		if student.IsAssigned {
			result.TotalAssigned++
			result.AssignedStudents = append(result.AssignedStudents, *student)
		} else {
			result.ActiveStudents = append(result.ActiveStudents, *student)
		}
	}

	result.TotalActivePool = len(result.ActiveStudents)
	processed := len(scores)
	if processed > 0 {
		result.AverageStrength = scoring.Round1(scoring.Mean(scores))
		result.Progress = float64(result.TotalAssigned) / float64(processed) * 100
	}

	s.logger.Debug("学生池聚合完成",
		zap.String("counselor", counselorName),
		zap.Int("caseload", len(names)),
		zap.Int("processed", processed),
		zap.Int("skipped", skipped),
		zap.Int("assigned", result.TotalAssigned),
	)
	return result, nil
}

// loadStudent 读取并计算单个学生；任一文档缺失时返回 (nil, nil)
func (s *poolService) loadStudent(ctx context.Context, name string, cfg model.WeightingConfig) (*model.PoolStudent, error) {
	attrs, err := s.repo.Pool.GetPoolAttributes(ctx, name)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Transport("读取池属性", err)
	}

	academic, err := s.repo.Pool.GetAcademicAttributes(ctx, name)
	if errors.Is(err, repository.ErrDocumentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Transport("读取学业成绩", err)
	}

	return buildPoolStudent(name, attrs, academic, cfg), nil
}

func buildPoolStudent(name string, attrs *model.PoolAttributes, academic *model.AcademicAttributes, cfg model.WeightingConfig) *model.PoolStudent {
	composite := scoring.Round1(scoring.Composite(
		attrs.EssayAverage,
		academic.OverallAverage,
		academic.PastOverallAverage,
		cfg,
	))
	return &model.PoolStudent{
		Name:                name,
		Description:         attrs.Description,
		CareerInterests:     attrs.Interests(),
		EssayActivities:     attrs.EssayAverage,
		AcademicPerformance: academic.OverallAverage,
		AcademicTrend:       academic.PastOverallAverage,
		CompositeStrength:   composite,
		StrengthLabel:       scoring.Classify(composite, cfg),
		IsAssigned:          attrs.IsAssigned,
	}
}

// cacheStrength 回写综合分缓存并记录所用权重；失败不影响聚合结果
func (s *poolService) cacheStrength(ctx context.Context, name string, value float64, cfg model.WeightingConfig) {
	entry := model.CachedStrength{Value: value, Weights: cfg.WeightsKey()}
	if err := s.repo.Pool.SetStrength(ctx, name, entry); err != nil {
		s.logger.Warn("回写综合分缓存失败", zap.String("student", name), zap.Error(err))
	}
}

// ═══════════════════════════════════════════════════════════
// GetStudentStrength
// ═══════════════════════════════════════════════════════════

func (s *poolService) GetStudentStrength(ctx context.Context, counselorName, studentName string) (*dto.StrengthResponse, error) {
	if err := s.ensureInCaseload(ctx, counselorName, studentName); err != nil {
		return nil, err
	}

	cfg, err := s.weighting.Get(ctx, counselorName)
	if err != nil {
		return nil, err
	}

	entry, ok, err := s.repo.Pool.GetStrength(ctx, studentName)
	if err != nil {
		// 缓存不可用时退化为重算
		s.logger.Warn("读取综合分缓存失败", zap.String("student", studentName), zap.Error(err))
	}
	// 权重变更后旧缓存作废
	if ok && entry.Weights == cfg.WeightsKey() {
		return &dto.StrengthResponse{
			Name:              studentName,
			CompositeStrength: entry.Value,
			StrengthLabel:     scoring.Classify(entry.Value, cfg),
			Cached:            true,
		}, nil
	}

	student, err := s.loadStudent(ctx, studentName, cfg)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, ErrPoolDataIncomplete
	}
	s.cacheStrength(ctx, studentName, student.CompositeStrength, cfg)

	return &dto.StrengthResponse{
		Name:              studentName,
		CompositeStrength: student.CompositeStrength,
		StrengthLabel:     student.StrengthLabel,
	}, nil
}

func (s *poolService) ensureInCaseload(ctx context.Context, counselorName, studentName string) error {
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
// SeedStudent
// ═══════════════════════════════════════════════════════════

func (s *poolService) SeedStudent(ctx context.Context, req *dto.SeedPoolStudentRequest) error {
	name := strings.TrimSpace(req.Name)

	counselor, err := s.repo.Counselor.GetByName(ctx, req.CounselorName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCounselorNotFound
		}
		return apperrors.Transport("查询顾问", err)
	}

	if err := s.repo.Pool.SetPoolAttributes(ctx, name, model.PoolAttributes{
		Description:     req.Description,
		EssayAverage:    req.EssayAverage,
		CareerInterests: req.CareerInterests,
	}); err != nil {
		return apperrors.Transport("写入池属性", err)
	}
	if err := s.repo.Pool.SetAcademicAttributes(ctx, name, model.AcademicAttributes{
		OverallAverage:     req.OverallAverage,
		PastOverallAverage: req.PastOverallAverage,
	}); err != nil {
		return apperrors.Transport("写入学业成绩", err)
	}
	// 输入已变，旧综合分不再可信
	if err := s.repo.Pool.DeleteStrength(ctx, name); err != nil {
		s.logger.Warn("清除综合分缓存失败", zap.String("student", name), zap.Error(err))
	}
	if err := s.repo.Pool.AddToCaseload(ctx, counselor.Name, name); err != nil {
		return apperrors.Transport("写入名册", err)
	}

	// 关系库中的学生记录提供稳定的 student_id
	_, err = s.repo.Student.GetByCounselorAndName(ctx, counselor.CounselorID, name)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.repo.Student.Create(ctx, &model.Student{
			CounselorID: counselor.CounselorID,
			Name:        name,
			Description: req.Description,
		}); err != nil {
			return apperrors.Transport("创建学生", err)
		}
	default:
		return apperrors.Transport("查询学生", err)
	}

	s.logger.Info("学生已登记到名册",
		zap.String("counselor", counselor.Name),
		zap.String("student", name),
	)
	return nil
}
