package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/repository"
	apperrors "github.com/kanatwo544/university-guidance-6-sub001/pkg/errors"
)

// WeightingService 顾问权重配置业务接口
//
// 配置以顾问显示名为键存放在文档层：
//   - 首次读取时不存在则写入默认配置（40/50/10，90-100 / 80-89 / 70-79 / 0-69）
//   - 更新为整体覆盖，不做权重之和校验（由 HTTP 层的 weights_total 规则负责）
//   - 配置从不删除
type WeightingService interface {
	Get(ctx context.Context, counselorName string) (model.WeightingConfig, error)
	Update(ctx context.Context, counselorName string, cfg model.WeightingConfig) (model.WeightingConfig, error)
}

type weightingService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewWeightingService 创建 WeightingService 实例
func NewWeightingService(repo *repository.Repository, logger *zap.Logger) WeightingService {
	return &weightingService{repo: repo, logger: logger}
}

func (s *weightingService) Get(ctx context.Context, counselorName string) (model.WeightingConfig, error) {
	cfg, err := s.repo.Pool.GetWeighting(ctx, counselorName)
	if err == nil {
		return *cfg, nil
	}
	if !errors.Is(err, repository.ErrDocumentNotFound) {
		s.logger.Error("读取权重配置失败", zap.String("counselor", counselorName), zap.Error(err))
		return model.WeightingConfig{}, apperrors.Transport("读取权重配置", err)
	}

	defaults := model.DefaultWeightingConfig()
	// 默认配置的写入失败不影响本次读取
	if err := s.repo.Pool.SetWeighting(ctx, counselorName, defaults); err != nil {
		s.logger.Warn("写入默认权重配置失败", zap.String("counselor", counselorName), zap.Error(err))
	}
	return defaults, nil
}

func (s *weightingService) Update(ctx context.Context, counselorName string, cfg model.WeightingConfig) (model.WeightingConfig, error) {
	if err := s.repo.Pool.SetWeighting(ctx, counselorName, cfg); err != nil {
		s.logger.Error("更新权重配置失败", zap.String("counselor", counselorName), zap.Error(err))
		return model.WeightingConfig{}, apperrors.Transport("更新权重配置", err)
	}
	s.logger.Info("权重配置已更新",
		zap.String("counselor", counselorName),
		zap.Int("essay_weight", cfg.EssayWeight),
		zap.Int("current_average_weight", cfg.CurrentAverageWeight),
		zap.Int("past_average_weight", cfg.PastAverageWeight),
	)
	return cfg, nil
}
