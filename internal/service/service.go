package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kanatwo544/university-guidance-6-sub001/config"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/repository"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/jwt"
)

// TokenBlacklist 登出时吊销 Access Token（由 pkg/redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	Weighting  WeightingService
	Pool       PoolService
	Assignment AssignmentService
	Progress   ProgressService
	Export     ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	weighting := NewWeightingService(repo, logger)
	pool := NewPoolService(&cfg.Pool, repo, weighting, logger)
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		Weighting:  weighting,
		Pool:       pool,
		Assignment: NewAssignmentService(repo, logger),
		Progress:   NewProgressService(&cfg.Pool, repo, logger),
		Export:     NewExportService(pool, logger),
	}
}
