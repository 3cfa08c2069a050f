package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/config"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/repository"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/service"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/database"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/jwt"
	applogger "github.com/kanatwo544/university-guidance-6-sub001/pkg/logger"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/redis"
)

// app 命令执行期间持有的连接与服务
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
	svc    *service.Service
}

// openDB 只连接 PostgreSQL（migrate 不依赖 Redis）
func openDB(opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, db: db}, nil
}

// openApp 连接 PostgreSQL 与 Redis 并组装 Service
func openApp(opts *rootOptions) (*app, error) {
	a, err := openDB(opts)
	if err != nil {
		return nil, err
	}
	rdb, err := redis.NewClient(&a.cfg.Redis, a.logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.rdb = rdb

	repo := repository.NewRepository(a.db, rdb, a.cfg.Pool.StrengthTTL)
	a.svc = service.NewService(a.cfg, repo, jwt.NewManager(&a.cfg.Auth), rdb, a.logger)
	return a, nil
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}
