package handler

import (
	"github.com/kanatwo544/university-guidance-6-sub001/config"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	Pool       *PoolHandler
	Assignment *AssignmentHandler
	Progress   *ProgressHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth, cfg),
		Pool:       NewPoolHandler(svc.Pool, svc.Weighting),
		Assignment: NewAssignmentHandler(svc.Assignment),
		Progress:   NewProgressHandler(svc.Progress),
		Export:     NewExportHandler(svc.Export),
	}
}
