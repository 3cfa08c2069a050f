package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/config"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/api/handler"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/api/middleware"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/jwt"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil, fmt.Errorf("gin 校验器类型不是 validator/v10")
	}
	if err := dto.RegisterValidators(v); err != nil {
		return nil, fmt.Errorf("注册自定义校验规则失败: %w", err)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", healthCheck(rdb, db))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, cfg.Pool.LoginRatePerMinute, time.Minute, logger), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentCounselor)

			// 学生池：综合分、权重、志愿分配（按顾问显示名隔离）
			pool := authorized.Group("/pool")
			{
				pool.GET("", h.Pool.GetPool)
				pool.GET("/export", h.Export.ExportPool)
				pool.GET("/weightings", h.Pool.GetWeightings)
				pool.PUT("/weightings", h.Pool.UpdateWeightings)
				pool.GET("/students/:name/strength", h.Pool.GetStrength)
				pool.POST("/students/:name/assignments", h.Assignment.AssignUniversities)
			}

			// 已分配学生与申请进度（按 counselor_id 隔离）
			students := authorized.Group("/students")
			{
				students.GET("", h.Progress.ListStudents)
				students.GET("/:id", h.Progress.GetStudent)
				students.POST("/:id/assignments/:assignmentId/progress", h.Progress.CreateProgress)
			}
			authorized.PATCH("/progress/:id", h.Progress.UpdateProgress)
			authorized.DELETE("/assignments/:id", h.Progress.DeleteAssignment)

			// 管理员
			admin := authorized.Group("/admin", middleware.RoleAuth(model.RoleAdmin))
			{
				admin.POST("/counselors", h.Auth.CreateCounselor)
				admin.POST("/pool/students", h.Pool.SeedStudent)
			}
		}
	}

	return r, nil
}

// healthCheck 依次检查 PostgreSQL 与 Redis，任一失败返回 503
func healthCheck(rdb *redis.Client, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "postgres": "ok", "redis": "ok"}
		code := http.StatusOK

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["postgres"] = "down"
			code = http.StatusServiceUnavailable
		}
		if err := rdb.Ping(ctx); err != nil {
			status["redis"] = "down"
			code = http.StatusServiceUnavailable
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}
		c.JSON(code, status)
	}
}
