package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/kanatwo544/university-guidance-6-sub001/config"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/model"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/repository"
	apperrors "github.com/kanatwo544/university-guidance-6-sub001/pkg/errors"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/jwt"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials  = errors.New("邮箱或密码错误")
	ErrInvalidRefreshToken = errors.New("refresh token 无效或已过期")
	ErrCounselorNotFound   = fmt.Errorf("顾问不存在: %w", apperrors.ErrNotFound)
	ErrCounselorExists     = errors.New("顾问邮箱或姓名已存在")
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout 将 Access Token 的 jti 加入黑名单直至其过期
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	GetCurrentCounselor(ctx context.Context, counselorID string) (*dto.CounselorResponse, error)
	CreateCounselor(ctx context.Context, req *dto.CreateCounselorRequest) (*dto.CounselorResponse, error)
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询顾问
	counselor, err := s.repo.Counselor.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询顾问失败", zap.Error(err))
		return nil, apperrors.Transport("查询顾问", err)
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(counselor.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	return s.issueTokens(counselor)
}

func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	// 顾问可能已被删除或改名，重新读取
	counselor, err := s.repo.Counselor.GetByID(ctx, claims.CounselorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		s.logger.Error("查询顾问失败", zap.Error(err))
		return nil, apperrors.Transport("查询顾问", err)
	}

	return s.issueTokens(counselor)
}

func (s *authService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.blacklist == nil || jti == "" {
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, jti, time.Until(expiresAt)); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.Error(err))
		return apperrors.Transport("写入 Token 黑名单", err)
	}
	return nil
}

func (s *authService) GetCurrentCounselor(ctx context.Context, counselorID string) (*dto.CounselorResponse, error) {
	counselor, err := s.repo.Counselor.GetByID(ctx, counselorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCounselorNotFound
		}
		s.logger.Error("查询顾问失败", zap.Error(err))
		return nil, apperrors.Transport("查询顾问", err)
	}
	return toCounselorResponse(counselor), nil
}

func (s *authService) CreateCounselor(ctx context.Context, req *dto.CreateCounselorRequest) (*dto.CounselorResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = model.RoleCounselor
	}
	counselor := &model.Counselor{
		Name:            strings.TrimSpace(req.Name),
		Email:           strings.TrimSpace(req.Email),
		PasswordHash:    string(hash),
		Role:            role,
		UniversityLimit: req.UniversityLimit,
	}
	if err := s.repo.Counselor.Create(ctx, counselor); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCounselorExists
		}
		s.logger.Error("创建顾问失败", zap.Error(err))
		return nil, apperrors.Transport("创建顾问", err)
	}

	s.logger.Info("顾问已创建",
		zap.String("counselor_id", counselor.CounselorID),
		zap.String("name", counselor.Name),
		zap.String("role", counselor.Role),
	)
	return toCounselorResponse(counselor), nil
}

func (s *authService) issueTokens(counselor *model.Counselor) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(counselor.CounselorID, counselor.Name, counselor.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(counselor.CounselorID, counselor.Name, counselor.Role)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.Auth.AccessTokenTTL.Seconds()),
		Counselor:    *toCounselorResponse(counselor),
	}, nil
}

func toCounselorResponse(c *model.Counselor) *dto.CounselorResponse {
	resp := &dto.CounselorResponse{
		ID:              c.CounselorID,
		Name:            c.Name,
		Email:           c.Email,
		Role:            c.Role,
		UniversityLimit: c.UniversityLimit,
	}
	if !c.CreatedAt.IsZero() {
		resp.CreatedAt = c.CreatedAt.Format(time.RFC3339)
	}
	return resp
}
