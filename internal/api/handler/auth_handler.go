package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kanatwo544/university-guidance-6-sub001/config"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/service"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/response"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/v1/auth"
)

// AuthHandler 认证模块 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	cfg     *config.Config
}

// NewAuthHandler 创建 AuthHandler；cfg 为 nil 时 Cookie 不设置 Secure 且按会话保存
func NewAuthHandler(authSvc service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cfg: cfg}
}

// Login 顾问登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, 10001, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// RefreshToken 刷新 Token，优先读取请求体，其次读取 HttpOnly Cookie
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := ""
	if c.Request.ContentLength > 0 {
		var req dto.RefreshTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, 10001, err)
			return
		}
		token = req.RefreshToken
	} else if v, err := c.Cookie(refreshCookieName); err == nil {
		token = v
	}
	if token == "" {
		response.BadRequest(c, 10001, "缺少 refresh_token")
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), token)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken)
	response.OK(c, result)
}

// Logout 注销当前 Access Token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	jti, exp, ok := tokenIdentity(c)
	if !ok {
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), jti, exp); err != nil {
		h.handleAuthError(c, err)
		return
	}

	c.SetCookie(refreshCookieName, "", -1, refreshCookiePath, "", h.secureCookie(), true)
	response.OK(c, nil)
}

// GetCurrentCounselor 当前登录顾问信息
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentCounselor(c *gin.Context) {
	counselorID, ok := MustGetCounselorID(c)
	if !ok {
		return
	}

	result, err := h.authSvc.GetCurrentCounselor(c.Request.Context(), counselorID)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.OK(c, result)
}

// CreateCounselor 管理员创建顾问账号
// POST /api/v1/admin/counselors
func (h *AuthHandler) CreateCounselor(c *gin.Context) {
	var req dto.CreateCounselorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, 10001, err)
		return
	}

	result, err := h.authSvc.CreateCounselor(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}

	response.Created(c, result)
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	maxAge := 0
	if h.cfg != nil {
		maxAge = int(h.cfg.Auth.RefreshTokenTTL.Seconds())
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookieName, token, maxAge, refreshCookiePath, "", h.secureCookie(), true)
}

func (h *AuthHandler) secureCookie() bool {
	return h.cfg != nil && h.cfg.Server.SecureCookie
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, 11001, "邮箱或密码错误")
	case errors.Is(err, service.ErrInvalidRefreshToken):
		response.Error(c, http.StatusUnauthorized, 11002, "refresh token 无效或已过期")
	case errors.Is(err, service.ErrCounselorNotFound):
		response.NotFound(c, 11003, "顾问不存在")
	case errors.Is(err, service.ErrCounselorExists):
		response.Conflict(c, 11004, "顾问邮箱或姓名已存在")
	default:
		respondCommonError(c, err)
	}
}
