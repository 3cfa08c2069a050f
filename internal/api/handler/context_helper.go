package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kanatwo544/university-guidance-6-sub001/internal/api/middleware"
	"github.com/kanatwo544/university-guidance-6-sub001/internal/dto"
	apperrors "github.com/kanatwo544/university-guidance-6-sub001/pkg/errors"
	"github.com/kanatwo544/university-guidance-6-sub001/pkg/response"
)

// MustGetCounselorID 从 Gin 上下文中提取 counselor_id。
// 未注入时写入 401 响应并返回 false，调用方应直接 return。
func MustGetCounselorID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxCounselorID)
}

// MustGetCounselorName 提取顾问显示名，即学生池文档的键
func MustGetCounselorName(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxCounselorName)
}

// MustGetRole 从 Gin 上下文中提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxRole)
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	s := c.GetString(key)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// pathUUID 读取路径中的 UUID 参数。格式非法的 ID 不可能对应任何记录，
// 直接写入 404 响应并返回 false，不再下发到存储层。
func pathUUID(c *gin.Context, name string, code int, message string) (string, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.NotFound(c, code, message)
		return "", false
	}
	return id.String(), true
}

// tokenIdentity 当前 Access Token 的 jti 与过期时间
func tokenIdentity(c *gin.Context) (string, time.Time, bool) {
	jti := c.GetString(middleware.CtxTokenJTI)
	exp := c.GetTime(middleware.CtxTokenExp)
	if jti == "" || exp.IsZero() {
		response.Unauthorized(c, 10002, "未认证")
		return "", time.Time{}, false
	}
	return jti, exp, true
}

// respondBindError 统一处理请求绑定失败：校验错误带字段详情，超限请求体返回 413
func respondBindError(c *gin.Context, code int, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		response.ErrorWithDetails(c, http.StatusBadRequest, code, "参数校验失败", dto.ValidationDetails(err))
		return
	}
	response.BadRequest(c, code, "请求格式错误")
}

// respondCommonError 各模块未单独处理的错误：存储不可用返回 503，其余 500
func respondCommonError(c *gin.Context, err error) {
	switch {
	case apperrors.IsTransport(err):
		_ = c.Error(err)
		response.Unavailable(c, 10006, "数据服务暂不可用，请稍后重试")
	case errors.Is(err, apperrors.ErrNotFound):
		response.NotFound(c, 10007, "资源不存在")
	case errors.Is(err, apperrors.ErrForbidden):
		response.Forbidden(c, 10003, "无权限访问")
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
