package dto

// ── 认证模块 DTO ──

// LoginRequest 顾问登录请求
type LoginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest 刷新 Token 请求
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// CreateCounselorRequest 管理员创建顾问
type CreateCounselorRequest struct {
	Name            string `json:"name"             binding:"required,min=2,max=100"`
	Email           string `json:"email"            binding:"required,email"`
	Password        string `json:"password"         binding:"required,min=8,max=64"`
	Role            string `json:"role"             binding:"omitempty,oneof=counselor admin"`
	UniversityLimit int    `json:"university_limit" binding:"omitempty,min=0,max=50"`
}
