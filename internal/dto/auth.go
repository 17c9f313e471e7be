package dto

// ── 运营人员认证 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}

// TokenResponse 登录成功响应
type TokenResponse struct {
	AccessToken string           `json:"access_token"`
	ExpiresIn   int              `json:"expires_in"` // Access Token 有效期（秒）
	Operator    OperatorResponse `json:"operator"`
}

// OperatorResponse 运营人员信息
type OperatorResponse struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}
