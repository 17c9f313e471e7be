package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kimeia/alientu-engine/internal/api/middleware"
	"github.com/kimeia/alientu-engine/internal/workflow"
	"github.com/kimeia/alientu-engine/pkg/response"
)

// MustGetOperatorID 从 Gin 上下文中安全提取运营人员用户名。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetOperatorID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.CtxOperatorID)
	if s == "" {
		response.Unauthorized(c, 10002, "Autenticazione richiesta.")
		return "", false
	}
	return s, true
}

// tokenInfo 当前 Token 的 jti 与过期时间，缺失时返回零值
func tokenInfo(c *gin.Context) (string, time.Time) {
	jti := c.GetString(middleware.CtxTokenJTI)
	var exp time.Time
	if v, ok := c.Get(middleware.CtxTokenExp); ok {
		exp, _ = v.(time.Time)
	}
	return jti, exp
}

// writeValidationError 输出校验类错误（422 + 逐条提示），不是校验错误时返回 false
func writeValidationError(c *gin.Context, code int, err error) bool {
	var verr *workflow.ValidationError
	if errors.As(err, &verr) {
		response.ValidationFailed(c, code, verr.Messages)
		return true
	}
	var terr *workflow.TransitionError
	if errors.As(err, &terr) {
		response.ValidationFailed(c, code, terr.Messages())
		return true
	}
	return false
}
