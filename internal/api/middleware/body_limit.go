package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kimeia/alientu-engine/pkg/response"
)

// BodyLimit 请求体大小限制，maxBytes <= 0 表示不限制。
// 声明的 Content-Length 超限时直接返回 413；未声明长度的请求由 MaxBytesReader 截断，
// handler 读取时得到 *http.MaxBytesError。
// 可按路由组叠加使用，较小的限制生效。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "Richiesta troppo grande.")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
