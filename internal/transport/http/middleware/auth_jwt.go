package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"go-user-admin/internal/core/auth"
	"go-user-admin/internal/domain"
	"go-user-admin/internal/transport/http/ez"
	resp "go-user-admin/internal/transport/http/response"
)

// AuthJWT 解析 Bearer 令牌并写入 principal；缺失或非法 → 401
func AuthJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		c.Set(ez.CtxPrincipal, domain.Principal{Login: claims.Subject, Admin: claims.IsAdmin})
		c.Next()
	}
}
