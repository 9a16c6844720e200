package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	jwtmw "github.com/hivechat/hive/middleware/jwt"
)

// AuthMiddleware 会话认证中间件
// 任何缺失/无效会话的请求在进入业务逻辑前即返回 401
func AuthMiddleware(tokens *jwtmw.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string

		// 1. 尝试从请求头获取 token
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}

		// 2. 请求头没有则尝试 Query 参数（WebSocket 握手用）
		if token == "" {
			token = c.Query("token")
		}

		if token == "" {
			c.JSON(
				http.StatusUnauthorized,
				gin.H{"error": "未提供认证 Token"},
			)
			c.Abort()
			return
		}

		claims, err := tokens.ParseToken(token)
		if err != nil {
			c.JSON(
				http.StatusUnauthorized,
				gin.H{"error": "Token 无效或已过期"},
			)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("handle", claims.Handle)
		c.Set("wallet", claims.Wallet)

		c.Next()
	}
}

// CurrentUserID 从上下文取当前用户 ID，未认证时返回 false
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
