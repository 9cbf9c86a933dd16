package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/transcriptflow/server/internal/pkg/jwt"
	"github.com/transcriptflow/server/internal/pkg/response"
	"github.com/transcriptflow/server/internal/service"
)

const (
	UserIDKey  = "userID"
	IsAdminKey = "isAdmin"
)

// RoleLookup 查询用户是否为管理员
type RoleLookup func(userID int64) (bool, error)

// Auth JWT 认证中间件，重置密码令牌不能用于访问接口
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "请提供认证信息")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "认证格式错误")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "认证失败或已过期")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Next()
	}
}

// LoadRole 在 Auth 之后加载用户角色
func LoadRole(lookup RoleLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		isAdmin, err := lookup(userID)
		if err != nil {
			// 令牌有效但用户已不存在
			response.AuthError(c, "用户不存在")
			c.Abort()
			return
		}

		c.Set(IsAdminKey, isAdmin)
		c.Next()
	}
}

// AdminOnly 仅管理员可访问，需在 LoadRole 之后
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(IsAdminKey) {
			response.PermissionError(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}

// RequestContext 当前请求的身份信息
func RequestContext(c *gin.Context) (service.RequestContext, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		return service.RequestContext{}, false
	}
	return service.RequestContext{UserID: userID, IsAdmin: c.GetBool(IsAdminKey)}, true
}
