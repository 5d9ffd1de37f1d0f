package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const ginAuthKey = "auth"

// Middleware extracts the bearer token and injects the AuthContext into both
// the gin context and the request context.
//
// If the token is missing or invalid the request proceeds without auth
// context. Public endpoints ignore it; protected groups add RequireAuth.
func Middleware(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			slog.Debug("no authorization header provided")
			c.Next()
			return
		}

		token, err := ExtractBearer(authHeader)
		if err == nil {
			var authCtx *AuthContext
			authCtx, err = issuer.Parse(token)
			if err == nil {
				c.Set(ginAuthKey, authCtx)
				c.Request = c.Request.WithContext(WithAuthContext(c.Request.Context(), authCtx))
				slog.Debug("auth context injected successfully",
					"user_id", authCtx.UserID,
					"role", authCtx.Role,
				)
			}
		}
		if err != nil {
			slog.Warn("failed to authenticate bearer token",
				"error", err,
				"auth_header_length", len(authHeader),
			)
		}
		c.Next()
	}
}

// FromGin returns the AuthContext injected by Middleware, or nil.
func FromGin(c *gin.Context) *AuthContext {
	value, ok := c.Get(ginAuthKey)
	if !ok {
		return nil
	}
	authCtx, _ := value.(*AuthContext)
	return authCtx
}

// RequireAuth aborts with 401 when no auth context is present.
// It must run after Middleware.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if FromGin(c) == nil {
			slog.Warn("authentication required but not provided",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireHR aborts with 403 unless the caller has HR rights.
func RequireHR() gin.HandlerFunc {
	return func(c *gin.Context) {
		authCtx := FromGin(c)
		if authCtx == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "authentication required"})
			return
		}
		if !authCtx.IsHR() {
			slog.Warn("hr role required",
				"user_id", authCtx.UserID,
				"role", authCtx.Role,
				"path", c.Request.URL.Path,
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "HR role required"})
			return
		}
		c.Next()
	}
}
