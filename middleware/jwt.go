package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const AuthCookie = "auth_token"

// ParseSession verifies a session cookie value and returns the identity
// claims stored under "user". Shared between the JWT middleware and the
// auth status endpoint, which must never error on a bad cookie.
func ParseSession(tokenStr string) (map[string]any, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}

		return []byte(viper.GetString("session.secret")), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	user, ok := claims["user"].(map[string]any)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return user, nil
}

// NewJWTMiddleware rejects requests without a valid session cookie and
// puts the verified identity into the gin context
func NewJWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		tokenStr, err := c.Cookie(AuthCookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authentication required",
				"requestID": requestID,
			})
			return
		}

		user, err := ParseSession(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token invalid",
				"requestID": requestID,
			})

			zap.L().Debug("Failed to parse session token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		if id, ok := user["id"].(string); ok {
			c.Set("userID", id)
		}
		c.Set("user", user)
		c.Next()
	}
}
