package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"yaothink/internal/envelope"
)

const contextUserIDKey = "user_id"

// RequireAuth validates the bearer token and injects the user ID into the
// gin context. Requests without a valid token are rejected with 401 and a
// detail body, never silently downgraded.
func RequireAuth(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			envelope.Abort(c, http.StatusUnauthorized, "未提供认证令牌")
			return
		}

		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			envelope.Abort(c, http.StatusUnauthorized, ErrTokenInvalid.Error())
			return
		}

		userID, err := tokens.Parse(raw)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				envelope.Abort(c, http.StatusUnauthorized, ErrTokenExpired.Error())
				return
			}
			envelope.Abort(c, http.StatusUnauthorized, ErrTokenInvalid.Error())
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

// ContextUserID returns the authenticated user ID injected by RequireAuth.
func ContextUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(contextUserIDKey)
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
