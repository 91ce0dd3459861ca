package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dukapos/backend/internal/domain/identity"
	"github.com/dukapos/backend/internal/infrastructure/auth"
	"github.com/dukapos/backend/internal/interfaces/http/dto"
)

// Auth context keys
const (
	OperatorContextKey = "operator"
	authHeaderKey      = "Authorization"
	bearerPrefix       = "Bearer "
)

// OperatorAuth verifies the bearer token on every request and stores the
// resolved operator in the gin context. Requests without a valid token
// are rejected with 401.
func OperatorAuth(verifier *auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authHeaderKey)
		if header == "" {
			abortUnauthorized(c, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			abortUnauthorized(c, "Authorization header must use the Bearer scheme")
			return
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		operator, err := verifier.Verify(token)
		if err != nil {
			message := "Invalid token"
			if err == auth.ErrExpiredToken {
				message = "Token has expired"
			}
			abortUnauthorized(c, message)
			return
		}

		c.Set(OperatorContextKey, operator)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	requestID := c.GetString(RequestIDContextKey)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(dto.ErrCodeUnauthorized, message, requestID))
}

// GetOperator returns the operator stored by OperatorAuth. The second
// return is false on routes the middleware does not guard.
func GetOperator(c *gin.Context) (identity.Operator, bool) {
	value, exists := c.Get(OperatorContextKey)
	if !exists {
		return identity.Operator{}, false
	}
	operator, ok := value.(identity.Operator)
	return operator, ok
}
