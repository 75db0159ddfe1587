package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openfund/backend/internal/interfaces/http/dto"
)

// PrincipalKey is the gin context key for the calling principal
const PrincipalKey = "principal_id"

// PrincipalHeader is the header carrying the caller's identity. The
// protocol itself is identity-agnostic; callers are authenticated
// upstream and forwarded here as an opaque principal.
const PrincipalHeader = "X-Principal-ID"

// Principal extracts the calling principal from the request header and
// stores it in the gin context. Requests without a valid principal are
// rejected.
func Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(PrincipalHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse("ERR_NO_PRINCIPAL", "Missing "+PrincipalHeader+" header"))
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse("ERR_INVALID_PRINCIPAL", "Invalid "+PrincipalHeader+" header"))
			return
		}
		c.Set(PrincipalKey, id)
		c.Next()
	}
}

// GetPrincipal returns the calling principal from the gin context
func GetPrincipal(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
