package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const idContextKey = "resource_id"

// ValidateIDParam rejects requests whose path parameter is not a canonical
// UUID before any handler runs.
func ValidateIDParam(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param(name)
		id, err := uuid.Parse(raw)
		// uuid.Parse also accepts urn: and braced forms
		if err != nil || len(raw) != 36 || !isRFCIdentifier(id) {
			c.Error(NewHTTPError(http.StatusBadRequest, "Invalid identifier"))
			c.Abort()
			return
		}

		c.Set(idContextKey, id)
		c.Next()
	}
}

// isRFCIdentifier requires the RFC 4122 variant and a defined version, which
// rules out the nil UUID.
func isRFCIdentifier(id uuid.UUID) bool {
	version := id.Version()
	return id.Variant() == uuid.RFC4122 && version >= 1 && version <= 8
}

// ResourceID returns the identifier stored by ValidateIDParam.
func ResourceID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(idContextKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
