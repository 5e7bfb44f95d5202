package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Dantescur/msfback/internal/session"
)

// SessionIDKey is the gin context key holding the validated session id.
const SessionIDKey = "sessionID"

// RequireSessionID rejects requests whose path parameter is not a
// well-formed session id, before any handler touches the store.
func RequireSessionID(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param(param)
		if !session.ValidID(id) {
			RespondError(c, session.NewError(session.KindValidationFailed, "invalid session id",
				fmt.Sprintf("id must be %d characters of [A-Za-z0-9_-]", session.IDLength)))
			return
		}

		c.Set(SessionIDKey, id)
		c.Next()
	}
}
