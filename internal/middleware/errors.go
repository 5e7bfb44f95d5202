package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dantescur/msfback/internal/logger"
	"github.com/Dantescur/msfback/internal/session"
)

// StatusFor maps a failure kind to the HTTP status the API reports.
func StatusFor(kind session.Kind) int {
	switch kind {
	case session.KindNotFound:
		return http.StatusNotFound
	case session.KindValidationFailed,
		session.KindInvalidPlanOrAddon,
		session.KindIncompleteSubmission,
		session.KindCannotSkipAhead:
		return http.StatusBadRequest
	case session.KindPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError aborts the request with the standard error body:
// {"error", "kind", "details", "timestamp"}.
func RespondError(c *gin.Context, err error) {
	kind := session.KindOf(err)
	status := StatusFor(kind)

	msg := "internal error"
	details := []string{}

	var se *session.Error
	if errors.As(err, &se) {
		msg = se.Message
		if len(se.Details) > 0 {
			details = se.Details
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", map[string]any{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"kind":   kind.String(),
			"error":  err.Error(),
		})
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":     msg,
		"kind":      kind.String(),
		"details":   details,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
