package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// errorCase pairs a sentinel error with the status and message it maps to.
type errorCase struct {
	err     error
	status  int
	message string
}

// respondError matches err against the given cases in order and writes the
// first match as a JSON error body. Unmatched errors get the fallback.
func respondError(c *gin.Context, err error, fallbackStatus int, fallbackMessage string, cases ...errorCase) {
	for _, cs := range cases {
		if cs.err != nil && errors.Is(err, cs.err) {
			c.JSON(cs.status, NewErrorResponse(c, cs.message))
			return
		}
	}
	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
