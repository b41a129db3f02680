package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bobinette/research/errors"
)

// HandlerFunc is a gin handler that returns its result instead of writing to the
// response directly, letting JSONFormatter own status-code mapping and error shaping.
type HandlerFunc func(*gin.Context) (interface{}, error)

// JSONFormatter maps a HandlerFunc's return value to a JSON response, translating any
// returned errors.Error into its carried HTTP status code.
func JSONFormatter(next HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := next(c)
		if err != nil {
			code := http.StatusInternalServerError
			if e, ok := err.(errors.Error); ok {
				code = e.Code()
			}

			c.JSON(code, map[string]interface{}{"message": err.Error()})
			return
		}

		c.JSON(http.StatusOK, res)
	}
}
