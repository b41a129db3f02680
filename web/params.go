package web

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

func queryBool(key string, c *gin.Context) (bool, bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, false, nil
	}
	b, err := strconv.ParseBool(v)
	return b, true, err
}

func queryInt(key string, c *gin.Context, defaultVal int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func queryStrings(key string, c *gin.Context) []string {
	v := c.Query(key)
	if v == "" {
		return nil
	}

	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}
