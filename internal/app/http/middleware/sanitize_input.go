package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeAndCleanInputMiddleware strips markup from every string in a JSON
// body, including nested objects and arrays. Password fields are left as sent.
func SanitizeAndCleanInputMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		buf, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
			return
		}
		if len(bytes.TrimSpace(buf)) == 0 {
			c.Request.Body = io.NopCloser(bytes.NewReader(buf))
			c.Next()
			return
		}

		var body interface{}
		if err := json.Unmarshal(buf, &body); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
			return
		}

		newBody, _ := json.Marshal(sanitizeValue("", body))
		c.Request.Body = io.NopCloser(bytes.NewBuffer(newBody))
		c.Request.ContentLength = int64(len(newBody))

		c.Next()
	}
}

func sanitizeValue(key string, v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		if strings.Contains(strings.ToLower(key), "password") {
			return val
		}
		return strings.TrimSpace(strictPolicy.Sanitize(val))
	case map[string]interface{}:
		for k, inner := range val {
			val[k] = sanitizeValue(k, inner)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = sanitizeValue(key, inner)
		}
		return val
	default:
		return v
	}
}
