package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

// SanitizedBodyKey holds the decoded, cleaned JSON body in the gin context.
const SanitizedBodyKey = "sanitized_body"

// SanitizeInput strips markup from every string in a JSON request body using
// bluemonday's strict policy, nested objects and arrays included.
func SanitizeInput() gin.HandlerFunc {
	policy := bluemonday.StrictPolicy()

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
		var body map[string]interface{}
		if err := json.Unmarshal(buf, &body); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
			return
		}

		for k, v := range body {
			body[k] = sanitizeValue(policy, v)
		}

		newBody, _ := json.Marshal(body)
		c.Request.Body = io.NopCloser(bytes.NewBuffer(newBody))
		c.Request.ContentLength = int64(len(newBody))
		c.Set(SanitizedBodyKey, body)

		c.Next()
	}
}

func sanitizeValue(policy *bluemonday.Policy, v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return policy.Sanitize(t)
	case []interface{}:
		for i := range t {
			t[i] = sanitizeValue(policy, t[i])
		}
		return t
	case map[string]interface{}:
		for k := range t {
			t[k] = sanitizeValue(policy, t[k])
		}
		return t
	default:
		return v
	}
}

// WalletKey returns the request's walletAddress from the query string or the
// sanitized body, for use as a rate-limit key.
func WalletKey(c *gin.Context) string {
	if w := c.Query("walletAddress"); w != "" {
		return "wallet:" + w
	}
	if raw, ok := c.Get(SanitizedBodyKey); ok {
		if body, ok := raw.(map[string]interface{}); ok {
			if w, ok := body["walletAddress"].(string); ok && w != "" {
				return "wallet:" + w
			}
		}
	}
	return ""
}
