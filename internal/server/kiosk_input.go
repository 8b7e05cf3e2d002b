package server

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// kioskFields reads a flat set of string fields from a JSON or form body.
// JSON numbers are kept verbatim so large member ids survive.
func kioskFields(c *gin.Context, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	if c.ContentType() == binding.MIMEJSON {
		raw := map[string]json.RawMessage{}
		if c.Request.Body != nil && c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&raw); err != nil {
				return nil, invalidRequestError()
			}
		}
		for _, key := range keys {
			value, ok := raw[key]
			if !ok {
				continue
			}
			out[key] = rawString(value)
		}
		return out, nil
	}

	for _, key := range keys {
		out[key] = strings.TrimSpace(c.PostForm(key))
	}
	return out, nil
}

// lenientKioskFields reads like kioskFields but treats an unparseable body as
// empty, so the kiosk falls through to its usual not-found reply.
func lenientKioskFields(c *gin.Context, keys ...string) map[string]string {
	fields, err := kioskFields(c, keys...)
	if err != nil {
		return map[string]string{}
	}
	return fields
}

func rawString(value json.RawMessage) string {
	var s string
	if err := json.Unmarshal(value, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(value, &n); err == nil {
		return n.String()
	}
	text := strings.TrimSpace(string(value))
	if text == "null" {
		return ""
	}
	return text
}
