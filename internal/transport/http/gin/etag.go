package httpgin

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// writeJSONWithCache writes v with an ETag and Cache-Control. A request whose
// If-None-Match carries the same tag gets 304 without a body.
func writeJSONWithCache(
	c *gin.Context,
	status int,
	v any,
	cacheControl string,
	weak bool,
) {
	b, err := json.Marshal(v)
	if err != nil {
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}

	sum := sha256.Sum256(b)
	tag := `"` + hex.EncodeToString(sum[:16]) + `"`
	if weak {
		tag = "W/" + tag
	}

	c.Header("ETag", tag)
	if cacheControl != "" {
		c.Header("Cache-Control", cacheControl)
	}

	if etagMatch(c.GetHeader("If-None-Match"), tag) {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(status, "application/json; charset=utf-8", b)
}

// etagMatch compares weakly, so "W/x" matches "x".
func etagMatch(header, tag string) bool {
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	strip := func(s string) string {
		return strings.TrimPrefix(s, "W/")
	}

	want := strip(tag)
	for _, candidate := range strings.Split(header, ",") {
		if strip(strings.TrimSpace(candidate)) == want {
			return true
		}
	}
	return false
}
