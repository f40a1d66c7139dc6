package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"caixinha/internal/core"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// parseDateField parses a form date in YYYY-MM-DD format, defaulting to
// today when the field is empty.
func parseDateField(form url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(form.Get(key))
	if v == "" {
		return core.Today(), nil
	}
	return core.ParseDate(v)
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
