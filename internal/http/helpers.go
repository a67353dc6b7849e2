package http

import (
	"net/http"
	"strconv"
	"strings"

	"financas/internal/core"
)

// maxFormBytes bounds form bodies; every form here is a handful of fields.
const maxFormBytes = 64 << 10

// parseForm reads a bounded urlencoded body. Values are read with field.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	return r.ParseForm()
}

// field returns the trimmed, sanitized form value of key.
func field(r *http.Request, key string) string {
	return sanitizeInput(r.PostFormValue(key))
}

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// parseID reads the {id} path segment. Malformed ids cannot name a plan, so
// they are reported as not found.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}
