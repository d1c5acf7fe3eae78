// Package validation provides input validation for the FraudLens API.
package validation

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB).
const MaxRequestSize = 1 << 20

// MaxUserIDLength bounds user identifiers well above anything the
// backend roster hands out.
const MaxUserIDLength = 64

// userIDRegex accepts any identifier shape the backend roster may use
// (alice, user_001, u123). Which users actually exist is the roster's
// call, not ours.
var userIDRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// RequestSizeMiddleware limits request body size.
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidUserID checks the shape of a user identifier: non-empty,
// bounded, and free of whitespace and control characters.
func IsValidUserID(id string) bool {
	if id == "" || len(id) > MaxUserIDLength {
		return false
	}
	return userIDRegex.MatchString(id)
}

// SanitizeSearch trims a search term, caps its length, and strips null
// bytes before it reaches the filter engine. Truncation never splits a
// multi-byte rune.
func SanitizeSearch(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return strings.ReplaceAll(s, "\x00", "")
}
