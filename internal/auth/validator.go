package auth

import (
	"regexp"
	"strings"
)

// Email validation regex (RFC 5322 simplified)
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail checks if an email address is valid.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// SanitizeEmail normalizes an email address the way the backend does before
// lookup, so the gateway's throttle and audit keys agree with its records.
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
