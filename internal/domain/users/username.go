package users

import (
	"regexp"
	"strings"

	"resumeiq-backend/internal/apperr"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 20
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// NormalizeUsername trims and lower-cases a candidate, then validates it.
// Invalid characters are rejected, not stripped.
func NormalizeUsername(candidate string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(candidate))
	if len(name) < UsernameMinLen || len(name) > UsernameMaxLen {
		return "", apperr.Invalid("username must be %d-%d characters", UsernameMinLen, UsernameMaxLen)
	}
	if !usernamePattern.MatchString(name) {
		return "", apperr.Invalid("username may only contain lowercase letters, numbers and underscores")
	}
	return name, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
