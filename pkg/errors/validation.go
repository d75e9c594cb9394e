package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

const maxNodeIDLength = 128

// ValidateNodeID validates a node identifier taken from user input, such as a
// URL path segment or a CLI flag.
//
// The rules are conservative:
//   - No empty IDs
//   - Maximum length of 128 characters
//   - No control characters or whitespace
//   - No path separators or traversal sequences
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidNodeID, "node id cannot be empty")
	}

	if len(id) > maxNodeIDLength {
		return New(ErrCodeInvalidNodeID, "node id too long (max %d characters)", maxNodeIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidNodeID, "node id contains whitespace or control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidNodeID, "node id contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// departmentRegex matches department codes such as "CSCI" or "MATH".
var departmentRegex = regexp.MustCompile(`^[A-Za-z]{2,8}$`)

// ValidateDepartment validates a department code. Codes are case-insensitive
// and are upper-cased when building payload keys.
func ValidateDepartment(dept string) error {
	if dept == "" {
		return New(ErrCodeInvalidInput, "department cannot be empty")
	}
	if !departmentRegex.MatchString(dept) {
		return New(ErrCodeInvalidInput, "invalid department code: %q", dept)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https) and a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL must have a host")
	}

	return nil
}
