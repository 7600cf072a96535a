// Package correlation generates and validates the identifiers that link an
// injection to the out-of-band callbacks it triggers.
package correlation

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// IDLength is the exact length of a correlation ID in characters.
const IDLength = 16

// NewID returns a fresh correlation ID: 16 lowercase hex characters drawn
// from a cryptographically secure source (64 bits of entropy). The format
// survives truncation at word and URL-path boundaries and is safe in headers,
// cookies, query arguments, and single DNS labels.
func NewID() (string, error) {
	buf := make([]byte, IDLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate correlation ID: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidID reports whether s is a well-formed correlation ID: exactly 16
// characters, all lowercase hex. No dashes, no uppercase, no padding.
func ValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// CallbackURL joins a callback base URL and a correlation ID. Trailing
// slashes on the base are trimmed so the result is always base + "/" + id.
func CallbackURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/" + id
}
