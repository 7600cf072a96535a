package injector

import (
	"github.com/ricochetsec/ricochet/internal/correlation"
)

// SubstituteCallback replaces every callback placeholder in a payload
// template with "<base>/<correlationID>". Four placeholder forms are
// recognized, matched case-insensitively: {{CALLBACK}}, {{callback}},
// {CALLBACK}, ${CALLBACK}. A single linear scan handles all of them.
// A template without placeholders is returned unchanged.
func SubstituteCallback(payload, callbackBase, correlationID string) string {
	full := correlation.CallbackURL(callbackBase, correlationID)

	out := make([]byte, 0, len(payload))
	for i := 0; i < len(payload); {
		if n := placeholderAt(payload[i:]); n > 0 {
			out = append(out, full...)
			i += n
			continue
		}
		out = append(out, payload[i])
		i++
	}
	return string(out)
}

// placeholderAt returns the length of the placeholder starting at s, or 0.
func placeholderAt(s string) int {
	const word = "callback"

	switch {
	case len(s) >= 12 && s[0] == '{' && s[1] == '{' &&
		foldEqual(s[2:10], word) && s[10] == '}' && s[11] == '}':
		return 12
	case len(s) >= 11 && s[0] == '$' && s[1] == '{' &&
		foldEqual(s[2:10], word) && s[10] == '}':
		return 11
	case len(s) >= 10 && s[0] == '{' &&
		foldEqual(s[1:9], word) && s[9] == '}':
		return 10
	}
	return 0
}

// foldEqual compares ASCII strings case-insensitively without allocating.
func foldEqual(s, t string) bool {
	if len(s) != len(t) {
		return false
	}
	for i := 0; i < len(s); i++ {
		a, b := s[i], t[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}
