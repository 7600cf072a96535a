package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		id, err := NewID()
		require.NoError(t, err)
		require.Len(t, id, IDLength)
		assert.True(t, ValidID(id), "generated ID %q must validate", id)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := NewID()
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate ID %q", id)
		seen[id] = true
	}
}

func TestValidID(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"a1b2c3d4e5f60718", true},
		{"0000000000000000", true},
		{"ffffffffffffffff", true},
		{"a1b2c3d4e5f6071", false},   // 15 chars
		{"a1b2c3d4e5f607188", false}, // 17 chars
		{"A1b2c3d4e5f60718", false},  // uppercase
		{"g1b2c3d4e5f60718", false},  // non-hex
		{"a1b2c3d4-5f60718", false},  // dash
		{"", false},
	}
	for _, tc := range cases {
		if got := ValidID(tc.in); got != tc.want {
			t.Errorf("ValidID(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCallbackURL(t *testing.T) {
	id := "a1b2c3d4e5f60718"
	assert.Equal(t, "http://cb.example/a1b2c3d4e5f60718", CallbackURL("http://cb.example", id))
	assert.Equal(t, "http://cb.example/a1b2c3d4e5f60718", CallbackURL("http://cb.example/", id))
	assert.Equal(t, "http://cb.example/a1b2c3d4e5f60718", CallbackURL("http://cb.example//", id))
	assert.Equal(t, "https://cb.example:8443/a1b2c3d4e5f60718", CallbackURL("https://cb.example:8443", id))
}
