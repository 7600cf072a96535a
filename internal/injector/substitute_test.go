package injector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteAllPlaceholderForms(t *testing.T) {
	base := "http://cb.example"
	id := "a1b2c3d4e5f60718"
	want := "<img src=http://cb.example/a1b2c3d4e5f60718>"

	// All four forms must produce identical output.
	for _, form := range []string{
		"<img src={{CALLBACK}}>",
		"<img src={{callback}}>",
		"<img src={CALLBACK}>",
		"<img src=${CALLBACK}>",
	} {
		assert.Equal(t, want, SubstituteCallback(form, base, id), "form %q", form)
	}
}

func TestSubstituteCaseInsensitive(t *testing.T) {
	got := SubstituteCallback("{{CaLlBaCk}}", "http://cb.example", "a1b2c3d4e5f60718")
	assert.Equal(t, "http://cb.example/a1b2c3d4e5f60718", got)
}

func TestSubstituteMultipleOccurrences(t *testing.T) {
	got := SubstituteCallback("{{CALLBACK}} and ${CALLBACK}", "http://cb.example", "a1b2c3d4e5f60718")
	assert.Equal(t, "http://cb.example/a1b2c3d4e5f60718 and http://cb.example/a1b2c3d4e5f60718", got)
}

func TestSubstituteTrimsTrailingSlash(t *testing.T) {
	got := SubstituteCallback("{{CALLBACK}}", "http://cb.example/", "a1b2c3d4e5f60718")
	assert.Equal(t, "http://cb.example/a1b2c3d4e5f60718", got)
}

func TestSubstituteVerbatimWithoutPlaceholder(t *testing.T) {
	payload := "' OR 1=1 --"
	assert.Equal(t, payload, SubstituteCallback(payload, "http://cb.example", "a1b2c3d4e5f60718"))
}

func TestSubstituteNearMisses(t *testing.T) {
	for _, payload := range []string{
		"{CALLBACK",        // unterminated
		"{ CALLBACK }",     // inner spaces
		"{CALLBACKS}",      // wrong word
		"CALLBACK",         // bare word
		"%7BCALLBACK%7D",   // encoded braces
	} {
		assert.Equal(t, payload, SubstituteCallback(payload, "http://cb.example", "a1b2c3d4e5f60718"), "payload %q", payload)
	}
}
