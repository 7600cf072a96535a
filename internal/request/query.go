package request

import (
	"net/url"
	"strings"
)

// Param is one query-string or form parameter. Order is significant:
// parsing preserves document order and encoding writes it back unchanged.
type Param struct {
	Name  string
	Value string
}

// ParseParams splits a query string or form-urlencoded body into ordered
// parameters. Blank values are kept; pairs that fail to unescape are kept
// with their raw text so nothing silently disappears.
func ParseParams(raw string) []Param {
	if raw == "" {
		return nil
	}
	var params []Param
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		params = append(params, Param{Name: name, Value: value})
	}
	return params
}

// EncodeParams writes ordered parameters back to query-string form.
func EncodeParams(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// SplitPathQuery separates a request path into its path and query parts.
func SplitPathQuery(path string) (string, string) {
	p, q, _ := strings.Cut(path, "?")
	return p, q
}
