package request

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Location identifies where in a request a parameter lives.
type Location string

const (
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
	LocationCookie Location = "cookie"
	LocationBody   Location = "body"
	LocationJSON   Location = "json"
)

// Vector is one concrete injectable parameter on a request.
type Vector struct {
	Location      Location
	Name          string
	OriginalValue string
}

// Qualified returns the location-qualified parameter name, e.g. "query:q".
func (v Vector) Qualified() string {
	return string(v.Location) + ":" + v.Name
}

// injectableHeaders is the allowlist of security-relevant headers worth
// injecting into. Matched case-insensitively against request headers.
var injectableHeaders = map[string]bool{
	"user-agent":                true,
	"referer":                   true,
	"x-forwarded-for":           true,
	"x-forwarded-host":          true,
	"origin":                    true,
	"forwarded":                 true,
	"x-client-ip":               true,
	"true-client-ip":            true,
	"x-original-url":            true,
	"x-rewrite-url":             true,
	"x-custom-ip-authorization": true,
}

// ExtractVectors enumerates every injectable parameter of a request once,
// in deterministic order: query parameters in URL order, then allowlisted
// headers in request order, then cookies in header order, then form or JSON
// body fields depending on Content-Type.
func ExtractVectors(r Request) []Vector {
	var vectors []Vector
	vectors = append(vectors, queryVectors(r)...)
	vectors = append(vectors, headerVectors(r)...)
	vectors = append(vectors, cookieVectors(r)...)
	vectors = append(vectors, bodyVectors(r)...)
	return vectors
}

func queryVectors(r Request) []Vector {
	_, query := SplitPathQuery(r.Path)
	var vectors []Vector
	for _, p := range ParseParams(query) {
		vectors = append(vectors, Vector{Location: LocationQuery, Name: p.Name, OriginalValue: p.Value})
	}
	return vectors
}

func headerVectors(r Request) []Vector {
	var vectors []Vector
	for _, h := range r.Headers {
		if injectableHeaders[strings.ToLower(h.Name)] {
			vectors = append(vectors, Vector{Location: LocationHeader, Name: h.Name, OriginalValue: h.Value})
		}
	}
	return vectors
}

func cookieVectors(r Request) []Vector {
	raw, ok := r.HeaderValue("Cookie")
	if !ok {
		return nil
	}
	var vectors []Vector
	for _, cookie := range strings.Split(raw, ";") {
		cookie = strings.TrimSpace(cookie)
		name, value, ok := strings.Cut(cookie, "=")
		if !ok {
			continue
		}
		vectors = append(vectors, Vector{
			Location:      LocationCookie,
			Name:          strings.TrimSpace(name),
			OriginalValue: strings.TrimSpace(value),
		})
	}
	return vectors
}

func bodyVectors(r Request) []Vector {
	if len(r.Body) == 0 {
		return nil
	}

	contentType := r.ContentType()
	switch {
	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		var vectors []Vector
		for _, p := range ParseParams(string(r.Body)) {
			vectors = append(vectors, Vector{Location: LocationBody, Name: p.Name, OriginalValue: p.Value})
		}
		return vectors

	case strings.Contains(contentType, "application/json"):
		var vectors []Vector
		for _, field := range topLevelStringFields(r.Body) {
			vectors = append(vectors, Vector{Location: LocationJSON, Name: field.Name, OriginalValue: field.Value})
		}
		return vectors
	}
	return nil
}

type jsonField struct {
	Name  string
	Value string
}

// topLevelStringFields walks the top level of a JSON object in document
// order and returns its string-valued fields. Malformed JSON yields nil.
func topLevelStringFields(body []byte) []jsonField {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var fields []jsonField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			fields = append(fields, jsonField{Name: key, Value: s})
		}
	}
	return fields
}
