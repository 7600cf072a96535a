package injector

import (
	"encoding/json"
	"strings"

	"github.com/ricochetsec/ricochet/internal/request"
)

// Mutate returns a copy of req with the payload planted at the vector's
// location. The source request is never modified. An unknown location or a
// missing parameter yields an unchanged copy.
func Mutate(req request.Request, v request.Vector, payload string) request.Request {
	switch v.Location {
	case request.LocationQuery:
		return mutateQuery(req, v.Name, payload)
	case request.LocationHeader:
		return req.WithHeaderValue(v.Name, payload)
	case request.LocationCookie:
		return mutateCookie(req, v.Name, payload)
	case request.LocationBody:
		return mutateFormBody(req, v.Name, payload)
	case request.LocationJSON:
		return mutateJSONBody(req, v.Name, payload)
	}
	return req.Clone()
}

// mutateQuery re-encodes the query string with the target key's value
// replaced. Other keys and their order are untouched.
func mutateQuery(req request.Request, name, payload string) request.Request {
	path, query := request.SplitPathQuery(req.Path)
	params := request.ParseParams(query)
	for i := range params {
		if params[i].Name == name {
			params[i].Value = payload
		}
	}
	return req.WithPath(path + "?" + request.EncodeParams(params))
}

// mutateCookie rewrites the Cookie header with the named cookie's value
// replaced, reassembling with the canonical "; " separator.
func mutateCookie(req request.Request, name, payload string) request.Request {
	raw, ok := req.HeaderValue("Cookie")
	if !ok {
		return req.Clone()
	}

	var cookies []string
	for _, cookie := range strings.Split(raw, ";") {
		cookie = strings.TrimSpace(cookie)
		if cookie == "" {
			continue
		}
		cname, value, hasValue := strings.Cut(cookie, "=")
		cname = strings.TrimSpace(cname)
		if !hasValue {
			cookies = append(cookies, cookie)
			continue
		}
		if cname == name {
			cookies = append(cookies, cname+"="+payload)
		} else {
			cookies = append(cookies, cname+"="+value)
		}
	}
	return req.WithHeaderValue("Cookie", strings.Join(cookies, "; "))
}

func mutateFormBody(req request.Request, name, payload string) request.Request {
	if len(req.Body) == 0 {
		return req.Clone()
	}
	params := request.ParseParams(string(req.Body))
	for i := range params {
		if params[i].Name == name {
			params[i].Value = payload
		}
	}
	return req.WithBody([]byte(request.EncodeParams(params)))
}

func mutateJSONBody(req request.Request, name, payload string) request.Request {
	if len(req.Body) == 0 {
		return req.Clone()
	}
	var data map[string]any
	if err := json.Unmarshal(req.Body, &data); err != nil {
		return req.Clone()
	}
	if _, ok := data[name].(string); !ok {
		return req.Clone()
	}
	data[name] = payload
	encoded, err := json.Marshal(data)
	if err != nil {
		return req.Clone()
	}
	return req.WithBody(encoded)
}
