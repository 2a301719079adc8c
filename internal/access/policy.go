// Package access holds the cross-origin policy applied to every gateway
// response: which origin to echo, which methods are served, and the preflight
// short-circuit.
package access

import (
	"errors"
	"net/http"
	"strings"
)

const (
	allowMethods = "POST,OPTIONS,GET"
	allowHeaders = "Content-Type"
)

// AllowList is an ordered set of origins. The first entry is the fallback
// echoed for absent or unknown origins. It is immutable once built.
type AllowList struct {
	origins []string
	members map[string]struct{}
}

// NewAllowList builds an AllowList, dropping blanks and duplicates while
// keeping the first-seen order.
func NewAllowList(origins []string) (*AllowList, error) {
	al := &AllowList{members: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = normalizeOrigin(o)
		if o == "" {
			continue
		}
		if _, dup := al.members[o]; dup {
			continue
		}
		al.members[o] = struct{}{}
		al.origins = append(al.origins, o)
	}
	if len(al.origins) == 0 {
		return nil, errors.New("allow-list must contain at least one origin")
	}
	return al, nil
}

// Origins returns a copy of the configured origins in order.
func (al *AllowList) Origins() []string {
	out := make([]string, len(al.origins))
	copy(out, al.origins)
	return out
}

// Default is the fallback origin.
func (al *AllowList) Default() string { return al.origins[0] }

// AllowOrigin returns origin when it is a member, otherwise the fallback.
func (al *AllowList) AllowOrigin(origin string) string {
	if _, ok := al.members[normalizeOrigin(origin)]; ok {
		return normalizeOrigin(origin)
	}
	return al.origins[0]
}

// Policy applies the allow-list to HTTP responses.
type Policy struct {
	list *AllowList
}

func NewPolicy(list *AllowList) *Policy {
	return &Policy{list: list}
}

// Apply writes the CORS headers for r onto w. It must run before anything is
// written to w.
func (p *Policy) Apply(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", p.list.AllowOrigin(r.Header.Get("Origin")))
	h.Add("Vary", "Origin")
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
}

// Allowed reports whether method is served by the gateway.
func Allowed(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodOptions:
		return true
	}
	return false
}

// IsPreflight reports whether r is a CORS preflight.
func IsPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions
}

// WritePreflight answers a preflight with 204 and no body.
func WritePreflight(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// AllowHeader is the value for the Allow header on 405 responses.
func AllowHeader() string { return allowMethods }

func normalizeOrigin(o string) string {
	return strings.TrimSuffix(strings.TrimSpace(o), "/")
}
