package httputil

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// DecodeObject reads a JSON object from the request body into a raw field
// map. A body that is empty or not a JSON object yields an empty map and
// false.
func DecodeObject(r *http.Request) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		return map[string]json.RawMessage{}, false
	}
	return fields, true
}

// StringField returns fields[name] when it holds a JSON string.
func StringField(fields map[string]json.RawMessage, name string) (string, bool) {
	raw, ok := fields[name]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// ClientIP returns the caller address without its port. RemoteAddr has
// already been rewritten by middleware.RealIP when proxy headers are present.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// RequestID returns the chi request ID, if any.
func RequestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
