// Package httputil provides shared HTTP response helpers for handlers.
//
// Every handler writes through these helpers instead of raw
// http.ResponseWriter calls so all endpoints share the same JSON envelope.
package httputil
