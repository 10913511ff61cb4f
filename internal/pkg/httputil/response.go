package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ignite/blacklist-api/internal/pkg/logger"
)

// MsgInternalError is the only message a 5xx response ever carries.
const MsgInternalError = "Error interno del servidor"

// Envelope is the standard response body shared by every blacklist endpoint.
// IsBlacklisted is only set by the check endpoint.
type Envelope struct {
	Success       bool   `json:"success"`
	IsBlacklisted *bool  `json:"is_blacklisted,omitempty"`
	Message       string `json:"message,omitempty"`
	Data          any    `json:"data,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("httputil: JSON encode error", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 response with the given data.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// Fail writes a {success:false, message} envelope. Use for 4xx.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}

// InternalError logs the real error and writes a generic 500 envelope so
// internals never reach the client.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Error("internal error",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestID(r),
		"error", err,
	)
	Fail(w, http.StatusInternalServerError, MsgInternalError)
}

// Bool returns a pointer to b, for optional envelope fields.
func Bool(b bool) *bool { return &b }
