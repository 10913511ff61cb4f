package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/blacklist-api/internal/domain"
	"github.com/ignite/blacklist-api/internal/pkg/httputil"
	"github.com/ignite/blacklist-api/internal/pkg/logger"
	"github.com/ignite/blacklist-api/internal/service/blacklist"
)

// Client-facing messages. They are part of the API contract.
const (
	MsgMissingFields      = "Faltan campos requeridos"
	MsgInvalidRequestTime = "Formato de request_time inválido"
	MsgCreated            = "Email agregado a la lista negra"
	MsgNotBlacklisted     = "El email no está en la lista negra"
)

// maxCreateBody caps the create payload. A larger body fails to decode and
// is reported as missing fields.
const maxCreateBody = 64 << 10

// entryView is the wire shape of a blacklist entry. ID is omitted from
// lookup responses.
type entryView struct {
	ID            string  `json:"id,omitempty"`
	Email         string  `json:"email"`
	AppUUID       string  `json:"app_uuid"`
	BlockedReason string  `json:"blocked_reason"`
	RequestIP     *string `json:"request_ip"`
	RequestTime   *string `json:"request_time"`
	CreatedAt     string  `json:"created_at"`
}

func newEntryView(e *domain.BlacklistEntry, withID bool) entryView {
	v := entryView{
		Email:         e.Email,
		AppUUID:       e.AppUUID,
		BlockedReason: e.BlockedReason,
		RequestTime:   domain.FormatTimePtr(e.RequestTime),
		CreatedAt:     domain.FormatTime(e.CreatedAt),
	}
	if withID {
		v.ID = e.ID
	}
	if e.RequestIP != "" {
		ip := e.RequestIP
		v.RequestIP = &ip
	}
	return v
}

// BlacklistHandler serves the create and check operations.
type BlacklistHandler struct {
	svc *blacklist.Service
	now func() time.Time
}

// NewBlacklistHandler creates handlers backed by svc.
func NewBlacklistHandler(svc *blacklist.Service) *BlacklistHandler {
	return &BlacklistHandler{svc: svc, now: time.Now}
}

// HandleCreate adds an email to the blacklist.
//
//	POST /blacklist
func (h *BlacklistHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	receivedAt := h.now().UTC()

	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBody)
	fields, _ := httputil.DecodeObject(r)

	email, _ := httputil.StringField(fields, "email")
	appUUID, _ := httputil.StringField(fields, "app_uuid")
	reason, _ := httputil.StringField(fields, "blocked_reason")
	probe := domain.BlacklistEntry{Email: email, AppUUID: appUUID, BlockedReason: reason}
	if !probe.HasRequiredFields() {
		httputil.Fail(w, http.StatusBadRequest, MsgMissingFields)
		return
	}

	requestTime, err := parseRequestTime(fields, receivedAt)
	if err != nil {
		httputil.Fail(w, http.StatusBadRequest, MsgInvalidRequestTime)
		return
	}
	requestIP, _ := httputil.StringField(fields, "request_ip")
	if requestIP == "" {
		requestIP = httputil.ClientIP(r)
	}

	entry, err := h.svc.Create(r.Context(), blacklist.CreateInput{
		Email:         email,
		AppUUID:       appUUID,
		BlockedReason: reason,
		RequestIP:     requestIP,
		RequestTime:   &requestTime,
	})
	switch {
	case errors.Is(err, blacklist.ErrMissingFields):
		httputil.Fail(w, http.StatusBadRequest, MsgMissingFields)
		return
	case err != nil:
		httputil.InternalError(w, r, err)
		return
	}

	logger.Info("blacklist entry created",
		"email", entry.Email,
		"app_uuid", entry.AppUUID,
		"request_id", httputil.RequestID(r),
	)
	httputil.Created(w, httputil.Envelope{
		Success: true,
		Message: MsgCreated,
		Data:    newEntryView(entry, true),
	})
}

// HandleCheck reports whether an email is blacklisted.
//
//	GET /blacklist/{email}
func (h *BlacklistHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	// chi matches on RawPath when the path needed non-default escaping, in
	// which case the parameter is still escaped.
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(email); err == nil {
			email = decoded
		}
	}

	entry, err := h.svc.Check(r.Context(), email)
	switch {
	case errors.Is(err, blacklist.ErrNotFound):
		httputil.OK(w, httputil.Envelope{
			Success:       true,
			IsBlacklisted: httputil.Bool(false),
			Message:       MsgNotBlacklisted,
		})
		return
	case err != nil:
		httputil.InternalError(w, r, err)
		return
	}

	httputil.OK(w, httputil.Envelope{
		Success:       true,
		IsBlacklisted: httputil.Bool(true),
		Data:          newEntryView(entry, false),
	})
}

// parseRequestTime returns the payload's request_time, or fallback when the
// field is absent or null.
func parseRequestTime(fields map[string]json.RawMessage, fallback time.Time) (time.Time, error) {
	raw, ok := fields["request_time"]
	if !ok || string(raw) == "null" {
		return fallback, nil
	}
	s, ok := httputil.StringField(fields, "request_time")
	if !ok {
		return time.Time{}, blacklist.ErrInvalidRequestTime
	}
	if s == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, blacklist.ErrInvalidRequestTime
	}
	return t.UTC(), nil
}
