package domain

import (
	"strings"
	"time"
)

// TimeFormat is the wire format for every timestamp the API returns.
// Values are always converted to UTC before formatting.
const TimeFormat = "2006-01-02T15:04:05Z"

// BlacklistEntry is a single row of the shared email blacklist. Entries are
// immutable once stored; the same email may appear in more than one entry.
type BlacklistEntry struct {
	ID            string     `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	AppUUID       string     `json:"app_uuid" db:"app_uuid"`
	BlockedReason string     `json:"blocked_reason" db:"blocked_reason"`
	RequestIP     string     `json:"request_ip,omitempty" db:"request_ip"`
	RequestTime   *time.Time `json:"request_time,omitempty" db:"request_time"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// HasRequiredFields reports whether email, app_uuid and blocked_reason are all
// non-blank.
func (e *BlacklistEntry) HasRequiredFields() bool {
	return strings.TrimSpace(e.Email) != "" &&
		strings.TrimSpace(e.AppUUID) != "" &&
		strings.TrimSpace(e.BlockedReason) != ""
}

// FormatTime renders t in TimeFormat.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// FormatTimePtr renders t in TimeFormat, or nil when t is nil.
func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}
