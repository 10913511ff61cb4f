package blacklist

import "errors"

// Sentinel errors for the blacklist service layer.
var (
	ErrNotFound           = errors.New("blacklist entry not found")
	ErrMissingFields      = errors.New("email, app_uuid and blocked_reason are required")
	ErrInvalidRequestTime = errors.New("request_time must be an RFC 3339 timestamp")
)
