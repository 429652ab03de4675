package models

import "time"

// LoginAttempt is a transient, cache-only record of repeated login attempts
// for one (username, address) pair. It is never persisted.
type LoginAttempt struct {
	Username  string
	Address   string
	Count     int
	UserAgent string // first non-empty user agent observed, never overwritten
	FirstSeen time.Time
}
