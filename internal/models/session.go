package models

import (
	"time"

	"github.com/google/uuid"
)

// Session expiry at issuance. Logins that arrive with a user agent get the
// long expiry; headless clients get the short one.
const (
	SessionExpiryWithUserAgent = 24 * time.Hour
	SessionExpiryDefault       = 1 * time.Hour
)

// Session binds an account and a client to an opaque bearer code with an expiry.
// Account and Client are populated on lookup; nil values after a successful
// lookup indicate dangling references in the store.
type Session struct {
	ID        uuid.UUID `db:"id"`
	Code      string    `db:"code"`
	AccountID uuid.UUID `db:"account_id"`
	ClientID  uuid.UUID `db:"client_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`

	Account *Account
	Client  *Client
}

// Expired reports whether the session is no longer valid at the given instant.
// The boundary is closed: a session whose expiry equals now is expired.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
