package models

import (
	"time"

	"github.com/google/uuid"
)

// Client represents a network peer (address + user agent) that sessions
// reference. Many sessions may point at one client.
type Client struct {
	ID           uuid.UUID `db:"id"`
	Address      string    `db:"address"`
	UserAgent    string    `db:"user_agent"`
	Logins       int       `db:"logins"`
	FailedLogins int       `db:"failed_logins"`
	Banned       bool      `db:"banned"`
	CreatedAt    time.Time `db:"created_at"`
}

// BanEntry records one ban applied to a client
type BanEntry struct {
	ID        uuid.UUID `db:"id"`
	ClientID  uuid.UUID `db:"client_id"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}
