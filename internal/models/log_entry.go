package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity levels for audit log entries
const (
	SeverityDebug      = "debug"
	SeverityInfo       = "info"
	SeveritySuspicious = "suspicious"
	SeverityError      = "error"
)

// Log entry sources
const (
	SourceInternal = "internal"
	SourceExternal = "external"
)

// LogEntry is one audit event recorded during request handling. Entries are
// immutable once enqueued into a request's buffer and persisted as a batch
// when the request finishes.
type LogEntry struct {
	ID                uuid.UUID  `db:"id"`
	Severity          string     `db:"severity"`
	Source            string     `db:"source"`
	Method            string     `db:"method"`
	Action            string     `db:"action"`
	RequesterID       *uuid.UUID `db:"requester_id"`
	RequesterUsername *string    `db:"requester_username"`
	RequesterEmail    *string    `db:"requester_email"`
	RequesterFullName *string    `db:"requester_full_name"`
	Address           *string    `db:"address"`
	UserAgent         *string    `db:"user_agent"`
	CreatedAt         time.Time  `db:"created_at"`
}

// WithRequester returns a copy of the entry annotated with the requesting
// account's identity fields.
func (e LogEntry) WithRequester(account *Account) LogEntry {
	if account == nil {
		return e
	}
	id := account.ID
	username := account.Username
	fullName := account.FullName
	e.RequesterID = &id
	e.RequesterUsername = &username
	e.RequesterFullName = &fullName
	e.RequesterEmail = account.Email
	return e
}
