package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dstrelow/gallerygate/internal/models"
)

// SessionStore is the slice of the persistent store the validator consumes.
type SessionStore interface {
	// FindByCode resolves a session by its opaque code, with Account and
	// Client populated when their references resolve. Absence maps to
	// models.ErrNotFound.
	FindByCode(ctx context.Context, code string) (*models.Session, error)
}

// SessionValidator translates a bearer token into a verified session or a
// definitive typed rejection.
type SessionValidator struct {
	store  SessionStore
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionValidator creates a session validator backed by the given store.
func NewSessionValidator(store SessionStore, logger *slog.Logger) *SessionValidator {
	return &SessionValidator{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Validate resolves and checks the session behind token. Blank tokens are
// rejected before any store access. Expiry uses a closed boundary: a session
// whose expiry equals the current instant is rejected. A resolved session
// with a dangling account or client reference is escalated as an internal
// inconsistency rather than a plain validation failure.
func (v *SessionValidator) Validate(ctx context.Context, token, source string) (*models.Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, newFailure(ReasonValidationFailed, "empty session token")
	}

	session, err := v.store.FindByCode(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, newFailure(ReasonValidationFailed, "session not found")
		}
		return nil, fmt.Errorf("session lookup: %w", err)
	}

	if session.Expired(v.now()) {
		return nil, newFailure(ReasonValidationFailed, "session expired")
	}

	if session.Account == nil || session.Client == nil {
		v.logger.Error("session with dangling references",
			slog.String("session_id", session.ID.String()),
			slog.String("source", source),
			slog.Bool("account_missing", session.Account == nil),
			slog.Bool("client_missing", session.Client == nil))
		return nil, newFailure(ReasonInternalInconsistency, "session account or client reference does not resolve")
	}

	return session, nil
}
