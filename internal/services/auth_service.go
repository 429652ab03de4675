package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dstrelow/gallerygate/internal/attempts"
	"github.com/dstrelow/gallerygate/internal/events"
	"github.com/dstrelow/gallerygate/internal/models"
	pkgauth "github.com/dstrelow/gallerygate/pkg/auth"
	"github.com/google/uuid"
)

// AccountStore is the slice of the persistent store the login flow reads accounts from
type AccountStore interface {
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
}

// ClientStore resolves and mutates client records during login
type ClientStore interface {
	FindOrCreate(ctx context.Context, address, userAgent string) (*models.Client, error)
	RecordLogin(ctx context.Context, id uuid.UUID) error
	RecordFailedLogin(ctx context.Context, id uuid.UUID) error
	Ban(ctx context.Context, id uuid.UUID, reason string) error
}

// banFailureMultiplier sets the lifetime failed-login count, as a multiple of
// the per-window attempt limit, past which a client is banned outright.
const banFailureMultiplier = 10

// SessionWriter issues and revokes sessions
type SessionWriter interface {
	Create(ctx context.Context, session *models.Session) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

// AuthService implements the login and logout flows around the authentication
// core: it consults the login attempt cache for lockout decisions, checks
// credentials, and issues opaque session codes.
type AuthService struct {
	accounts AccountStore
	clients  ClientStore
	sessions SessionWriter
	attempts *attempts.Cache
	events   *events.Aggregator
	logger   *slog.Logger

	maxFailedAttempts int
}

// NewAuthService creates a new AuthService
func NewAuthService(
	accounts AccountStore,
	clients ClientStore,
	sessions SessionWriter,
	attemptCache *attempts.Cache,
	aggregator *events.Aggregator,
	logger *slog.Logger,
	maxFailedAttempts int,
) *AuthService {
	return &AuthService{
		accounts:          accounts,
		clients:           clients,
		sessions:          sessions,
		attempts:          attemptCache,
		events:            aggregator,
		logger:            logger,
		maxFailedAttempts: maxFailedAttempts,
	}
}

// Login authenticates the credentials and issues a new session. The session
// expiry is 24 hours when a user agent accompanied the login, 1 hour
// otherwise. Failed attempts are recorded in the attempt cache and on the
// client's counters.
func (s *AuthService) Login(ctx context.Context, username, password, address, userAgent string) (*models.Session, error) {
	if address == "" {
		address = attempts.AddressUnknown
	}

	count, err := s.attempts.AttemptCount(username, address)
	if err != nil {
		return nil, err
	}
	if count >= s.maxFailedAttempts {
		s.addEvent(ctx, models.SeveritySuspicious, "login rejected: attempt limit reached", address, userAgent, nil)
		return nil, models.ErrLoginLocked
	}

	client, err := s.clients.FindOrCreate(ctx, address, userAgent)
	if err != nil {
		return nil, fmt.Errorf("client lookup: %w", err)
	}
	if client.Banned {
		s.addEvent(ctx, models.SeveritySuspicious, "login rejected: client banned", address, userAgent, nil)
		return nil, models.ErrClientBanned
	}

	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, s.failLogin(ctx, username, address, userAgent, client)
		}
		return nil, fmt.Errorf("account lookup: %w", err)
	}

	if !pkgauth.CheckPassword(password, account.PasswordHash) {
		return nil, s.failLogin(ctx, username, address, userAgent, client)
	}

	code, err := generateSessionCode()
	if err != nil {
		return nil, fmt.Errorf("session code generation: %w", err)
	}

	expiry := models.SessionExpiryDefault
	if userAgent != "" {
		expiry = models.SessionExpiryWithUserAgent
	}

	now := time.Now()
	session := &models.Session{
		ID:        uuid.New(),
		Code:      code,
		AccountID: account.ID,
		ClientID:  client.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(expiry),
		Account:   account,
		Client:    client,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("session creation: %w", err)
	}

	if err := s.clients.RecordLogin(ctx, client.ID); err != nil {
		s.logger.Error("failed to record client login", slog.Any("error", err))
	}

	entry := models.LogEntry{
		Severity: models.SeverityInfo,
		Source:   models.SourceExternal,
		Method:   "POST",
		Action:   "login succeeded",
		Address:  &address,
	}.WithRequester(account)
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}
	s.events.Add(ctx, entry)

	return session, nil
}

// Logout revokes the given session
func (s *AuthService) Logout(ctx context.Context, session *models.Session) error {
	if err := s.sessions.DeleteByID(ctx, session.ID); err != nil {
		return fmt.Errorf("session deletion: %w", err)
	}

	s.events.Add(ctx, models.LogEntry{
		Severity: models.SeverityInfo,
		Source:   models.SourceExternal,
		Method:   "POST",
		Action:   "logout",
	}.WithRequester(session.Account))

	return nil
}

// failLogin records one failed attempt everywhere it is tracked and returns
// the generic credential error so callers cannot tell which check failed.
func (s *AuthService) failLogin(ctx context.Context, username, address, userAgent string, client *models.Client) error {
	if _, err := s.attempts.Record(username, address, userAgent); err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
	}

	if client != nil {
		if err := s.clients.RecordFailedLogin(ctx, client.ID); err != nil {
			s.logger.Error("failed to record client failure", slog.Any("error", err))
		}

		// Lifetime failures survive cache eviction; ban clients that keep coming back
		if client.FailedLogins+1 >= s.maxFailedAttempts*banFailureMultiplier {
			if err := s.clients.Ban(ctx, client.ID, "excessive failed login attempts"); err != nil {
				s.logger.Error("failed to ban client", slog.Any("error", err))
			} else {
				s.logger.Warn("client banned for excessive failed logins",
					slog.String("address", address),
					slog.Int("failed_logins", client.FailedLogins+1))
			}
		}
	}

	s.addEvent(ctx, models.SeveritySuspicious, fmt.Sprintf("login failed for %q", username), address, userAgent, nil)

	return models.ErrInvalidLogin
}

func (s *AuthService) addEvent(ctx context.Context, severity, action, address, userAgent string, account *models.Account) {
	entry := models.LogEntry{
		Severity: severity,
		Source:   models.SourceExternal,
		Method:   "POST",
		Action:   action,
		Address:  &address,
	}.WithRequester(account)
	if userAgent != "" {
		entry.UserAgent = &userAgent
	}
	s.events.Add(ctx, entry)
}

// generateSessionCode returns an opaque 64-character hex session code
func generateSessionCode() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
