package repositories

import (
	"context"
	"fmt"

	"github.com/dstrelow/gallerygate/internal/database"
	"github.com/dstrelow/gallerygate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles session data access
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// FindByCode resolves a session by its opaque code, left-joining the owning
// account and client so dangling references surface as nil fields rather
// than lookup errors.
func (r *SessionRepository) FindByCode(ctx context.Context, code string) (*models.Session, error) {
	query := `
		SELECT s.id, s.code, s.account_id, s.client_id, s.created_at, s.expires_at,
		       a.id, a.username, a.full_name, a.privileges, a.email,
		       c.id, c.address, c.user_agent, c.logins, c.failed_logins, c.banned
		FROM sessions s
		LEFT JOIN accounts a ON a.id = s.account_id
		LEFT JOIN clients c ON c.id = s.client_id
		WHERE s.code = $1
	`

	var session models.Session
	var accountID, clientID *uuid.UUID
	var username, fullName *string
	var privileges *int64
	var email *string
	var clientAddress, clientUserAgent *string
	var logins, failedLogins *int
	var banned *bool

	err := r.pool.QueryRow(ctx, query, code).Scan(
		&session.ID, &session.Code, &session.AccountID, &session.ClientID,
		&session.CreatedAt, &session.ExpiresAt,
		&accountID, &username, &fullName, &privileges, &email,
		&clientID, &clientAddress, &clientUserAgent, &logins, &failedLogins, &banned,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if accountID != nil {
		session.Account = &models.Account{
			ID:         *accountID,
			Username:   *username,
			FullName:   *fullName,
			Privileges: *privileges,
			Email:      email,
		}
	}
	if clientID != nil {
		session.Client = &models.Client{
			ID:           *clientID,
			Address:      *clientAddress,
			UserAgent:    *clientUserAgent,
			Logins:       *logins,
			FailedLogins: *failedLogins,
			Banned:       *banned,
		}
	}

	return &session, nil
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, code, account_id, client_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID, session.Code, session.AccountID, session.ClientID,
		session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", database.MapPostgresError(err))
	}

	return nil
}

// DeleteByID removes one session (explicit logout)
func (r *SessionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session past its expiry
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteDuplicates reconciles accounts with more than one live session,
// keeping only the newest per account.
func (r *SessionRepository) DeleteDuplicates(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY account_id ORDER BY created_at DESC
				) AS rank
				FROM sessions
				WHERE expires_at > CURRENT_TIMESTAMP
			) ranked
			WHERE ranked.rank > 1
		)
	`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete duplicate sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// FindByAccount returns every session owned by an account, newest first
func (r *SessionRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*models.Session, error) {
	query := `
		SELECT id, code, account_id, client_id, created_at, expires_at
		FROM sessions
		WHERE account_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		var session models.Session
		if err := rows.Scan(
			&session.ID, &session.Code, &session.AccountID, &session.ClientID,
			&session.CreatedAt, &session.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", database.MapPostgresError(err))
		}
		sessions = append(sessions, &session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}
