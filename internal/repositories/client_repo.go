package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/dstrelow/gallerygate/internal/database"
	"github.com/dstrelow/gallerygate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClientRepository handles client and ban entry data access
type ClientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(db *database.DB) *ClientRepository {
	return &ClientRepository{pool: db.Pool}
}

func scanClientRow(scanner rowScanner) (*models.Client, error) {
	var client models.Client

	err := scanner.Scan(
		&client.ID, &client.Address, &client.UserAgent,
		&client.Logins, &client.FailedLogins, &client.Banned,
		&client.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &client, nil
}

// FindOrCreate resolves the client for an (address, user agent) pair,
// creating it on first contact.
func (r *ClientRepository) FindOrCreate(ctx context.Context, address, userAgent string) (*models.Client, error) {
	findQuery := `
		SELECT id, address, user_agent, logins, failed_logins, banned, created_at
		FROM clients
		WHERE address = $1 AND user_agent = $2
	`

	client, err := scanClientRow(r.pool.QueryRow(ctx, findQuery, address, userAgent))
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	insertQuery := `
		INSERT INTO clients (address, user_agent)
		VALUES ($1, $2)
		RETURNING id, address, user_agent, logins, failed_logins, banned, created_at
	`

	created, err := scanClientRow(r.pool.QueryRow(ctx, insertQuery, address, userAgent))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return created, nil
}

// RecordLogin increments the client's successful login counter
func (r *ClientRepository) RecordLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE clients SET logins = logins + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// RecordFailedLogin increments the client's failed login counter
func (r *ClientRepository) RecordFailedLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE clients SET failed_logins = failed_logins + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to record failed login: %w", err)
	}
	return nil
}

// Ban marks the client banned and records a ban entry
func (r *ClientRepository) Ban(ctx context.Context, id uuid.UUID, reason string) error {
	if _, err := r.pool.Exec(ctx, `UPDATE clients SET banned = true WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to ban client: %w", err)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO ban_entries (client_id, reason) VALUES ($1, $2)`, id, reason)
	if err != nil {
		return fmt.Errorf("failed to record ban entry: %w", err)
	}

	return nil
}

// BanEntries returns the ban history for a client, newest first
func (r *ClientRepository) BanEntries(ctx context.Context, id uuid.UUID) ([]*models.BanEntry, error) {
	query := `
		SELECT id, client_id, reason, created_at
		FROM ban_entries
		WHERE client_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query ban entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.BanEntry, 0)
	for rows.Next() {
		var entry models.BanEntry
		if err := rows.Scan(&entry.ID, &entry.ClientID, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ban entry: %w", database.MapPostgresError(err))
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ban entry rows: %w", err)
	}

	return entries, nil
}
