package repositories

import (
	"context"
	"fmt"

	"github.com/dstrelow/gallerygate/internal/database"
	"github.com/dstrelow/gallerygate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LogEntryRepository handles audit log entry persistence
type LogEntryRepository struct {
	db *database.DB
}

// NewLogEntryRepository creates a new LogEntryRepository
func NewLogEntryRepository(db *database.DB) *LogEntryRepository {
	return &LogEntryRepository{db: db}
}

// InsertBatch persists all entries in one transaction. The batch either
// commits completely or not at all.
func (r *LogEntryRepository) InsertBatch(ctx context.Context, entries []models.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO log_entries (
			id, severity, source, method, action,
			requester_id, requester_username, requester_email, requester_full_name,
			address, user_agent, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, entry := range entries {
			batch.Queue(query,
				entry.ID, entry.Severity, entry.Source, entry.Method, entry.Action,
				entry.RequesterID, entry.RequesterUsername, entry.RequesterEmail, entry.RequesterFullName,
				entry.Address, entry.UserAgent, entry.CreatedAt,
			)
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()

		for range entries {
			if _, err := results.Exec(); err != nil {
				return database.MapPostgresError(err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return fmt.Errorf("failed to insert log entry batch: %w", err)
	}

	return nil
}

// scanLogEntryRow populates a LogEntry model from a database row
func scanLogEntryRow(row rowScanner) (*models.LogEntry, error) {
	var entry models.LogEntry

	err := row.Scan(
		&entry.ID, &entry.Severity, &entry.Source, &entry.Method, &entry.Action,
		&entry.RequesterID, &entry.RequesterUsername, &entry.RequesterEmail, &entry.RequesterFullName,
		&entry.Address, &entry.UserAgent, &entry.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &entry, nil
}

// GetBySeverity retrieves log entries by severity, newest first
func (r *LogEntryRepository) GetBySeverity(ctx context.Context, severity string, limit, offset int) ([]*models.LogEntry, error) {
	query := `
		SELECT id, severity, source, method, action,
		       requester_id, requester_username, requester_email, requester_full_name,
		       address, user_agent, created_at
		FROM log_entries
		WHERE severity = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, severity, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.LogEntry, 0)
	for rows.Next() {
		entry, err := scanLogEntryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log entry rows: %w", err)
	}

	return logs, nil
}

// GetByRequester retrieves log entries recorded for a specific account
func (r *LogEntryRepository) GetByRequester(ctx context.Context, requesterID uuid.UUID, limit, offset int) ([]*models.LogEntry, error) {
	query := `
		SELECT id, severity, source, method, action,
		       requester_id, requester_username, requester_email, requester_full_name,
		       address, user_agent, created_at
		FROM log_entries
		WHERE requester_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, requesterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query log entries: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.LogEntry, 0)
	for rows.Next() {
		entry, err := scanLogEntryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating log entry rows: %w", err)
	}

	return logs, nil
}

// Cleanup removes log entries older than the specified number of days
func (r *LogEntryRepository) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	query := `
		DELETE FROM log_entries
		WHERE created_at < CURRENT_TIMESTAMP - INTERVAL '1 day' * $1
	`

	result, err := r.db.Pool.Exec(ctx, query, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup log entries: %w", err)
	}

	return result.RowsAffected(), nil
}
