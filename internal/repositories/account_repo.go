package repositories

import (
	"context"
	"fmt"

	"github.com/dstrelow/gallerygate/internal/database"
	"github.com/dstrelow/gallerygate/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository handles account data access
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account

	err := scanner.Scan(
		&account.ID, &account.Username, &account.FullName,
		&account.Privileges, &account.PasswordHash, &account.Email,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &account, nil
}

// FindByUsername looks up an account by its unique username
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `
		SELECT id, username, full_name, privileges, password_hash, email, created_at
		FROM accounts
		WHERE username = $1
	`

	account, err := scanAccountRow(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		return nil, err
	}

	return account, nil
}

// FindByID looks up an account by id
func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	query := `
		SELECT id, username, full_name, privileges, password_hash, email, created_at
		FROM accounts
		WHERE id = $1
	`

	account, err := scanAccountRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	return account, nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (username, full_name, privileges, password_hash, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, full_name, privileges, password_hash, email, created_at
	`

	created, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		account.Username, account.FullName, account.Privileges,
		account.PasswordHash, account.Email,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return created, nil
}
