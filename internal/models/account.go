package models

import (
	"time"

	"github.com/google/uuid"
)

// Privilege bits for accounts
const (
	PrivilegeViewer int64 = 1 << iota
	PrivilegeUploader
	PrivilegeCurator
	PrivilegeAdmin
)

// Account represents a user account in the system
type Account struct {
	ID           uuid.UUID `db:"id"`
	Username     string    `db:"username"`
	FullName     string    `db:"full_name"`
	Privileges   int64     `db:"privileges"`
	PasswordHash string    `db:"password_hash"`
	Email        *string   `db:"email"`
	CreatedAt    time.Time `db:"created_at"`
}

// HasPrivilege reports whether the account carries the given privilege bit
func (a *Account) HasPrivilege(p int64) bool {
	return a.Privileges&p != 0
}
