package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	Email                string     `db:"email" json:"email"`
	FullName             *string    `db:"full_name" json:"full_name,omitempty"`
	PasswordHash         []byte     `db:"password_hash" json:"-"`
	PasswordSalt         []byte     `db:"password_salt" json:"-"`
	TxnPasswordHash      []byte     `db:"txn_password_hash" json:"-"`
	TxnPasswordSalt      []byte     `db:"txn_password_salt" json:"-"`
	TxnPasswordUpdatedAt *time.Time `db:"txn_password_updated_at" json:"txn_password_updated_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// HasTransactionPassword reports whether the user has ever set a transaction
// password. The hash columns are nullable and stay empty until the first set.
func (u *User) HasTransactionPassword() bool {
	return len(u.TxnPasswordHash) > 0 && len(u.TxnPasswordSalt) > 0
}
