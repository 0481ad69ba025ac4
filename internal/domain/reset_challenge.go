package domain

import (
	"time"

	"github.com/google/uuid"
)

// ResetPurpose tags a challenge with the credential it is allowed to reset, so
// several reset flows can share the reset_challenge table.
type ResetPurpose string

const (
	// ResetPurposeTxnPassword covers resets of the transaction password used
	// to authorise withdrawals and order actions.
	ResetPurposeTxnPassword ResetPurpose = "txn_password"
)

// ResetChallenge is one outstanding reset attempt for a (user, purpose) pair.
// The code travels out of band to the user; the reset token is handed back
// only after the code has been verified. Rows are never deleted: a consumed or
// expired challenge stays behind for audit and is simply never matched again.
type ResetChallenge struct {
	ID         int64        `db:"id" json:"id"`
	UserID     uuid.UUID    `db:"user_id" json:"user_id"`
	Purpose    ResetPurpose `db:"purpose" json:"purpose"`
	Code       string       `db:"code" json:"-"`
	ResetToken string       `db:"reset_token" json:"-"`
	ExpiresAt  time.Time    `db:"expires_at" json:"expires_at"`
	Consumed   bool         `db:"consumed" json:"consumed"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// Live reports whether the challenge can still be matched at the given instant.
func (c *ResetChallenge) Live(now time.Time) bool {
	return !c.Consumed && now.Before(c.ExpiresAt)
}
