package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hellotrader/ops-api/internal/domain"
)

// ResetChallengeRepository persists reset challenges. At most one row exists
// per (user, purpose); Upsert replaces any earlier challenge for that pair.
type ResetChallengeRepository interface {
	// Upsert stores a fresh challenge for the pair, overwriting code, token
	// and expiry of any previous one and clearing its consumed flag.
	Upsert(ctx context.Context, userID uuid.UUID, purpose domain.ResetPurpose, code, resetToken string, expiresAt time.Time) (*domain.ResetChallenge, error)

	// FindLiveByCode returns the challenge matching user, purpose and code
	// that is unconsumed and unexpired at now. sql.ErrNoRows when absent.
	FindLiveByCode(ctx context.Context, userID uuid.UUID, purpose domain.ResetPurpose, code string, now time.Time) (*domain.ResetChallenge, error)

	// ConsumeWithTxnPassword marks the live challenge matching user, purpose
	// and reset token as consumed and writes the new transaction password
	// hash onto the user row, both inside one transaction. The consume check
	// and flag flip are a single conditional update, so of two racing calls
	// exactly one can succeed; the loser gets sql.ErrNoRows.
	ConsumeWithTxnPassword(ctx context.Context, userID uuid.UUID, purpose domain.ResetPurpose, resetToken string, txnHash, txnSalt []byte, now time.Time) error
}
