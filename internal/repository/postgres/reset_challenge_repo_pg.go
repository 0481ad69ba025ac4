package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hellotrader/ops-api/internal/domain"
)

type ResetChallengeRepository struct {
	db *sqlx.DB
}

func NewResetChallengeRepo(db *sqlx.DB) *ResetChallengeRepository {
	return &ResetChallengeRepository{db: db}
}

const challengeColumns = `id, user_id, purpose, code, reset_token, expires_at, consumed, created_at, updated_at`

func (r *ResetChallengeRepository) Upsert(ctx context.Context, userID uuid.UUID, purpose domain.ResetPurpose, code, resetToken string, expiresAt time.Time) (*domain.ResetChallenge, error) {
	const query = `
        INSERT INTO reset_challenge (user_id, purpose, code, reset_token, expires_at, consumed)
        VALUES ($1, $2, $3, $4, $5, FALSE)
        ON CONFLICT (user_id, purpose) DO UPDATE
        SET code = EXCLUDED.code,
            reset_token = EXCLUDED.reset_token,
            expires_at = EXCLUDED.expires_at,
            consumed = FALSE,
            updated_at = NOW()
        RETURNING ` + challengeColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, userID, purpose, code, resetToken, expiresAt)
	var challenge domain.ResetChallenge
	if err := row.StructScan(&challenge); err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *ResetChallengeRepository) FindLiveByCode(ctx context.Context, userID uuid.UUID, purpose domain.ResetPurpose, code string, now time.Time) (*domain.ResetChallenge, error) {
	const query = `
        SELECT ` + challengeColumns + `
        FROM reset_challenge
        WHERE user_id = $1 AND purpose = $2 AND code = $3
          AND consumed = FALSE AND expires_at > $4
    `
	var challenge domain.ResetChallenge
	if err := r.db.GetContext(ctx, &challenge, query, userID, purpose, code, now); err != nil {
		return nil, err
	}
	return &challenge, nil
}

// ConsumeWithTxnPassword runs both writes in one transaction. The consume is a
// single conditional UPDATE, so a second caller racing on the same token sees
// zero rows and the whole transaction rolls back with sql.ErrNoRows.
func (r *ResetChallengeRepository) ConsumeWithTxnPassword(ctx context.Context, userID uuid.UUID, purpose domain.ResetPurpose, resetToken string, txnHash, txnSalt []byte, now time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const consume = `
        UPDATE reset_challenge
        SET consumed = TRUE,
            updated_at = NOW()
        WHERE user_id = $1 AND purpose = $2 AND reset_token = $3
          AND consumed = FALSE AND expires_at > $4
    `
	res, err := tx.ExecContext(ctx, consume, userID, purpose, resetToken, now)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const setPassword = `
        UPDATE user_account
        SET txn_password_hash = $2,
            txn_password_salt = $3,
            txn_password_updated_at = NOW(),
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := tx.ExecContext(ctx, setPassword, userID, txnHash, txnSalt); err != nil {
		return err
	}

	return tx.Commit()
}
