package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
)

type PasswordResetRepository struct {
	db *sqlx.DB
}

func NewPasswordResetRepo(db *sqlx.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

const otpColumns = `id, user_id, otp_hash, otp_salt, used, completed_at, expires_at, created_at`

// Replace retires every unused code for the user and inserts the new one in
// one transaction. The user row is locked first so two concurrent reset
// requests serialize here instead of both leaving a live code behind.
func (r *PasswordResetRepository) Replace(ctx context.Context, userID uuid.UUID, otpHash, otpSalt []byte, expiresAt time.Time) (*domain.PasswordResetOTP, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var lockedID uuid.UUID
	if err := tx.GetContext(ctx, &lockedID, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID); err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}

	const retire = `
        UPDATE password_reset_otps
        SET used = TRUE
        WHERE user_id = $1 AND used = FALSE
    `
	if _, err := tx.ExecContext(ctx, retire, userID); err != nil {
		return nil, fmt.Errorf("retire outstanding codes: %w", err)
	}

	const insert = `
        INSERT INTO password_reset_otps (user_id, otp_hash, otp_salt, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + otpColumns + `
    `
	row := tx.QueryRowxContext(ctx, insert, userID, otpHash, otpSalt, expiresAt)
	var reset domain.PasswordResetOTP
	if err := row.StructScan(&reset); err != nil {
		return nil, fmt.Errorf("insert code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *PasswordResetRepository) FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.PasswordResetOTP, error) {
	const query = `
        SELECT ` + otpColumns + `
        FROM password_reset_otps
        WHERE user_id = $1 AND used = FALSE AND expires_at > $2
        ORDER BY created_at DESC
        LIMIT 1
    `
	var reset domain.PasswordResetOTP
	if err := r.db.GetContext(ctx, &reset, query, userID, now); err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *PasswordResetRepository) FindByID(ctx context.Context, id int64) (*domain.PasswordResetOTP, error) {
	const query = `
        SELECT ` + otpColumns + `
        FROM password_reset_otps
        WHERE id = $1
    `
	var reset domain.PasswordResetOTP
	if err := r.db.GetContext(ctx, &reset, query, id); err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *PasswordResetRepository) MarkUsed(ctx context.Context, id int64) error {
	const query = `
        UPDATE password_reset_otps
        SET used = TRUE
        WHERE id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// CompleteReset closes the reset and replaces the password in one
// transaction. The completed_at stamp is the gate: when the code is missing,
// belongs to another user, was never consumed, or already completed, nothing
// is written and sql.ErrNoRows comes back.
func (r *PasswordResetRepository) CompleteReset(ctx context.Context, userID uuid.UUID, otpID int64, passwordHash, passwordSalt []byte, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const closeReset = `
        UPDATE password_reset_otps
        SET completed_at = $3
        WHERE id = $1 AND user_id = $2 AND used = TRUE AND completed_at IS NULL
    `
	result, err := tx.ExecContext(ctx, closeReset, otpID, userID, at)
	if err != nil {
		return fmt.Errorf("close reset: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("close reset: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const updatePassword = `
        UPDATE users
        SET password_hash = $2,
            password_salt = $3,
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := tx.ExecContext(ctx, updatePassword, userID, passwordHash, passwordSalt); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return tx.Commit()
}
