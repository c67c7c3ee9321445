package domain

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetOTP is one issued reset code. Policy keeps at most one row per
// user with Used == false and ExpiresAt in the future; the repository enforces
// that by marking older rows used inside the same transaction that inserts a
// fresh one. CompletedAt is set when the reset backed by this code finishes,
// which makes the follow-up reset token single-use.
type PasswordResetOTP struct {
	ID          int64      `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	OTPHash     []byte     `db:"otp_hash" json:"-"`
	OTPSalt     []byte     `db:"otp_salt" json:"-"`
	Used        bool       `db:"used" json:"used"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
