package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
)

type PasswordResetRepository interface {
	// Replace retires every outstanding code for the user and inserts a fresh
	// one in a single transaction, so at no point are two codes live at once.
	Replace(ctx context.Context, userID uuid.UUID, otpHash, otpSalt []byte, expiresAt time.Time) (*domain.PasswordResetOTP, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (*domain.PasswordResetOTP, error)
	FindByID(ctx context.Context, id int64) (*domain.PasswordResetOTP, error)
	MarkUsed(ctx context.Context, id int64) error
	// CompleteReset stamps the consumed code completed and writes the new
	// password hash in one transaction: either both land or neither does.
	// Returns sql.ErrNoRows when the code is not open for completion.
	CompleteReset(ctx context.Context, userID uuid.UUID, otpID int64, passwordHash, passwordSalt []byte, at time.Time) error
}
