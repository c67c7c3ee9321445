package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, customerCode, username, email, phone, address string, passwordHash, passwordSalt []byte) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
