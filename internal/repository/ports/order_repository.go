package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
)

type OrderRepository interface {
	// CreateWithItems inserts the order and all of its items atomically.
	CreateWithItems(ctx context.Context, order domain.Order, items []domain.OrderItem) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.OrderSummary, error)
}
