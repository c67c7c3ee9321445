package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
)

type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Insert(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateImageURL(ctx context.Context, id uuid.UUID, imageURL string) (*domain.Product, error)
	Count(ctx context.Context) (int64, error)
}
