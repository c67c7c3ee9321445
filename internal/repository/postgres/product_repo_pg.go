package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
)

type ProductRepository struct {
	db *sqlx.DB
}

func NewProductRepo(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, category, price, description, details, image_url, stock_quantity, created_at, updated_at`

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	const query = `
        SELECT ` + productColumns + `
        FROM products
        ORDER BY created_at, name
    `
	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	const query = `
        SELECT ` + productColumns + `
        FROM products
        WHERE id = $1
    `
	var product domain.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	const query = `
        INSERT INTO products (name, category, price, description, details, image_url, stock_quantity)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + productColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query,
		product.Name, product.Category, product.Price,
		product.Description, product.Details, product.ImageURL, product.StockQuantity)
	var inserted domain.Product
	if err := row.StructScan(&inserted); err != nil {
		return nil, err
	}
	return &inserted, nil
}

func (r *ProductRepository) UpdateImageURL(ctx context.Context, id uuid.UUID, imageURL string) (*domain.Product, error) {
	const query = `
        UPDATE products
        SET image_url = $2,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + productColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, id, imageURL)
	var product domain.Product
	if err := row.StructScan(&product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM products`); err != nil {
		return 0, err
	}
	return count, nil
}
