package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
)

type OrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepo(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, order_number, user_id, total_amount, payment_method, delivery_address, status, created_at, updated_at`

func (r *OrderRepository) CreateWithItems(ctx context.Context, order domain.Order, items []domain.OrderItem) (*domain.Order, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertOrder = `
        INSERT INTO orders (order_number, user_id, total_amount, payment_method, delivery_address, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + orderColumns + `
    `
	row := tx.QueryRowxContext(ctx, insertOrder,
		order.OrderNumber, order.UserID, order.TotalAmount,
		order.PaymentMethod, order.DeliveryAddress, order.Status)
	var created domain.Order
	if err := row.StructScan(&created); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	const insertItem = `
        INSERT INTO order_items (order_id, product_id, quantity, price)
        VALUES ($1, $2, $3, $4)
    `
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, insertItem, created.ID, item.ProductID, item.Quantity, item.Price); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.OrderSummary, error) {
	const query = `
        SELECT o.id, o.order_number, o.user_id, o.total_amount, o.payment_method,
               o.delivery_address, o.status, o.created_at, o.updated_at,
               COALESCE(
                   STRING_AGG(
                       oi.quantity || 'x ' || p.name || ' ($' || TRIM(TO_CHAR(oi.price, 'FM999999990.00')) || ')',
                       '; ' ORDER BY oi.id
                   ),
                   ''
               ) AS items
        FROM orders o
        LEFT JOIN order_items oi ON oi.order_id = o.id
        LEFT JOIN products p ON p.id = oi.product_id
        WHERE o.user_id = $1
        GROUP BY o.id
        ORDER BY o.created_at DESC
    `
	var orders []domain.OrderSummary
	if err := r.db.SelectContext(ctx, &orders, query, userID); err != nil {
		return nil, err
	}
	return orders, nil
}
