package domain

import (
	"time"

	"github.com/google/uuid"
)

const OrderStatusPending = "pending"

type Order struct {
	ID              uuid.UUID `db:"id" json:"id"`
	OrderNumber     string    `db:"order_number" json:"order_id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	TotalAmount     float64   `db:"total_amount" json:"total_amount"`
	PaymentMethod   string    `db:"payment_method" json:"payment_method"`
	DeliveryAddress string    `db:"delivery_address" json:"delivery_address"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

type OrderItem struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	ProductID uuid.UUID `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	// Price is the per-unit price captured at checkout. It is a snapshot:
	// later catalog price edits never change it.
	Price float64 `db:"price" json:"price"`
}

// OrderSummary is an order row joined with a human-readable item list, e.g.
// "2x Fresh Whole Milk ($4.99); 1x Organic Butter ($6.99)".
type OrderSummary struct {
	Order
	Items string `db:"items" json:"items"`
}
