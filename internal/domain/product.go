package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProductCategoryDairy = "dairy"
	ProductCategoryMeat  = "meat"
)

type Product struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Category      string    `db:"category" json:"category"`
	Price         float64   `db:"price" json:"price"`
	Description   string    `db:"description" json:"description"`
	Details       string    `db:"details" json:"details"`
	ImageURL      *string   `db:"image_url" json:"image_url,omitempty"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
