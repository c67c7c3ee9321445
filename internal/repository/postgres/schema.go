package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// bootstrapSchema creates the storefront tables when they do not exist yet.
// All child tables cascade-delete with their parent.
const bootstrapSchema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    customer_code VARCHAR(10)  NOT NULL UNIQUE,
    username      VARCHAR(50)  NOT NULL UNIQUE,
    email         VARCHAR(100) NOT NULL UNIQUE,
    phone         VARCHAR(20)  NOT NULL UNIQUE,
    address       TEXT         NOT NULL,
    password_hash BYTEA        NOT NULL,
    password_salt BYTEA        NOT NULL,
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS products (
    id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name           VARCHAR(100)   NOT NULL,
    category       VARCHAR(10)    NOT NULL CHECK (category IN ('dairy', 'meat')),
    price          NUMERIC(10, 2) NOT NULL,
    description    TEXT           NOT NULL DEFAULT '',
    details        TEXT           NOT NULL DEFAULT '',
    image_url      TEXT,
    stock_quantity INT            NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ    NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ    NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
    id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    order_number     VARCHAR(24)    NOT NULL UNIQUE,
    user_id          UUID           NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    total_amount     NUMERIC(10, 2) NOT NULL,
    payment_method   VARCHAR(50)    NOT NULL,
    delivery_address TEXT           NOT NULL,
    status           VARCHAR(20)    NOT NULL DEFAULT 'pending',
    created_at       TIMESTAMPTZ    NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ    NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id);

CREATE TABLE IF NOT EXISTS order_items (
    id         BIGSERIAL PRIMARY KEY,
    order_id   UUID           NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    product_id UUID           NOT NULL REFERENCES products(id) ON DELETE CASCADE,
    quantity   INT            NOT NULL,
    price      NUMERIC(10, 2) NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id);

CREATE TABLE IF NOT EXISTS password_reset_otps (
    id           BIGSERIAL PRIMARY KEY,
    user_id      UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    otp_hash     BYTEA       NOT NULL,
    otp_salt     BYTEA       NOT NULL,
    used         BOOLEAN     NOT NULL DEFAULT FALSE,
    completed_at TIMESTAMPTZ,
    expires_at   TIMESTAMPTZ NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_password_reset_otps_user ON password_reset_otps (user_id, used);

CREATE TABLE IF NOT EXISTS sessions (
    id         BIGSERIAL PRIMARY KEY,
    user_id    UUID        NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token      VARCHAR(64) NOT NULL UNIQUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL,
    is_active  BOOLEAN     NOT NULL DEFAULT TRUE
);
`

// EnsureSchema applies the bootstrap DDL. Safe to run on every start.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, bootstrapSchema)
	return err
}
