package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/freshvalley/dairy-shop-backend/internal/domain"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, customer_code, username, email, phone, address, password_hash, password_salt, created_at, updated_at`

func (r *UserRepository) Create(ctx context.Context, customerCode, username, email, phone, address string, passwordHash, passwordSalt []byte) (*domain.User, error) {
	const query = `
        INSERT INTO users (customer_code, username, email, phone, address, password_hash, password_salt)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING ` + userColumns + `
    `
	row := r.db.QueryRowxContext(ctx, query, customerCode, username, email, phone, address, passwordHash, passwordSalt)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users
        WHERE username = $1
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users
        WHERE phone = $1
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, phone); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users
        WHERE id = $1
    `
	var user domain.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}
