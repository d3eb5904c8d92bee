package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
)

type userRepository struct {
	q querier
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var u entity.User
	err := r.q.QueryRowContext(ctx,
		"SELECT id, email, first_name, last_name, phone, address, role, created_at FROM users WHERE id = $1", id,
	).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Address, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, u *entity.User) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO users (id, email, first_name, last_name, phone, address, role, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		u.ID, u.Email, u.FirstName, u.LastName, u.Phone, u.Address, u.Role, u.CreatedAt)
	if err != nil {
		return translate(err, "insert user")
	}
	return nil
}
