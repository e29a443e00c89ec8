// Package repository provides data access for user accounts.
package repository

import (
	"context"
	"errors"
	"time"

	"pipeline_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	Team         domain.Team
	IsManager    bool
	PasswordHash string
	CreatedAt    time.Time
}

const userColumns = `id, username, email, team, is_manager, password_hash, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Team, &u.IsManager, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

type CreateParams struct {
	Username     string
	Email        string
	Team         domain.Team
	IsManager    bool
	PasswordHash string
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, team, is_manager, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		params.Username, params.Email, params.Team, params.IsManager, params.PasswordHash)
	return scanUser(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

// List returns all users, optionally filtered by team.
func (r *Repository) List(ctx context.Context, team *domain.Team) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if team != nil {
		query += ` WHERE team = $1`
		args = append(args, *team)
	}
	query += ` ORDER BY username ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
