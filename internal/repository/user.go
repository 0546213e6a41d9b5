package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stacklight/identity-server-go/internal/database"
	"github.com/stacklight/identity-server-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindAll(ctx context.Context, limit, offset int) ([]model.User, error)
	Create(ctx context.Context, params model.CreateUserParams) (*model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateRole(ctx context.Context, id int64, isAdmin bool) error
	UpdateActive(ctx context.Context, id int64, active bool) error
	ResetAuthToken(ctx context.Context, email, authToken string) error
	CountActive(ctx context.Context) (int, error)
	CountAdmins(ctx context.Context) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UserRepository
}

type userRepo struct {
	db database.DBTX
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1
	`, id)
	return nilIfNoRows(&user, err)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE email = $1
	`, email)
	return nilIfNoRows(&user, err)
}

func (r *userRepo) FindAll(ctx context.Context, limit, offset int) ([]model.User, error) {
	var users []model.User
	err := r.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		ORDER BY id ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (email, password_hash, is_admin, is_owner, active, auth_token)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		RETURNING *
	`, params.Email, params.PasswordHash, params.IsAdmin, params.IsOwner, params.AuthToken)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1
	`, id, passwordHash, time.Now())
	return err
}

func (r *userRepo) UpdateRole(ctx context.Context, id int64, isAdmin bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET is_admin = $2, updated_at = $3 WHERE id = $1
	`, id, isAdmin, time.Now())
	return err
}

func (r *userRepo) UpdateActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET active = $2, updated_at = $3 WHERE id = $1
	`, id, active, time.Now())
	return err
}

func (r *userRepo) ResetAuthToken(ctx context.Context, email, authToken string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET auth_token = $2, updated_at = $3 WHERE email = $1
	`, email, authToken, time.Now())
	return err
}

func (r *userRepo) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE active`)
	return count, err
}

func (r *userRepo) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE is_admin`)
	return count, err
}
