package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stacklight/identity-server-go/internal/config"
	"github.com/stacklight/identity-server-go/internal/database"
	"github.com/stacklight/identity-server-go/internal/model"
)

type PasswordResetRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*model.PasswordReset, error)
	FindByCode(ctx context.Context, code string) (*model.PasswordReset, error)
	// Create replaces any previous request for the same user; the
	// cooldown check happens in the service before this call.
	Create(ctx context.Context, params model.CreatePasswordResetParams) (*model.PasswordReset, error)
	DeleteByUserID(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context) (int64, error)
	WithTx(tx *sqlx.Tx) PasswordResetRepository
}

type passwordResetRepo struct {
	db database.DBTX
}

func NewPasswordResetRepository(db *sqlx.DB) PasswordResetRepository {
	return &passwordResetRepo{db: db}
}

func (r *passwordResetRepo) WithTx(tx *sqlx.Tx) PasswordResetRepository {
	return &passwordResetRepo{db: tx}
}

func (r *passwordResetRepo) FindByUserID(ctx context.Context, userID int64) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	err := r.db.GetContext(ctx, &reset, `
		SELECT * FROM password_resets WHERE user_id = $1
	`, userID)
	return nilIfNoRows(&reset, err)
}

func (r *passwordResetRepo) FindByCode(ctx context.Context, code string) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	err := r.db.GetContext(ctx, &reset, `
		SELECT * FROM password_resets WHERE code = $1
	`, code)
	return nilIfNoRows(&reset, err)
}

func (r *passwordResetRepo) Create(ctx context.Context, params model.CreatePasswordResetParams) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	err := r.db.GetContext(ctx, &reset, `
		INSERT INTO password_resets (user_id, code)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
			SET code = EXCLUDED.code, created_at = NOW()
		RETURNING *
	`, params.UserID, params.Code)
	if err != nil {
		return nil, err
	}
	return &reset, nil
}

func (r *passwordResetRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userID)
	return err
}

func (r *passwordResetRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM password_resets WHERE created_at < $1
	`, time.Now().Add(-config.PasswordResetTTL))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
