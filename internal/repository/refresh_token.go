package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stacklight/identity-server-go/internal/database"
	"github.com/stacklight/identity-server-go/internal/model"
)

type RefreshTokenRepository interface {
	FindByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	Create(ctx context.Context, params model.CreateRefreshTokenParams) (*model.RefreshToken, error)
	// Replace swaps the token string in place, keeping the original
	// expiry. The update is conditional on oldToken still being current;
	// a zero row count means another rotation won the race (or the token
	// never existed) and the caller must treat the token as unknown.
	Replace(ctx context.Context, oldToken, newToken string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
	WithTx(tx *sqlx.Tx) RefreshTokenRepository
}

type refreshTokenRepo struct {
	db database.DBTX
}

func NewRefreshTokenRepository(db *sqlx.DB) RefreshTokenRepository {
	return &refreshTokenRepo{db: db}
}

func (r *refreshTokenRepo) WithTx(tx *sqlx.Tx) RefreshTokenRepository {
	return &refreshTokenRepo{db: tx}
}

func (r *refreshTokenRepo) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var refreshToken model.RefreshToken
	err := r.db.GetContext(ctx, &refreshToken, `
		SELECT * FROM refresh_tokens WHERE token = $1
	`, token)
	return nilIfNoRows(&refreshToken, err)
}

func (r *refreshTokenRepo) Create(ctx context.Context, params model.CreateRefreshTokenParams) (*model.RefreshToken, error) {
	var refreshToken model.RefreshToken
	err := r.db.GetContext(ctx, &refreshToken, `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.UserID, params.Token, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &refreshToken, nil
}

func (r *refreshTokenRepo) Replace(ctx context.Context, oldToken, newToken string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET token = $2 WHERE token = $1
	`, oldToken, newToken)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *refreshTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < $1
	`, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
