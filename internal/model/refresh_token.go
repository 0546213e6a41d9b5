package model

import (
	"time"
)

// RefreshToken is an opaque, store-resident session credential.
// Rotation replaces Token but keeps ExpiresAt from first issuance.
type RefreshToken struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	Token     string    `db:"token" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

type CreateRefreshTokenParams struct {
	UserID    int64
	Token     string
	ExpiresAt time.Time
}
