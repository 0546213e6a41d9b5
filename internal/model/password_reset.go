package model

import (
	"time"
)

// PasswordReset is a one-shot password reset permit. At most one is
// kept per user; it is deleted once consumed.
type PasswordReset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	Code      string    `db:"code" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreatePasswordResetParams struct {
	UserID int64
	Code   string
}
