package model

import (
	"time"
)

type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	// PasswordHash is empty for accounts provisioned through OAuth.
	// An empty hash never verifies, so such accounts cannot log in
	// with a password.
	PasswordHash string    `db:"password_hash" json:"-"`
	IsAdmin      bool      `db:"is_admin" json:"isAdmin"`
	IsOwner      bool      `db:"is_owner" json:"isOwner"`
	Active       bool      `db:"active" json:"active"`
	AuthToken    string    `db:"auth_token" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	IsAdmin      bool
	// IsOwner is set only for the very first admin account and is
	// immutable afterwards.
	IsOwner   bool
	AuthToken string
}
