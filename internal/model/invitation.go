package model

import (
	"time"
)

// Invitation is a single-use permit to register with a specific email.
// It is deleted when consumed by a successful registration or by an
// administrator.
type Invitation struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateInvitationParams struct {
	Email string
	Code  string
}
