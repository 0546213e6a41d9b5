package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/stacklight/identity-server-go/internal/database"
	"github.com/stacklight/identity-server-go/internal/model"
)

type InvitationRepository interface {
	FindByCode(ctx context.Context, code string) (*model.Invitation, error)
	// FindEarliestByEmail returns the oldest pending invitation for the
	// email, if any.
	FindEarliestByEmail(ctx context.Context, email string) (*model.Invitation, error)
	FindAll(ctx context.Context, limit, offset int) ([]model.Invitation, error)
	Create(ctx context.Context, params model.CreateInvitationParams) (*model.Invitation, error)
	// Delete reports how many rows were removed so callers can treat an
	// already-consumed invitation as missing.
	Delete(ctx context.Context, id int64) (int64, error)
	WithTx(tx *sqlx.Tx) InvitationRepository
}

type invitationRepo struct {
	db database.DBTX
}

func NewInvitationRepository(db *sqlx.DB) InvitationRepository {
	return &invitationRepo{db: db}
}

func (r *invitationRepo) WithTx(tx *sqlx.Tx) InvitationRepository {
	return &invitationRepo{db: tx}
}

func (r *invitationRepo) FindByCode(ctx context.Context, code string) (*model.Invitation, error) {
	var invitation model.Invitation
	err := r.db.GetContext(ctx, &invitation, `
		SELECT * FROM invitations WHERE code = $1
	`, code)
	return nilIfNoRows(&invitation, err)
}

func (r *invitationRepo) FindEarliestByEmail(ctx context.Context, email string) (*model.Invitation, error) {
	var invitation model.Invitation
	err := r.db.GetContext(ctx, &invitation, `
		SELECT * FROM invitations
		WHERE email = $1
		ORDER BY id ASC
		LIMIT 1
	`, email)
	return nilIfNoRows(&invitation, err)
}

func (r *invitationRepo) FindAll(ctx context.Context, limit, offset int) ([]model.Invitation, error) {
	var invitations []model.Invitation
	err := r.db.SelectContext(ctx, &invitations, `
		SELECT * FROM invitations
		ORDER BY id ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *invitationRepo) Create(ctx context.Context, params model.CreateInvitationParams) (*model.Invitation, error) {
	var invitation model.Invitation
	err := r.db.GetContext(ctx, &invitation, `
		INSERT INTO invitations (email, code)
		VALUES ($1, $2)
		RETURNING *
	`, params.Email, params.Code)
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *invitationRepo) Delete(ctx context.Context, id int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
