package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stacklight/identity-server-go/internal/database"
	"github.com/stacklight/identity-server-go/internal/model"
)

// SettingRepository stores singleton server settings and per-provider
// OAuth credentials.
type SettingRepository interface {
	GetSecurity(ctx context.Context) (*model.SecuritySetting, error)
	UpdateSecurity(ctx context.Context, params model.UpdateSecuritySettingParams) (*model.SecuritySetting, error)
	GetOAuthCredential(ctx context.Context, provider string) (*model.OAuthCredential, error)
	UpsertOAuthCredential(ctx context.Context, provider, clientID, clientSecret string) (*model.OAuthCredential, error)
	DeleteOAuthCredential(ctx context.Context, provider string) error
	WithTx(tx *sqlx.Tx) SettingRepository
}

type settingRepo struct {
	db database.DBTX
}

func NewSettingRepository(db *sqlx.DB) SettingRepository {
	return &settingRepo{db: db}
}

func (r *settingRepo) WithTx(tx *sqlx.Tx) SettingRepository {
	return &settingRepo{db: tx}
}

func (r *settingRepo) GetSecurity(ctx context.Context) (*model.SecuritySetting, error) {
	var setting model.SecuritySetting
	err := r.db.GetContext(ctx, &setting, `
		SELECT * FROM security_settings WHERE id = 1
	`)
	return nilIfNoRows(&setting, err)
}

func (r *settingRepo) UpdateSecurity(ctx context.Context, params model.UpdateSecuritySettingParams) (*model.SecuritySetting, error) {
	var setting model.SecuritySetting
	err := r.db.GetContext(ctx, &setting, `
		INSERT INTO security_settings (id, allowed_register_domains, disable_invitation_check)
		VALUES (1, COALESCE($1, ''), COALESCE($2, FALSE))
		ON CONFLICT (id) DO UPDATE SET
			allowed_register_domains = COALESCE($1, security_settings.allowed_register_domains),
			disable_invitation_check = COALESCE($2, security_settings.disable_invitation_check),
			updated_at = $3
		RETURNING *
	`, params.AllowedRegisterDomains, params.DisableInvitationCheck, time.Now())
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *settingRepo) GetOAuthCredential(ctx context.Context, provider string) (*model.OAuthCredential, error) {
	var cred model.OAuthCredential
	err := r.db.GetContext(ctx, &cred, `
		SELECT * FROM oauth_credentials WHERE provider = $1
	`, provider)
	return nilIfNoRows(&cred, err)
}

func (r *settingRepo) UpsertOAuthCredential(ctx context.Context, provider, clientID, clientSecret string) (*model.OAuthCredential, error) {
	var cred model.OAuthCredential
	err := r.db.GetContext(ctx, &cred, `
		INSERT INTO oauth_credentials (provider, client_id, client_secret)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			client_secret = EXCLUDED.client_secret,
			updated_at = $4
		RETURNING *
	`, provider, clientID, clientSecret, time.Now())
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *settingRepo) DeleteOAuthCredential(ctx context.Context, provider string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM oauth_credentials WHERE provider = $1`, provider)
	return err
}
