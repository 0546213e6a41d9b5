package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stacklight/identity-server-go/internal/database"
	"github.com/stacklight/identity-server-go/internal/model"
)

// LicenseRepository stores the single active license certificate.
type LicenseRepository interface {
	Get(ctx context.Context) (*model.StoredLicense, error)
	Update(ctx context.Context, certificate string) error
	WithTx(tx *sqlx.Tx) LicenseRepository
}

type licenseRepo struct {
	db database.DBTX
}

func NewLicenseRepository(db *sqlx.DB) LicenseRepository {
	return &licenseRepo{db: db}
}

func (r *licenseRepo) WithTx(tx *sqlx.Tx) LicenseRepository {
	return &licenseRepo{db: tx}
}

func (r *licenseRepo) Get(ctx context.Context) (*model.StoredLicense, error) {
	var license model.StoredLicense
	err := r.db.GetContext(ctx, &license, `
		SELECT * FROM licenses WHERE id = 1
	`)
	return nilIfNoRows(&license, err)
}

func (r *licenseRepo) Update(ctx context.Context, certificate string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO licenses (id, certificate)
		VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET
			certificate = EXCLUDED.certificate,
			updated_at = $2
	`, certificate, time.Now())
	return err
}
