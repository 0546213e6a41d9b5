package license

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stacklight/identity-server-go/internal/audit"
	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/model"
	"github.com/stacklight/identity-server-go/internal/repository"
)

// Service answers "is the license valid and within seats" and accepts
// new certificates.
type Service struct {
	licenseRepo repository.LicenseRepository
	validator   *Validator
	seats       *SeatCache
	now         func() time.Time
}

func NewService(licenseRepo repository.LicenseRepository, validator *Validator, seats *SeatCache) *Service {
	return &Service{
		licenseRepo: licenseRepo,
		validator:   validator,
		seats:       seats,
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func deriveStatus(cert *Certificate, seatsUsed int, now time.Time) model.LicenseStatus {
	switch {
	case now.After(cert.ExpiresAt):
		return model.LicenseStatusExpired
	case seatsUsed > cert.Seats:
		return model.LicenseStatusSeatsExceeded
	default:
		return model.LicenseStatusOk
	}
}

func (s *Service) info(cert *Certificate, seatsUsed int) *model.LicenseInfo {
	return &model.LicenseInfo{
		Type:      cert.Type,
		Status:    deriveStatus(cert, seatsUsed, s.now()),
		Seats:     cert.Seats,
		SeatsUsed: seatsUsed,
		IssuedAt:  cert.IssuedAt,
		ExpiresAt: cert.ExpiresAt,
	}
}

// Read returns the decoded current license, or nil when no certificate
// is stored.
func (s *Service) Read(ctx context.Context) (*model.LicenseInfo, error) {
	stored, err := s.licenseRepo.Get(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if stored == nil {
		return nil, nil
	}

	cert, err := s.validator.Validate(stored.Certificate)
	if err != nil {
		return nil, apperrors.CertificateCorrupt().WithCause(err)
	}

	seatsUsed, err := s.seats.Used(ctx, false)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	return s.info(cert, seatsUsed), nil
}

// IsValid reports whether the current license permits enterprise
// features. Any read failure counts as invalid.
func (s *Service) IsValid(ctx context.Context) bool {
	info, err := s.Read(ctx)
	if err != nil {
		return false
	}
	return info.IsValid()
}

// Update verifies and persists a new certificate. The seat count is
// force-refreshed so the decision uses current data; only an Ok status
// is accepted, anything else leaves the previous certificate in effect.
func (s *Service) Update(ctx context.Context, certText string) error {
	cert, err := s.validator.Validate(certText)
	if err != nil {
		return apperrors.CertificateCorrupt().WithCause(err)
	}

	seatsUsed, err := s.seats.Used(ctx, true)
	if err != nil {
		return apperrors.Database(err)
	}

	switch deriveStatus(cert, seatsUsed, s.now()) {
	case model.LicenseStatusExpired:
		return apperrors.LicenseExpired()
	case model.LicenseStatusSeatsExceeded:
		return apperrors.SeatsExceeded()
	}

	if err := s.licenseRepo.Update(ctx, certText); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:  audit.EventLicenseUpdate,
		Email: cert.Subject,
		Details: map[string]interface{}{
			"type":  string(cert.Type),
			"seats": cert.Seats,
		},
	})

	log.Info().
		Str("type", string(cert.Type)).
		Int("seats", cert.Seats).
		Time("expiresAt", cert.ExpiresAt).
		Msg("license certificate updated")

	return nil
}
