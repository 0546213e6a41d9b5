package model

import (
	"time"
)

type LicenseType string

const (
	LicenseTypeCommunity  LicenseType = "COMMUNITY"
	LicenseTypeTeam       LicenseType = "TEAM"
	LicenseTypeEnterprise LicenseType = "ENTERPRISE"
)

type LicenseStatus string

const (
	LicenseStatusOk            LicenseStatus = "OK"
	LicenseStatusExpired       LicenseStatus = "EXPIRED"
	LicenseStatusSeatsExceeded LicenseStatus = "SEATS_EXCEEDED"
)

// LicenseInfo is the decoded state of the stored license certificate
// combined with current seat usage.
type LicenseInfo struct {
	Type      LicenseType   `json:"type"`
	Status    LicenseStatus `json:"status"`
	Seats     int           `json:"seats"`
	SeatsUsed int           `json:"seatsUsed"`
	IssuedAt  time.Time     `json:"issuedAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// IsValid reports whether the license permits enterprise features.
func (l *LicenseInfo) IsValid() bool {
	return l != nil && l.Status == LicenseStatusOk
}

// StoredLicense is the raw certificate text as persisted.
type StoredLicense struct {
	ID          int64     `db:"id" json:"-"`
	Certificate string    `db:"certificate" json:"-"`
	UpdatedAt   time.Time `db:"updated_at" json:"-"`
}
