package model

import (
	"strings"
	"time"
)

// SecuritySetting holds the administrator-configured self-signup policy:
// a comma-separated domain allow-list plus a toggle for unlisted domains.
type SecuritySetting struct {
	ID                     int64     `db:"id" json:"id"`
	AllowedRegisterDomains string    `db:"allowed_register_domains" json:"allowedRegisterDomains"`
	DisableInvitationCheck bool      `db:"disable_invitation_check" json:"disableInvitationCheck"`
	UpdatedAt              time.Time `db:"updated_at" json:"updatedAt"`
}

// DomainList splits the stored allow-list into individual domains.
func (s *SecuritySetting) DomainList() []string {
	if s == nil || s.AllowedRegisterDomains == "" {
		return nil
	}
	parts := strings.Split(s.AllowedRegisterDomains, ",")
	domains := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			domains = append(domains, p)
		}
	}
	return domains
}

type UpdateSecuritySettingParams struct {
	AllowedRegisterDomains *string
	DisableInvitationCheck *bool
}

// OAuthCredential is an administrator-provisioned client id/secret pair
// for one external identity provider.
type OAuthCredential struct {
	ID           int64     `db:"id" json:"id"`
	Provider     string    `db:"provider" json:"provider"`
	ClientID     string    `db:"client_id" json:"clientId"`
	ClientSecret string    `db:"client_secret" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

const (
	OAuthProviderGithub = "github"
	OAuthProviderGoogle = "google"
)
