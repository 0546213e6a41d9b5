package policy

import (
	"context"
	"strings"

	"github.com/stacklight/identity-server-go/internal/repository"
)

// SignupPolicy decides whether an email may register without an
// invitation, based on the administrator-configured domain allow-list.
type SignupPolicy struct {
	settings repository.SettingRepository
}

func NewSignupPolicy(settings repository.SettingRepository) *SignupPolicy {
	return &SignupPolicy{settings: settings}
}

// EmailAllowedWithoutInvitation reports whether the email's domain is on
// the allow-list, or the invitation check is disabled entirely.
func (p *SignupPolicy) EmailAllowedWithoutInvitation(ctx context.Context, email string) (bool, error) {
	setting, err := p.settings.GetSecurity(ctx)
	if err != nil {
		return false, err
	}
	if setting == nil {
		return false, nil
	}
	if setting.DisableInvitationCheck {
		return true, nil
	}

	domain := emailDomain(email)
	if domain == "" {
		return false, nil
	}
	for _, allowed := range setting.DomainList() {
		if strings.EqualFold(domain, allowed) {
			return true, nil
		}
	}
	return false, nil
}

// HasAllowedDomains reports whether any domain is configured, which
// gates the self-service invitation request flow.
func (p *SignupPolicy) HasAllowedDomains(ctx context.Context) (bool, error) {
	setting, err := p.settings.GetSecurity(ctx)
	if err != nil {
		return false, err
	}
	return setting != nil && len(setting.DomainList()) > 0, nil
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}
