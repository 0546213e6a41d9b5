package service

import (
	"context"
	"strings"

	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/model"
	"github.com/stacklight/identity-server-go/internal/repository"
)

// SettingService manages the security settings singleton and the OAuth
// provider credentials.
type SettingService struct {
	settingRepo repository.SettingRepository
}

func NewSettingService(settingRepo repository.SettingRepository) *SettingService {
	return &SettingService{settingRepo: settingRepo}
}

// GetSecurity returns the stored settings, or defaults when nothing has
// been configured yet.
func (s *SettingService) GetSecurity(ctx context.Context) (*model.SecuritySetting, error) {
	setting, err := s.settingRepo.GetSecurity(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if setting == nil {
		return &model.SecuritySetting{ID: 1}, nil
	}
	return setting, nil
}

func (s *SettingService) UpdateSecurity(ctx context.Context, params model.UpdateSecuritySettingParams) (*model.SecuritySetting, error) {
	if params.AllowedRegisterDomains != nil {
		normalized := normalizeDomainList(*params.AllowedRegisterDomains)
		params.AllowedRegisterDomains = &normalized
	}
	setting, err := s.settingRepo.UpdateSecurity(ctx, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return setting, nil
}

func (s *SettingService) UpsertOAuthCredential(ctx context.Context, provider, clientID, clientSecret string) (*model.OAuthCredential, error) {
	if provider != model.OAuthProviderGithub && provider != model.OAuthProviderGoogle {
		return nil, apperrors.InvalidInput("provider", "is not supported")
	}
	if clientID == "" {
		return nil, apperrors.MissingRequired("clientId")
	}
	if clientSecret == "" {
		return nil, apperrors.MissingRequired("clientSecret")
	}
	cred, err := s.settingRepo.UpsertOAuthCredential(ctx, provider, clientID, clientSecret)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return cred, nil
}

func (s *SettingService) DeleteOAuthCredential(ctx context.Context, provider string) error {
	if err := s.settingRepo.DeleteOAuthCredential(ctx, provider); err != nil {
		return apperrors.Database(err)
	}
	return nil
}

func normalizeDomainList(raw string) string {
	parts := strings.Split(raw, ",")
	domains := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			domains = append(domains, p)
		}
	}
	return strings.Join(domains, ",")
}
