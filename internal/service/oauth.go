package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/stacklight/identity-server-go/internal/audit"
	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/model"
	"github.com/stacklight/identity-server-go/internal/oauth"
	"github.com/stacklight/identity-server-go/internal/policy"
	"github.com/stacklight/identity-server-go/internal/repository"
	"github.com/stacklight/identity-server-go/internal/util"
)

// pairIssuer mints a session once provisioning has succeeded.
type pairIssuer interface {
	IssueTokenPair(ctx context.Context, user *model.User) (*TokenPair, error)
}

// OAuthService signs users in through external identity providers,
// provisioning accounts on first login subject to the same gates as
// password registration.
type OAuthService struct {
	db          txRunner
	userRepo    repository.UserRepository
	invRepo     repository.InvitationRepository
	settingRepo repository.SettingRepository
	signup      *policy.SignupPolicy
	issuer      pairIssuer
	providers   map[string]oauth.Provider
	externalURL string
}

func NewOAuthService(
	db txRunner,
	userRepo repository.UserRepository,
	invRepo repository.InvitationRepository,
	settingRepo repository.SettingRepository,
	signup *policy.SignupPolicy,
	issuer pairIssuer,
	externalURL string,
	providers ...oauth.Provider,
) *OAuthService {
	byName := make(map[string]oauth.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &OAuthService{
		db:          db,
		userRepo:    userRepo,
		invRepo:     invRepo,
		settingRepo: settingRepo,
		signup:      signup,
		issuer:      issuer,
		providers:   byName,
		externalURL: strings.TrimRight(externalURL, "/"),
	}
}

func (s *OAuthService) redirectURI(provider string) string {
	return fmt.Sprintf("%s/v1/auth/oauth/%s/callback", s.externalURL, provider)
}

// AuthURL builds the provider consent URL for the login redirect.
func (s *OAuthService) AuthURL(ctx context.Context, providerName, state string) (string, error) {
	provider, credential, err := s.resolveProvider(ctx, providerName)
	if err != nil {
		return "", err
	}
	return provider.AuthURL(credential, s.redirectURI(providerName), state), nil
}

// Signin exchanges the authorization code, provisions an account if the
// email has never logged in, and mints a token pair.
func (s *OAuthService) Signin(ctx context.Context, providerName, code string) (*TokenPair, error) {
	provider, credential, err := s.resolveProvider(ctx, providerName)
	if err != nil {
		return nil, err
	}

	profile, err := provider.Exchange(ctx, credential, code, s.redirectURI(providerName))
	if err != nil {
		if err == oauth.ErrEmailUnavailable {
			return nil, apperrors.InvalidInput("account", "has no verified email address")
		}
		return nil, apperrors.BadCredentials().WithCause(err)
	}

	user, err := s.resolveUser(ctx, profile.Email)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventOAuthLogin,
		Email:  user.Email,
		UserID: user.ID,
		Details: map[string]interface{}{
			"provider": providerName,
		},
	})

	return s.issuer.IssueTokenPair(ctx, user)
}

func (s *OAuthService) resolveProvider(ctx context.Context, providerName string) (oauth.Provider, *model.OAuthCredential, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return nil, nil, apperrors.InvalidInput("provider", "is not supported")
	}
	credential, err := s.settingRepo.GetOAuthCredential(ctx, providerName)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if credential == nil {
		return nil, nil, apperrors.InvalidInput("provider", "is not configured")
	}
	return provider, credential, nil
}

// resolveUser returns the existing account for the email, or provisions
// one when the domain allow-list or a pending invitation permits it.
func (s *OAuthService) resolveUser(ctx context.Context, emailAddr string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, emailAddr)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user != nil {
		if !user.Active {
			return nil, apperrors.UserDisabled()
		}
		return user, nil
	}

	allowed, err := s.signup.EmailAllowedWithoutInvitation(ctx, emailAddr)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	var invitation *model.Invitation
	if !allowed {
		invitation, err = s.invRepo.FindEarliestByEmail(ctx, emailAddr)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if invitation == nil {
			return nil, apperrors.UserNotInvited()
		}
	}

	return s.provisionUser(ctx, emailAddr, invitation)
}

// provisionUser creates a regular member with no local password. The
// empty hash means the account can only ever sign in through a provider.
func (s *OAuthService) provisionUser(ctx context.Context, emailAddr string, invitation *model.Invitation) (*model.User, error) {
	authToken, err := util.GenerateToken()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate auth token").WithCause(err)
	}

	var user *model.User
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err = s.userRepo.WithTx(tx).Create(ctx, model.CreateUserParams{
			Email:        emailAddr,
			PasswordHash: "",
			IsAdmin:      false,
			IsOwner:      false,
			AuthToken:    authToken,
		})
		if err != nil {
			return err
		}
		if invitation != nil {
			deleted, err := s.invRepo.WithTx(tx).Delete(ctx, invitation.ID)
			if err != nil {
				return err
			}
			if deleted == 0 {
				return apperrors.UserNotInvited()
			}
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.Database(err)
	}

	log.Info().Str("email", user.Email).Msg("provisioned account from oauth login")
	audit.Log(ctx, audit.Event{
		Type:   audit.EventOAuthProvision,
		Email:  user.Email,
		UserID: user.ID,
		Details: map[string]interface{}{
			"invited": invitation != nil,
		},
	})

	return user, nil
}
