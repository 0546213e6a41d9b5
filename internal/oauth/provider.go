package oauth

import (
	"context"
	"errors"

	"github.com/stacklight/identity-server-go/internal/model"
)

var (
	// ErrProviderNotConfigured is returned when no credential is stored
	// for the requested provider.
	ErrProviderNotConfigured = errors.New("oauth: provider not configured")

	// ErrProviderError is returned when the upstream provider rejects the
	// code exchange or the profile fetch.
	ErrProviderError = errors.New("oauth: provider request failed")

	// ErrEmailUnavailable is returned when the provider account has no
	// verified email address to provision against.
	ErrEmailUnavailable = errors.New("oauth: no verified email on provider account")
)

// Profile is the subset of a provider account used for provisioning.
type Profile struct {
	ID    string
	Email string
	Name  string
}

// Provider exchanges an authorization code for a verified user profile.
type Provider interface {
	Name() string
	AuthURL(credential *model.OAuthCredential, redirectURI, state string) string
	Exchange(ctx context.Context, credential *model.OAuthCredential, code, redirectURI string) (*Profile, error)
}
