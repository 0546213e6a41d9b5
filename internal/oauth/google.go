package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stacklight/identity-server-go/internal/model"
)

const (
	googleAuthEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint    = "https://oauth2.googleapis.com/token"
	googleUserinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleProvider implements the Google OAuth 2.0 code flow.
type GoogleProvider struct {
	client *http.Client
}

func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *GoogleProvider) Name() string {
	return model.OAuthProviderGoogle
}

func (p *GoogleProvider) AuthURL(credential *model.OAuthCredential, redirectURI, state string) string {
	params := url.Values{
		"client_id":     {credential.ClientID},
		"redirect_uri":  {redirectURI},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
		"prompt":        {"select_account"},
	}
	return googleAuthEndpoint + "?" + params.Encode()
}

func (p *GoogleProvider) Exchange(ctx context.Context, credential *model.OAuthCredential, code, redirectURI string) (*Profile, error) {
	if credential == nil {
		return nil, ErrProviderNotConfigured
	}

	data := url.Values{
		"code":          {code},
		"client_id":     {credential.ClientID},
		"client_secret": {credential.ClientSecret},
		"redirect_uri":  {redirectURI},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", googleTokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Google token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("Google token exchange failed")
		return nil, ErrProviderError
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, err
	}

	userReq, err := http.NewRequestWithContext(ctx, "GET", googleUserinfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google userinfo request: %w", err)
	}
	userReq.Header.Set("Authorization", "Bearer "+tokenResp.AccessToken)

	userResp, err := p.client.Do(userReq)
	if err != nil {
		return nil, err
	}
	defer userResp.Body.Close()

	userBody, err := io.ReadAll(userResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Google userinfo response: %w", err)
	}
	if userResp.StatusCode != http.StatusOK {
		log.Error().Int("status", userResp.StatusCode).Msg("Google userinfo failed")
		return nil, ErrProviderError
	}

	var userInfo struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.Unmarshal(userBody, &userInfo); err != nil {
		return nil, err
	}

	if userInfo.Email == "" || !userInfo.VerifiedEmail {
		return nil, ErrEmailUnavailable
	}

	return &Profile{
		ID:    userInfo.ID,
		Email: userInfo.Email,
		Name:  userInfo.Name,
	}, nil
}
