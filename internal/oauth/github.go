package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stacklight/identity-server-go/internal/model"
)

const (
	githubAuthEndpoint   = "https://github.com/login/oauth/authorize"
	githubTokenEndpoint  = "https://github.com/login/oauth/access_token"
	githubUserEndpoint   = "https://api.github.com/user"
	githubEmailsEndpoint = "https://api.github.com/user/emails"
)

// GitHubProvider implements the GitHub OAuth 2.0 code flow. GitHub does
// not expose the verified email on the user endpoint for accounts with a
// private email, so a second call to /user/emails resolves it.
type GitHubProvider struct {
	client *http.Client
}

func NewGitHubProvider() *GitHubProvider {
	return &GitHubProvider{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *GitHubProvider) Name() string {
	return model.OAuthProviderGithub
}

func (p *GitHubProvider) AuthURL(credential *model.OAuthCredential, redirectURI, state string) string {
	params := url.Values{
		"client_id":    {credential.ClientID},
		"redirect_uri": {redirectURI},
		"scope":        {"read:user user:email"},
		"state":        {state},
	}
	return githubAuthEndpoint + "?" + params.Encode()
}

func (p *GitHubProvider) Exchange(ctx context.Context, credential *model.OAuthCredential, code, redirectURI string) (*Profile, error) {
	if credential == nil {
		return nil, ErrProviderNotConfigured
	}

	data := url.Values{
		"code":          {code},
		"client_id":     {credential.ClientID},
		"client_secret": {credential.ClientSecret},
		"redirect_uri":  {redirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", githubTokenEndpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read GitHub token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("GitHub token exchange failed")
		return nil, ErrProviderError
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, err
	}
	if tokenResp.AccessToken == "" {
		return nil, ErrProviderError
	}

	user, err := p.fetchUser(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, err
	}

	email := user.Email
	if email == "" {
		email, err = p.fetchPrimaryEmail(ctx, tokenResp.AccessToken)
		if err != nil {
			return nil, err
		}
	}
	if email == "" {
		return nil, ErrEmailUnavailable
	}

	return &Profile{
		ID:    strconv.FormatInt(user.ID, 10),
		Email: email,
		Name:  user.Name,
	}, nil
}

type githubUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (p *GitHubProvider) fetchUser(ctx context.Context, accessToken string) (*githubUser, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", githubUserEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read GitHub user response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("GitHub user fetch failed")
		return nil, ErrProviderError
	}

	var user githubUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (p *GitHubProvider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", githubEmailsEndpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create GitHub emails request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read GitHub emails response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("GitHub emails fetch failed")
		return "", ErrProviderError
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}
