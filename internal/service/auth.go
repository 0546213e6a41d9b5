package service

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/stacklight/identity-server-go/internal/audit"
	"github.com/stacklight/identity-server-go/internal/config"
	"github.com/stacklight/identity-server-go/internal/database"
	"github.com/stacklight/identity-server-go/internal/email"
	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/model"
	"github.com/stacklight/identity-server-go/internal/repository"
	"github.com/stacklight/identity-server-go/internal/token"
	"github.com/stacklight/identity-server-go/internal/util"
)

const (
	passwordMinLen = 8
	passwordMaxLen = 100
)

// TokenPair is the credential set handed out by every successful
// authentication path.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// txRunner abstracts database.DB.WithTx so services can be tested
// without a live connection.
type txRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

// AuthService implements registration, password login, refresh-token
// rotation and the password reset flow.
type AuthService struct {
	db          txRunner
	userRepo    repository.UserRepository
	invRepo     repository.InvitationRepository
	refreshRepo repository.RefreshTokenRepository
	resetRepo   repository.PasswordResetRepository
	codec       *token.Codec
	sender      email.Sender
	refreshTTL  time.Duration
	now         func() time.Time
}

func NewAuthService(
	db txRunner,
	userRepo repository.UserRepository,
	invRepo repository.InvitationRepository,
	refreshRepo repository.RefreshTokenRepository,
	resetRepo repository.PasswordResetRepository,
	codec *token.Codec,
	sender email.Sender,
	refreshTTL time.Duration,
) *AuthService {
	return &AuthService{
		db:          db,
		userRepo:    userRepo,
		invRepo:     invRepo,
		refreshRepo: refreshRepo,
		resetRepo:   resetRepo,
		codec:       codec,
		sender:      sender,
		refreshTTL:  refreshTTL,
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// IsAdminInitialized reports whether any admin account exists yet. The
// first registration bootstraps the owner when it does not.
func (s *AuthService) IsAdminInitialized(ctx context.Context) (bool, error) {
	count, err := s.userRepo.CountAdmins(ctx)
	if err != nil {
		return false, apperrors.Database(err)
	}
	return count > 0, nil
}

// Register creates a new account. The very first account becomes the
// owner admin; every later registration needs an invitation matching
// the requested email.
func (s *AuthService) Register(ctx context.Context, emailAddr, password string, invitationCode *string) (*TokenPair, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if err := validateEmail(emailAddr); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	initialized, err := s.IsAdminInitialized(ctx)
	if err != nil {
		return nil, err
	}

	var invitation *model.Invitation
	if initialized {
		invitation, err = s.checkInvitation(ctx, emailAddr, invitationCode)
		if err != nil {
			return nil, err
		}
	}

	existing, err := s.userRepo.FindByEmail(ctx, emailAddr)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.EmailTaken()
	}

	passwordHash, err := util.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password").WithCause(err)
	}
	authToken, err := util.GenerateToken()
	if err != nil {
		return nil, apperrors.Internal("Failed to generate auth token").WithCause(err)
	}

	var user *model.User
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		user, err = s.userRepo.WithTx(tx).Create(ctx, model.CreateUserParams{
			Email:        emailAddr,
			PasswordHash: passwordHash,
			IsAdmin:      !initialized,
			IsOwner:      !initialized,
			AuthToken:    authToken,
		})
		if err != nil {
			return err
		}
		if invitation != nil {
			// The invitation is single use. Zero rows means a
			// concurrent registration already consumed it.
			deleted, err := s.invRepo.WithTx(tx).Delete(ctx, invitation.ID)
			if err != nil {
				return err
			}
			if deleted == 0 {
				return apperrors.InvitationInvalid()
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

	audit.Log(ctx, audit.Event{
		Type:   audit.EventRegister,
		Email:  user.Email,
		UserID: user.ID,
		Details: map[string]interface{}{
			"is_owner": user.IsOwner,
			"invited":  invitation != nil,
		},
	})

	return s.issueTokenPair(ctx, user)
}

// checkInvitation resolves the code to a pending invitation for exactly
// this email. All failure modes collapse into one error so the response
// does not reveal which check failed.
func (s *AuthService) checkInvitation(ctx context.Context, emailAddr string, code *string) (*model.Invitation, error) {
	if code == nil || *code == "" {
		return nil, apperrors.InvitationInvalid()
	}
	invitation, err := s.invRepo.FindByCode(ctx, *code)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if invitation == nil || invitation.Email != emailAddr {
		return nil, apperrors.InvitationInvalid()
	}
	return invitation, nil
}

// Login verifies a password credential and issues a token pair.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (*TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(emailAddr))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		audit.Log(ctx, audit.Event{Type: audit.EventLoginFailure, Email: emailAddr})
		return nil, apperrors.BadCredentials()
	}
	if !user.Active {
		return nil, apperrors.UserDisabled()
	}
	if !util.VerifyPassword(password, user.PasswordHash) {
		audit.Log(ctx, audit.Event{Type: audit.EventLoginFailure, Email: user.Email, UserID: user.ID})
		return nil, apperrors.BadCredentials()
	}

	audit.Log(ctx, audit.Event{Type: audit.EventLoginSuccess, Email: user.Email, UserID: user.ID})

	return s.issueTokenPair(ctx, user)
}

// Refresh rotates a refresh token in place and mints a fresh access
// token. The stored expiry carries over unchanged, so a session's
// maximum lifetime is fixed at first login.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.refreshRepo.FindByToken(ctx, refreshToken)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if stored == nil {
		return nil, apperrors.InvalidToken("Invalid refresh token")
	}
	if stored.IsExpired(s.now()) {
		return nil, apperrors.TokenExpired()
	}

	user, err := s.userRepo.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.InvalidToken("Invalid refresh token")
	}
	if !user.Active {
		return nil, apperrors.UserDisabled()
	}

	newToken, err := s.codec.MintRefreshToken()
	if err != nil {
		return nil, err
	}

	replaced, err := s.refreshRepo.Replace(ctx, refreshToken, newToken)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if replaced == 0 {
		// Lost a rotation race: the presented token is no longer
		// current.
		return nil, apperrors.InvalidToken("Invalid refresh token")
	}

	accessToken, err := s.codec.MintAccessToken(user.Email, user.IsAdmin)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{Type: audit.EventTokenRefresh, Email: user.Email, UserID: user.ID})

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     newToken,
		RefreshExpiresAt: stored.ExpiresAt,
	}, nil
}

// VerifyAccessToken validates the signed token and returns its claims.
func (s *AuthService) VerifyAccessToken(tokenStr string) (*token.AccessClaims, error) {
	return s.codec.VerifyAccessToken(tokenStr)
}

// RequestPasswordReset issues a reset code and emails it. It never
// reveals whether the email belongs to an account: unknown or inactive
// addresses are silent no-ops. A repeat request inside the cooldown
// window is rejected, not replaced.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(emailAddr))
	if err != nil {
		return apperrors.Database(err)
	}
	if user == nil || !user.Active || user.PasswordHash == "" {
		return nil
	}

	existing, err := s.resetRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return apperrors.Database(err)
	}
	if existing != nil && s.now().Sub(existing.CreatedAt) < config.PasswordResetCooldown {
		return apperrors.RateLimited("A reset email was sent recently, try again later")
	}

	code, err := util.GenerateToken()
	if err != nil {
		return apperrors.Internal("Failed to generate reset code").WithCause(err)
	}
	if _, err := s.resetRepo.Create(ctx, model.CreatePasswordResetParams{
		UserID: user.ID,
		Code:   code,
	}); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventPasswordResetReq, Email: user.Email, UserID: user.ID})

	if err := s.sender.SendPasswordReset(ctx, user.Email, code); err != nil {
		if err != email.ErrNotConfigured {
			log.Error().Err(err).Str("email", user.Email).Msg("failed to send password reset email")
		}
	}
	return nil
}

// ResetPassword consumes a reset code and installs the new password.
func (s *AuthService) ResetPassword(ctx context.Context, code, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	reset, err := s.resetRepo.FindByCode(ctx, code)
	if err != nil {
		return apperrors.Database(err)
	}
	if reset == nil || s.now().Sub(reset.CreatedAt) > config.PasswordResetTTL {
		return apperrors.InvalidToken("Invalid password reset code")
	}

	user, err := s.userRepo.FindByID(ctx, reset.UserID)
	if err != nil {
		return apperrors.Database(err)
	}
	if user == nil {
		return apperrors.InvalidToken("Invalid password reset code")
	}
	if !user.Active {
		return apperrors.UserDisabled()
	}

	passwordHash, err := util.HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal("Failed to hash password").WithCause(err)
	}

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.resetRepo.WithTx(tx).DeleteByUserID(ctx, reset.UserID); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).UpdatePassword(ctx, reset.UserID, passwordHash)
	})
	if err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventPasswordReset, UserID: reset.UserID})

	return nil
}

// ResetUserAuthToken rotates the per-user opaque credential that
// downstream services authenticate with.
func (s *AuthService) ResetUserAuthToken(ctx context.Context, emailAddr string) error {
	authToken, err := util.GenerateToken()
	if err != nil {
		return apperrors.Internal("Failed to generate auth token").WithCause(err)
	}
	if err := s.userRepo.ResetAuthToken(ctx, emailAddr, authToken); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventAuthTokenReset, Email: emailAddr})

	return nil
}

// SweepExpired removes expired refresh tokens and stale password reset
// requests. Run periodically by the background job.
func (s *AuthService) SweepExpired(ctx context.Context) error {
	tokens, err := s.refreshRepo.DeleteExpired(ctx)
	if err != nil {
		return apperrors.Database(err)
	}
	resets, err := s.resetRepo.DeleteExpired(ctx)
	if err != nil {
		return apperrors.Database(err)
	}
	if tokens > 0 || resets > 0 {
		log.Info().Int64("refreshTokens", tokens).Int64("passwordResets", resets).Msg("swept expired credentials")
	}
	return nil
}

// IssueTokenPair mints a session for an already-authenticated user.
// Used by the OAuth flow once provisioning succeeds.
func (s *AuthService) IssueTokenPair(ctx context.Context, user *model.User) (*TokenPair, error) {
	return s.issueTokenPair(ctx, user)
}

// issueTokenPair mints a fresh access token plus a brand new refresh
// token with a full lifetime.
func (s *AuthService) issueTokenPair(ctx context.Context, user *model.User) (*TokenPair, error) {
	accessToken, err := s.codec.MintAccessToken(user.Email, user.IsAdmin)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.codec.MintRefreshToken()
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.refreshTTL)
	if _, err := s.refreshRepo.Create(ctx, model.CreateRefreshTokenParams{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, apperrors.Database(err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: expiresAt,
	}, nil
}

func validateEmail(emailAddr string) error {
	if emailAddr == "" {
		return apperrors.MissingRequired("email")
	}
	at := strings.Index(emailAddr, "@")
	if at <= 0 || at == len(emailAddr)-1 {
		return apperrors.InvalidInput("email", "must be a valid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return apperrors.MissingRequired("password")
	}
	if len(password) < passwordMinLen {
		return apperrors.InvalidInput("password", "must be at least 8 characters")
	}
	if len(password) > passwordMaxLen {
		return apperrors.InvalidInput("password", "must be at most 100 characters")
	}
	return nil
}
