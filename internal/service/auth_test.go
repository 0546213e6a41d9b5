package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stacklight/identity-server-go/internal/email"
	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/model"
	"github.com/stacklight/identity-server-go/internal/token"
	"github.com/stacklight/identity-server-go/internal/util"
)

type authFixture struct {
	svc      *AuthService
	users    *mockUserRepo
	invs     *mockInvitationRepo
	refresh  *mockRefreshTokenRepo
	resets   *mockPasswordResetRepo
	settings *mockSettingRepo
	sender   *fakeSender
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		users:    new(mockUserRepo),
		invs:     new(mockInvitationRepo),
		refresh:  new(mockRefreshTokenRepo),
		resets:   new(mockPasswordResetRepo),
		settings: new(mockSettingRepo),
		sender:   newFakeSender(),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	codec := token.NewCodec("test-secret-that-is-long-enough!", 15*time.Minute)
	f.svc = NewAuthService(
		fakeTxRunner{},
		f.users,
		f.invs,
		f.refresh,
		f.resets,
		codec,
		f.sender,
		720*time.Hour,
	).WithClock(func() time.Time { return f.now })

	return f
}

// expectRefreshCreate wires the refresh-token insert that every
// successful authentication performs.
func (f *authFixture) expectRefreshCreate() {
	f.refresh.On("Create", mock.Anything, mock.AnythingOfType("model.CreateRefreshTokenParams")).
		Return(&model.RefreshToken{ID: 1}, nil)
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("first registration bootstraps the owner admin", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("CountAdmins", mock.Anything).Return(0, nil)
		f.users.On("FindByEmail", mock.Anything, "owner@example.com").Return(nil, nil)
		f.users.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateUserParams) bool {
			return p.Email == "owner@example.com" && p.IsAdmin && p.IsOwner &&
				p.PasswordHash != "" && p.AuthToken != ""
		})).Return(&model.User{ID: 1, Email: "owner@example.com", IsAdmin: true, IsOwner: true, Active: true}, nil)
		f.expectRefreshCreate()

		pair, err := f.svc.Register(ctx, "owner@example.com", "hunter2hunter2", nil)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.Equal(t, f.now.Add(720*time.Hour), pair.RefreshExpiresAt)

		claims, err := f.svc.VerifyAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "owner@example.com", claims.Subject)
		assert.True(t, claims.IsAdmin)
	})

	t.Run("requires invitation once initialized", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("CountAdmins", mock.Anything).Return(1, nil)

		_, err := f.svc.Register(ctx, "new@example.com", "hunter2hunter2", nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvitationInvalid))
	})

	t.Run("rejects invitation issued for a different email", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("CountAdmins", mock.Anything).Return(1, nil)
		code := "some-code"
		f.invs.On("FindByCode", mock.Anything, code).
			Return(&model.Invitation{ID: 7, Email: "other@example.com", Code: code}, nil)

		_, err := f.svc.Register(ctx, "new@example.com", "hunter2hunter2", &code)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvitationInvalid))
	})

	t.Run("consumes a matching invitation and creates a member", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("CountAdmins", mock.Anything).Return(1, nil)
		code := "some-code"
		f.invs.On("FindByCode", mock.Anything, code).
			Return(&model.Invitation{ID: 7, Email: "new@example.com", Code: code}, nil)
		f.users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, nil)
		f.users.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateUserParams) bool {
			return p.Email == "new@example.com" && !p.IsAdmin && !p.IsOwner
		})).Return(&model.User{ID: 2, Email: "new@example.com", Active: true}, nil)
		f.invs.On("Delete", mock.Anything, int64(7)).Return(int64(1), nil)
		f.expectRefreshCreate()

		pair, err := f.svc.Register(ctx, "new@example.com", "hunter2hunter2", &code)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.RefreshToken)
		f.invs.AssertCalled(t, "Delete", mock.Anything, int64(7))
	})

	t.Run("treats a concurrently consumed invitation as invalid", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("CountAdmins", mock.Anything).Return(1, nil)
		code := "some-code"
		f.invs.On("FindByCode", mock.Anything, code).
			Return(&model.Invitation{ID: 7, Email: "new@example.com", Code: code}, nil)
		f.users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, nil)
		f.users.On("Create", mock.Anything, mock.Anything).
			Return(&model.User{ID: 2, Email: "new@example.com"}, nil)
		f.invs.On("Delete", mock.Anything, int64(7)).Return(int64(0), nil)

		_, err := f.svc.Register(ctx, "new@example.com", "hunter2hunter2", &code)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvitationInvalid))
	})

	t.Run("requires an invitation even for an allow-listed domain", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("CountAdmins", mock.Anything).Return(1, nil)
		f.settings.On("GetSecurity", mock.Anything).
			Return(&model.SecuritySetting{AllowedRegisterDomains: "example.com"}, nil)

		_, err := f.svc.Register(ctx, "new@example.com", "hunter2hunter2", nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvitationInvalid))
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects an already registered email", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("CountAdmins", mock.Anything).Return(0, nil)
		f.users.On("FindByEmail", mock.Anything, "owner@example.com").
			Return(&model.User{ID: 1, Email: "owner@example.com"}, nil)

		_, err := f.svc.Register(ctx, "owner@example.com", "hunter2hunter2", nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeEmailTaken))
	})

	t.Run("validates input before touching the store", func(t *testing.T) {
		f := newAuthFixture(t)

		_, err := f.svc.Register(ctx, "not-an-email", "hunter2hunter2", nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

		_, err = f.svc.Register(ctx, "a@b.com", "short", nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))

		_, err = f.svc.Register(ctx, "a@b.com", "", nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMissingRequired))

		f.users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	hash, err := util.HashPassword("hunter2hunter2")
	require.NoError(t, err)

	activeUser := func() *model.User {
		return &model.User{ID: 1, Email: "user@example.com", PasswordHash: hash, Active: true}
	}

	t.Run("succeeds with correct credentials", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("FindByEmail", mock.Anything, "user@example.com").Return(activeUser(), nil)
		f.expectRefreshCreate()

		pair, err := f.svc.Login(ctx, "user@example.com", "hunter2hunter2")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
	})

	t.Run("rejects unknown email", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

		_, err := f.svc.Login(ctx, "ghost@example.com", "hunter2hunter2")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadCredentials))
	})

	t.Run("rejects disabled account before checking the password", func(t *testing.T) {
		f := newAuthFixture(t)
		user := activeUser()
		user.Active = false
		f.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)

		_, err := f.svc.Login(ctx, "user@example.com", "wrong-password!")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUserDisabled))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("FindByEmail", mock.Anything, "user@example.com").Return(activeUser(), nil)

		_, err := f.svc.Login(ctx, "user@example.com", "wrong-password!")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadCredentials))
	})

	t.Run("rejects password login for oauth-only accounts", func(t *testing.T) {
		f := newAuthFixture(t)
		user := activeUser()
		user.PasswordHash = ""
		f.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user, nil)

		_, err := f.svc.Login(ctx, "user@example.com", "hunter2hunter2")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadCredentials))
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates the token and keeps the original expiry", func(t *testing.T) {
		f := newAuthFixture(t)
		expiresAt := f.now.Add(48 * time.Hour)
		f.refresh.On("FindByToken", mock.Anything, "old-token").
			Return(&model.RefreshToken{ID: 1, UserID: 1, Token: "old-token", ExpiresAt: expiresAt}, nil)
		f.users.On("FindByID", mock.Anything, int64(1)).
			Return(&model.User{ID: 1, Email: "user@example.com", Active: true}, nil)
		f.refresh.On("Replace", mock.Anything, "old-token", mock.AnythingOfType("string")).
			Return(int64(1), nil)

		pair, err := f.svc.Refresh(ctx, "old-token")
		require.NoError(t, err)
		assert.NotEqual(t, "old-token", pair.RefreshToken)
		assert.Equal(t, expiresAt, pair.RefreshExpiresAt)
		f.refresh.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		f := newAuthFixture(t)
		f.refresh.On("FindByToken", mock.Anything, "nope").Return(nil, nil)

		_, err := f.svc.Refresh(ctx, "nope")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidToken))
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		f := newAuthFixture(t)
		f.refresh.On("FindByToken", mock.Anything, "stale").
			Return(&model.RefreshToken{ID: 1, UserID: 1, Token: "stale", ExpiresAt: f.now.Add(-time.Minute)}, nil)

		_, err := f.svc.Refresh(ctx, "stale")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTokenExpired))
	})

	t.Run("rejects a token for a disabled user", func(t *testing.T) {
		f := newAuthFixture(t)
		f.refresh.On("FindByToken", mock.Anything, "old-token").
			Return(&model.RefreshToken{ID: 1, UserID: 1, Token: "old-token", ExpiresAt: f.now.Add(time.Hour)}, nil)
		f.users.On("FindByID", mock.Anything, int64(1)).
			Return(&model.User{ID: 1, Email: "user@example.com", Active: false}, nil)

		_, err := f.svc.Refresh(ctx, "old-token")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUserDisabled))
	})

	t.Run("loses a concurrent rotation race cleanly", func(t *testing.T) {
		f := newAuthFixture(t)
		f.refresh.On("FindByToken", mock.Anything, "old-token").
			Return(&model.RefreshToken{ID: 1, UserID: 1, Token: "old-token", ExpiresAt: f.now.Add(time.Hour)}, nil)
		f.users.On("FindByID", mock.Anything, int64(1)).
			Return(&model.User{ID: 1, Email: "user@example.com", Active: true}, nil)
		f.refresh.On("Replace", mock.Anything, "old-token", mock.AnythingOfType("string")).
			Return(int64(0), nil)

		_, err := f.svc.Refresh(ctx, "old-token")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidToken))
	})
}

func TestAuthService_PasswordReset(t *testing.T) {
	ctx := context.Background()

	user := func() *model.User {
		return &model.User{ID: 1, Email: "user@example.com", PasswordHash: "x", Active: true}
	}

	t.Run("request creates a code and emails it", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user(), nil)
		f.resets.On("FindByUserID", mock.Anything, int64(1)).Return(nil, nil)
		f.resets.On("Create", mock.Anything, mock.AnythingOfType("model.CreatePasswordResetParams")).
			Return(&model.PasswordReset{ID: 1, UserID: 1}, nil)

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "user@example.com"))
		assert.NotEmpty(t, f.sender.resets["user@example.com"])
	})

	t.Run("request for unknown email is a silent no-op", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "ghost@example.com"))
		f.resets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("request inside the cooldown window is rejected", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user(), nil)
		f.resets.On("FindByUserID", mock.Anything, int64(1)).
			Return(&model.PasswordReset{ID: 1, UserID: 1, CreatedAt: f.now.Add(-time.Minute)}, nil)

		err := f.svc.RequestPasswordReset(ctx, "user@example.com")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRateLimited))
		f.resets.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("request after the cooldown issues a fresh code", func(t *testing.T) {
		f := newAuthFixture(t)
		f.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user(), nil)
		f.resets.On("FindByUserID", mock.Anything, int64(1)).
			Return(&model.PasswordReset{ID: 1, UserID: 1, CreatedAt: f.now.Add(-10 * time.Minute)}, nil)
		f.resets.On("Create", mock.Anything, mock.Anything).
			Return(&model.PasswordReset{ID: 1, UserID: 1}, nil)

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "user@example.com"))
		f.resets.AssertCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("unconfigured email transport does not fail the request", func(t *testing.T) {
		f := newAuthFixture(t)
		f.sender.err = email.ErrNotConfigured
		f.users.On("FindByEmail", mock.Anything, "user@example.com").Return(user(), nil)
		f.resets.On("FindByUserID", mock.Anything, int64(1)).Return(nil, nil)
		f.resets.On("Create", mock.Anything, mock.Anything).
			Return(&model.PasswordReset{ID: 1, UserID: 1}, nil)

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "user@example.com"))
	})

	t.Run("reset consumes the code and installs the new password", func(t *testing.T) {
		f := newAuthFixture(t)
		f.resets.On("FindByCode", mock.Anything, "good-code").
			Return(&model.PasswordReset{ID: 1, UserID: 1, Code: "good-code", CreatedAt: f.now.Add(-time.Minute)}, nil)
		f.users.On("FindByID", mock.Anything, int64(1)).Return(user(), nil)
		f.resets.On("DeleteByUserID", mock.Anything, int64(1)).Return(nil)
		f.users.On("UpdatePassword", mock.Anything, int64(1), mock.AnythingOfType("string")).Return(nil)

		require.NoError(t, f.svc.ResetPassword(ctx, "good-code", "new-password-123"))
		f.resets.AssertCalled(t, "DeleteByUserID", mock.Anything, int64(1))
	})

	t.Run("reset rejects an unknown code", func(t *testing.T) {
		f := newAuthFixture(t)
		f.resets.On("FindByCode", mock.Anything, "bad-code").Return(nil, nil)

		err := f.svc.ResetPassword(ctx, "bad-code", "new-password-123")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidToken))
	})

	t.Run("reset rejects a code past its lifetime", func(t *testing.T) {
		f := newAuthFixture(t)
		f.resets.On("FindByCode", mock.Anything, "stale-code").
			Return(&model.PasswordReset{ID: 1, UserID: 1, Code: "stale-code", CreatedAt: f.now.Add(-3 * time.Hour)}, nil)

		err := f.svc.ResetPassword(ctx, "stale-code", "new-password-123")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidToken))
		f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reset rejects a deactivated account", func(t *testing.T) {
		f := newAuthFixture(t)
		disabled := user()
		disabled.Active = false
		f.resets.On("FindByCode", mock.Anything, "good-code").
			Return(&model.PasswordReset{ID: 1, UserID: 1, Code: "good-code", CreatedAt: f.now.Add(-time.Minute)}, nil)
		f.users.On("FindByID", mock.Anything, int64(1)).Return(disabled, nil)

		err := f.svc.ResetPassword(ctx, "good-code", "new-password-123")
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUserDisabled))
		f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthService_ResetUserAuthToken(t *testing.T) {
	f := newAuthFixture(t)
	f.users.On("ResetAuthToken", mock.Anything, "user@example.com", mock.AnythingOfType("string")).Return(nil)

	require.NoError(t, f.svc.ResetUserAuthToken(context.Background(), "user@example.com"))
	f.users.AssertCalled(t, "ResetAuthToken", mock.Anything, "user@example.com", mock.AnythingOfType("string"))
}

func TestAuthService_SweepExpired(t *testing.T) {
	f := newAuthFixture(t)
	f.refresh.On("DeleteExpired", mock.Anything).Return(int64(3), nil)
	f.resets.On("DeleteExpired", mock.Anything).Return(int64(1), nil)

	require.NoError(t, f.svc.SweepExpired(context.Background()))
}
