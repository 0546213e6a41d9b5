package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/stacklight/identity-server-go/internal/database"
	"github.com/stacklight/identity-server-go/internal/model"
	"github.com/stacklight/identity-server-go/internal/repository"
)

// fakeTxRunner runs the transaction body directly. The repository mocks
// ignore the tx handle, so a nil one is fine.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

// Mock repositories

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindAll(ctx context.Context, limit, offset int) ([]model.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id int64, isAdmin bool) error {
	args := m.Called(ctx, id, isAdmin)
	return args.Error(0)
}

func (m *mockUserRepo) UpdateActive(ctx context.Context, id int64, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *mockUserRepo) ResetAuthToken(ctx context.Context, email, authToken string) error {
	args := m.Called(ctx, email, authToken)
	return args.Error(0)
}

func (m *mockUserRepo) CountActive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) CountAdmins(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) WithTx(tx *sqlx.Tx) repository.UserRepository {
	return m
}

type mockInvitationRepo struct {
	mock.Mock
}

func (m *mockInvitationRepo) FindByCode(ctx context.Context, code string) (*model.Invitation, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invitation), args.Error(1)
}

func (m *mockInvitationRepo) FindEarliestByEmail(ctx context.Context, email string) (*model.Invitation, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invitation), args.Error(1)
}

func (m *mockInvitationRepo) FindAll(ctx context.Context, limit, offset int) ([]model.Invitation, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Invitation), args.Error(1)
}

func (m *mockInvitationRepo) Create(ctx context.Context, params model.CreateInvitationParams) (*model.Invitation, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Invitation), args.Error(1)
}

func (m *mockInvitationRepo) Delete(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInvitationRepo) WithTx(tx *sqlx.Tx) repository.InvitationRepository {
	return m
}

type mockRefreshTokenRepo struct {
	mock.Mock
}

func (m *mockRefreshTokenRepo) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepo) Create(ctx context.Context, params model.CreateRefreshTokenParams) (*model.RefreshToken, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepo) Replace(ctx context.Context, oldToken, newToken string) (int64, error) {
	args := m.Called(ctx, oldToken, newToken)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRefreshTokenRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRefreshTokenRepo) WithTx(tx *sqlx.Tx) repository.RefreshTokenRepository {
	return m
}

type mockPasswordResetRepo struct {
	mock.Mock
}

func (m *mockPasswordResetRepo) FindByUserID(ctx context.Context, userID int64) (*model.PasswordReset, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PasswordReset), args.Error(1)
}

func (m *mockPasswordResetRepo) FindByCode(ctx context.Context, code string) (*model.PasswordReset, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PasswordReset), args.Error(1)
}

func (m *mockPasswordResetRepo) Create(ctx context.Context, params model.CreatePasswordResetParams) (*model.PasswordReset, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PasswordReset), args.Error(1)
}

func (m *mockPasswordResetRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockPasswordResetRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockPasswordResetRepo) WithTx(tx *sqlx.Tx) repository.PasswordResetRepository {
	return m
}

type mockSettingRepo struct {
	mock.Mock
}

func (m *mockSettingRepo) GetSecurity(ctx context.Context) (*model.SecuritySetting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SecuritySetting), args.Error(1)
}

func (m *mockSettingRepo) UpdateSecurity(ctx context.Context, params model.UpdateSecuritySettingParams) (*model.SecuritySetting, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SecuritySetting), args.Error(1)
}

func (m *mockSettingRepo) GetOAuthCredential(ctx context.Context, provider string) (*model.OAuthCredential, error) {
	args := m.Called(ctx, provider)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OAuthCredential), args.Error(1)
}

func (m *mockSettingRepo) UpsertOAuthCredential(ctx context.Context, provider, clientID, clientSecret string) (*model.OAuthCredential, error) {
	args := m.Called(ctx, provider, clientID, clientSecret)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OAuthCredential), args.Error(1)
}

func (m *mockSettingRepo) DeleteOAuthCredential(ctx context.Context, provider string) error {
	args := m.Called(ctx, provider)
	return args.Error(0)
}

func (m *mockSettingRepo) WithTx(tx *sqlx.Tx) repository.SettingRepository {
	return m
}

// fakeSender records outgoing emails in memory.
type fakeSender struct {
	invitations map[string]string
	resets      map[string]string
	err         error
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		invitations: make(map[string]string),
		resets:      make(map[string]string),
	}
}

func (f *fakeSender) SendInvitation(ctx context.Context, to, code string) error {
	if f.err != nil {
		return f.err
	}
	f.invitations[to] = code
	return nil
}

func (f *fakeSender) SendPasswordReset(ctx context.Context, to, code string) error {
	if f.err != nil {
		return f.err
	}
	f.resets[to] = code
	return nil
}

func (f *fakeSender) Configured() bool {
	return f.err == nil
}

// stubLicense answers license validity checks with a fixed value.
type stubLicense struct {
	valid bool
}

func (s stubLicense) IsValid(ctx context.Context) bool {
	return s.valid
}
