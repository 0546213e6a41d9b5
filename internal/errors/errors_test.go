package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "User not found")
		assert.Equal(t, "NOT_FOUND: User not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("database connection failed")
		err := Wrap(ErrCodeDatabase, "Database error", cause)
		assert.Contains(t, err.Error(), "DATABASE_ERROR")
		assert.Contains(t, err.Error(), "database connection failed")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "email"}
		err := New(ErrCodeInvalidInput, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"BadCredentials", func() *AppError { return BadCredentials() }, ErrCodeBadCredentials},
		{"InvalidToken", func() *AppError { return InvalidToken("test") }, ErrCodeInvalidToken},
		{"TokenExpired", func() *AppError { return TokenExpired() }, ErrCodeTokenExpired},
		{"UserDisabled", func() *AppError { return UserDisabled() }, ErrCodeUserDisabled},
		{"EmailTaken", func() *AppError { return EmailTaken() }, ErrCodeEmailTaken},
		{"InvitationInvalid", func() *AppError { return InvitationInvalid() }, ErrCodeInvitationInvalid},
		{"UserNotInvited", func() *AppError { return UserNotInvited() }, ErrCodeUserNotInvited},
		{"DomainNotAllowed", func() *AppError { return DomainNotAllowed() }, ErrCodeDomainNotAllowed},
		{"Forbidden", func() *AppError { return Forbidden("test") }, ErrCodeForbidden},
		{"OwnerImmutable", func() *AppError { return OwnerImmutable() }, ErrCodeOwnerImmutable},
		{"LicenseInvalid", func() *AppError { return LicenseInvalid("test") }, ErrCodeLicenseInvalid},
		{"CertificateCorrupt", func() *AppError { return CertificateCorrupt() }, ErrCodeCertificateCorrupt},
		{"LicenseExpired", func() *AppError { return LicenseExpired() }, ErrCodeLicenseExpired},
		{"SeatsExceeded", func() *AppError { return SeatsExceeded() }, ErrCodeSeatsExceeded},
		{"InvalidInput", func() *AppError { return InvalidInput("email", "invalid") }, ErrCodeInvalidInput},
		{"MissingRequired", func() *AppError { return MissingRequired("email") }, ErrCodeMissingRequired},
		{"NotFound", func() *AppError { return NotFound("User") }, ErrCodeNotFound},
		{"Conflict", func() *AppError { return Conflict("User") }, ErrCodeConflict},
		{"RateLimited", func() *AppError { return RateLimited("test") }, ErrCodeRateLimited},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestAsAppError(t *testing.T) {
	t.Run("extracts AppError", func(t *testing.T) {
		original := NotFound("User")
		extracted, ok := AsAppError(original)
		assert.True(t, ok)
		assert.Equal(t, original, extracted)
	})

	t.Run("extracts wrapped AppError", func(t *testing.T) {
		wrapped := fmt.Errorf("request failed: %w", EmailTaken())
		extracted, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeEmailTaken, extracted.Code)
	})

	t.Run("returns false for non-AppError", func(t *testing.T) {
		extracted, ok := AsAppError(errors.New("standard error"))
		assert.False(t, ok)
		assert.Nil(t, extracted)
	})
}

func TestGetCode(t *testing.T) {
	t.Run("returns code for AppError", func(t *testing.T) {
		assert.Equal(t, ErrCodeOwnerImmutable, GetCode(OwnerImmutable()))
	})

	t.Run("returns ErrCodeInternal for standard error", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("standard error")))
	})
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(InvitationInvalid(), ErrCodeInvitationInvalid))
	assert.False(t, HasCode(InvitationInvalid(), ErrCodeEmailTaken))
}
