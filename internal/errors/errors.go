package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication
	ErrCodeBadCredentials ErrorCode = "BAD_CREDENTIALS"
	ErrCodeInvalidToken   ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired   ErrorCode = "TOKEN_EXPIRED"
	ErrCodeUserDisabled   ErrorCode = "USER_DISABLED"

	// Registration & invitations
	ErrCodeEmailTaken        ErrorCode = "EMAIL_TAKEN"
	ErrCodeInvitationInvalid ErrorCode = "INVITATION_INVALID"
	ErrCodeUserNotInvited    ErrorCode = "USER_NOT_INVITED"
	ErrCodeDomainNotAllowed  ErrorCode = "DOMAIN_NOT_ALLOWED"

	// Authorization
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeOwnerImmutable ErrorCode = "OWNER_IMMUTABLE"
	ErrCodeLicenseInvalid ErrorCode = "LICENSE_INVALID"

	// License certificates
	ErrCodeCertificateCorrupt ErrorCode = "CERTIFICATE_CORRUPT"
	ErrCodeLicenseExpired     ErrorCode = "LICENSE_EXPIRED"
	ErrCodeSeatsExceeded      ErrorCode = "SEATS_EXCEEDED"

	// Validation
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"

	// Rate limiting
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func BadCredentials() *AppError {
	return New(ErrCodeBadCredentials, "Invalid email or password")
}

func InvalidToken(message string) *AppError {
	return New(ErrCodeInvalidToken, message)
}

func TokenExpired() *AppError {
	return New(ErrCodeTokenExpired, "Token has expired")
}

func UserDisabled() *AppError {
	return New(ErrCodeUserDisabled, "User account is disabled")
}

func EmailTaken() *AppError {
	return New(ErrCodeEmailTaken, "Email is already registered")
}

// InvitationInvalid covers a missing code, an unknown code and an email
// mismatch with one message so callers cannot tell which check failed.
func InvitationInvalid() *AppError {
	return New(ErrCodeInvitationInvalid, "Invitation code is not valid")
}

func UserNotInvited() *AppError {
	return New(ErrCodeUserNotInvited, "User is not invited")
}

func DomainNotAllowed() *AppError {
	return New(ErrCodeDomainNotAllowed, "Email does not belong to any known authentication domain")
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func OwnerImmutable() *AppError {
	return New(ErrCodeOwnerImmutable, "The owner account cannot be demoted or deactivated")
}

func LicenseInvalid(message string) *AppError {
	return New(ErrCodeLicenseInvalid, message)
}

func CertificateCorrupt() *AppError {
	return New(ErrCodeCertificateCorrupt, "License certificate is corrupt")
}

func LicenseExpired() *AppError {
	return New(ErrCodeLicenseExpired, "License is expired")
}

func SeatsExceeded() *AppError {
	return New(ErrCodeSeatsExceeded, "License does not contain a sufficient number of seats")
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Conflict(resource string) *AppError {
	return New(ErrCodeConflict, fmt.Sprintf("%s already exists", resource))
}

func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message)
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
