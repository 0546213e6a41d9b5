package email

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no delivery transport is set up.
// Flows that send email best-effort treat it as non-fatal.
var ErrNotConfigured = errors.New("email: transport not configured")

// Sender delivers the two transactional emails this server produces.
type Sender interface {
	SendInvitation(ctx context.Context, to, code string) error
	SendPasswordReset(ctx context.Context, to, code string) error
	// Configured reports whether a transport is available.
	Configured() bool
}
