package email

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/stacklight/identity-server-go/internal/util"
)

// LogSender writes would-be deliveries to the log instead of sending.
// Used in development when no SMTP transport is configured.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Configured() bool {
	return false
}

func (s *LogSender) SendInvitation(ctx context.Context, to, code string) error {
	log.Info().Str("to", to).Str("code", util.MaskCode(code)).Msg("invitation email suppressed: no transport configured")
	return ErrNotConfigured
}

func (s *LogSender) SendPasswordReset(ctx context.Context, to, code string) error {
	log.Info().Str("to", to).Str("code", util.MaskCode(code)).Msg("password reset email suppressed: no transport configured")
	return ErrNotConfigured
}
