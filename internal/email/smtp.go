package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender delivers mail over an authenticated SMTP submission port.
type SMTPSender struct {
	host        string
	port        int
	username    string
	password    string
	from        string
	externalURL string
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	ExternalURL string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		host:        cfg.Host,
		port:        cfg.Port,
		username:    cfg.Username,
		password:    cfg.Password,
		from:        cfg.From,
		externalURL: strings.TrimSuffix(cfg.ExternalURL, "/"),
	}
}

func (s *SMTPSender) Configured() bool {
	return s.host != "" && s.from != ""
}

func (s *SMTPSender) SendInvitation(ctx context.Context, to, code string) error {
	subject := "You have been invited"
	body := fmt.Sprintf(
		"You have been invited to join the server at %s.\r\n\r\n"+
			"Register with this invitation code: %s\r\n",
		s.externalURL, code,
	)
	return s.send(ctx, to, subject, body)
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, code string) error {
	subject := "Password reset requested"
	body := fmt.Sprintf(
		"A password reset was requested for your account.\r\n\r\n"+
			"Reset code: %s\r\n\r\n"+
			"If you did not request this, you can ignore this email.\r\n",
		code,
	)
	return s.send(ctx, to, subject, body)
}

func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.from, to, subject, body)

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	return smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg))
}
