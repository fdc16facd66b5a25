package services

import (
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/dvukovic/teamline-api/internal/config"
	"github.com/dvukovic/teamline-api/internal/observability/logger"
	"go.uber.org/zap"
)

// EmailService sends transactional mail over SMTP. When SMTP is not
// configured the service stays usable and every send becomes a logged
// no-op, which keeps local development working without a mail server.
type EmailService struct {
	cfg config.SMTPConfig
	log *zap.Logger
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg, log: logger.Named("email")}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.From != ""
}

func (s *EmailService) SendTeamInvite(to, teamName, inviterName, inviteURL string) error {
	subject := fmt.Sprintf("%s invited you to join %s", inviterName, teamName)
	text := fmt.Sprintf(
		"%s invited you to join the team %q.\n\nOpen the link below to accept or decline:\n%s\n\nThe invitation expires in a few days.",
		inviterName, teamName, inviteURL,
	)
	html := fmt.Sprintf(
		`<p>%s invited you to join the team <strong>%s</strong>.</p><p><a href="%s">View invitation</a></p><p>The invitation expires in a few days.</p>`,
		inviterName, teamName, inviteURL,
	)
	return s.send(to, subject, text, html)
}

func (s *EmailService) SendPasswordReset(to, resetURL string) error {
	subject := "Reset your password"
	text := fmt.Sprintf(
		"A password reset was requested for your account.\n\nOpen the link below to choose a new password:\n%s\n\nIf you did not request this, you can ignore this email.",
		resetURL,
	)
	html := fmt.Sprintf(
		`<p>A password reset was requested for your account.</p><p><a href="%s">Choose a new password</a></p><p>If you did not request this, you can ignore this email.</p>`,
		resetURL,
	)
	return s.send(to, subject, text, html)
}

func (s *EmailService) send(to, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		s.log.Info("smtp not configured, skipping send",
			zap.String("to", to),
			zap.String("subject", subject),
		)
		return nil
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	d := mail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		s.log.Error("smtp send failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}

	s.log.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
