// Package notify sends outbound mail for share invitations.
package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"
)

// SMTPMailer sends plain-text mail over SMTP. A zero-value host
// disables sending, so local setups work without a mail server.
type SMTPMailer struct {
	host   string
	port   int
	user   string
	pass   string
	from   string
	logger *zap.Logger
}

// NewSMTPMailer creates a mailer from SMTP settings.
func NewSMTPMailer(host string, port int, user, pass, from string, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:   host,
		port:   port,
		user:   user,
		pass:   pass,
		from:   from,
		logger: logger,
	}
}

// Enabled reports whether the mailer is configured.
func (m *SMTPMailer) Enabled() bool {
	return m.host != ""
}

// Send delivers one plain-text message. The ctx is consulted before
// dialing; the smtp library itself does not support cancellation.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, textBody string) error {
	if !m.Enabled() {
		m.logger.Debug("mailer disabled, dropping message", zap.String("to", to))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(textBody)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := e.Send(addr, auth); err != nil {
		m.logger.Error("failed to send email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
