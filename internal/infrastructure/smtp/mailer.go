package smtp

import (
	"fmt"

	"github.com/go-docverify/internal/config"
	"gopkg.in/gomail.v2"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type mailer struct {
	from   string
	dialer dialer
}

// NewMailer returns nil when SMTP_HOST is not configured.
func NewMailer(cfg *config.Config) Mailer {
	if cfg.SMTPHost == "" {
		return nil
	}
	return &mailer{
		from:   cfg.SMTPFrom,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
