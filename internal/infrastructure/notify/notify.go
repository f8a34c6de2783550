// Package notify delivers OTP codes over the channel a destination implies.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-docverify/internal/infrastructure/smtp"
	"github.com/go-docverify/internal/infrastructure/sns"
)

// Router sends codes to phone numbers via SMS and to email addresses via
// SMTP. Destinations with no configured channel (or no destination at all)
// fall back to a simulated delivery that only logs.
type Router struct {
	sms    sns.SMSSender
	mail   smtp.Mailer
	ttl    time.Duration
	reveal bool // log codes on simulated delivery; development only
	logger *slog.Logger
}

type Option func(*Router)

func WithSMS(s sns.SMSSender) Option   { return func(r *Router) { r.sms = s } }
func WithMail(m smtp.Mailer) Option    { return func(r *Router) { r.mail = m } }
func WithLogger(l *slog.Logger) Option { return func(r *Router) { r.logger = l } }

// RevealSimulated makes simulated deliveries log the code itself.
func RevealSimulated(on bool) Option { return func(r *Router) { r.reveal = on } }

func NewRouter(ttl time.Duration, opts ...Option) *Router {
	r := &Router{ttl: ttl, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Deliver sends code to destination.
func (r *Router) Deliver(ctx context.Context, destination, code string) error {
	destination = strings.TrimSpace(destination)
	body := r.message(code)
	switch {
	case isEmail(destination) && r.mail != nil:
		return r.mail.SendEmail(destination, "Your verification code", body)
	case isPhone(destination) && r.sms != nil:
		return r.sms.SendSMS(ctx, destination, body)
	}
	r.simulate(destination, code)
	return nil
}

func (r *Router) message(code string) string {
	mins := int(r.ttl.Round(time.Minute) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("Your verification code is %s. It expires in %d minutes. Do not share it.", code, mins)
}

func (r *Router) simulate(destination, code string) {
	attrs := []any{"destination", maskDestination(destination)}
	if r.reveal {
		attrs = append(attrs, "otp", code)
	}
	r.logger.Info("SIMULATED OTP delivery", attrs...)
}

func isEmail(s string) bool {
	at := strings.IndexByte(s, '@')
	return at > 0 && at < len(s)-1
}

func isPhone(s string) bool {
	s = strings.TrimPrefix(s, "+")
	if len(s) < 8 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func maskDestination(s string) string {
	switch {
	case s == "":
		return "(none)"
	case isEmail(s):
		at := strings.IndexByte(s, '@')
		return s[:1] + "***" + s[at:]
	case len(s) > 4:
		return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
	default:
		return "****"
	}
}
