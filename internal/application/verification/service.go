// Package verification runs the two-step document check: read the document
// and issue an OTP, then confirm the OTP and release the identity once.
package verification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-docverify/internal/domain"
	"github.com/go-docverify/internal/extract"
	"github.com/go-docverify/internal/infrastructure/staging"
	"github.com/go-docverify/internal/pkg/otp"
)

// SessionStore holds pending sessions. Operations on one id must be
// linearizable.
type SessionStore interface {
	Create(ctx context.Context, s *domain.VerificationSession) (string, error)
	Get(ctx context.Context, id string) (*domain.VerificationSession, error)
	RecordAttemptFailure(ctx context.Context, id string) (int, error)
	Consume(ctx context.Context, id string) (*domain.VerificationSession, error)
	Expire(ctx context.Context, id string) error
}

// Stager holds an upload for the duration of one OCR call.
type Stager interface {
	Stage(ctx context.Context, r io.Reader) (staging.Object, error)
}

// Recognizer turns a staged image into raw text.
type Recognizer interface {
	Recognize(ctx context.Context, img staging.Object) (string, error)
}

// Notifier delivers an OTP code to a phone number or email address.
type Notifier interface {
	Deliver(ctx context.Context, destination, code string) error
}

// Attestor signs a released identity. Optional.
type Attestor interface {
	Attest(sessionID string, ident domain.VerifiedIdentity) (string, error)
}

// Policy carries the tunable limits of a session.
type Policy struct {
	TTL         time.Duration
	MaxAttempts int
	HashCost    int
	// DeliveryRequired fails begin (and drops the session) when the OTP
	// cannot be delivered. Off by default: the session is kept and the
	// failure only logged.
	DeliveryRequired bool
}

type ServiceDeps struct {
	Store      SessionStore
	Stager     Stager
	Recognizer Recognizer
	Notifier   Notifier
	Attestor   Attestor
	Generator  *otp.Generator
	Policy     Policy
	Now        func() time.Time
	Logger     *slog.Logger
}

type BeginInput struct {
	DocumentType  domain.DocumentType
	Image         io.Reader
	ClaimedNumber string
	Destination   string
}

type BeginResult struct {
	SessionID string
	Message   string
	TTL       time.Duration
	ExpiresAt time.Time
}

type ConfirmResult struct {
	Identity    domain.VerifiedIdentity
	Message     string
	Attestation string
}

type Service interface {
	Begin(ctx context.Context, in BeginInput) (*BeginResult, error)
	Confirm(ctx context.Context, sessionID, code string) (*ConfirmResult, error)
}

type service struct {
	ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	if deps.Generator == nil {
		deps.Generator = otp.NewGenerator(otp.DefaultDigits)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &service{ServiceDeps: deps}
}

func (s *service) Begin(ctx context.Context, in BeginInput) (*BeginResult, error) {
	doc, ok := extract.Lookup(in.DocumentType)
	if !ok {
		return nil, fmt.Errorf("unknown document type %q: %w", in.DocumentType, domain.ErrMissingInput)
	}
	if in.Image == nil {
		return nil, fmt.Errorf("no image uploaded: %w", domain.ErrMissingInput)
	}

	claim := strings.TrimSpace(in.ClaimedNumber)
	if claim == "" && doc.ClaimRequired {
		return nil, fmt.Errorf("%s number is required: %w", doc.Label, domain.ErrMissingInput)
	}
	if claim != "" {
		if claim, ok = doc.NormalizeClaim(claim); !ok {
			return nil, fmt.Errorf("invalid %s number format: %w", doc.Label, domain.ErrMissingInput)
		}
	}

	text, err := s.recognize(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	number, ok := doc.ExtractNumber(text)
	if !ok {
		return nil, fmt.Errorf("no %s number found in image: %w", doc.Label, domain.ErrExtractionFailed)
	}
	name, ok := extract.ExtractName(text)
	if !ok {
		name = domain.NotDetected
	}

	if claim != "" && claim != number {
		s.Logger.Info("document number mismatch", "document_type", doc.Type, "claimed", domain.MaskNumber(claim))
		return nil, fmt.Errorf("the %s number in the image does not match the entered number: %w", doc.Label, domain.ErrMismatch)
	}

	sessionID, code, err := s.Generator.Issue()
	if err != nil {
		return nil, fmt.Errorf("issue otp: %v: %w", err, domain.ErrInternal)
	}
	hash, err := otp.Hash(code, s.Policy.HashCost)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrInternal)
	}

	now := s.Now()
	sess := &domain.VerificationSession{
		SessionID:       sessionID,
		DocumentType:    doc.Type,
		ExtractedNumber: number,
		HolderName:      name,
		OTPHash:         hash,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.Policy.TTL),
	}
	if _, err := s.Store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %v: %w", err, domain.ErrInternal)
	}

	if err := s.Notifier.Deliver(ctx, in.Destination, code); err != nil {
		s.Logger.Warn("otp delivery failed", "session_id", sessionID, "err", err)
		if s.Policy.DeliveryRequired {
			if err := s.Store.Expire(ctx, sessionID); err != nil {
				s.Logger.Error("failed to drop undeliverable session", "session_id", sessionID, "err", err)
			}
			return nil, fmt.Errorf("otp could not be delivered: %w", domain.ErrInternal)
		}
	}

	s.Logger.Info("verification session created",
		"session_id", sessionID,
		"document_type", doc.Type,
		"number", domain.MaskNumber(number),
	)

	msg := doc.Label + " read. OTP sent"
	if claim != "" {
		msg = doc.Label + " matched. OTP sent"
	}
	return &BeginResult{
		SessionID: sessionID,
		Message:   msg,
		TTL:       s.Policy.TTL,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// recognize stages the image for the duration of one OCR call.
func (s *service) recognize(ctx context.Context, image io.Reader) (string, error) {
	obj, err := s.Stager.Stage(ctx, image)
	if err != nil {
		if errors.Is(err, domain.ErrMissingInput) {
			return "", err
		}
		return "", fmt.Errorf("stage image: %v: %w", err, domain.ErrInternal)
	}
	defer func() {
		// a cancelled request must not leave the upload behind
		if err := obj.Release(context.WithoutCancel(ctx)); err != nil {
			s.Logger.Warn("failed to release staged image", "err", err)
		}
	}()

	text, err := s.Recognizer.Recognize(ctx, obj)
	if err != nil {
		s.Logger.Warn("ocr failed", "err", err)
		return "", fmt.Errorf("could not read the document: %w", domain.ErrExtractionFailed)
	}
	return text, nil
}

func (s *service) Confirm(ctx context.Context, sessionID, code string) (*ConfirmResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	code = strings.TrimSpace(code)
	if sessionID == "" || code == "" {
		return nil, fmt.Errorf("session_id and otp are required: %w", domain.ErrMissingInput)
	}

	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, s.storeErr(err)
	}

	if sess.Expired(s.Now()) {
		if err := s.Store.Expire(ctx, sessionID); err != nil {
			s.Logger.Warn("failed to drop expired session", "session_id", sessionID, "err", err)
		}
		return nil, fmt.Errorf("OTP expired: %w", domain.ErrExpired)
	}

	if !otp.Match(sess.OTPHash, code) {
		attempts, err := s.Store.RecordAttemptFailure(ctx, sessionID)
		if err != nil {
			if errors.Is(err, domain.ErrTooManyAttempts) {
				s.Logger.Info("verification locked out", "session_id", sessionID)
			}
			return nil, s.storeErr(err)
		}
		left := s.Policy.MaxAttempts - attempts
		return nil, fmt.Errorf("invalid OTP, %d attempt(s) left: %w", left, domain.ErrInvalidOTP)
	}

	sess, err = s.Store.Consume(ctx, sessionID)
	if err != nil {
		return nil, s.storeErr(err)
	}

	ident := domain.VerifiedIdentity{
		DocumentType: sess.DocumentType,
		Number:       sess.ExtractedNumber,
		Name:         sess.HolderName,
	}
	res := &ConfirmResult{Identity: ident, Message: "Verification successful"}
	if s.Attestor != nil {
		tok, err := s.Attestor.Attest(sessionID, ident)
		if err != nil {
			// the session is already consumed; release the data unsigned
			s.Logger.Error("attestation failed", "session_id", sessionID, "err", err)
		} else {
			res.Attestation = tok
		}
	}
	s.Logger.Info("verification confirmed", "session_id", sessionID, "document_type", sess.DocumentType)
	return res, nil
}

// storeErr keeps the session-state sentinels and folds everything else into
// an internal failure.
func (s *service) storeErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidSession):
		return fmt.Errorf("invalid or used session: %w", domain.ErrInvalidSession)
	case errors.Is(err, domain.ErrTooManyAttempts):
		return fmt.Errorf("too many attempts: %w", domain.ErrTooManyAttempts)
	}
	return fmt.Errorf("session store: %v: %w", err, domain.ErrInternal)
}
