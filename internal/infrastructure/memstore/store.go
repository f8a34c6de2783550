// Package memstore keeps verification sessions in process memory. Pending
// sessions do not survive a restart.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-docverify/internal/domain"
	"github.com/go-docverify/internal/pkg/otp"
)

// Store is a mutex-guarded map of sessions. A single lock is enough: every
// operation is a map lookup plus a small copy.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*domain.VerificationSession
	locked      map[string]time.Time // id -> lockout expiry
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(ttl time.Duration, maxAttempts int, opts ...Option) *Store {
	s := &Store{
		sessions:    make(map[string]*domain.VerificationSession),
		locked:      make(map[string]time.Time),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create stores a new pending session and returns its id. Unset SessionID,
// CreatedAt and ExpiresAt are filled in on sess.
func (s *Store) Create(_ context.Context, sess *domain.VerificationSession) (string, error) {
	if sess.SessionID == "" {
		id, err := otp.NewSessionID()
		if err != nil {
			return "", err
		}
		sess.SessionID = id
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = sess.CreatedAt.Add(s.ttl)
	}
	sess.Attempts = 0

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.SessionID]; ok {
		return "", fmt.Errorf("session %s: %w", sess.SessionID, domain.ErrConflict)
	}
	if _, ok := s.locked[sess.SessionID]; ok {
		return "", fmt.Errorf("session %s: %w", sess.SessionID, domain.ErrConflict)
	}
	cp := *sess
	s.sessions[sess.SessionID] = &cp
	return sess.SessionID, nil
}

// Get returns a copy of the session. Expired sessions are still returned;
// the caller decides what to do with them.
func (s *Store) Get(_ context.Context, id string) (*domain.VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	cp := *sess
	return &cp, nil
}

// RecordAttemptFailure counts a wrong OTP and returns the new attempt count.
// Reaching the maximum removes the session, leaves a lockout marker until the
// original expiry and returns domain.ErrTooManyAttempts.
func (s *Store) RecordAttemptFailure(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookup(id)
	if err != nil {
		return 0, err
	}
	sess.Attempts++
	if sess.Attempts >= s.maxAttempts {
		delete(s.sessions, id)
		s.locked[id] = sess.ExpiresAt
		return sess.Attempts, fmt.Errorf("session %s: %w", id, domain.ErrTooManyAttempts)
	}
	return sess.Attempts, nil
}

// Consume removes the session and returns it. Only one caller can win.
func (s *Store) Consume(_ context.Context, id string) (*domain.VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	delete(s.sessions, id)
	return sess, nil
}

func (s *Store) Expire(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// lookup must be called with mu held.
func (s *Store) lookup(id string) (*domain.VerificationSession, error) {
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	if until, ok := s.locked[id]; ok && s.now().Before(until) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrTooManyAttempts)
	}
	return nil, fmt.Errorf("session %s: %w", id, domain.ErrInvalidSession)
}

// Len reports the number of stored sessions, lockout markers excluded.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
