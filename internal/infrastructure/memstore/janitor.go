package memstore

import (
	"context"
	"log/slog"
	"time"
)

// Sweep drops sessions that expired more than one TTL before now, along
// with lockout markers that have run out. It returns how many entries it
// removed.
func (s *Store) Sweep(now time.Time) int {
	cutoff := now.Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	for id, until := range s.locked {
		if !now.Before(until) {
			delete(s.locked, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(s.now()); n > 0 {
				slog.Debug("session janitor swept", "removed", n)
			}
		}
	}
}
