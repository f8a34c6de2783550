package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/go-docverify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep(t *testing.T) {
	s, c := newStore(t)
	ctx := context.Background()

	stale, _ := s.Create(ctx, pending())
	c.Advance(4 * time.Minute)
	fresh, _ := s.Create(ctx, pending())

	// stale expired at +5m; sweep cutoff is now-TTL
	assert.Zero(t, s.Sweep(c.Now().Add(5*time.Minute)))
	assert.Equal(t, 1, s.Sweep(c.Now().Add(7*time.Minute)))

	_, err := s.Get(ctx, stale)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
	_, err = s.Get(ctx, fresh)
	require.NoError(t, err)
}

func TestSweep_DropsLapsedLockouts(t *testing.T) {
	s, c := newStore(t)
	ctx := context.Background()
	id, _ := s.Create(ctx, pending())
	for i := 0; i < 5; i++ {
		_, _ = s.RecordAttemptFailure(ctx, id)
	}
	assert.Zero(t, s.Sweep(c.Now()))
	assert.Equal(t, 1, s.Sweep(c.Now().Add(5*time.Minute)))
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := New(time.Millisecond, 5)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()

	_, err := s.Create(context.Background(), pending())
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
