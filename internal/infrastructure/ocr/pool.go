package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-docverify/internal/infrastructure/staging"
	"golang.org/x/sync/semaphore"
)

// Pool bounds how many recognitions run at once and how long a caller waits
// for one. Each recognition runs on its own goroutine so a slow engine never
// blocks requests that are not waiting on it.
type Pool struct {
	engine  Engine
	sem     *semaphore.Weighted
	timeout time.Duration
}

func NewPool(engine Engine, workers int, timeout time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{engine: engine, sem: semaphore.NewWeighted(int64(workers)), timeout: timeout}
}

type result struct {
	text string
	err  error
}

// Recognize waits for a free slot, then for the engine, whichever of the
// deadline or the engine finishes first. The slot is held until the engine
// actually returns, even if the caller gave up.
func (p *Pool) Recognize(ctx context.Context, img staging.Object) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for ocr slot: %w", err)
	}

	start := time.Now()
	done := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		text, err := p.engine.Recognize(ctx, img)
		done <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		slog.Warn("ocr abandoned", "engine", p.engine.Name(), "elapsed_ms", time.Since(start).Milliseconds(), "err", ctx.Err())
		return "", fmt.Errorf("%s: %w", p.engine.Name(), ctx.Err())
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		slog.Debug("ocr done", "engine", p.engine.Name(), "elapsed_ms", time.Since(start).Milliseconds(), "chars", len(r.text))
		return r.text, nil
	}
}
