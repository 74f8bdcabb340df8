package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/five82/layerscope/internal/backend"
)

const (
	defaultPollInterval = 2 * time.Second
	maxBackoff          = 30 * time.Second
)

// ImageLister refreshes the available image list; session.Session
// implements it.
type ImageLister interface {
	ListImages(ctx context.Context) ([]backend.ImageSummary, error)
}

// Pinger checks backend reachability; backend.Client implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StartPoller launches a background goroutine that refreshes the image list.
// Consecutive failures back off exponentially up to maxBackoff. It returns
// immediately.
func StartPoller(ctx context.Context, lister ImageLister, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("poller")

	go func() {
		failures := 0
		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			if _, err := lister.ListImages(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				logger.Warn("image list refresh failed",
					zap.Int("consecutive_failures", failures),
					zap.Error(err),
				)
			} else {
				failures = 0
			}
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}

// waitForBackend pings until the backend answers, trying at most attempts
// times with exponential backoff between tries.
func waitForBackend(ctx context.Context, p Pinger, attempts int, base time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = p.Ping(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(calculateBackoff(i, base)):
		}
	}
	return fmt.Errorf("backend unreachable after %d attempts: %w", attempts, err)
}
