package service

import (
	"log/slog"
	"sync"
	"time"
)

// Default password-login throttling policy: 10 attempts per 3-minute window
// per client key.
const (
	DefaultLoginAttempts = 10
	DefaultLoginWindow   = 3 * time.Minute
)

// LoginLimiter is a fixed-window attempt counter keyed by client identity
// (the transport passes the client address). Every attempt consumes quota,
// successful or not; once a key exceeds the allowance its attempts are
// rejected until the window elapses and the count resets.
//
// A token bucket would refill gradually inside the window, which is not the
// contract here: the allowance is exact per window.
type LoginLimiter struct {
	attempts int
	window   time.Duration

	mu      sync.Mutex
	windows map[string]*attemptWindow

	now func() time.Time // injectable for tests

	// Sweeper lifecycle, same shape as a periodic cleanup worker.
	stopCh chan struct{}
	doneCh chan struct{}
}

type attemptWindow struct {
	start time.Time
	count int
}

// NewLoginLimiter creates a limiter allowing attempts per window for each
// key. Non-positive values fall back to the defaults.
func NewLoginLimiter(attempts int, window time.Duration) *LoginLimiter {
	if attempts <= 0 {
		attempts = DefaultLoginAttempts
	}
	if window <= 0 {
		window = DefaultLoginWindow
	}

	return &LoginLimiter{
		attempts: attempts,
		window:   window,
		windows:  make(map[string]*attemptWindow),
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Allow records one attempt for key and reports whether it is within the
// allowance. An empty key is never limited (the caller could not identify
// the client; rejecting would lump strangers together).
func (l *LoginLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[key]
	if w == nil || now.Sub(w.start) >= l.window {
		w = &attemptWindow{start: now}
		l.windows[key] = w
	}

	w.count++
	return w.count <= l.attempts
}

// Start launches the background sweeper that drops expired windows so the
// key map does not grow without bound. Call Stop to shut it down.
func (l *LoginLimiter) Start(logger *slog.Logger) {
	go l.run(logger)
	logger.Info("login limiter sweeper started",
		"attempts", l.attempts,
		"window", l.window,
	)
}

// Stop shuts down the sweeper and blocks until it has exited.
func (l *LoginLimiter) Stop() {
	close(l.stopCh)
	<-l.doneCh
}

func (l *LoginLimiter) run(logger *slog.Logger) {
	defer close(l.doneCh)

	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := l.sweep()
			if removed > 0 {
				logger.Debug("swept expired login windows", "removed", removed)
			}
		case <-l.stopCh:
			return
		}
	}
}

// sweep removes windows older than the limit window and returns how many
// were dropped.
func (l *LoginLimiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}
