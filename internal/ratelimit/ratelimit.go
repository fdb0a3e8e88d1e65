// Package ratelimit throttles repeated login failures per username so
// credentials cannot be brute-forced. Counters live in memory; restarting the
// process clears them, which is acceptable for an advisory throttle.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	dErrors "chronicle/pkg/domain-errors"
)

// Config tunes the lockout windows.
type Config struct {
	// AttemptsPerWindow is the number of failed logins tolerated inside
	// Window before further attempts are rejected.
	AttemptsPerWindow int
	// Window is the sliding window over which failures are counted.
	Window time.Duration
	// LockDuration is how long an exhausted key stays locked.
	LockDuration time.Duration
}

// DefaultConfig allows 5 failures per 15 minutes, then locks for 15 minutes.
func DefaultConfig() Config {
	return Config{
		AttemptsPerWindow: 5,
		Window:            15 * time.Minute,
		LockDuration:      15 * time.Minute,
	}
}

type record struct {
	failures    []time.Time
	lockedUntil time.Time
}

// LoginLimiter tracks failed login attempts per key.
type LoginLimiter struct {
	mu      sync.Mutex
	records map[string]*record
	config  Config
	now     func() time.Time
}

type Option func(*LoginLimiter)

// WithConfig overrides the default lockout windows.
func WithConfig(cfg Config) Option {
	return func(l *LoginLimiter) {
		l.config = cfg
	}
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(l *LoginLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLoginLimiter(opts ...Option) *LoginLimiter {
	limiter := &LoginLimiter{
		records: make(map[string]*record),
		config:  DefaultConfig(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(limiter)
	}
	return limiter
}

// Check reports whether another attempt for key is allowed right now.
// Returns a rate_limited domain error with the retry horizon when it is not.
func (l *LoginLimiter) Check(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return nil
	}

	now := l.now()
	if now.Before(rec.lockedUntil) {
		return l.rejection(rec.lockedUntil, now)
	}

	l.prune(rec, now)
	if len(rec.failures) >= l.config.AttemptsPerWindow {
		// Window exhausted without an explicit lock; the oldest failure
		// aging out is the earliest the caller can retry.
		resetAt := rec.failures[0].Add(l.config.Window)
		return l.rejection(resetAt, now)
	}
	return nil
}

// RecordFailure counts a failed attempt and locks the key once the window
// budget is spent.
func (l *LoginLimiter) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		rec = &record{}
		l.records[key] = rec
	}

	now := l.now()
	l.prune(rec, now)
	rec.failures = append(rec.failures, now)
	if len(rec.failures) >= l.config.AttemptsPerWindow {
		rec.lockedUntil = now.Add(l.config.LockDuration)
	}
}

// Clear forgets all failures for key. Called after a successful login.
func (l *LoginLimiter) Clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, key)
}

func (l *LoginLimiter) prune(rec *record, now time.Time) {
	cutoff := now.Add(-l.config.Window)
	kept := rec.failures[:0]
	for _, at := range rec.failures {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	rec.failures = kept
}

func (l *LoginLimiter) rejection(resetAt, now time.Time) error {
	retryAfter := int(resetAt.Sub(now).Seconds())
	if retryAfter < 1 {
		retryAfter = 1
	}
	return dErrors.New(dErrors.CodeRateLimited,
		fmt.Sprintf("too many failed login attempts, retry in %ds", retryAfter))
}
