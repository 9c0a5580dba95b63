package core

// job_limiter.go caps the number of cleaning jobs that run at once.
//
// Each job holds a whole table in memory, so the HTTP surface acquires a
// slot before loading a file. When every slot is taken a caller waits up to
// maxWait and then gets ErrTooManyJobs.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyJobs is returned when no job slot frees up within the wait time.
var ErrTooManyJobs = errors.New("too many cleaning jobs in progress, please try again later")

const (
	// DefaultMaxConcurrentJobs is used when a non-positive limit is given.
	DefaultMaxConcurrentJobs = 4

	// DefaultMaxWaitTime is used when a non-positive wait is given.
	DefaultMaxWaitTime = 30 * time.Second
)

// JobLimiter is a counting semaphore for cleaning jobs.
type JobLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.RWMutex
	active int
}

// NewJobLimiter allows at most maxConcurrent jobs at a time.
func NewJobLimiter(maxConcurrent int, maxWait time.Duration) *JobLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentJobs
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &JobLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to the configured time.
// Callers must Release after a nil return.
func (l *JobLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyJobs
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *JobLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *JobLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.slots
}

// Active returns the number of running jobs.
func (l *JobLimiter) Active() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until no jobs are running or ctx is done.
func (l *JobLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.Active() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// JobLimiterStatus is a snapshot of limiter usage.
type JobLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current usage.
func (l *JobLimiter) Status() JobLimiterStatus {
	active := l.Active()
	return JobLimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
