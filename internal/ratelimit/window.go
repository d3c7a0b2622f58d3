// Package ratelimit implements sliding-window admission control for calls
// against an external quota (at most N admissions within any trailing window).
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window admits at most MaxCalls operations within any trailing period.
// Admission requests are serialized under a single mutex so two concurrent
// callers can never both observe spare capacity and overrun the quota.
type Window struct {
	maxCalls int
	period   time.Duration
	mu       sync.Mutex
	calls    []time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewWindow creates a sliding-window limiter admitting maxCalls per period.
func NewWindow(maxCalls int, period time.Duration) *Window {
	return &Window{
		maxCalls: maxCalls,
		period:   period,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Wait blocks until the caller may proceed, then records the admission.
// Timestamps older than the window are pruned lazily on each call; when the
// window is full the caller sleeps until the oldest recorded call ages out.
func (w *Window) Wait(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.period)

	kept := w.calls[:0]
	for _, call := range w.calls {
		if call.After(cutoff) {
			kept = append(kept, call)
		}
	}
	w.calls = kept

	if len(w.calls) >= w.maxCalls {
		// Sleep until the oldest call falls outside the window. The lock is
		// held on purpose: admissions must stay serialized.
		wait := w.calls[0].Sub(cutoff)
		if err := w.sleep(ctx, wait); err != nil {
			return err
		}
	}

	w.calls = append(w.calls, w.now())
	return nil
}

// Pending returns the number of admissions currently inside the window.
func (w *Window) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := w.now().Add(-w.period)
	n := 0
	for _, call := range w.calls {
		if call.After(cutoff) {
			n++
		}
	}
	return n
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
