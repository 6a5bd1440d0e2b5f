// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker's error-rate threshold, rolling
// window, and cooldown (spec §4.3).
type BreakerConfig struct {
	// ErrorRateThreshold trips the breaker once the rolling error rate
	// exceeds it. Default 0.15.
	ErrorRateThreshold float64
	// RollingWindow bounds how far back errors are counted. Default 300s.
	RollingWindow time.Duration
	// CooldownInterval is how long the breaker stays open before
	// allowing a trial request through. Default 1s.
	CooldownInterval time.Duration
}

// breaker wraps sony/gobreaker's state machine. gobreaker's own Counts
// are batch-call granular (successes/failures of Execute calls); this
// pipeline needs a read-level error ratio over a rolling time window
// instead, so ReadyToTrip ignores the Counts argument entirely and
// consults rate, a rollingRate fed directly from the main loop.
type breaker struct {
	cb   *gobreaker.CircuitBreaker[struct{}]
	rate *rollingRate
}

func newBreaker(cfg BreakerConfig) *breaker {
	rate := newRollingRate(cfg.RollingWindow)

	b := &breaker{rate: rate}
	b.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "rfid-pipeline",
		MaxRequests: 1,
		Timeout:     cfg.CooldownInterval,
		ReadyToTrip: func(gobreaker.Counts) bool {
			return rate.ErrorRate() > cfg.ErrorRateThreshold
		},
		OnStateChange: func(_ string, _, _ gobreaker.State) {
			// Counters reset on every transition (spec §4.3).
			rate.Reset()
		},
	})
	return b
}

// State reports the breaker's current state.
func (b *breaker) State() gobreaker.State {
	return b.cb.State()
}

// Open reports whether ingress should currently be rejected.
func (b *breaker) Open() bool {
	return b.cb.State() == gobreaker.StateOpen
}

// Observe records a batch's outcome against the rolling window, then
// drives the breaker's state machine with a trial call so ReadyToTrip
// gets evaluated. processed and errors are read-level counts.
func (b *breaker) Observe(processed, errors int) {
	b.rate.Observe(processed, errors)

	_, _ = b.cb.Execute(func() (struct{}, error) {
		if errors > 0 {
			return struct{}{}, errBatchHadErrors
		}
		return struct{}{}, nil
	})
}
