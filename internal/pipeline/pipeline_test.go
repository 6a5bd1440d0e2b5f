// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfid-ingest/core/internal/model"
)

type fakeSink struct {
	mu        sync.Mutex
	batches   [][]model.Read
	failNext  bool
	failCount int
}

func (s *fakeSink) Publish(batch []model.Read) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failCount++
		return errors.New("synthetic sink failure")
	}
	cp := make([]model.Read, len(batch))
	copy(cp, batch)
	s.batches = append(s.batches, cp)
	return nil
}

func mustRead(t *testing.T, tag string, signal float64) model.Read {
	t.Helper()
	r, err := model.NewRead(tag, "r1", signal, time.Now())
	require.NoError(t, err)
	return r
}

// TestSubmit_SpecBackpressureScenario is spec §8.5: capacity 2, submit 3
// without running the consumer.
func TestSubmit_SpecBackpressureScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueCapacity = 2
	p := New(cfg, &fakeSink{}, nil)

	r1 := mustRead(t, "E200123456789012345678AA", -50.0)
	r2 := mustRead(t, "E200123456789012345678BB", -50.0)
	r3 := mustRead(t, "E200123456789012345678CC", -50.0)

	require.NoError(t, p.Submit(r1))
	require.NoError(t, p.Submit(r2))
	err := p.Submit(r3)
	require.ErrorIs(t, err, ErrBackpressure)

	snap := p.Snapshot()
	assert.Equal(t, int64(3), snap.Received)
	assert.Equal(t, 2, snap.QueueSize)
	assert.Equal(t, int64(1), snap.Drops)
}

func TestPipeline_ProcessesAndPublishes(t *testing.T) {
	fs := &fakeSink{}
	cfg := DefaultConfig()
	cfg.BatchTimeout = 50 * time.Millisecond
	p := New(cfg, fs, nil)
	require.NoError(t, p.Start())
	defer p.Stop()

	r := mustRead(t, "E200123456789012345678AA", -20.0)
	require.NoError(t, p.Submit(r))

	require.Eventually(t, func() bool {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		return len(fs.batches) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPipeline_CircuitBreakerTrips(t *testing.T) {
	fs := &fakeSink{failNext: true}
	cfg := DefaultConfig()
	cfg.Breaker.ErrorRateThreshold = 0.15
	cfg.Breaker.RollingWindow = 300 * time.Second
	cfg.Breaker.CooldownInterval = 50 * time.Millisecond
	cfg.Dedup.SignalThresholdDBm = 0 // disable dedup matching for this test
	cfg.Filter.QualityThreshold = 0

	p := New(cfg, fs, nil)

	// Drive 20 single-read batches, each one failing to publish, so the
	// error rate (1.0) is well past the 15% threshold (spec §8.6).
	for i := 0; i < 20; i++ {
		batch := []model.Read{mustRead(t, "E200123456789012345678AA", -20.0)}
		p.processBatch(batch)
	}

	assert.True(t, p.breaker.Open())
	assert.ErrorIs(t, p.Submit(mustRead(t, "E200123456789012345678BB", -20.0)), ErrCircuitOpen)
}
