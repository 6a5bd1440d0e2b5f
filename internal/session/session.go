// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package session is the Reader Session Manager (spec §4.5): the registry
// and life-supervisor of Readers. It owns every Reader aggregate, spawns
// and reconnects the LLRP Adapter for each, and is the sole StatusUpdater
// an Adapter ever talks to.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/rfid-ingest/core/internal/llrp"
	"github.com/rfid-ingest/core/internal/metrics"
	"github.com/rfid-ingest/core/internal/model"
	"github.com/rfid-ingest/core/pkg/log"
)

var (
	ErrUnknownReader           = errors.New("session: unknown reader")
	ErrUnhealthyAtRegistration = errors.New("session: reader failed health check at registration")
	ErrAlreadyRegistered       = errors.New("session: reader already registered")
)

// Config tunes the reconnect policy (spec §4.5: "base 1s, doubling,
// jittered, max 3 retries within 30s total").
type Config struct {
	ReconnectBaseDelay time.Duration
	ReconnectMaxTries  uint
	ReconnectWindow    time.Duration
	AdapterConfig      llrp.Config
}

func DefaultConfig() Config {
	return Config{
		ReconnectBaseDelay: time.Second,
		ReconnectMaxTries:  4, // one initial attempt plus three retries
		ReconnectWindow:    30 * time.Second,
		AdapterConfig:      llrp.DefaultConfig(),
	}
}

type entry struct {
	reader *model.Reader
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager is the registry. It implements llrp.StatusUpdater so every
// Adapter's only handle back is a narrow, by-id callback (spec §4.5's
// weak-reference pattern) rather than a shared owning pointer.
type Manager struct {
	cfg     Config
	ingress llrp.Submitter
	metrics *metrics.Metrics
	log     log.Scoped

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu      sync.RWMutex
	readers map[string]*entry
}

// New constructs a Manager. m may be nil in tests that don't care about
// metrics. Every registered reader's Adapter runs under a context derived
// from the Manager's own root context, so a single call to Shutdown
// cancels them all (spec §5's single root cancellation signal) without
// disturbing Deregister's per-reader cancellation of one entry at a time.
func New(cfg Config, ingress llrp.Submitter, m *metrics.Metrics) *Manager {
	if m == nil {
		m = metrics.New(nil)
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg,
		ingress:    ingress,
		metrics:    m,
		log:        log.For("session", "manager"),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		readers:    make(map[string]*entry),
	}
}

// refreshActiveReaders recomputes the active_readers gauge from the
// registry's current ONLINE count. Called after anything that can change
// a reader's status or registry membership.
func (m *Manager) refreshActiveReaders() {
	m.mu.RLock()
	count := 0
	for _, e := range m.readers {
		if e.reader.Status() == model.StatusOnline {
			count++
		}
	}
	m.mu.RUnlock()
	m.metrics.ActiveReaders.Set(float64(count))
}

// Register validates spec, rejects it if the fresh Reader is not already
// healthy, installs it into the registry, and spawns its supervised
// Adapter (spec §4.5 steps 1-4).
func (m *Manager) Register(spec model.ReaderSpec) (*model.Reader, error) {
	reader, err := model.NewReader(spec)
	if err != nil {
		return nil, err
	}
	if health := computeHealth(reader); !health.HeartbeatOK {
		return nil, ErrUnhealthyAtRegistration
	}

	m.mu.Lock()
	if _, exists := m.readers[reader.ID()]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, reader.ID())
	}
	ctx, cancel := context.WithCancel(m.rootCtx)
	e := &entry{reader: reader, cancel: cancel, done: make(chan struct{})}
	m.readers[reader.ID()] = e
	m.mu.Unlock()

	m.metrics.ReaderConnections.WithLabelValues("registered").Inc()
	m.refreshActiveReaders()

	go m.supervise(ctx, e)

	return reader, nil
}

// supervise runs the Adapter for one reader under the reconnect policy
// (spec §4.5: "base 1s, doubling, jittered, max 3 retries within 30s
// total"). That budget is per disconnection, not per reader lifetime: a
// reader that has been healthily connected for an hour and then loses its
// transport gets the same fresh 3-tries/30s window a reader would get on
// its very first connect attempt. bo and the try/window counters are
// reset whenever the Adapter reaches ONLINE before failing again — the
// same "reset after a run that got far enough" idiom as a BIRD route
// stream's reconnect loop, just keyed on this domain's own connected
// signal (the reader's status) instead of a fixed wall-clock timeout.
// Once a disconnection's own budget is exhausted, supervise returns for
// good: per spec, no further automatic retries until an operator
// re-registers the reader or triggers maintenance.
func (m *Manager) supervise(ctx context.Context, e *entry) {
	defer close(e.done)

	readerID := e.reader.ID()
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     m.cfg.ReconnectBaseDelay,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          2,
		MaxInterval:         m.cfg.ReconnectWindow,
	}
	bo.Reset()

	var tries uint
	var windowStart time.Time

	for {
		if ctx.Err() != nil {
			return
		}

		statusBefore := e.reader.Status()
		adapter := llrp.New(readerID, e.reader.Address(), e.reader.PowerLevel(), m.cfg.AdapterConfig, m, m.ingress, m.metrics)
		err := adapter.Run(ctx.Done())
		now := time.Now()

		if ctx.Err() != nil {
			return
		}
		if err == nil {
			return // Run only returns nil once stop has fired
		}

		// ERROR is sticky (ERROR -> ERROR and ERROR -> ONLINE are both
		// rejected), so only a move into ERROR during this Run marks a
		// fresh disconnection from ONLINE.
		reachedOnline := statusBefore != model.StatusError && e.reader.Status() == model.StatusError
		if reachedOnline || windowStart.IsZero() {
			bo.Reset()
			tries = 0
			windowStart = now
		}
		tries++

		if tries >= m.cfg.ReconnectMaxTries || now.Sub(windowStart) >= m.cfg.ReconnectWindow {
			m.log.Warnf("reader %s exhausted reconnect budget, no further automatic retries: %v", readerID, err)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(bo.NextBackOff()):
		}
	}
}

// UpdateStatus is the Adapter-facing half of llrp.StatusUpdater.
func (m *Manager) UpdateStatus(readerID string, status model.Status, reason string) error {
	m.mu.RLock()
	e, ok := m.readers[readerID]
	m.mu.RUnlock()
	if !ok {
		return ErrUnknownReader
	}
	err := e.reader.UpdateStatus(status, reason)
	if err == nil {
		m.refreshActiveReaders()
	}
	return err
}

// Deregister cancels the reader's Adapter, waits for its supervisor to
// exit, transitions ONLINE|ERROR -> OFFLINE, and removes it from the
// registry (spec §4.5).
func (m *Manager) Deregister(readerID string) error {
	m.mu.Lock()
	e, ok := m.readers[readerID]
	if !ok {
		m.mu.Unlock()
		return ErrUnknownReader
	}
	delete(m.readers, readerID)
	m.mu.Unlock()

	e.cancel()
	<-e.done

	m.metrics.ReaderConnections.WithLabelValues("deregistered").Inc()
	defer m.refreshActiveReaders()

	switch e.reader.Status() {
	case model.StatusOnline, model.StatusError:
		return e.reader.UpdateStatus(model.StatusOffline, "Deregistered")
	default:
		return nil
	}
}

// Shutdown cancels every registered reader's supervisor via the shared root
// context (spec §5: "a single root cancellation signal... propagates to
// every task") and waits for each to exit, bounded by ctx. It does not
// remove readers from the registry or touch their status; it only stops
// the goroutines and closes the underlying LLRP sockets.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.readers))
	for _, e := range m.readers {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	m.rootCancel()

	done := make(chan struct{})
	go func() {
		for _, e := range entries {
			<-e.done
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health returns the is_healthy(reader) report for one registered reader.
func (m *Manager) Health(readerID string) (HealthReport, error) {
	m.mu.RLock()
	e, ok := m.readers[readerID]
	m.mu.RUnlock()
	if !ok {
		return HealthReport{}, ErrUnknownReader
	}
	return computeHealth(e.reader), nil
}

// Reader returns the registered Reader aggregate by id.
func (m *Manager) Reader(readerID string) (*model.Reader, error) {
	m.mu.RLock()
	e, ok := m.readers[readerID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownReader
	}
	return e.reader, nil
}

// IDs returns the ids of every currently registered reader.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.readers))
	for id := range m.readers {
		ids = append(ids, id)
	}
	return ids
}

// OverallHealth aggregates every registered reader's health into the
// healthy|degraded|unhealthy classification used by the admin API (spec
// §6.3): healthy if every reader is ONLINE and heartbeat_ok, unhealthy if
// none are, degraded otherwise.
func (m *Manager) OverallHealth() (string, map[string]HealthReport) {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.readers))
	for _, e := range m.readers {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	perReader := make(map[string]HealthReport, len(entries))
	healthyCount := 0
	for _, e := range entries {
		h := computeHealth(e.reader)
		perReader[e.reader.ID()] = h
		if h.IsOnline && h.HeartbeatOK {
			healthyCount++
		}
	}

	switch {
	case len(entries) == 0:
		return "unhealthy", perReader
	case healthyCount == len(entries):
		return "healthy", perReader
	case healthyCount == 0:
		return "unhealthy", perReader
	default:
		return "degraded", perReader
	}
}
