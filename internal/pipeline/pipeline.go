// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package pipeline is the central Read Processing Pipeline (spec §4.3):
// a bounded ingress queue, a batching worker that runs the quality filter
// and deduplicator and publishes survivors downstream, a health monitor,
// and circuit-breaker failure isolation.
package pipeline

import (
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/rfid-ingest/core/internal/dedup"
	"github.com/rfid-ingest/core/internal/filter"
	"github.com/rfid-ingest/core/internal/metrics"
	"github.com/rfid-ingest/core/internal/model"
	"github.com/rfid-ingest/core/internal/sink"
	"github.com/rfid-ingest/core/pkg/log"
	"github.com/rfid-ingest/core/pkg/runtimeEnv"
)

// ErrBackpressure is returned by Submit when the ingress queue is full.
var ErrBackpressure = errors.New("pipeline: ingress queue full, read dropped")

// ErrCircuitOpen is returned by Submit while the circuit breaker is
// tripped.
var ErrCircuitOpen = errors.New("pipeline: circuit breaker open")

var errBatchHadErrors = errors.New("pipeline: batch had sink errors")

var scoped = log.For("pipeline", "main")

// Config tunes every pipeline-level knob named in spec §4.3 and §6.1.
type Config struct {
	QueueCapacity      int
	BatchSize          int
	BatchTimeout       time.Duration
	HealthMonitorEvery time.Duration
	ShutdownDeadline   time.Duration
	NearCapacityRatio  float64 // default 0.9

	Dedup  dedup.Config
	Filter filter.Config
	Breaker BreakerConfig
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		QueueCapacity:      10_000,
		BatchSize:          100,
		BatchTimeout:       time.Second,
		HealthMonitorEvery: 5 * time.Second,
		ShutdownDeadline:   5 * time.Second,
		NearCapacityRatio:  0.9,
		Dedup: dedup.Config{
			TimeWindow:         5 * time.Second,
			SignalThresholdDBm: 3,
		},
		Filter: filter.Config{
			QualityThreshold: 0.7,
			SubBatchSize:     100,
		},
		Breaker: BreakerConfig{
			ErrorRateThreshold: 0.15,
			RollingWindow:      300 * time.Second,
			CooldownInterval:   time.Second,
		},
	}
}

// Pipeline is the Read Processing Pipeline: ingress queue, batching main
// loop, health monitor, and circuit breaker.
type Pipeline struct {
	cfg Config

	queue    *queue
	dedup    *dedup.Deduplicator
	filter   *filter.QualityFilter
	breaker  *breaker
	sink     sink.Sink
	metrics  *metrics.Metrics
	scheduler gocron.Scheduler

	receivedTotal  atomicCounter
	processedTotal atomicCounter
	dropsTotal     atomicCounter

	stopping chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New constructs a Pipeline. m may be nil in tests that don't care about
// metrics.
func New(cfg Config, downstream sink.Sink, m *metrics.Metrics) *Pipeline {
	if m == nil {
		m = metrics.New(nil)
	}

	p := &Pipeline{
		cfg:      cfg,
		queue:    newQueue(cfg.QueueCapacity),
		dedup:    dedup.New(cfg.Dedup),
		breaker:  newBreaker(cfg.Breaker),
		sink:     downstream,
		metrics:  m,
		stopping: make(chan struct{}),
	}
	p.filter = filter.New(cfg.Filter, func() { p.metrics.ProcessingErrors.WithLabelValues("scoring").Inc() })
	return p
}

// Submit attempts to enqueue a single raw read for processing (spec
// §4.3's ingress). It never blocks.
func (p *Pipeline) Submit(r model.Read) error {
	if p.breaker.Open() {
		return ErrCircuitOpen
	}
	p.receivedTotal.Inc()
	p.metrics.ReadsReceived.Inc()
	if !p.queue.tryEnqueue(r) {
		p.dropsTotal.Inc()
		return ErrBackpressure
	}
	p.metrics.ReadsTotal.WithLabelValues(r.ReaderID()).Inc()
	return nil
}

// Start launches the main loop and health monitor. Call Stop to drain and
// shut down.
func (p *Pipeline) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	p.scheduler = sched

	_, err = sched.NewJob(
		gocron.DurationJob(p.cfg.HealthMonitorEvery),
		gocron.NewTask(p.reportHealth),
	)
	if err != nil {
		return err
	}
	sched.Start()

	p.wg.Add(1)
	go p.mainLoop()

	return nil
}

// Stop signals the main loop to drain the queue and exit, waits for it up
// to the configured deadline, and stops the health monitor. Submit does not
// check for Stop and keeps enqueuing; reads enqueued after the drain has
// finished are never processed.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopping)
	})
	runtimeEnv.WaitWithDeadline(&p.wg, p.cfg.ShutdownDeadline)
	if p.scheduler != nil {
		_ = p.scheduler.Shutdown()
	}
}

func (p *Pipeline) mainLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopping:
			p.drain()
			return
		default:
		}

		if p.breaker.Open() {
			time.Sleep(p.cfg.Breaker.CooldownInterval)
			continue
		}

		batch := p.queue.gatherBatch(p.cfg.BatchSize, p.cfg.BatchTimeout)
		if len(batch) == 0 {
			continue
		}
		p.processBatch(batch)
	}
}

// drain processes whatever remains in the queue after Stop is called,
// without waiting on the batch timeout, until it is empty.
func (p *Pipeline) drain() {
	for p.queue.len() > 0 {
		batch := p.queue.gatherAvailable(p.cfg.BatchSize)
		if len(batch) == 0 {
			return
		}
		p.processBatch(batch)
	}
}

func (p *Pipeline) processBatch(batch []model.Read) {
	start := time.Now()

	filtered := p.filter.Apply(batch)
	deduped := p.dedup.Process(filtered)

	processed := make([]model.Read, len(deduped))
	for i, r := range deduped {
		processed[i] = r.WithProcessed()
	}

	var errCount int
	if len(processed) > 0 {
		if err := p.sink.Publish(processed); err != nil {
			scoped.Errorf("sink publish failed: %v", err)
			p.metrics.ProcessingErrors.WithLabelValues("sink").Inc()
			errCount = len(processed)
		} else {
			p.processedTotal.Add(int64(len(processed)))
			p.metrics.ReadsProcessed.Add(float64(len(processed)))
		}
	}

	p.breaker.Observe(len(processed), errCount)
	p.metrics.DuplicatesTotal.Add(float64(len(filtered) - len(deduped)))
	p.metrics.ProcessingTimeSeconds.Observe(time.Since(start).Seconds())
}

func (p *Pipeline) reportHealth() {
	depth := p.queue.len()
	capacity := p.queue.cap()
	p.metrics.QueueSize.Set(float64(depth))
	p.metrics.BufferSize.Set(float64(p.dedup.BufferedCount()))

	if capacity > 0 && float64(depth)/float64(capacity) > p.cfg.NearCapacityRatio {
		scoped.Warnf("queue near capacity: %d/%d", depth, capacity)
	}
	scoped.Infof("health: queue_depth=%d processed_total=%d drops_total=%d",
		depth, p.processedTotal.Load(), p.dropsTotal.Load())
}

// Stats is a point-in-time snapshot of the pipeline's counters, exposed to
// the admin API's health endpoint.
type Stats struct {
	Received  int64
	Processed int64
	Drops     int64
	QueueSize int
	QueueCap  int
}

// Snapshot returns the pipeline's current counters.
func (p *Pipeline) Snapshot() Stats {
	return Stats{
		Received:  p.receivedTotal.Load(),
		Processed: p.processedTotal.Load(),
		Drops:     p.dropsTotal.Load(),
		QueueSize: p.queue.len(),
		QueueCap:  p.queue.cap(),
	}
}
