// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package filter scores RFID reads for quality and accepts those meeting a
// configurable threshold, memoizing scores in a TTL-bounded cache.
package filter

import (
	"sync"
	"time"

	"github.com/rfid-ingest/core/internal/model"
	"github.com/rfid-ingest/core/pkg/lrucache"
)

const (
	scoreCacheTTL      = 300 * time.Second
	scoreCacheCapacity = 10_000

	minDBm = model.MinSignalDBm
	maxDBm = model.MaxSignalDBm
)

// Config tunes the quality filter's acceptance threshold and sub-batch
// parallelism.
type Config struct {
	// QualityThreshold is the minimum score in [0,1] a read must reach to
	// be accepted. Default 0.7.
	QualityThreshold float64
	// SubBatchSize bounds how many reads are scored per goroutine.
	// Default 100.
	SubBatchSize int
}

// ErrorCounter receives a tally of reads whose scoring failed, so callers
// can surface it as a metric without the filter depending on a metrics
// package directly.
type ErrorCounter func()

// QualityFilter scores and accepts reads per-read, independent of any
// other read in the batch.
type QualityFilter struct {
	cfg          Config
	cache        *lrucache.Cache[float64]
	onScoreError ErrorCounter
}

// New constructs a QualityFilter. onScoreError may be nil.
func New(cfg Config, onScoreError ErrorCounter) *QualityFilter {
	if cfg.SubBatchSize <= 0 {
		cfg.SubBatchSize = 100
	}
	if onScoreError == nil {
		onScoreError = func() {}
	}
	return &QualityFilter{
		cfg:          cfg,
		cache:        lrucache.New[float64](scoreCacheCapacity),
		onScoreError: onScoreError,
	}
}

// Apply scores batch and returns the accepted subsequence, preserving
// order across sub-batches (spec §4.2).
func (f *QualityFilter) Apply(batch []model.Read) []model.Read {
	if len(batch) == 0 {
		return nil
	}

	n := len(batch)
	accepted := make([]bool, n)

	var wg sync.WaitGroup
	for start := 0; start < n; start += f.cfg.SubBatchSize {
		end := start + f.cfg.SubBatchSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				score := f.scoreOf(batch[i])
				accepted[i] = score >= f.cfg.QualityThreshold
			}
		}(start, end)
	}
	wg.Wait()

	out := make([]model.Read, 0, n)
	for i, ok := range accepted {
		if ok {
			out = append(out, batch[i])
		}
	}
	return out
}

// scoreOf returns the memoized or freshly computed quality score for read,
// never letting a panic during scoring escape (spec §4.2's "if scoring of
// any single read throws, that read is rejected, not the whole batch").
func (f *QualityFilter) scoreOf(read model.Read) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			f.onScoreError()
			score = 0
		}
	}()

	key := read.ID().String()
	return f.cache.Get(key, func() (float64, time.Duration, int) {
		return computeScore(read), scoreCacheTTL, 1
	})
}

func computeScore(read model.Read) float64 {
	signal := read.SignalStrength()
	if signal < minDBm || signal > maxDBm {
		return 0
	}
	normalizedSignal := (signal - minDBm) / (maxDBm - minDBm)
	const timeFactor = 1.0
	return 0.6*normalizedSignal + 0.4*timeFactor
}
