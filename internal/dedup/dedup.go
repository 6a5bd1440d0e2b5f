// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dedup implements sliding-window, signal-aware duplicate
// suppression across RFID tag reads.
package dedup

import (
	"sync"
	"time"

	"github.com/rfid-ingest/core/internal/model"
)

// Config tunes the deduplicator's window, tie-breaking threshold, and the
// total buffered-read cap across all tags.
type Config struct {
	// TimeWindow is how far back a read must be to still be compared
	// against an incoming one.
	TimeWindow time.Duration
	// SignalThresholdDBm is the RSSI delta below which two reads of the
	// same tag within the window are treated as the same observation.
	SignalThresholdDBm float64
	// Capacity bounds the total number of buffered reads across all tags.
	// Once reached, reads for unseen tags are dropped rather than admitted.
	Capacity int
}

// Deduplicator holds a per-tag buffer of recent reads and classifies new
// reads as duplicate or distinct against it.
type Deduplicator struct {
	cfg Config

	mu      sync.Mutex
	buckets map[string][]model.Read
	total   int
}

// New constructs a Deduplicator. A zero Capacity means unbounded.
func New(cfg Config) *Deduplicator {
	return &Deduplicator{
		cfg:     cfg,
		buckets: make(map[string][]model.Read),
	}
}

// Process applies sliding-window deduplication to batch, preserving the
// relative order of survivors (spec §4.1).
func (d *Deduplicator) Process(batch []model.Read) []model.Read {
	if len(batch) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.evictExpired(time.Now().UTC())

	survivors := make([]model.Read, 0, len(batch))
	for _, read := range batch {
		if !read.InValidDBmRange() {
			// Out-of-range signal bypasses duplicate detection; the
			// filter will reject it downstream.
			survivors = append(survivors, read)
			continue
		}

		tag := read.RFIDTag()
		bucket, seenTag := d.buckets[tag]

		if !seenTag && d.cfg.Capacity > 0 && d.total >= d.cfg.Capacity {
			// Buffer is full and this is a brand new tag: drop silently,
			// existing tags may still be matched against below.
			continue
		}

		if d.isDuplicate(read, bucket) {
			continue
		}

		d.buckets[tag] = append(bucket, read)
		d.total++
		survivors = append(survivors, read)
	}

	return survivors
}

func (d *Deduplicator) isDuplicate(read model.Read, bucket []model.Read) bool {
	for _, existing := range bucket {
		delta := read.ReadTime().Sub(existing.ReadTime())
		if delta < 0 {
			delta = -delta
		}
		if delta > d.cfg.TimeWindow {
			continue
		}
		signalDelta := read.SignalStrength() - existing.SignalStrength()
		if signalDelta < 0 {
			signalDelta = -signalDelta
		}
		if signalDelta < d.cfg.SignalThresholdDBm {
			return true
		}
	}
	return false
}

// evictExpired drops every buffered read older than now-TimeWindow, and
// removes tag buckets that become empty. Caller must hold d.mu.
func (d *Deduplicator) evictExpired(now time.Time) {
	cutoff := now.Add(-d.cfg.TimeWindow)
	for tag, bucket := range d.buckets {
		kept := bucket[:0]
		for _, read := range bucket {
			if read.ReadTime().After(cutoff) {
				kept = append(kept, read)
			} else {
				d.total--
			}
		}
		if len(kept) == 0 {
			delete(d.buckets, tag)
		} else {
			d.buckets[tag] = kept
		}
	}
}

// BufferedCount returns the current total number of buffered reads across
// all tags, for health/metrics reporting.
func (d *Deduplicator) BufferedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}
