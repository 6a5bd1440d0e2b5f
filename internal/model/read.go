// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package model holds the validated value and aggregate types shared by
// every subsystem of the ingestion core: the immutable Read observation
// and the mutable Reader aggregate, along with the invariants the rest of
// the core relies on.
package model

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// MinSignalDBm and MaxSignalDBm bound a physically valid RSSI reading.
const (
	MinSignalDBm = -70.0
	MaxSignalDBm = -20.0
)

var tagPattern = regexp.MustCompile(`^[A-Fa-f0-9]{24}$`)

// Read is one observation of one tag by one reader at one instant. It is
// constructed once and never mutated; the pipeline produces a new value
// (via WithProcessed) rather than flipping IsProcessed in place, so a Read
// can be freely shared across goroutines after construction.
type Read struct {
	id             uuid.UUID
	rfidTag        string
	readerID       string
	signalStrength float64
	readTime       time.Time
	isProcessed    bool
}

// NewRead validates and constructs a Read. rfidTag is normalized to
// uppercase hex; readTime is converted to UTC. Every invariant in spec §3
// and §8 is checked here: a Read that exists is, by construction, valid.
func NewRead(rfidTag, readerID string, signalStrength float64, readTime time.Time) (Read, error) {
	if !tagPattern.MatchString(rfidTag) {
		return Read{}, validationErr("rfid_tag", "must be exactly 24 hex characters")
	}
	if readerID == "" {
		return Read{}, validationErr("reader_id", "must not be empty")
	}
	if !isFinite(signalStrength) || signalStrength < MinSignalDBm || signalStrength > MaxSignalDBm {
		return Read{}, validationErr("signal_strength", "must be a finite value in [-70.0, -20.0] dBm")
	}
	if readTime.IsZero() {
		return Read{}, validationErr("read_time", "must not be zero")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return Read{}, validationErr("id", "failed to generate random identifier: "+err.Error())
	}

	return Read{
		id:             id,
		rfidTag:        normalizeTag(rfidTag),
		readerID:       readerID,
		signalStrength: signalStrength,
		readTime:       readTime.UTC(),
	}, nil
}

func isFinite(f float64) bool {
	return f == f && f > -1e308 && f < 1e308 // false for NaN/Inf without importing math
}

func normalizeTag(tag string) string {
	out := make([]byte, len(tag))
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if c >= 'a' && c <= 'f' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func (r Read) ID() uuid.UUID           { return r.id }
func (r Read) RFIDTag() string         { return r.rfidTag }
func (r Read) ReaderID() string        { return r.readerID }
func (r Read) SignalStrength() float64 { return r.signalStrength }
func (r Read) ReadTime() time.Time     { return r.readTime }
func (r Read) IsProcessed() bool       { return r.isProcessed }

// WithProcessed returns a copy of r with IsProcessed set to true, the
// state the pipeline assigns once a Read has survived filtering and
// deduplication and is about to be published (spec §4.3 step 4).
func (r Read) WithProcessed() Read {
	r.isProcessed = true
	return r
}

// InValidDBmRange reports whether the signal strength falls within the
// [MinSignalDBm, MaxSignalDBm] window; the deduplicator uses it as its
// bypass gate, and the filter's scoring applies the same bounds.
func (r Read) InValidDBmRange() bool {
	return r.signalStrength >= MinSignalDBm && r.signalStrength <= MaxSignalDBm
}
