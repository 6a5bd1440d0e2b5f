// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package model

import "fmt"

// PowerLevel is the coarse transmit-power setting configured for a reader
// and the expected signal-strength band for reads coming back from it. It
// is not sent to the reader: the adapter's SET_READER_CONFIG carries no
// transmit-power field, and the band is only logged at connect.
type PowerLevel string

const (
	PowerLow    PowerLevel = "LOW"
	PowerMedium PowerLevel = "MEDIUM"
	PowerHigh   PowerLevel = "HIGH"
)

// DBmRange is an inclusive [Min, Max] window in dBm.
type DBmRange struct {
	Min, Max float64
}

// Contains reports whether dbm falls within the range, inclusive.
func (r DBmRange) Contains(dbm float64) bool {
	return dbm >= r.Min && dbm <= r.Max
}

var powerLevelRanges = map[PowerLevel]DBmRange{
	PowerLow:    {Min: -70, Max: -55},
	PowerMedium: {Min: -55, Max: -35},
	PowerHigh:   {Min: -35, Max: -20},
}

// DBmRange returns the configured dBm band for the power level, used to
// sanity check a reader's rolling signal-strength average and logged by the
// adapter at connect.
func (p PowerLevel) DBmRange() (DBmRange, error) {
	r, ok := powerLevelRanges[p]
	if !ok {
		return DBmRange{}, fmt.Errorf("model: unknown power level %q", p)
	}
	return r, nil
}

// ValidPowerLevel reports whether p is one of the three defined levels.
func ValidPowerLevel(p PowerLevel) bool {
	_, ok := powerLevelRanges[p]
	return ok
}
