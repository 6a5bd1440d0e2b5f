// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"time"

	"github.com/rfid-ingest/core/internal/model"
)

// HeartbeatMaxAge is the staleness bound past which a reader is considered
// unhealthy (spec §4.6).
const HeartbeatMaxAge = 60 * time.Second

// HealthReport is the is_healthy(reader) result named in spec §4.6.
type HealthReport struct {
	ReaderID            string
	Status              model.Status
	IsOnline            bool
	HeartbeatAgeSeconds float64
	HeartbeatOK         bool
	PowerLevel          model.PowerLevel
	Metrics             model.HealthMetrics
	LastError           *model.StatusHistoryEntry
	SignalStrengthOK    bool
}

// computeHealth builds a HealthReport from a Reader's current snapshot.
// It takes no lock of its own beyond what Reader's accessors already take,
// so each field is read consistently, but the fields come from separate
// lock acquisitions and the report as a whole may mix instants.
func computeHealth(r *model.Reader) HealthReport {
	status := r.Status()
	age := time.Since(r.LastHeartbeat())
	metrics := r.Metrics()
	power := r.PowerLevel()

	report := HealthReport{
		ReaderID:            r.ID(),
		Status:              status,
		IsOnline:            status == model.StatusOnline,
		HeartbeatAgeSeconds: age.Seconds(),
		HeartbeatOK:         age <= HeartbeatMaxAge,
		PowerLevel:          power,
		Metrics:             metrics,
	}

	if dbmRange, err := power.DBmRange(); err == nil {
		report.SignalStrengthOK = dbmRange.Contains(metrics.SignalStrengthAvg)
	}

	history := r.HistorySnapshot()
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].To == model.StatusError {
			entry := history[i]
			report.LastError = &entry
			break
		}
	}

	return report
}
