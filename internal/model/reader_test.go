// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() ReaderSpec {
	return ReaderSpec{
		ID:             "reader-1",
		Name:           "Dock Door 1",
		IP:             "10.0.0.5",
		Port:           DefaultPort,
		PowerLevel:     PowerMedium,
		ReadIntervalMs: 500,
	}
}

func TestNewReader_Valid(t *testing.T) {
	r, err := NewReader(validSpec())
	require.NoError(t, err)
	assert.Equal(t, StatusOffline, r.Status())
	assert.Len(t, r.HistorySnapshot(), 1)
	assert.Equal(t, "10.0.0.5:5084", r.Address())
}

func TestNewReader_DefaultsPort(t *testing.T) {
	spec := validSpec()
	spec.Port = 0
	r, err := NewReader(spec)
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, r.Port())
}

func TestNewReader_InvalidIP(t *testing.T) {
	spec := validSpec()
	spec.IP = "not-an-ip"
	_, err := NewReader(spec)
	assert.Error(t, err)
}

func TestNewReader_InvalidPowerLevel(t *testing.T) {
	spec := validSpec()
	spec.PowerLevel = "ULTRA"
	_, err := NewReader(spec)
	assert.Error(t, err)
}

func TestNewReader_IntervalTooSmall(t *testing.T) {
	spec := validSpec()
	spec.ReadIntervalMs = 50
	_, err := NewReader(spec)
	assert.Error(t, err)
}

func TestReader_OfflineToErrorRejected(t *testing.T) {
	r, err := NewReader(validSpec())
	require.NoError(t, err)

	err = r.UpdateStatus(StatusError, "forced")
	require.Error(t, err)
	var te *TransitionError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, StatusOffline, r.Status())
}

func TestReader_FullTransitionSequence(t *testing.T) {
	r, err := NewReader(validSpec())
	require.NoError(t, err)

	require.NoError(t, r.UpdateStatus(StatusOnline, "Connected successfully"))
	require.NoError(t, r.UpdateStatus(StatusError, "transport error"))
	require.NoError(t, r.UpdateStatus(StatusMaintenance, "operator action"))
	require.NoError(t, r.UpdateStatus(StatusOffline, "Deregistered"))

	history := r.HistorySnapshot()
	assert.Len(t, history, 5) // construction entry + 4 transitions
	assert.Equal(t, StatusOffline, r.Status())
	assert.Equal(t, 1, r.Metrics().ErrorCount)
}

func TestReader_RecordReadUpdatesMetrics(t *testing.T) {
	r, err := NewReader(validSpec())
	require.NoError(t, err)

	r.RecordRead(-50.0)
	r.RecordRead(-40.0)
	m := r.Metrics()
	assert.Equal(t, 2, m.TotalReads)
	assert.Equal(t, float64(1), m.ReadSuccessRate)
}

func TestReader_RecordErrorAffectsSuccessRate(t *testing.T) {
	r, err := NewReader(validSpec())
	require.NoError(t, err)

	r.RecordRead(-50.0)
	r.RecordError()
	m := r.Metrics()
	assert.Equal(t, 0.5, m.ReadSuccessRate)
}
