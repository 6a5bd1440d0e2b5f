// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfid-ingest/core/internal/llrp"
	"github.com/rfid-ingest/core/internal/model"
)

type fakeIngress struct{}

func (fakeIngress) Submit(model.Read) error { return nil }

func testSpec(id string) model.ReaderSpec {
	return model.ReaderSpec{
		ID:             id,
		Name:           "dock-door-1",
		IP:             "127.0.0.1",
		Port:           18237, // nothing listens here; dial fails fast
		PowerLevel:     model.PowerMedium,
		ReadIntervalMs: 100,
	}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.ReconnectBaseDelay = 5 * time.Millisecond
	cfg.ReconnectMaxTries = 2
	cfg.ReconnectWindow = 100 * time.Millisecond
	cfg.AdapterConfig.ConnectTimeout = 50 * time.Millisecond
	return cfg
}

func TestRegister_Valid(t *testing.T) {
	m := New(fastConfig(), fakeIngress{}, nil)
	reader, err := m.Register(testSpec("r1"))
	require.NoError(t, err)
	assert.Equal(t, "r1", reader.ID())
	assert.Equal(t, model.StatusOffline, reader.Status())
}

func TestRegister_InvalidSpecRejected(t *testing.T) {
	m := New(fastConfig(), fakeIngress{}, nil)
	_, err := m.Register(model.ReaderSpec{ID: "", IP: "127.0.0.1", PowerLevel: model.PowerMedium, ReadIntervalMs: 100})
	assert.Error(t, err)
}

func TestRegister_DuplicateRejected(t *testing.T) {
	m := New(fastConfig(), fakeIngress{}, nil)
	_, err := m.Register(testSpec("r1"))
	require.NoError(t, err)

	_, err = m.Register(testSpec("r1"))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

// TestSupervise_NeverConnectedStaysOffline drives the real reconnect
// path: nothing listens on the dial target, so every attempt fails
// immediately. OFFLINE -> ERROR is not a legal transition (spec §8.4), so
// a reader that has never once connected stays OFFLINE even after the
// reconnect budget is exhausted; the rejected transition is only logged.
func TestSupervise_NeverConnectedStaysOffline(t *testing.T) {
	m := New(fastConfig(), fakeIngress{}, nil)
	reader, err := m.Register(testSpec("r1"))
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond) // let the retry budget exhaust
	assert.Equal(t, model.StatusOffline, reader.Status())
}

func TestUpdateStatus_UnknownReader(t *testing.T) {
	m := New(fastConfig(), fakeIngress{}, nil)
	err := m.UpdateStatus("ghost", model.StatusOnline, "nope")
	assert.ErrorIs(t, err, ErrUnknownReader)
}

func TestDeregister_TransitionsOfflineAndRemoves(t *testing.T) {
	m := New(fastConfig(), fakeIngress{}, nil)
	reader, err := m.Register(testSpec("r1"))
	require.NoError(t, err)

	require.NoError(t, m.UpdateStatus(reader.ID(), model.StatusOnline, "Connected successfully"))
	require.NoError(t, m.Deregister(reader.ID()))

	assert.Equal(t, model.StatusOffline, reader.Status())
	_, err = m.Reader(reader.ID())
	assert.ErrorIs(t, err, ErrUnknownReader)
}

func TestDeregister_UnknownReader(t *testing.T) {
	m := New(fastConfig(), fakeIngress{}, nil)
	assert.ErrorIs(t, m.Deregister("ghost"), ErrUnknownReader)
}

func TestOverallHealth_Empty(t *testing.T) {
	m := New(fastConfig(), fakeIngress{}, nil)
	status, perReader := m.OverallHealth()
	assert.Equal(t, "unhealthy", status)
	assert.Empty(t, perReader)
}

func TestOverallHealth_Degraded(t *testing.T) {
	m := New(fastConfig(), fakeIngress{}, nil)
	r1, err := m.Register(testSpec("r1"))
	require.NoError(t, err)
	_, err = m.Register(testSpec("r2"))
	require.NoError(t, err)

	require.NoError(t, m.UpdateStatus(r1.ID(), model.StatusOnline, "Connected successfully"))

	status, perReader := m.OverallHealth()
	assert.Equal(t, "degraded", status)
	assert.Len(t, perReader, 2)
	assert.True(t, perReader[r1.ID()].IsOnline)
}

func TestHealth_UnknownReader(t *testing.T) {
	m := New(fastConfig(), fakeIngress{}, nil)
	_, err := m.Health("ghost")
	assert.ErrorIs(t, err, ErrUnknownReader)
}

var _ llrp.Submitter = fakeIngress{}
