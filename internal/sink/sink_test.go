// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfid-ingest/core/internal/model"
)

func TestToWire_RoundTripsFields(t *testing.T) {
	r, err := model.NewRead("E200123456789012345678AB", "r1", -50.0, time.Now())
	require.NoError(t, err)

	w := toWire(r)
	assert.Equal(t, r.ID().String(), w.ID)
	assert.Equal(t, "E200123456789012345678AB", w.RFIDTag)
	assert.Equal(t, "r1", w.ReaderID)
	assert.Equal(t, -50.0, w.SignalStrength)
	assert.False(t, w.IsProcessed)
}
