// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAndRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ReadsReceived.Inc()
	m.ProcessingErrors.WithLabelValues("validation").Inc()
	m.QueueSize.Set(42)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	var found bool
	for _, f := range families {
		if f.GetName() == "rfid_queue_size" {
			found = true
			require.Len(t, f.Metric, 1)
			assert.Equal(t, float64(42), f.Metric[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}
