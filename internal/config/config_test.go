// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.ReadWindow)
	assert.Equal(t, 3.0, cfg.SignalThresholdDBm)
	assert.Equal(t, 0.7, cfg.QualityThreshold)
	assert.Equal(t, 10000, cfg.QueueSizeLimit)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_ValidOverrides(t *testing.T) {
	t.Setenv("READ_WINDOW_SECONDS", "2.5")
	t.Setenv("SIGNAL_THRESHOLD_DBM", "5")
	t.Setenv("QUALITY_THRESHOLD", "0.9")
	t.Setenv("QUEUE_SIZE_LIMIT", "500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, cfg.ReadWindow)
	assert.Equal(t, 5.0, cfg.SignalThresholdDBm)
	assert.Equal(t, 0.9, cfg.QualityThreshold)
	assert.Equal(t, 500, cfg.QueueSizeLimit)
}

func TestLoad_QualityThresholdOutOfRange(t *testing.T) {
	t.Setenv("QUALITY_THRESHOLD", "1.5")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_NonPositiveQueueSizeLimit(t *testing.T) {
	t.Setenv("QUEUE_SIZE_LIMIT", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_UnparsableValue(t *testing.T) {
	t.Setenv("READ_WINDOW_SECONDS", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}

func TestPipelineConfig_AppliesTuningVars(t *testing.T) {
	t.Setenv("QUEUE_SIZE_LIMIT", "42")
	cfg, err := Load()
	require.NoError(t, err)

	pc := cfg.PipelineConfig()
	assert.Equal(t, 42, pc.QueueCapacity)
	assert.Equal(t, cfg.ReadWindow, pc.Dedup.TimeWindow)
	assert.Equal(t, cfg.QualityThreshold, pc.Filter.QualityThreshold)
}
