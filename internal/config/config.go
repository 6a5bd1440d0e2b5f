// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the process's tuning knobs from the environment
// (spec §6.1: "environment variables for tuning, only those the core
// consumes") plus the ambient variables needed to wire logging, the
// downstream sink, and the admin API. Validation is fail-fast: Load
// returns an error rather than letting an out-of-range value reach a
// running pipeline.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rfid-ingest/core/internal/dedup"
	"github.com/rfid-ingest/core/internal/filter"
	"github.com/rfid-ingest/core/internal/pipeline"
)

// Config is every env-var-tunable knob the core consumes, resolved and
// validated once at startup.
type Config struct {
	ReadWindow        time.Duration
	SignalThresholdDBm float64
	QualityThreshold  float64
	QueueSizeLimit    int

	LogLevel      string
	NATSURL       string
	NATSSubject   string
	AdminAPIAddr  string
	GopsAddr      string
}

// Defaults match pipeline.DefaultConfig's corresponding fields, so an
// operator who sets none of the four tuning vars gets the same behavior
// as DefaultConfig().
const (
	defaultReadWindowSeconds  = 5.0
	defaultSignalThresholdDBm = 3.0
	defaultQualityThreshold   = 0.7
	defaultQueueSizeLimit     = 10000

	defaultLogLevel     = "info"
	defaultNATSURL      = "nats://127.0.0.1:4222"
	defaultNATSSubject  = "rfid.reads"
	defaultAdminAPIAddr = ":8090"
	defaultGopsAddr     = ""
)

// Load reads and validates every variable, applying defaults for unset
// ones. An explicitly set but out-of-range value is an error; an unset
// one falls back to its default.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:     getenvDefault("LOG_LEVEL", defaultLogLevel),
		NATSURL:      getenvDefault("NATS_URL", defaultNATSURL),
		NATSSubject:  getenvDefault("NATS_SUBJECT", defaultNATSSubject),
		AdminAPIAddr: getenvDefault("ADMIN_API_ADDR", defaultAdminAPIAddr),
		GopsAddr:     getenvDefault("GOPS_ADDR", defaultGopsAddr),
	}

	windowSeconds, err := getenvFloat("READ_WINDOW_SECONDS", defaultReadWindowSeconds)
	if err != nil {
		return Config{}, err
	}
	if windowSeconds <= 0 {
		return Config{}, fmt.Errorf("config: READ_WINDOW_SECONDS must be > 0, got %v", windowSeconds)
	}
	cfg.ReadWindow = time.Duration(windowSeconds * float64(time.Second))

	cfg.SignalThresholdDBm, err = getenvFloat("SIGNAL_THRESHOLD_DBM", defaultSignalThresholdDBm)
	if err != nil {
		return Config{}, err
	}
	if cfg.SignalThresholdDBm < 0 {
		return Config{}, fmt.Errorf("config: SIGNAL_THRESHOLD_DBM must be >= 0, got %v", cfg.SignalThresholdDBm)
	}

	cfg.QualityThreshold, err = getenvFloat("QUALITY_THRESHOLD", defaultQualityThreshold)
	if err != nil {
		return Config{}, err
	}
	if cfg.QualityThreshold < 0 || cfg.QualityThreshold > 1 {
		return Config{}, fmt.Errorf("config: QUALITY_THRESHOLD must be in [0,1], got %v", cfg.QualityThreshold)
	}

	cfg.QueueSizeLimit, err = getenvInt("QUEUE_SIZE_LIMIT", defaultQueueSizeLimit)
	if err != nil {
		return Config{}, err
	}
	if cfg.QueueSizeLimit < 1 {
		return Config{}, fmt.Errorf("config: QUEUE_SIZE_LIMIT must be >= 1, got %v", cfg.QueueSizeLimit)
	}

	return cfg, nil
}

// PipelineConfig folds the loaded tuning vars into a pipeline.Config
// starting from pipeline.DefaultConfig(), leaving every field the env
// vars don't cover (batch size, breaker thresholds, timeouts) at its
// default.
func (c Config) PipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.QueueCapacity = c.QueueSizeLimit
	cfg.Dedup = dedup.Config{
		TimeWindow:         c.ReadWindow,
		SignalThresholdDBm: c.SignalThresholdDBm,
		Capacity:           cfg.Dedup.Capacity,
	}
	cfg.Filter = filter.Config{
		QualityThreshold: c.QualityThreshold,
		SubBatchSize:     cfg.Filter.SubBatchSize,
	}
	return cfg
}

func getenvDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func getenvInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
