// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rfid-ingest/core/internal/adminapi"
	"github.com/rfid-ingest/core/internal/config"
	"github.com/rfid-ingest/core/internal/metrics"
	"github.com/rfid-ingest/core/internal/pipeline"
	"github.com/rfid-ingest/core/internal/session"
	"github.com/rfid-ingest/core/internal/sink"
	"github.com/rfid-ingest/core/pkg/log"
	"github.com/rfid-ingest/core/pkg/nats"
	"github.com/rfid-ingest/core/pkg/runtimeEnv"
)

// adminAPIRateLimit and adminAPIBurst bound the admin HTTP surface
// (internal/adminapi.Wrap); the admin API has no other operator to lean
// on for backpressure the way Adapters lean on the pipeline.
const (
	adminAPIRateLimit = 20.0
	adminAPIBurst     = 40
)

func main() {
	var flagGops bool
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.Parse()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %s", err.Error())
	}
	log.SetLevel(cfg.LogLevel)

	natsClient, err := nats.Connect(nats.Config{Address: cfg.NATSURL, Subject: cfg.NATSSubject})
	if err != nil {
		log.Fatalf("connecting to NATS at %s: %s", cfg.NATSURL, err.Error())
	}
	defer natsClient.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	downstream := sink.NewNATSSink(natsClient, cfg.NATSSubject)
	pl := pipeline.New(cfg.PipelineConfig(), downstream, m)
	if err := pl.Start(); err != nil {
		log.Fatalf("starting pipeline: %s", err.Error())
	}

	sessions := session.New(session.DefaultConfig(), pl, m)
	api := adminapi.New(sessions, pl)

	r := mux.NewRouter()
	api.MountRoutes(r)
	handler := adminapi.Wrap(r, adminAPIRateLimit, adminAPIBurst)

	listener, err := net.Listen("tcp", cfg.AdminAPIAddr)
	if err != nil {
		log.Fatalf("binding admin API listener at %s: %s", cfg.AdminAPIAddr, err.Error())
	}

	server := http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second, // covers process_batch's own 30s budget
		Handler:      handler,
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("admin API listening at %s", cfg.AdminAPIAddr)
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	runtimeEnv.SystemdNotify(true, "running")

	<-sigs
	runtimeEnv.SystemdNotify(false, "shutting down")
	log.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("admin API shutdown: %s", err.Error())
	}

	sessionsCtx, sessionsCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer sessionsCancel()
	if err := sessions.Shutdown(sessionsCtx); err != nil {
		log.Warnf("session manager shutdown: %s", err.Error())
	}

	pl.Stop()
	wg.Wait()

	log.Info("shutdown complete")
}
