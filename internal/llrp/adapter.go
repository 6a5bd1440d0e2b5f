// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package llrp is the Protocol Adapter (spec §4.4): it owns exactly one
// LLRP 1.1 session for exactly one reader, pushes the inventory
// configuration, and translates RO_ACCESS_REPORTs into model.Read values
// for the pipeline.
package llrp

import (
	"fmt"
	"net"
	"sync/atomic"
	"time"

	govllrp "github.com/iomz/go-llrp"

	"github.com/rfid-ingest/core/internal/metrics"
	"github.com/rfid-ingest/core/internal/model"
	"github.com/rfid-ingest/core/pkg/log"
)

// Submitter is the pipeline's ingress surface, narrowed to what the
// adapter needs.
type Submitter interface {
	Submit(read model.Read) error
}

// StatusUpdater is the Session Manager's status-update API. The adapter
// holds no owning pointer to its Reader — only this narrow callback by id
// (spec §4.5's weak-reference pattern) — so reconnect never races a
// concurrent status mutation.
type StatusUpdater interface {
	UpdateStatus(readerID string, status model.Status, reason string) error
}

// Config tunes connect and micro-batch timing (spec §4.4, §5).
type Config struct {
	ConnectTimeout     time.Duration
	MicroBatchSize     int
	MicroBatchInterval time.Duration
}

// DefaultConfig matches spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:     5 * time.Second,
		MicroBatchSize:     100,
		MicroBatchInterval: 500 * time.Millisecond,
	}
}

// Adapter owns one LLRP session.
type Adapter struct {
	readerID   string
	address    string
	powerLevel model.PowerLevel
	cfg        Config

	updater StatusUpdater
	ingress Submitter
	metrics *metrics.Metrics
	log     log.Scoped

	messageID atomic.Uint32
}

// New constructs an Adapter for one reader. It does not connect. m may be
// nil in tests that don't care about metrics.
func New(readerID, address string, powerLevel model.PowerLevel, cfg Config, updater StatusUpdater, ingress Submitter, m *metrics.Metrics) *Adapter {
	if m == nil {
		m = metrics.New(nil)
	}
	a := &Adapter{
		readerID:   readerID,
		address:    address,
		powerLevel: powerLevel,
		cfg:        cfg,
		updater:    updater,
		ingress:    ingress,
		metrics:    m,
		log:        log.For("llrp", readerID),
	}
	a.messageID.Store(1)
	return a
}

// Run connects, configures the reader's ROSpec, and then blocks in the
// receive loop until the connection fails or stop is closed. It always
// returns a non-nil error on exit except when stop fired first.
func (a *Adapter) Run(stop <-chan struct{}) error {
	conn, err := net.DialTimeout("tcp", a.address, a.cfg.ConnectTimeout)
	if err != nil {
		a.metrics.ReaderConnections.WithLabelValues("failed").Inc()
		a.metrics.ConnectionErrors.WithLabelValues(a.readerID, "dial").Inc()
		a.transitionError(fmt.Sprintf("connect failed: %v", err))
		return fmt.Errorf("llrp: dial %s: %w", a.address, err)
	}
	defer conn.Close()

	if err := a.configure(conn); err != nil {
		a.metrics.ReaderConnections.WithLabelValues("failed").Inc()
		a.metrics.ConnectionErrors.WithLabelValues(a.readerID, "configure").Inc()
		a.transitionError(fmt.Sprintf("configure failed: %v", err))
		return err
	}

	a.metrics.ReaderConnections.WithLabelValues("connected").Inc()
	if err := a.updater.UpdateStatus(a.readerID, model.StatusOnline, "Connected successfully"); err != nil {
		a.log.Warnf("status update to ONLINE rejected: %v", err)
	}

	return a.receiveLoop(conn, stop)
}

// configure runs the connect sequence named in spec §4.4: SET_READER_CONFIG,
// then ADD/ENABLE/START_ROSPEC. govllrp.SetReaderConfig takes no transmit-
// power argument — its emulator-side origin only ever answers the request,
// never builds one with reader-specific fields — so the power level's dBm
// band is logged for operators rather than encoded on the wire; a future
// custom SET_READER_CONFIG encoder (same hand-rolled path as the ROSpec
// messages) would be needed to actually push it.
func (a *Adapter) configure(conn net.Conn) error {
	dbmRange, err := a.powerLevel.DBmRange()
	if err != nil {
		return fmt.Errorf("llrp: %w", err)
	}
	a.log.Debugf("target power level %s (%.0f..%.0f dBm)", a.powerLevel, dbmRange.Min, dbmRange.Max)

	mid := a.nextMessageID()
	if _, err := conn.Write(govllrp.SetReaderConfig(mid)); err != nil {
		return fmt.Errorf("llrp: SET_READER_CONFIG: %w", err)
	}
	if err := a.expectHeader(conn, govllrp.SetReaderConfigResponseHeader); err != nil {
		return fmt.Errorf("llrp: SET_READER_CONFIG_RESPONSE: %w", err)
	}

	if err := encodeAddROSpec(conn, a.nextMessageID(), DefaultROSpec); err != nil {
		return fmt.Errorf("llrp: ADD_ROSPEC: %w", err)
	}
	if err := encodeEnableROSpec(conn, a.nextMessageID(), DefaultROSpec.ROSpecID); err != nil {
		return fmt.Errorf("llrp: ENABLE_ROSPEC: %w", err)
	}
	if err := encodeStartROSpec(conn, a.nextMessageID(), DefaultROSpec.ROSpecID); err != nil {
		return fmt.Errorf("llrp: START_ROSPEC: %w", err)
	}
	return nil
}

// expectHeader blocks for one frame and verifies its message type,
// discarding the body.
func (a *Adapter) expectHeader(conn net.Conn, want uint16) error {
	typ, length, _, err := readFrameHeader(conn)
	if err != nil {
		return err
	}
	if length > 10 {
		body := make([]byte, length-10)
		if _, err := readFull(conn, body); err != nil {
			return err
		}
	}
	if typ != want {
		return fmt.Errorf("unexpected message type %d, want %d", typ, want)
	}
	return nil
}

// reportFrame is one parsed RO_ACCESS_REPORT's observations, stamped with
// the time the frame was read off the wire so the flush path can later
// report how long each observation sat in the adapter's micro-batch.
type reportFrame struct {
	observations []TagObservation
	receivedAt   time.Time
}

// pendingObservation is one tag observation waiting in the micro-batch,
// carrying the receive time of the frame it arrived in.
type pendingObservation struct {
	obs        TagObservation
	receivedAt time.Time
}

// receiveLoop blocks reading frames until stop fires or the connection
// errors, micro-batching RO_ACCESS_REPORT-derived reads before draining
// them to the pipeline (spec §4.4's adapter-side batching).
func (a *Adapter) receiveLoop(conn net.Conn, stop <-chan struct{}) error {
	frames := make(chan reportFrame)
	readErr := make(chan error, 1)

	go func() {
		for {
			typ, length, _, err := readFrameHeader(conn)
			if err != nil {
				readErr <- err
				return
			}
			var body []byte
			if length > 10 {
				body = make([]byte, length-10)
				if _, err := readFull(conn, body); err != nil {
					readErr <- err
					return
				}
			}

			switch typ {
			case govllrp.ROAccessReportHeader:
				frames <- reportFrame{observations: parseROAccessReportBody(body), receivedAt: time.Now()}
			case govllrp.KeepaliveHeader:
				_, _ = conn.Write(govllrp.KeepaliveAck())
			default:
				// Ignored per spec §6.2.
			}
		}
	}()

	flushTicker := time.NewTicker(a.cfg.MicroBatchInterval)
	defer flushTicker.Stop()

	var microBatch []pendingObservation
	flush := func() {
		if len(microBatch) == 0 {
			return
		}
		now := time.Now().UTC()
		flushedAt := time.Now()
		for _, p := range microBatch {
			read, err := model.NewRead(p.obs.EPC, a.readerID, float64(p.obs.PeakRSSI), now)
			if err != nil {
				a.log.Warnf("dropping malformed read: %v", err)
				a.metrics.ProcessingErrors.WithLabelValues("validation").Inc()
				continue
			}
			if err := a.ingress.Submit(read); err != nil {
				a.log.Debugf("ingress rejected read: %v", err)
			}
			a.metrics.ProcessingLatencySeconds.WithLabelValues(a.readerID).Observe(flushedAt.Sub(p.receivedAt).Seconds())
		}
		microBatch = microBatch[:0]
	}

	for {
		select {
		case <-stop:
			flush()
			return nil
		case err := <-readErr:
			flush()
			a.metrics.ReaderConnections.WithLabelValues("disconnected").Inc()
			a.metrics.ConnectionErrors.WithLabelValues(a.readerID, "transport").Inc()
			a.transitionError(fmt.Sprintf("transport error: %v", err))
			return fmt.Errorf("llrp: receive loop: %w", err)
		case fb := <-frames:
			for _, obs := range fb.observations {
				microBatch = append(microBatch, pendingObservation{obs: obs, receivedAt: fb.receivedAt})
			}
			if len(microBatch) >= a.cfg.MicroBatchSize {
				flush()
			}
		case <-flushTicker.C:
			flush()
		}
	}
}

func (a *Adapter) transitionError(reason string) {
	if err := a.updater.UpdateStatus(a.readerID, model.StatusError, reason); err != nil {
		a.log.Warnf("status update to ERROR rejected: %v", err)
	}
}

func (a *Adapter) nextMessageID() uint32 {
	return a.messageID.Add(1)
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
