// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package adminapi exports the inbound admin HTTP handlers named in spec
// §6.3: register, process_batch, and health. The core only exports
// handlers; mounting them behind auth, TLS, or a gateway is an operator
// concern.
package adminapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rfid-ingest/core/internal/model"
	"github.com/rfid-ingest/core/internal/session"
	"github.com/rfid-ingest/core/pkg/log"
)

var scoped = log.For("adminapi", "main")

// Submitter is the batch-submission surface process_batch hands reads to.
type Submitter interface {
	Submit(read model.Read) error
}

// API bundles the Session Manager and pipeline ingress behind the three
// admin endpoints.
type API struct {
	sessions *session.Manager
	ingress  Submitter
}

// New constructs an API. sessions drives register/health; ingress is
// where process_batch hands off constructed Reads (normally the running
// Pipeline).
func New(sessions *session.Manager, ingress Submitter) *API {
	return &API{sessions: sessions, ingress: ingress}
}

// MountRoutes installs the three endpoints under r, matching the
// teacher's "/api" prefix-subrouter convention.
func (a *API) MountRoutes(r *mux.Router) {
	r = r.PathPrefix("/api").Subrouter()
	r.StrictSlash(true)

	r.HandleFunc("/readers/register", a.register).Methods(http.MethodPost)
	r.HandleFunc("/readers/process_batch", a.processBatch).Methods(http.MethodPost)
	r.HandleFunc("/health", a.health).Methods(http.MethodGet)
}

// registerRequest mirrors model.ReaderSpec's JSON shape for the wire.
type registerRequest struct {
	ID             string            `json:"reader_id"`
	Name           string            `json:"name"`
	IP             string            `json:"ip"`
	Port           int               `json:"port"`
	PowerLevel     string            `json:"power_level"`
	ReadIntervalMs int               `json:"read_interval_ms"`
	FilteringOn    bool              `json:"filtering_on"`
	Params         map[string]string `json:"params"`
}

type readerStateResponse struct {
	ReaderID string `json:"reader_id"`
	Status   string `json:"status"`
	Address  string `json:"address"`
}

// ErrorResponse is the uniform error body every handler writes on
// failure.
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func handleError(err error, statusCode int, rw http.ResponseWriter) {
	scoped.Warnf("admin API error: %v", err)
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(statusCode)
	json.NewEncoder(rw).Encode(ErrorResponse{
		Status: http.StatusText(statusCode),
		Error:  err.Error(),
	})
}

func decode(r io.Reader, val interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(val)
}

// register is POST /api/readers/register -> reader_state | error.
func (a *API) register(rw http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(fmt.Errorf("decoding request body: %w", err), http.StatusBadRequest, rw)
		return
	}

	spec := model.ReaderSpec{
		ID:             req.ID,
		Name:           req.Name,
		IP:             req.IP,
		Port:           req.Port,
		PowerLevel:     model.PowerLevel(req.PowerLevel),
		ReadIntervalMs: req.ReadIntervalMs,
		FilteringOn:    req.FilteringOn,
		Params:         req.Params,
	}

	reader, err := a.sessions.Register(spec)
	if err != nil {
		handleError(err, http.StatusUnprocessableEntity, rw)
		return
	}

	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(readerStateResponse{
		ReaderID: reader.ID(),
		Status:   string(reader.Status()),
		Address:  reader.Address(),
	})
}

// rawReport is one manually-submitted report for process_batch, e.g. from
// an admin replay tool.
type rawReport struct {
	RFIDTag        string    `json:"rfid_tag"`
	SignalStrength float64   `json:"signal_strength"`
	ReadTime       time.Time `json:"read_time"`
}

type processBatchRequest struct {
	ReaderID   string      `json:"reader_id"`
	RawReports []rawReport `json:"raw_reports"`
}

type processBatchResponse struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// processBatchTimeout bounds process_batch per spec §6.3.
const processBatchTimeout = 30 * time.Second

// processBatch is POST /api/readers/process_batch -> summary | error. It
// is the manual fan-in path for admin tests and replay: each raw report
// is validated into a model.Read and handed to the same ingress the LLRP
// adapters use.
func (a *API) processBatch(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), processBatchTimeout)
	defer cancel()

	var req processBatchRequest
	if err := decode(r.Body, &req); err != nil {
		handleError(fmt.Errorf("decoding request body: %w", err), http.StatusBadRequest, rw)
		return
	}
	if req.ReaderID == "" {
		handleError(fmt.Errorf("reader_id is required"), http.StatusBadRequest, rw)
		return
	}

	summary := processBatchResponse{}
	for _, raw := range req.RawReports {
		select {
		case <-ctx.Done():
			handleError(ctx.Err(), http.StatusGatewayTimeout, rw)
			return
		default:
		}

		read, err := model.NewRead(raw.RFIDTag, req.ReaderID, raw.SignalStrength, raw.ReadTime)
		if err != nil {
			summary.Rejected++
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		if err := a.ingress.Submit(read); err != nil {
			summary.Rejected++
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		summary.Accepted++
	}

	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(summary)
}

type healthResponse struct {
	Overall   string                       `json:"overall"`
	PerReader map[string]readerHealthEntry `json:"per_reader"`
}

type readerHealthEntry struct {
	Status              string  `json:"status"`
	IsOnline            bool    `json:"is_online"`
	HeartbeatAgeSeconds float64 `json:"heartbeat_age_seconds"`
	HeartbeatOK         bool    `json:"heartbeat_ok"`
	PowerLevel          string  `json:"power_level"`
	SignalStrengthOK    bool    `json:"signal_strength_ok"`
	TotalReads          int     `json:"total_reads"`
	ErrorCount          int     `json:"error_count"`
}

// health is GET /api/health -> {overall, per_reader}.
func (a *API) health(rw http.ResponseWriter, r *http.Request) {
	overall, perReader := a.sessions.OverallHealth()

	resp := healthResponse{
		Overall:   overall,
		PerReader: make(map[string]readerHealthEntry, len(perReader)),
	}
	for id, h := range perReader {
		resp.PerReader[id] = readerHealthEntry{
			Status:              string(h.Status),
			IsOnline:            h.IsOnline,
			HeartbeatAgeSeconds: h.HeartbeatAgeSeconds,
			HeartbeatOK:         h.HeartbeatOK,
			PowerLevel:          string(h.PowerLevel),
			SignalStrengthOK:    h.SignalStrengthOK,
			TotalReads:          h.Metrics.TotalReads,
			ErrorCount:          h.Metrics.ErrorCount,
		}
	}

	rw.Header().Set("Content-Type", "application/json")
	json.NewEncoder(rw).Encode(resp)
}
