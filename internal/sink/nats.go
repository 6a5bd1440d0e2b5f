// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sink

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rfid-ingest/core/internal/model"
	"github.com/rfid-ingest/core/pkg/nats"
)

// wireRead is the JSON shape published for each Read; it exists because
// model.Read keeps its fields private to enforce construction-time
// validation.
type wireRead struct {
	ID             string    `json:"id"`
	RFIDTag        string    `json:"rfid_tag"`
	ReaderID       string    `json:"reader_id"`
	SignalStrength float64   `json:"signal_strength"`
	ReadTime       time.Time `json:"read_time"`
	IsProcessed    bool      `json:"is_processed"`
}

func toWire(r model.Read) wireRead {
	return wireRead{
		ID:             r.ID().String(),
		RFIDTag:        r.RFIDTag(),
		ReaderID:       r.ReaderID(),
		SignalStrength: r.SignalStrength(),
		ReadTime:       r.ReadTime(),
		IsProcessed:    r.IsProcessed(),
	}
}

// NATSSink publishes batches of reads as a single JSON array message to a
// configured NATS subject.
type NATSSink struct {
	client  *nats.Client
	subject string
}

// NewNATSSink wraps an already-connected NATS client.
func NewNATSSink(client *nats.Client, subject string) *NATSSink {
	return &NATSSink{client: client, subject: subject}
}

// Publish marshals batch to JSON and publishes it to the sink's subject.
func (s *NATSSink) Publish(batch []model.Read) error {
	wire := make([]wireRead, len(batch))
	for i, r := range batch {
		wire[i] = toWire(r)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("sink: marshal batch: %w", err)
	}

	if err := s.client.Publish(s.subject, data); err != nil {
		return fmt.Errorf("sink: publish batch: %w", err)
	}
	return nil
}
