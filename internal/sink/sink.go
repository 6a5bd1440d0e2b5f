// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sink defines the downstream publication interface the pipeline
// calls after filtering and deduplication (spec §6.4), plus a NATS-backed
// implementation.
package sink

import "github.com/rfid-ingest/core/internal/model"

// Sink publishes a clean batch of reads downstream. Retry policy, if any,
// is the Sink implementation's concern; the pipeline treats any returned
// error as a batch error and does not retry the same reads.
type Sink interface {
	Publish(batch []model.Read) error
}
