// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package nats

// Config holds the connection parameters for a NATS server, as consumed by
// internal/sink's NATS-backed implementation of the downstream-publish
// interface (spec §6.4).
type Config struct {
	// Address is the NATS server URL, e.g. "nats://localhost:4222".
	Address string
	// Username and Password authenticate a plain connection; leave both
	// empty to connect anonymously.
	Username string
	Password string
	// CredsFile points at an NKEY/JWT credentials file; takes precedence
	// over Username/Password when set.
	CredsFile string
	// Subject is the subject clean reads are published to.
	Subject string
}
