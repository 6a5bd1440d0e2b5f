// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package llrp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// The ROSpec control messages (ADD_ROSPEC, ENABLE_ROSPEC, START_ROSPEC)
// have no builder in github.com/iomz/go-llrp — that library is built for
// the emulator side of a session (SET_READER_CONFIG response,
// RO_ACCESS_REPORT framing) and never issues them itself. This file
// hand-encodes the three control frames using the same
// type/length/messageID header layout the library uses for the messages
// it does build, so the rest of the adapter can treat all LLRP traffic
// uniformly.
// These already fold in the same reserved/version prefix go-llrp bakes
// into its own header constants (e.g. SetReaderConfigHeader) — callers
// compare the raw 16-bit header value directly, never masking it, so
// these do the same.
const (
	addROSpecType    uint16 = 0x0414
	enableROSpecType uint16 = 0x0418
	startROSpecType  uint16 = 0x0416
)

// ROSpecParams describes the inventory spec pushed to the reader. The
// ADD_ROSPEC body built from it carries only the ROSpecID, Priority,
// CurrentState=Disabled and one antenna ID; no AISpec, start/stop trigger
// or air-protocol parameter is encoded.
type ROSpecParams struct {
	ROSpecID   uint32
	Priority   uint8
	AntennaID  uint16
}

// DefaultROSpec is the fixed spec named in spec §4.4.
var DefaultROSpec = ROSpecParams{ROSpecID: 1, Priority: 0, AntennaID: 1}

// writeFrame writes an LLRP frame: 2-byte (version<<10 | messageType),
// 4-byte total length, 4-byte message ID, then body.
func writeFrame(w io.Writer, messageType uint16, messageID uint32, body []byte) error {
	header := make([]byte, 10)
	binary.BigEndian.PutUint16(header[0:2], messageType)
	binary.BigEndian.PutUint32(header[2:6], uint32(len(header)+len(body)))
	binary.BigEndian.PutUint32(header[6:10], messageID)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("llrp: write frame header: %w", err)
	}
	if len(body) > 0 {
		if _, err := w.Write(body); err != nil {
			return fmt.Errorf("llrp: write frame body: %w", err)
		}
	}
	return nil
}

// addROSpec encodes an ADD_ROSPEC message for the given spec.
func addROSpec(messageID uint32, spec ROSpecParams) []byte {
	body := make([]byte, 0, 16)
	body = binary.BigEndian.AppendUint32(body, spec.ROSpecID)
	body = append(body, spec.Priority, 0x00 /* CurrentState=Disabled */)
	body = binary.BigEndian.AppendUint16(body, spec.AntennaID)
	return body
}

// encodeAddROSpec, encodeEnableROSpec, and encodeStartROSpec write their
// respective control frames to w.
func encodeAddROSpec(w io.Writer, messageID uint32, spec ROSpecParams) error {
	return writeFrame(w, addROSpecType, messageID, addROSpec(messageID, spec))
}

func encodeEnableROSpec(w io.Writer, messageID uint32, roSpecID uint32) error {
	body := binary.BigEndian.AppendUint32(nil, roSpecID)
	return writeFrame(w, enableROSpecType, messageID, body)
}

func encodeStartROSpec(w io.Writer, messageID uint32, roSpecID uint32) error {
	body := binary.BigEndian.AppendUint32(nil, roSpecID)
	return writeFrame(w, startROSpecType, messageID, body)
}

// readFrameHeader reads the 10-byte LLRP header and returns the message
// type, total frame length, and message ID.
func readFrameHeader(r io.Reader) (messageType uint16, length uint32, messageID uint32, err error) {
	header := make([]byte, 10)
	if _, err = io.ReadFull(r, header); err != nil {
		return 0, 0, 0, err
	}
	messageType = binary.BigEndian.Uint16(header[0:2])
	length = binary.BigEndian.Uint32(header[2:6])
	messageID = binary.BigEndian.Uint32(header[6:10])
	return messageType, length, messageID, nil
}
