// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package llrp

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// LLRP 1.1 parameter type numbers this adapter actually consumes; every
// other parameter inside a TagReportData is skipped, per spec §6.2 ("all
// other LLRP fields are ignored but MUST NOT cause a hard failure").
const (
	paramTagReportData uint16 = 240
	paramEPCData       uint16 = 241
	paramEPC96         uint16 = 13 // TV-encoded, fixed 12-byte value
	paramPeakRSSI      uint16 = 6
)

// DefaultPeakRSSIDBm is used when a TagReportData carries no PeakRSSI
// parameter (spec §4.4).
const DefaultPeakRSSIDBm = -70

// TagObservation is the minimal EPCData the core consumes from one
// RO_ACCESS_REPORT entry.
type TagObservation struct {
	EPC      string
	PeakRSSI int
}

// parseROAccessReportBody walks the RO_ACCESS_REPORT body's TagReportData
// parameters and extracts EPC + PeakRSSI from each. Malformed parameters
// are skipped rather than aborting the whole report.
func parseROAccessReportBody(body []byte) []TagObservation {
	var out []TagObservation
	for len(body) > 0 {
		typ, value, rest, ok := readParameter(body)
		if !ok {
			return out
		}
		body = rest
		if typ == paramTagReportData {
			if obs, ok := parseTagReportData(value); ok {
				out = append(out, obs)
			}
		}
	}
	return out
}

func parseTagReportData(body []byte) (TagObservation, bool) {
	obs := TagObservation{PeakRSSI: DefaultPeakRSSIDBm}
	sawEPC := false

	for len(body) > 0 {
		typ, value, rest, ok := readParameter(body)
		if !ok {
			break
		}
		body = rest

		switch typ {
		case paramEPC96:
			obs.EPC = strings.ToUpper(hex.EncodeToString(value))
			sawEPC = true
		case paramEPCData:
			// EPCData carries a 16-bit bit count followed by the EPC
			// bits; skip the count and hex-encode the remaining bytes.
			if len(value) > 2 {
				obs.EPC = strings.ToUpper(hex.EncodeToString(value[2:]))
				sawEPC = true
			}
		case paramPeakRSSI:
			if len(value) >= 1 {
				obs.PeakRSSI = int(int8(value[0]))
			}
		}
	}

	return obs, sawEPC
}

// readParameter reads one LLRP parameter (TV or TLV encoded) from the
// front of buf, returning its type, value bytes, and the remaining
// buffer. TV parameters are fixed-length per LLRP 1.1; this adapter only
// needs to recognize EPC-96 (12 bytes) among them.
func readParameter(buf []byte) (typ uint16, value []byte, rest []byte, ok bool) {
	if len(buf) < 2 {
		return 0, nil, nil, false
	}

	first := binary.BigEndian.Uint16(buf[0:2])
	if first&0x8000 != 0 {
		// TV encoding: bit 15 set, type is bits 8-14.
		typ = (first >> 8) & 0x7F
		switch uint16(typ) {
		case paramEPC96:
			const fixedLen = 12
			if len(buf) < 2+fixedLen {
				return 0, nil, nil, false
			}
			return typ, buf[2 : 2+fixedLen], buf[2+fixedLen:], true
		default:
			// Unknown TV parameter: we can't know its length, so stop
			// walking this parameter list rather than misparsing.
			return 0, nil, nil, false
		}
	}

	// TLV encoding: type is bits 0-9 of the first 16 bits, followed by a
	// 16-bit total length (header included).
	if len(buf) < 4 {
		return 0, nil, nil, false
	}
	typ = first & 0x03FF
	totalLen := binary.BigEndian.Uint16(buf[2:4])
	if int(totalLen) < 4 || len(buf) < int(totalLen) {
		return 0, nil, nil, false
	}
	return typ, buf[4:totalLen], buf[totalLen:], true
}
