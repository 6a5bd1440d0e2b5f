// Copyright (c) The rfid-ingest Authors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package llrp

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildEPC96TagReportData constructs a single TagReportData parameter
// containing an EPC-96 TV parameter and a PeakRSSI TLV parameter.
func buildEPC96TagReportData(t *testing.T, epcHex string, rssi int8) []byte {
	t.Helper()
	epc, err := hex.DecodeString(epcHex)
	require.NoError(t, err)
	require.Len(t, epc, 12)

	// EPC-96 TV parameter: bit 15 set, type in bits 8-14 (13), 12-byte value.
	epcParam := make([]byte, 2+12)
	binary.BigEndian.PutUint16(epcParam[0:2], 0x8000|uint16(paramEPC96)<<8)
	copy(epcParam[2:], epc)

	// PeakRSSI TLV parameter: type 6, total length 5 (4 header + 1 body).
	rssiParam := make([]byte, 5)
	binary.BigEndian.PutUint16(rssiParam[0:2], paramPeakRSSI)
	binary.BigEndian.PutUint16(rssiParam[2:4], 5)
	rssiParam[4] = byte(rssi)

	inner := append(epcParam, rssiParam...)

	trd := make([]byte, 4+len(inner))
	binary.BigEndian.PutUint16(trd[0:2], paramTagReportData)
	binary.BigEndian.PutUint16(trd[2:4], uint16(len(trd)))
	copy(trd[4:], inner)
	return trd
}

func TestParseROAccessReportBody_SingleTag(t *testing.T) {
	trd := buildEPC96TagReportData(t, "E200123456789012345678AB", -55)

	obs := parseROAccessReportBody(trd)
	require.Len(t, obs, 1)
	assert.Equal(t, "E200123456789012345678AB", obs[0].EPC)
	assert.Equal(t, -55, obs[0].PeakRSSI)
}

func TestParseROAccessReportBody_MissingRSSIDefaults(t *testing.T) {
	epc, err := hex.DecodeString("E200123456789012345678AB")
	require.NoError(t, err)

	epcParam := make([]byte, 2+12)
	binary.BigEndian.PutUint16(epcParam[0:2], 0x8000|uint16(paramEPC96)<<8)
	copy(epcParam[2:], epc)

	trd := make([]byte, 4+len(epcParam))
	binary.BigEndian.PutUint16(trd[0:2], paramTagReportData)
	binary.BigEndian.PutUint16(trd[2:4], uint16(len(trd)))
	copy(trd[4:], epcParam)

	obs := parseROAccessReportBody(trd)
	require.Len(t, obs, 1)
	assert.Equal(t, DefaultPeakRSSIDBm, obs[0].PeakRSSI)
}

func TestParseROAccessReportBody_MultipleTags(t *testing.T) {
	trd1 := buildEPC96TagReportData(t, "E200123456789012345678AB", -50)
	trd2 := buildEPC96TagReportData(t, "E200123456789012345678CD", -60)

	body := append(trd1, trd2...)
	obs := parseROAccessReportBody(body)
	require.Len(t, obs, 2)
	assert.Equal(t, "E200123456789012345678AB", obs[0].EPC)
	assert.Equal(t, "E200123456789012345678CD", obs[1].EPC)
}

func TestParseROAccessReportBody_Empty(t *testing.T) {
	assert.Empty(t, parseROAccessReportBody(nil))
}
