package arinc665

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatchFileRoundTrip(t *testing.T) {
	bf := &BatchFile{
		Version:    VersionBatchSupplement34,
		PartNumber: samplePartNumber(t),
		Comment:    "acceptance test batch",
		Targets: []BatchFileTarget{
			{
				ThwIDPosition: "HW1-POSA",
				Loads: []BatchLoadRef{
					{HeaderFilename: "LOAD1.LUH", PartNumber: mustPartNumber(t, "DEF", "87654321")},
					{HeaderFilename: "LOAD2.LUH", PartNumber: mustPartNumber(t, "GHI", "11223344")},
				},
			},
			{
				ThwIDPosition: "HW2-POSB",
				Loads:         []BatchLoadRef{{HeaderFilename: "LOAD1.LUH", PartNumber: mustPartNumber(t, "DEF", "87654321")}},
			},
		},
	}
	buf, err := bf.Encode()
	require.NoError(t, err)
	require.Zero(t, len(buf)%2)

	got, err := DecodeBatchFile(buf)
	require.NoError(t, err)
	require.Equal(t, bf, got)
}

func TestBatchFileEmptyCommentStillEncodesBlock(t *testing.T) {
	bf := &BatchFile{
		Version:    VersionBatchSupplement34,
		PartNumber: samplePartNumber(t),
		Targets: []BatchFileTarget{
			{ThwIDPosition: "HW1-POSA", Loads: []BatchLoadRef{{HeaderFilename: "LOAD1.LUH", PartNumber: mustPartNumber(t, "DEF", "87654321")}}},
		},
	}
	buf, err := bf.Encode()
	require.NoError(t, err)
	// Pointer slot 2 (the comment block) follows the 8-byte header and
	// two 4-byte slots; zero would mean an absent block.
	require.NotZero(t, binary.BigEndian.Uint32(buf[16:20]))

	got, err := DecodeBatchFile(buf)
	require.NoError(t, err)
	require.Empty(t, got.Comment)
}
