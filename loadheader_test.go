package arinc665

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadHeaderRoundTrip(t *testing.T) {
	lh := &LoadHeader{
		Version:    VersionLoadHeaderSupplement34,
		PartNumber: samplePartNumber(t),
		Type:       &LoadType{Description: "operational software", ID: 1},
		PartFlags:  0x0001,
		TargetHardware: []TargetHardware{
			{ThwID: "HW1", Positions: []string{"POS1", "POS2"}},
		},
		DataFiles: []LoadFileEntry{
			{Filename: "DATA.BIN", PartNumber: mustPartNumber(t, "DEF", "87654321"), Length: 1024, CRC: 0xBEEF},
		},
		SupportFiles:    nil,
		UserDefinedData: []byte("user data"),
		LoadCheckValue:  &CheckValue{Type: CheckValueCrc32, Bytes: []byte{1, 2, 3, 4}},
		FilesCheckValue: &CheckValue{Type: CheckValueCrc32, Bytes: []byte{5, 6, 7, 8}},
		LoadCRC:         0xDEADBEEF,
	}
	buf, err := lh.Encode()
	require.NoError(t, err)
	require.Zero(t, len(buf)%2)

	got, err := DecodeLoadHeader(buf)
	require.NoError(t, err)
	require.Equal(t, lh, got)
}

func TestLoadHeaderTrailerIsTwoPart(t *testing.T) {
	lh := &LoadHeader{
		Version:    VersionLoadHeaderSupplement34,
		PartNumber: samplePartNumber(t),
		TargetHardware: []TargetHardware{
			{ThwID: "HW1"},
		},
		LoadCRC: 0x01020304,
	}
	buf, err := lh.Encode()
	require.NoError(t, err)

	headerCRC, loadCRC, err := decodeLUHTrailer(buf)
	require.NoError(t, err)
	require.Equal(t, lh.LoadCRC, loadCRC)

	wantHeaderCRC := CRC16(buf[:len(buf)-6])
	require.Equal(t, wantHeaderCRC, headerCRC)
}

func TestLoadHeaderSupplement2OmitsTypeAndCheckValues(t *testing.T) {
	lh := &LoadHeader{
		Version:    VersionLoadHeaderSupplement2,
		PartNumber: samplePartNumber(t),
		TargetHardware: []TargetHardware{
			{ThwID: "HW1"},
		},
	}
	buf, err := lh.Encode()
	require.NoError(t, err)

	got, err := DecodeLoadHeader(buf)
	require.NoError(t, err)
	require.Nil(t, got.Type)
	require.Nil(t, got.LoadCheckValue)
	require.Nil(t, got.FilesCheckValue)
}
