package arinc665

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func samplePartNumber(t *testing.T) PartNumber {
	t.Helper()
	return mustPartNumber(t, "ABC", "12345678")
}

func TestFileListRoundTrip(t *testing.T) {
	fl := &FileList{
		Version:                 VersionFileListSupplement34,
		PartNumber:              samplePartNumber(t),
		MediaSequenceNumber:     1,
		NumberOfMediaSetMembers: 1,
		Files: []FileListEntry{
			{Filename: "DATA.BIN", Pathname: `\`, MemberSequenceNumber: 1, CRC: 0xABCD, CheckValue: &CheckValue{Type: CheckValueCrc32, Bytes: []byte{1, 2, 3, 4}}},
			{Filename: "LOAD.LUH", Pathname: `\`, MemberSequenceNumber: 1, CRC: 0x1234},
		},
		UserDefinedData: []byte("hello"),
	}
	buf, err := fl.Encode()
	require.NoError(t, err)
	require.Zero(t, len(buf)%2)

	got, err := DecodeFileList(buf)
	require.NoError(t, err)
	require.Equal(t, fl, got)
}

func TestFileListSupplement2HasNoCheckValue(t *testing.T) {
	fl := &FileList{
		Version:                 VersionFileListSupplement2,
		PartNumber:              samplePartNumber(t),
		MediaSequenceNumber:     1,
		NumberOfMediaSetMembers: 1,
		Files: []FileListEntry{
			{Filename: "DATA.BIN", Pathname: `\`, MemberSequenceNumber: 1, CRC: 0xABCD},
		},
	}
	buf, err := fl.Encode()
	require.NoError(t, err)

	got, err := DecodeFileList(buf)
	require.NoError(t, err)
	require.Nil(t, got.Files[0].CheckValue)
}

func TestLoadListRoundTrip(t *testing.T) {
	ll := &LoadList{
		Version:                 VersionLoadListSupplement34,
		PartNumber:              samplePartNumber(t),
		MediaSequenceNumber:     1,
		NumberOfMediaSetMembers: 2,
		Loads: []LoadListEntry{
			{
				PartNumber:           mustPartNumber(t, "DEF", "87654321"),
				HeaderFilename:       "LOAD.LUH",
				MemberSequenceNumber: 1,
				TargetHardwareIDs:    []string{"HW1", "HW2"},
				CheckValue:           &CheckValue{Type: CheckValueCrc16, Bytes: []byte{0xAB, 0xCD}},
			},
		},
	}
	buf, err := ll.Encode()
	require.NoError(t, err)

	got, err := DecodeLoadList(buf)
	require.NoError(t, err)
	require.Equal(t, ll, got)
}

func TestBatchListFileRoundTrip(t *testing.T) {
	bl := &BatchListFile{
		Version:                 VersionBatchListSupplement34,
		PartNumber:              samplePartNumber(t),
		MediaSequenceNumber:     1,
		NumberOfMediaSetMembers: 1,
		Batches: []BatchListEntry{
			{PartNumber: mustPartNumber(t, "GHI", "11223344"), Filename: "BATCH.LUB", MemberSequenceNumber: 1},
		},
	}
	buf, err := bl.Encode()
	require.NoError(t, err)

	got, err := DecodeBatchListFile(buf)
	require.NoError(t, err)
	require.Equal(t, bl, got)
}

func TestListFileHeaderInvariants(t *testing.T) {
	fl := &FileList{
		Version:                 VersionFileListSupplement34,
		PartNumber:              samplePartNumber(t),
		MediaSequenceNumber:     1,
		NumberOfMediaSetMembers: 1,
	}
	buf, err := fl.Encode()
	require.NoError(t, err)
	require.Zero(t, len(buf)%2)
	require.NoError(t, checkFileLength(buf))
	require.NoError(t, verifyFileCRC(buf))
}
