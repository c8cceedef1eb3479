package arinc665

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderWriterRoundTrip(t *testing.T) {
	w := newWriter()
	w.writeU8(0x12)
	w.writeU16(0x3456)
	w.writeU32(0x789ABCDE)
	w.writeU64(0x0102030405060708)
	w.writeString("ODD")
	w.writeString("EVEN")
	w.writeStrings([]string{"A", "BB", "CCC"})

	r := newReader(w.b)
	v8, err := r.readU8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x12), v8)

	v16, err := r.readU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x3456), v16)

	v32, err := r.readU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x789ABCDE), v32)

	v64, err := r.readU64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), v64)

	s, err := r.readString()
	require.NoError(t, err)
	require.Equal(t, "ODD", s)

	s, err = r.readString()
	require.NoError(t, err)
	require.Equal(t, "EVEN", s)

	ss, err := r.readStrings()
	require.NoError(t, err)
	require.Equal(t, []string{"A", "BB", "CCC"}, ss)

	require.Equal(t, 0, r.remaining())
}

func TestStringPaddingIsEven(t *testing.T) {
	for _, s := range []string{"", "A", "AB", "ABC"} {
		w := newWriter()
		w.writeString(s)
		require.Zero(t, len(w.b)%2, "writeString(%q) produced odd-length buffer %d", s, len(w.b))
	}
}

func TestBadPaddingRejected(t *testing.T) {
	w := newWriter()
	w.writeU16(1) // odd length
	w.writeBytes([]byte{'A'})
	w.writeU8(0x01) // non-zero pad byte, should be rejected
	r := newReader(w.b)
	_, err := r.readString()
	require.Error(t, err)
}

func TestSeekWordsBounds(t *testing.T) {
	r := newReader(make([]byte, 8))
	require.NoError(t, r.seekWords(4))
	require.Error(t, r.seekWords(5))
}

func TestPad16(t *testing.T) {
	require.Equal(t, []byte{1, 2, 3, 0}, pad16([]byte{1, 2, 3}))
	require.Equal(t, []byte{1, 2}, pad16([]byte{1, 2}))
}
