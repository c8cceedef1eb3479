package arinc665

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckValueComputeAndCodec(t *testing.T) {
	data := []byte("some file contents")
	for _, typ := range []CheckValueType{
		CheckValueCrc8, CheckValueCrc16, CheckValueCrc32, CheckValueCrc64,
		CheckValueSha1, CheckValueSha256, CheckValueSha512,
	} {
		cv, err := Compute(typ, data)
		require.NoError(t, err)
		require.Len(t, cv.Bytes, typ.Size())

		w := newWriter()
		encodeCheckValue(w, cv)
		r := newReader(w.b)
		got, err := decodeCheckValue(r)
		require.NoError(t, err)
		require.Equal(t, cv, got)
	}
}

func TestCheckValueNotUsedEncodesAsZeroLength(t *testing.T) {
	w := newWriter()
	encodeCheckValue(w, CheckValue{Type: CheckValueNotUsed})
	require.Len(t, w.b, 2)

	r := newReader(w.b)
	cv, err := decodeCheckValue(r)
	require.NoError(t, err)
	require.Equal(t, CheckValueNotUsed, cv.Type)
}

func TestCheckValueTypeStringRoundTrip(t *testing.T) {
	for _, typ := range []CheckValueType{
		CheckValueNotUsed, CheckValueCrc8, CheckValueCrc16, CheckValueCrc32,
		CheckValueCrc64, CheckValueSha1, CheckValueSha256, CheckValueSha512,
	} {
		got, ok := ParseCheckValueType(typ.String())
		require.True(t, ok)
		require.Equal(t, typ, got)
	}
	_, ok := ParseCheckValueType("bogus")
	require.False(t, ok)
}
