package arinc665

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func repeat(b []byte, n int) []byte {
	out := make([]byte, 0, len(b)*n)
	for i := 0; i < n; i++ {
		out = append(out, b...)
	}
	return out
}

func incrementingBytes() []byte {
	out := make([]byte, 256)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

func TestCRC16CanonicalVectors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want uint16
	}{
		{"0xFF*128", repeat([]byte{0xFF}, 128), 0x1DA3},
		{"0x00*100", repeat([]byte{0x00}, 100), 0x4634},
		{"0xAA55*128", repeat([]byte{0xAA, 0x55}, 128), 0x1D7E},
		{"incrementing", incrementingBytes(), 0x3FBD},
	}
	for _, c := range cases {
		require.Equal(t, c.want, CRC16(c.in), c.name)
	}
}

func TestCRC32CanonicalVectors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want uint32
	}{
		{"0xFF*128", repeat([]byte{0xFF}, 128), 0x322AB4A6},
		{"0x00*100", repeat([]byte{0x00}, 100), 0x53631199},
		{"0xAA55*128", repeat([]byte{0xAA, 0x55}, 128), 0xC2F270BC},
		{"incrementing", incrementingBytes(), 0xB6B5EE95},
	}
	for _, c := range cases {
		require.Equal(t, c.want, CRC32(c.in), c.name)
	}
}

func TestCRC64CanonicalVectors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want uint64
	}{
		{"0xFF*128", repeat([]byte{0xFF}, 128), 0x034528B5989BED4D},
		{"0x00*100", repeat([]byte{0x00}, 100), 0x5B2ACFD2703ED63D},
		{"0xAA55*128", repeat([]byte{0xAA, 0x55}, 128), 0x428A028B474233E4},
		{"incrementing", incrementingBytes(), 0x59C3325B2927A19A},
	}
	for _, c := range cases {
		require.Equal(t, c.want, CRC64(c.in), c.name)
	}
}
