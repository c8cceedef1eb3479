package arinc665

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartNumberCheckCode(t *testing.T) {
	pn, err := NewPartNumber("EBE", "54972000")
	require.NoError(t, err)
	require.Equal(t, "EBE4F54972000", pn.String())

	_, err = ParsePartNumber("EBE4F54972000")
	require.NoError(t, err)

	_, err = ParsePartNumber("EBE0054972000")
	require.Error(t, err)
}

func TestPartNumberLaw(t *testing.T) {
	// For every valid 13-char string produced by NewPartNumber, parsing it
	// back must recover the same string (§8 "PartNumber law").
	cases := []struct{ manufacturer, product string }{
		{"ABC", "12345678"},
		{"XYZ", "ABCDEFGH"},
		{"A1B", "9999999A"},
	}
	for _, c := range cases {
		pn, err := NewPartNumber(c.manufacturer, c.product)
		require.NoError(t, err)
		s := pn.String()
		back, err := ParsePartNumber(s)
		require.NoError(t, err)
		require.Equal(t, s, back.String())
	}
}

func TestMediumNumberSaturation(t *testing.T) {
	require.Equal(t, MediumNumber(255), MediumNumber(255).Inc())
	require.Equal(t, MediumNumber(1), MediumNumber(1).Dec())
	require.Equal(t, "007", MediumNumber(7).String())
	require.Equal(t, "255", MediumNumber(255).String())
}

func TestValidFilename(t *testing.T) {
	valid := []string{"A", "FILE.BIN", "A_B-C.1"}
	invalid := []string{"", ".", "..", "lower.bin", "with space", string(make([]byte, 256))}
	for _, s := range valid {
		require.True(t, ValidFilename(s), "ValidFilename(%q)", s)
	}
	for _, s := range invalid {
		require.False(t, ValidFilename(s), "ValidFilename(%q)", s)
	}
}
