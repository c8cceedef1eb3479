package arinc665

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustPartNumber(t *testing.T, manufacturer, product string) PartNumber {
	t.Helper()
	pn, err := NewPartNumber(manufacturer, product)
	require.NoError(t, err)
	return pn
}

func TestTreeOperationsAndNameCollisions(t *testing.T) {
	ms := NewMediaSet(mustPartNumber(t, "ABC", "12345678"))
	sub, err := ms.AddSubdirectory("A")
	require.NoError(t, err)

	_, err = sub.AddRegularFile("DATA.BIN", nil)
	require.NoError(t, err)

	_, err = sub.AddSubdirectory("DATA.BIN")
	require.ErrorIs(t, err, NameExists)

	_, err = ms.AddSubdirectory("A")
	require.ErrorIs(t, err, NameExists)

	_, err = sub.AddRegularFile("bad name.bin", nil)
	require.ErrorIs(t, err, InvalidFilename)
}

func TestPathResolution(t *testing.T) {
	ms := NewMediaSet(mustPartNumber(t, "ABC", "12345678"))
	sub, err := ms.AddSubdirectory("A")
	require.NoError(t, err)

	f, err := sub.AddRegularFile("DATA.BIN", nil)
	require.NoError(t, err)
	require.Equal(t, "/A/DATA.BIN", f.Path())

	got, ok := ms.FileByPath("/A/DATA.BIN")
	require.True(t, ok)
	require.Equal(t, f, got)
}

func TestLastMediumNumberTracksRemovals(t *testing.T) {
	ms := NewMediaSet(mustPartNumber(t, "ABC", "12345678"))
	two := MediumNumber(2)
	_, err := ms.AddRegularFile("A.BIN", nil)
	require.NoError(t, err)

	f2, err := ms.AddRegularFile("B.BIN", &two)
	require.NoError(t, err)
	require.Equal(t, MediumNumber(2), ms.LastMediumNumber())

	require.NoError(t, ms.RemoveFile(f2.Name()))
	require.Equal(t, MediumNumber(1), ms.LastMediumNumber())
}

func TestWeakReferenceSafetyOnRemoval(t *testing.T) {
	ms := NewMediaSet(mustPartNumber(t, "ABC", "12345678"))
	target, err := ms.AddRegularFile("AUX.BIN", nil)
	require.NoError(t, err)

	load, err := ms.AddLoad("LOAD.LUH", nil)
	require.NoError(t, err)

	ld, ok := load.Load()
	require.True(t, ok)
	ld.SupportFiles = []LoadFileRef{NewLoadFileRef(target, mustPartNumber(t, "ABC", "12345678"))}

	got := ms.LoadsWithFile(target)
	require.Len(t, got, 1)
	require.Equal(t, load, got[0])

	require.NoError(t, ms.RemoveFile("AUX.BIN"))
	require.Empty(t, ms.LoadsWithFile(target))

	// recursiveLoads must still complete without panicking on the dangling
	// reference (§8 "weak reference safety").
	require.Len(t, ms.RecursiveLoads(), 1)

	_, ok = ld.SupportFiles[0].File(ms)
	require.False(t, ok)
}

func TestHandleGenerationInvalidatesOnRelease(t *testing.T) {
	a := newArena[int]()
	h := a.alloc(42)
	v, ok := a.get(h)
	require.True(t, ok)
	require.Equal(t, 42, v)

	a.release(h)
	_, ok = a.get(h)
	require.False(t, ok)

	h2 := a.alloc(99)
	require.False(t, h2.index == h.index && h2.generation == h.generation)

	v, ok = a.get(h2)
	require.True(t, ok)
	require.Equal(t, 99, v)
}

func TestRecursiveFilesDeterministicOrder(t *testing.T) {
	ms := NewMediaSet(mustPartNumber(t, "ABC", "12345678"))
	sub, err := ms.AddSubdirectory("A")
	require.NoError(t, err)

	inSub, err := sub.AddRegularFile("INSUB.BIN", nil)
	require.NoError(t, err)

	atRoot, err := ms.AddRegularFile("ATROOT.BIN", nil)
	require.NoError(t, err)

	files := ms.RecursiveFiles()
	require.Equal(t, []*File{inSub, atRoot}, files)
}
