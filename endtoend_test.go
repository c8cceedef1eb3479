package arinc665

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// memoryStore is a minimal in-memory ReadFile/WriteFile backing, keyed by
// medium number and relative path.
type memoryStore struct {
	mu   sync.Mutex
	data map[MediumNumber]map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[MediumNumber]map[string][]byte{}}
}

func (s *memoryStore) read(n MediumNumber, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[n]
	if !ok {
		return nil, errIoNotFound(n, path)
	}
	buf, ok := m[path]
	if !ok {
		return nil, errIoNotFound(n, path)
	}
	return append([]byte(nil), buf...), nil
}

func (s *memoryStore) write(n MediumNumber, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[n]
	if !ok {
		m = map[string][]byte{}
		s.data[n] = m
	}
	m[path] = append([]byte(nil), data...)
	return nil
}

func errIoNotFound(n MediumNumber, path string) error {
	return &notFoundError{n: n, path: path}
}

type notFoundError struct {
	n    MediumNumber
	path string
}

func (e *notFoundError) Error() string { return "no such file on medium " + e.n.String() + ": " + e.path }

// buildTwoMediumSet constructs the §8 end-to-end scenario: medium 1
// carries /A/DATA.BIN and /LOAD.LUH (a Load referencing DATA.BIN as its
// data file and AUX.BIN on medium 2 as a support file); medium 2 carries
// /AUX.BIN.
func buildTwoMediumSet(t *testing.T) (*MediaSet, *File, *File, *File) {
	t.Helper()
	ms := NewMediaSet(mustPartNumber(t, "ABC", "12345678"))
	one := MediumNumber(1)
	two := MediumNumber(2)

	a, err := ms.AddSubdirectory("A")
	require.NoError(t, err)

	dataFile, err := a.AddRegularFile("DATA.BIN", &one)
	require.NoError(t, err)

	auxFile, err := ms.AddRegularFile("AUX.BIN", &two)
	require.NoError(t, err)

	loadFile, err := ms.AddLoad("LOAD.LUH", &one)
	require.NoError(t, err)

	ld, _ := loadFile.Load()
	ld.PartNumber = mustPartNumber(t, "DEF", "87654321")
	ld.TargetHardware = []TargetHardware{{ThwID: "HW1"}}
	ld.DataFiles = []LoadFileRef{NewLoadFileRef(dataFile, ms.PartNumber)}
	ld.SupportFiles = []LoadFileRef{NewLoadFileRef(auxFile, ms.PartNumber)}

	return ms, dataFile, auxFile, loadFile
}

func sourcePathFor(f *File) (string, bool) {
	if f.Type() != FileTypeRegular {
		return "", false
	}
	return f.Path(), true
}

func compileTwoMediumSet(t *testing.T, ms *MediaSet, dataFile, auxFile *File, store *memoryStore) {
	t.Helper()
	sources := map[string][]byte{
		dataFile.Path(): []byte("data file contents"),
		auxFile.Path():  []byte("aux file contents"),
	}
	_, err := Compile(CompileOptions{
		MediaSet:    ms,
		Supplement:  Supplement34,
		LoadPolicy:  CreateNew,
		BatchPolicy: CreateNew,
		SourcePath:  sourcePathFor,
		ReadSource:  func(path string) ([]byte, error) { return sources[path], nil },
		WriteFile:   store.write,
	})
	require.NoError(t, err)
}

func TestCompileDecompileRoundTrip(t *testing.T) {
	ms, dataFile, auxFile, _ := buildTwoMediumSet(t)
	store := newMemoryStore()
	compileTwoMediumSet(t, ms, dataFile, auxFile, store)

	result, err := Decompile(DecompileOptions{
		Media:              []MediumNumber{1, 2},
		ReadFile:           store.read,
		CheckFileIntegrity: true,
	})
	require.NoError(t, err)

	got := result.MediaSet
	require.Equal(t, ms.PartNumber, got.PartNumber)
	require.Equal(t, MediumNumber(2), got.LastMediumNumber())

	reDataFile, ok := got.FileByPath("/A/DATA.BIN")
	require.True(t, ok)

	reAuxFile, ok := got.FileByPath("/AUX.BIN")
	require.True(t, ok)

	require.Len(t, got.LoadsWithFile(reDataFile), 1)
	require.Len(t, got.LoadsWithFile(reAuxFile), 1)

	ok2, err := Validate(ValidateOptions{Media: []MediumNumber{1, 2}, ReadFile: store.read})
	require.NoError(t, err)
	require.True(t, ok2, "Validate returned false on a freshly compiled media set")
}

func TestRemoveFilePrunesCrossReferencesAndLastMedium(t *testing.T) {
	ms, _, auxFile, loadFile := buildTwoMediumSet(t)
	require.NoError(t, ms.RemoveFile(auxFile.Name()))

	ld, _ := loadFile.Load()
	var remaining int
	for _, ref := range ld.SupportFiles {
		if _, ok := ref.File(ms); ok {
			remaining++
		}
	}
	require.Zero(t, remaining)
	require.Equal(t, MediumNumber(1), ms.LastMediumNumber())

	medium2 := ms.Media()[1]
	require.Empty(t, medium2.Root().Files())
}

func TestValidateDetectsCorruptedFile(t *testing.T) {
	ms, dataFile, auxFile, _ := buildTwoMediumSet(t)
	store := newMemoryStore()
	compileTwoMediumSet(t, ms, dataFile, auxFile, store)

	corrupted, err := store.read(1, "A/DATA.BIN")
	require.NoError(t, err)
	corrupted[0] ^= 0xFF
	require.NoError(t, store.write(1, "A/DATA.BIN", corrupted))

	var findings []string
	ok, err := Validate(ValidateOptions{
		Media:    []MediumNumber{1, 2},
		ReadFile: store.read,
		Info:     func(msg string) { findings = append(findings, msg) },
	})
	require.NoError(t, err)
	require.False(t, ok, "Validate reported success over a corrupted file")
	require.NotEmpty(t, findings)
}

// TestDecompileDetectsLoadCRCMismatchWithoutDeclaredCheckValue exercises
// the mandatory `.LUH` trailer LoadCRC check (§4.G step 7) independent of
// any optional declared load check value, which generateLoadBytes leaves
// unset under CreateNew in this scenario. Every data/support file's
// CRC-16 still matches (Decompile does not compare the re-encoded
// LOAD.LUH against its FILES.LUM CRC); only the load header's own
// trailer is wrong, so this only fails if the trailer is checked
// unconditionally.
func TestDecompileDetectsLoadCRCMismatchWithoutDeclaredCheckValue(t *testing.T) {
	ms, dataFile, auxFile, _ := buildTwoMediumSet(t)
	store := newMemoryStore()
	compileTwoMediumSet(t, ms, dataFile, auxFile, store)

	luhBuf, err := store.read(1, "LOAD.LUH")
	require.NoError(t, err)
	lh, err := DecodeLoadHeader(luhBuf)
	require.NoError(t, err)
	require.Nil(t, lh.LoadCheckValue, "scenario requires no declared load check value")

	lh.LoadCRC ^= 0xFFFFFFFF
	tampered, err := lh.Encode()
	require.NoError(t, err)
	require.NoError(t, store.write(1, "LOAD.LUH", tampered))

	_, err = Decompile(DecompileOptions{
		Media:              []MediumNumber{1, 2},
		ReadFile:           store.read,
		CheckFileIntegrity: true,
	})
	require.ErrorIs(t, err, BadCrc)
}
