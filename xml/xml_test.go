package xml

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	arinc665 "github.com/arinc665/go-arinc665"
)

func mustPartNumber(t *testing.T, manufacturer, product string) arinc665.PartNumber {
	t.Helper()
	pn, err := arinc665.NewPartNumber(manufacturer, product)
	require.NoError(t, err)
	return pn
}

// buildForwardReferencingSet adds the Load to the model before the data
// file it references. Save writes each directory's regular files before
// its loads, so the saved document names ZDATA.BIN ahead of LOAD.LUH;
// Load's second pass resolves the reference once the tree exists.
func buildForwardReferencingSet(t *testing.T) *arinc665.MediaSet {
	t.Helper()
	ms := arinc665.NewMediaSet(mustPartNumber(t, "ABC", "12345678"))

	loadFile, err := ms.AddLoad("LOAD.LUH", nil)
	require.NoError(t, err)

	dataFile, err := ms.AddRegularFile("ZDATA.BIN", nil)
	require.NoError(t, err)

	ld, _ := loadFile.Load()
	ld.PartNumber = mustPartNumber(t, "DEF", "87654321")
	ld.TargetHardware = []arinc665.TargetHardware{{ThwID: "HW1", Positions: []string{"POS1"}}}
	ld.DataFiles = []arinc665.LoadFileRef{arinc665.NewLoadFileRef(dataFile, ms.PartNumber)}

	batchFile, err := ms.AddBatch("BATCH.LUB", nil)
	require.NoError(t, err)

	bd, _ := batchFile.Batch()
	bd.PartNumber = mustPartNumber(t, "GHI", "11223344")
	bd.Comment = "acceptance batch"
	target := arinc665.BatchTarget{ThwIDPosition: "HW1-POSA"}
	target.AddLoad(loadFile)
	bd.Targets = []arinc665.BatchTarget{target}

	return ms
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ms := buildForwardReferencingSet(t)
	paths := FilePathMapping{"/ZDATA.BIN": "testdata/zdata.bin"}

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, ms, paths))

	got, gotPaths, err := Load(&buf)
	require.NoError(t, err)
	require.Equal(t, ms.PartNumber, got.PartNumber)
	require.Equal(t, "testdata/zdata.bin", gotPaths["/ZDATA.BIN"])

	loadFile, ok := got.FileByName("LOAD.LUH")
	require.True(t, ok, "reconstructed model missing LOAD.LUH")

	ld, ok := loadFile.Load()
	require.True(t, ok, "LOAD.LUH did not round-trip as a Load")
	require.Len(t, ld.DataFiles, 1)

	resolved, ok := ld.DataFiles[0].File(got)
	require.True(t, ok)
	require.Equal(t, "ZDATA.BIN", resolved.Name())

	batchFile, ok := got.FileByName("BATCH.LUB")
	require.True(t, ok, "reconstructed model missing BATCH.LUB")

	bd, ok := batchFile.Batch()
	require.True(t, ok, "BATCH.LUB did not round-trip as a Batch")
	require.Len(t, bd.Targets, 1)

	loads := bd.Targets[0].Loads(got)
	require.Len(t, loads, 1)
	require.Equal(t, "LOAD.LUH", loads[0].Name())
}

func TestLoadRejectsUnknownCheckValueType(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<MediaSet partNumber="ABC4812345678" mediaSetCheckValueType="bogus">
</MediaSet>
`
	_, _, err := Load(bytes.NewBufferString(doc))
	require.Error(t, err)
}
