package arinc665

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DecompileOptions is the input to Decompile (§4.G).
type DecompileOptions struct {
	// Media lists every medium number to read, in any order (Decompile
	// sorts ascending before processing, per the §4.G ordering
	// guarantee).
	Media []MediumNumber
	// ReadFile retrieves a file's bytes given its medium and relative
	// path (§6).
	ReadFile ReadFile
	// FileSize is optional; nil means "derive from ReadFile" (§6).
	FileSize FileSize
	// CheckFileIntegrity enables §4.G step 7's CRC/check-value
	// verification pass.
	CheckFileIntegrity bool
	// Progress, if non-nil, is called once per medium, once per load and
	// once per batch (§4.G "Ordering guarantees").
	Progress ProgressHandler
	// Cancel, if non-nil, is polled between media and between files
	// within a medium (§5).
	Cancel CancelFunc
}

// DecompileResult is the output of Decompile: the reconstructed model
// plus every check value recovered while reading list files (§4.G step
// 8).
type DecompileResult struct {
	MediaSet    *MediaSet
	CheckValues map[*File]CheckValue
}

// Decompile reconstructs a MediaSet from the on-disk contents of one or
// more media, following §4.G's eight-step algorithm. It never spawns
// goroutines; media are visited strictly in ascending order and files
// within a medium strictly in the order FILES.LUM declares them (§5,
// §4.G "Ordering guarantees").
func Decompile(opts DecompileOptions) (*DecompileResult, error) {
	if len(opts.Media) == 0 {
		return nil, errors.Wrap(Inconsistent, "no media supplied")
	}
	progress := progressOrNoop(opts.Progress)
	media := append([]MediumNumber(nil), opts.Media...)
	sort.Slice(media, func(i, j int) bool { return media[i] < media[j] })
	log := Log.WithField("media", len(media))
	log.Debug("decompiling media set")

	type mediumFileLists struct {
		number MediumNumber
		files  *FileList
	}
	var decoded []mediumFileLists
	var partNumber PartNumber
	var declaredMembers uint8
	havePartNumber := false

	// Step 1.
	for i, n := range media {
		if cancelled(opts.Cancel) {
			return nil, Cancelled
		}
		buf, err := opts.ReadFile(n, "FILES.LUM")
		if err != nil {
			return nil, errors.Wrapf(err, "reading FILES.LUM on medium %s", n)
		}
		fl, err := DecodeFileList(buf)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding FILES.LUM on medium %s", n)
		}
		if MediumNumber(fl.MediaSequenceNumber) != n {
			return nil, errors.Wrapf(Inconsistent, "medium %s: FILES.LUM declares sequence number %d", n, fl.MediaSequenceNumber)
		}
		if !havePartNumber {
			partNumber = fl.PartNumber
			declaredMembers = fl.NumberOfMediaSetMembers
			havePartNumber = true
		} else {
			if fl.PartNumber != partNumber {
				return nil, errors.Wrapf(Inconsistent, "medium %s: part number %s disagrees with %s", n, fl.PartNumber, partNumber)
			}
			if fl.NumberOfMediaSetMembers != declaredMembers {
				return nil, errors.Wrapf(Inconsistent, "medium %s: declares %d members, expected %d", n, fl.NumberOfMediaSetMembers, declaredMembers)
			}
		}
		decoded = append(decoded, mediumFileLists{number: n, files: fl})
		log.WithFields(logrus.Fields{"medium": n.String(), "files": len(fl.Files)}).Debug("read FILES.LUM")
		progress(PhaseMedium, i+1, len(media), n.String())
	}

	// Step 2: LOADS.LUM/BATCHES.LUM are authoritative from medium 1;
	// cross-check every other medium's copy when integrity checking.
	authoritative := media[0]
	loadsBuf, err := opts.ReadFile(authoritative, "LOADS.LUM")
	if err != nil {
		return nil, errors.Wrap(err, "reading LOADS.LUM")
	}
	loadList, err := DecodeLoadList(loadsBuf)
	if err != nil {
		return nil, errors.Wrap(err, "decoding LOADS.LUM")
	}
	batchesBuf, err := opts.ReadFile(authoritative, "BATCHES.LUM")
	if err != nil {
		return nil, errors.Wrap(err, "reading BATCHES.LUM")
	}
	batchList, err := DecodeBatchListFile(batchesBuf)
	if err != nil {
		return nil, errors.Wrap(err, "decoding BATCHES.LUM")
	}
	if opts.CheckFileIntegrity {
		for _, n := range media[1:] {
			if err := crossCheckLoadsAndBatches(opts.ReadFile, n, loadList, batchList); err != nil {
				return nil, err
			}
		}
	}

	// Step 3.
	ms := NewMediaSet(partNumber)
	for _, mf := range decoded {
		ms.Medium(mf.number)
	}

	checkValues := map[*File]CheckValue{}

	// Step 4: populate the directory tree from every medium's FILES.LUM.
	for _, mf := range decoded {
		medium := ms.Medium(mf.number)
		for _, entry := range mf.files.Files {
			if cancelled(opts.Cancel) {
				return nil, Cancelled
			}
			dir, err := ensureDirectoryPath(medium, entry.Pathname)
			if err != nil {
				return nil, errors.Wrapf(err, "medium %s: %s", mf.number, entry.Pathname)
			}
			memberNumber := MediumNumber(entry.MemberSequenceNumber)
			f, err := dir.AddRegularFile(entry.Filename, &memberNumber)
			if err != nil {
				return nil, errors.Wrapf(err, "medium %s: adding %s%s", mf.number, entry.Pathname, entry.Filename)
			}
			cv := CheckValue{Type: CheckValueCrc16, Bytes: []byte{byte(entry.CRC >> 8), byte(entry.CRC)}}
			if entry.CheckValue != nil {
				cv = *entry.CheckValue
			}
			checkValues[f] = cv
		}
	}

	// Step 5: promote Loads.
	for i, entry := range loadList.Loads {
		if cancelled(opts.Cancel) {
			return nil, Cancelled
		}
		luhMedium := MediumNumber(entry.MemberSequenceNumber)
		buf, err := opts.ReadFile(luhMedium, entry.HeaderFilename)
		if err != nil {
			return nil, errors.Wrapf(err, "reading load header %s", entry.HeaderFilename)
		}
		lh, err := DecodeLoadHeader(buf)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding load header %s", entry.HeaderFilename)
		}
		target, ok := ms.findFileByName(entry.HeaderFilename)
		if !ok {
			return nil, errors.Wrapf(BrokenReference, "load header file %s not present in FILES.LUM", entry.HeaderFilename)
		}
		ld := &loadData{
			PartNumber:      lh.PartNumber,
			Type:            lh.Type,
			PartFlags:       lh.PartFlags,
			TargetHardware:  lh.TargetHardware,
			UserDefinedData: lh.UserDefinedData,
			CheckValue:      lh.LoadCheckValue,
			LoadCRC:         lh.LoadCRC,
		}
		for _, df := range lh.DataFiles {
			ref, err := resolveLoadFileReference(ms, df)
			if err != nil {
				return nil, err
			}
			ld.DataFiles = append(ld.DataFiles, ref)
		}
		for _, sf := range lh.SupportFiles {
			ref, err := resolveLoadFileReference(ms, sf)
			if err != nil {
				return nil, err
			}
			ld.SupportFiles = append(ld.SupportFiles, ref)
		}
		target.promoteToLoad(ld)
		progress(PhaseLoad, i+1, len(loadList.Loads), entry.HeaderFilename)
	}

	// Step 6: promote Batches.
	for i, entry := range batchList.Batches {
		if cancelled(opts.Cancel) {
			return nil, Cancelled
		}
		lubMedium := MediumNumber(entry.MemberSequenceNumber)
		buf, err := opts.ReadFile(lubMedium, entry.Filename)
		if err != nil {
			return nil, errors.Wrapf(err, "reading batch file %s", entry.Filename)
		}
		bf, err := DecodeBatchFile(buf)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding batch file %s", entry.Filename)
		}
		target, ok := ms.findFileByName(entry.Filename)
		if !ok {
			return nil, errors.Wrapf(BrokenReference, "batch file %s not present in FILES.LUM", entry.Filename)
		}
		bd := &batchData{PartNumber: bf.PartNumber, Comment: bf.Comment}
		for _, t := range bf.Targets {
			bt := BatchTarget{ThwIDPosition: t.ThwIDPosition}
			for _, l := range t.Loads {
				loadFile, ok := ms.findFileByName(l.HeaderFilename)
				if !ok || loadFile.Type() != FileTypeLoad {
					return nil, errors.Wrapf(BrokenReference, "batch %s: load %s not present", entry.Filename, l.HeaderFilename)
				}
				bt.AddLoad(loadFile)
			}
			bd.Targets = append(bd.Targets, bt)
		}
		target.promoteToBatch(bd)
		progress(PhaseBatch, i+1, len(batchList.Batches), entry.Filename)
	}

	// Step 7: integrity checking.
	if opts.CheckFileIntegrity {
		if err := verifyIntegrity(ms, opts.ReadFile, checkValues); err != nil {
			return nil, err
		}
	}

	return &DecompileResult{MediaSet: ms, CheckValues: checkValues}, nil
}

func crossCheckLoadsAndBatches(read ReadFile, n MediumNumber, loads *LoadList, batches *BatchListFile) error {
	loadsBuf, err := read(n, "LOADS.LUM")
	if err != nil {
		return errors.Wrapf(err, "reading LOADS.LUM on medium %s", n)
	}
	other, err := DecodeLoadList(loadsBuf)
	if err != nil {
		return errors.Wrapf(err, "decoding LOADS.LUM on medium %s", n)
	}
	if len(other.Loads) != len(loads.Loads) {
		return errors.Wrapf(Inconsistent, "medium %s: LOADS.LUM has %d entries, expected %d", n, len(other.Loads), len(loads.Loads))
	}
	batchesBuf, err := read(n, "BATCHES.LUM")
	if err != nil {
		return errors.Wrapf(err, "reading BATCHES.LUM on medium %s", n)
	}
	otherBatches, err := DecodeBatchListFile(batchesBuf)
	if err != nil {
		return errors.Wrapf(err, "decoding BATCHES.LUM on medium %s", n)
	}
	if len(otherBatches.Batches) != len(batches.Batches) {
		return errors.Wrapf(Inconsistent, "medium %s: BATCHES.LUM has %d entries, expected %d", n, len(otherBatches.Batches), len(batches.Batches))
	}
	return nil
}

// ensureDirectoryPath walks (creating as needed) the directory chain
// named by an ARINC pathname like `\DIR\SUB\` under medium's root.
func ensureDirectoryPath(medium *Medium, pathname string) (ContainerEntity, error) {
	segs := arincPathSegments(pathname)
	var cur ContainerEntity = medium
	for _, seg := range segs {
		if d, ok := cur.Subdirectory(seg); ok {
			cur = d
			continue
		}
		d, err := cur.AddSubdirectory(seg)
		if err != nil {
			return nil, err
		}
		cur = d
	}
	return cur, nil
}

func arincPathSegments(pathname string) []string {
	trimmed := strings.Trim(pathname, `\`)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, `\`)
}

// findFileByName searches every file in the Media Set for one whose
// base name matches, in §4.E recursive-iteration order. Load/Batch
// references are by bare filename (§4.G steps 5-6), so this is the
// resolution rule the decompiler and compiler both rely on.
func (ms *MediaSet) findFileByName(name string) (*File, bool) {
	for _, f := range ms.RecursiveFiles() {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

func resolveLoadFileReference(ms *MediaSet, e LoadFileEntry) (LoadFileRef, error) {
	target, ok := ms.findFileByName(e.Filename)
	if !ok {
		return LoadFileRef{}, errors.Wrapf(BrokenReference, "file %s not present in media set", e.Filename)
	}
	return NewLoadFileRef(target, e.PartNumber), nil
}

// verifyIntegrity implements §4.G step 7 over the decompiled model. For
// each regular file it checks the FILES.LUM CRC-16, or, when the entry
// declares a check value, that check value in place of the CRC-16; load
// header and batch files are not read in this pass. It then checks every
// load's CRC-32 over its data/support files in declared order, and every
// declared load check value.
func verifyIntegrity(ms *MediaSet, read ReadFile, checkValues map[*File]CheckValue) error {
	for _, f := range ms.RecursiveFiles() {
		if f.Type() != FileTypeRegular {
			continue
		}
		buf, err := read(f.EffectiveMediumNumber(), filePathForIO(f))
		if err != nil {
			return errors.Wrapf(err, "reading %s for integrity check", f.Path())
		}
		want, ok := checkValues[f]
		if !ok {
			continue
		}
		if want.Type == CheckValueCrc16 {
			if got := CRC16(buf); got != binary16(want.Bytes) {
				return errors.Wrapf(BadCrc, "%s: CRC-16 mismatch", f.Path())
			}
			continue
		}
		got, err := Compute(want.Type, buf)
		if err != nil {
			return err
		}
		if !bytesEqual(got.Bytes, want.Bytes) {
			return errors.Wrapf(InvalidCheckValue, "%s: check value mismatch", f.Path())
		}
	}

	for _, f := range ms.RecursiveLoads() {
		ld, _ := f.Load()
		var data []byte
		for _, ref := range append(append([]LoadFileRef{}, ld.DataFiles...), ld.SupportFiles...) {
			target, ok := resolveLoadFile(ms, ref)
			if !ok {
				return errors.Wrapf(BrokenReference, "load %s: referenced file no longer present", f.Path())
			}
			buf, err := read(target.EffectiveMediumNumber(), filePathForIO(target))
			if err != nil {
				return errors.Wrapf(err, "reading %s for load CRC", target.Path())
			}
			data = append(data, buf...)
		}
		// The trailer LoadCRC is mandatory regardless of any optional
		// declared check value (§4.G step 7), matching Validate's
		// unconditional check of lh.LoadCRC.
		if got := CRC32(data); got != ld.LoadCRC {
			return errors.Wrapf(BadCrc, "load %s: load CRC mismatch", f.Path())
		}
		if ld.CheckValue == nil {
			continue
		}
		if ld.CheckValue.Type == CheckValueCrc32 {
			if want := binary32(ld.CheckValue.Bytes); CRC32(data) != want {
				return errors.Wrapf(BadCrc, "load %s: declared load check value mismatch", f.Path())
			}
			continue
		}
		got, err := Compute(ld.CheckValue.Type, data)
		if err != nil {
			return err
		}
		if !bytesEqual(got.Bytes, ld.CheckValue.Bytes) {
			return errors.Wrapf(InvalidCheckValue, "load %s: declared load check value mismatch", f.Path())
		}
	}
	return nil
}

// filePathForIO renders f's path for the ReadFile/WriteFile callbacks:
// the leading "/" of the model path is stripped since callbacks take a
// medium-relative path.
func filePathForIO(f *File) string {
	return strings.TrimPrefix(f.Path(), "/")
}

func binary16(b []byte) uint16 {
	if len(b) < 2 {
		return 0
	}
	return uint16(b[0])<<8 | uint16(b[1])
}

func binary32(b []byte) uint32 {
	if len(b) < 4 {
		return 0
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
