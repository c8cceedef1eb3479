package arinc665

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FileCreationPolicy controls whether a Load or Batch's on-disk `.LUH`/
// `.LUB` bytes are copied from an existing source or generated fresh
// from the model (§4.H "Input").
type FileCreationPolicy int

const (
	UseExisting FileCreationPolicy = iota
	CreateNew
	CreateNewWhenMissing
)

func (p FileCreationPolicy) String() string {
	switch p {
	case UseExisting:
		return "UseExisting"
	case CreateNew:
		return "CreateNew"
	case CreateNewWhenMissing:
		return "CreateNewWhenMissing"
	default:
		return "unknown"
	}
}

// SourcePathFunc resolves a File to the relative path its bytes should be
// read from ahead of compilation. ok is false when no source is
// available (only acceptable for a Load/Batch under CreateNew or
// CreateNewWhenMissing).
type SourcePathFunc func(f *File) (path string, ok bool)

// ReadSourceFile reads the bytes at an arbitrary source path, as produced
// by a SourcePathFunc — independent of any medium, since source files
// need not already be laid out in medium/path form (§6).
type ReadSourceFile func(path string) ([]byte, error)

// CompileOptions is the input to Compile (§4.H).
type CompileOptions struct {
	MediaSet    *MediaSet
	Supplement  Supplement
	LoadPolicy  FileCreationPolicy
	BatchPolicy FileCreationPolicy
	SourcePath  SourcePathFunc
	ReadSource  ReadSourceFile
	WriteFile   WriteFile
	Progress    ProgressHandler
	Cancel      CancelFunc
}

// CompileResult is the output of Compile: every medium number written.
type CompileResult struct {
	Media []MediumNumber
}

type resolvedFile struct {
	bytes      []byte
	crc        uint16
	checkValue *CheckValue
}

// Compile lays a MediaSet out onto media and emits FILES.LUM, LOADS.LUM,
// BATCHES.LUM, load headers and batch files at the requested supplement
// version, following §4.H's six-step algorithm. LOADS.LUM and
// BATCHES.LUM are built once as global manifests and written identically
// to every medium (only their own media-sequence-number field varies),
// mirroring the decompiler's medium-1-authoritative model (§9 Open
// Question (d)).
func Compile(opts CompileOptions) (*CompileResult, error) {
	ms := opts.MediaSet
	if ms == nil {
		return nil, errors.Wrap(Inconsistent, "nil media set")
	}
	if opts.SourcePath == nil {
		return nil, errors.Wrap(IoError, "no source path mapping supplied")
	}
	progress := progressOrNoop(opts.Progress)
	media := ms.Media()
	if len(media) == 0 {
		return nil, errors.Wrap(Inconsistent, "media set has no media")
	}

	fileListVersion := versionFor(KindFileList, opts.Supplement)
	loadListVersion := versionFor(KindLoadList, opts.Supplement)
	batchListVersion := versionFor(KindBatchList, opts.Supplement)

	allFiles := ms.RecursiveFiles()
	resolved := map[*File]*resolvedFile{}

	// Step 1 (regular files and existing Loads/Batches): resolve every
	// non-generated file's bytes first, so generated Loads below can read
	// back their data/support files' resolved bytes.
	for _, f := range allFiles {
		if f.Type() != FileTypeRegular {
			continue
		}
		rf, err := resolveSourceBytes(ms, f, opts)
		if err != nil {
			return nil, err
		}
		resolved[f] = rf
	}
	for _, f := range allFiles {
		if f.Type() != FileTypeLoad {
			continue
		}
		if cancelled(opts.Cancel) {
			return nil, Cancelled
		}
		if generateRequired(opts.LoadPolicy, opts.SourcePath, f) {
			data, err := generateLoadBytes(ms, f, opts.Supplement, resolved)
			if err != nil {
				return nil, errors.Wrapf(err, "generating load header %s", f.Path())
			}
			resolved[f], err = finishResolved(ms, f, data)
			if err != nil {
				return nil, err
			}
			continue
		}
		rf, err := resolveSourceBytes(ms, f, opts)
		if err != nil {
			return nil, err
		}
		resolved[f] = rf
	}
	for _, f := range allFiles {
		if f.Type() != FileTypeBatch {
			continue
		}
		if cancelled(opts.Cancel) {
			return nil, Cancelled
		}
		if generateRequired(opts.BatchPolicy, opts.SourcePath, f) {
			data, err := generateBatchBytes(ms, f, opts.Supplement)
			if err != nil {
				return nil, errors.Wrapf(err, "generating batch file %s", f.Path())
			}
			resolved[f], err = finishResolved(ms, f, data)
			if err != nil {
				return nil, err
			}
			continue
		}
		rf, err := resolveSourceBytes(ms, f, opts)
		if err != nil {
			return nil, err
		}
		resolved[f] = rf
	}

	// Build the global load/batch lists once; media-sequence-number is
	// overwritten per medium below.
	loadList := &LoadList{Version: loadListVersion, PartNumber: ms.PartNumber, NumberOfMediaSetMembers: uint8(len(media))}
	for _, f := range ms.RecursiveLoads() {
		ld, _ := f.Load()
		var thwIDs []string
		for _, t := range ld.TargetHardware {
			thwIDs = append(thwIDs, t.ThwID)
		}
		var cv *CheckValue
		if opts.Supplement != Supplement2 {
			cv = resolved[f].checkValue
		}
		loadList.Loads = append(loadList.Loads, LoadListEntry{
			PartNumber:           ld.PartNumber,
			HeaderFilename:       f.Name(),
			MemberSequenceNumber: uint16(f.EffectiveMediumNumber()),
			TargetHardwareIDs:    thwIDs,
			CheckValue:           cv,
		})
	}

	batchList := &BatchListFile{Version: batchListVersion, PartNumber: ms.PartNumber, NumberOfMediaSetMembers: uint8(len(media))}
	for _, f := range ms.RecursiveBatches() {
		bd, _ := f.Batch()
		batchList.Batches = append(batchList.Batches, BatchListEntry{
			PartNumber:           bd.PartNumber,
			Filename:             f.Name(),
			MemberSequenceNumber: uint16(f.EffectiveMediumNumber()),
		})
	}

	result := &CompileResult{}
	for idx, m := range media {
		if cancelled(opts.Cancel) {
			return nil, Cancelled
		}
		n := m.Number()
		result.Media = append(result.Media, n)

		var regular, loads, batches []*File
		fl := &FileList{Version: fileListVersion, PartNumber: ms.PartNumber, MediaSequenceNumber: uint8(n), NumberOfMediaSetMembers: uint8(len(media))}
		for _, f := range allFiles {
			if f.EffectiveMediumNumber() != n {
				continue
			}
			switch f.Type() {
			case FileTypeRegular:
				regular = append(regular, f)
			case FileTypeLoad:
				loads = append(loads, f)
			case FileTypeBatch:
				batches = append(batches, f)
			}
			rf := resolved[f]
			entry := FileListEntry{
				Filename:             f.Name(),
				Pathname:             arincPathname(f),
				MemberSequenceNumber: uint16(n),
				CRC:                  rf.crc,
			}
			if opts.Supplement != Supplement2 {
				entry.CheckValue = rf.checkValue
			}
			fl.Files = append(fl.Files, entry)
		}
		flBuf, err := fl.Encode()
		if err != nil {
			return nil, errors.Wrapf(err, "encoding FILES.LUM for medium %s", n)
		}

		ll := *loadList
		ll.MediaSequenceNumber = uint8(n)
		llBuf, err := ll.Encode()
		if err != nil {
			return nil, errors.Wrapf(err, "encoding LOADS.LUM for medium %s", n)
		}

		bl := *batchList
		bl.MediaSequenceNumber = uint8(n)
		blBuf, err := bl.Encode()
		if err != nil {
			return nil, errors.Wrapf(err, "encoding BATCHES.LUM for medium %s", n)
		}

		// Write order (§4.H step 6): data/support files, then load
		// headers, then batch files, then list files last.
		for i, f := range regular {
			if err := opts.WriteFile(n, filePathForIO(f), resolved[f].bytes); err != nil {
				return nil, errors.Wrapf(err, "writing %s", f.Path())
			}
			progress(PhaseFile, i+1, len(regular), f.Path())
		}
		for i, f := range loads {
			if err := opts.WriteFile(n, filePathForIO(f), resolved[f].bytes); err != nil {
				return nil, errors.Wrapf(err, "writing %s", f.Path())
			}
			progress(PhaseLoad, i+1, len(loads), f.Path())
		}
		for i, f := range batches {
			if err := opts.WriteFile(n, filePathForIO(f), resolved[f].bytes); err != nil {
				return nil, errors.Wrapf(err, "writing %s", f.Path())
			}
			progress(PhaseBatch, i+1, len(batches), f.Path())
		}
		if err := opts.WriteFile(n, "FILES.LUM", flBuf); err != nil {
			return nil, errors.Wrapf(err, "writing FILES.LUM on medium %s", n)
		}
		if err := opts.WriteFile(n, "LOADS.LUM", llBuf); err != nil {
			return nil, errors.Wrapf(err, "writing LOADS.LUM on medium %s", n)
		}
		if err := opts.WriteFile(n, "BATCHES.LUM", blBuf); err != nil {
			return nil, errors.Wrapf(err, "writing BATCHES.LUM on medium %s", n)
		}
		Log.WithFields(logrus.Fields{
			"medium": n.String(),
			"files":  len(regular),
			"loads":  len(loads),
			"batches": len(batches),
		}).Debug("compiled medium")
		progress(PhaseMedium, idx+1, len(media), n.String())
	}
	return result, nil
}

func generateRequired(policy FileCreationPolicy, sourcePath SourcePathFunc, f *File) bool {
	if policy == CreateNew {
		return true
	}
	if policy == CreateNewWhenMissing {
		_, ok := sourcePath(f)
		return !ok
	}
	return false
}

func resolveSourceBytes(ms *MediaSet, f *File, opts CompileOptions) (*resolvedFile, error) {
	path, ok := opts.SourcePath(f)
	if !ok {
		return nil, errors.Wrapf(IoError, "no source path for %s", f.Path())
	}
	data, err := opts.ReadSource(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading source for %s", f.Path())
	}
	return finishResolved(ms, f, data)
}

func finishResolved(ms *MediaSet, f *File, data []byte) (*resolvedFile, error) {
	cv, err := Compute(f.EffectiveCheckValueType(ms), data)
	if err != nil {
		return nil, errors.Wrapf(err, "computing check value for %s", f.Path())
	}
	var cvPtr *CheckValue
	if cv.Type != CheckValueNotUsed {
		cvPtr = &cv
	}
	return &resolvedFile{bytes: data, crc: CRC16(data), checkValue: cvPtr}, nil
}

// generateLoadBytes builds and encodes a `.LUH` file from f's model
// attributes, computing the load CRC-32 over its data/support files'
// already-resolved bytes in declared order (§4.H step 5).
func generateLoadBytes(ms *MediaSet, f *File, supplement Supplement, resolved map[*File]*resolvedFile) ([]byte, error) {
	ld, _ := f.Load()
	lh := &LoadHeader{
		Version:         versionFor(KindLoadHeader, supplement),
		PartNumber:      ld.PartNumber,
		Type:            ld.Type,
		PartFlags:       ld.PartFlags,
		TargetHardware:  ld.TargetHardware,
		UserDefinedData: ld.UserDefinedData,
		LoadCheckValue:  ld.CheckValue,
	}
	var crcData []byte
	for _, ref := range ld.DataFiles {
		entry, data, err := loadFileEntryFor(ms, ref, resolved)
		if err != nil {
			return nil, err
		}
		lh.DataFiles = append(lh.DataFiles, entry)
		crcData = append(crcData, data...)
	}
	for _, ref := range ld.SupportFiles {
		entry, data, err := loadFileEntryFor(ms, ref, resolved)
		if err != nil {
			return nil, err
		}
		lh.SupportFiles = append(lh.SupportFiles, entry)
		crcData = append(crcData, data...)
	}
	lh.LoadCRC = CRC32(crcData)
	return lh.Encode()
}

func loadFileEntryFor(ms *MediaSet, ref LoadFileRef, resolved map[*File]*resolvedFile) (LoadFileEntry, []byte, error) {
	target, ok := resolveLoadFile(ms, ref)
	if !ok {
		return LoadFileEntry{}, nil, errors.Wrap(BrokenReference, "load file reference no longer resolves")
	}
	rf, ok := resolved[target]
	if !ok {
		return LoadFileEntry{}, nil, errors.Wrapf(IoError, "referenced file %s not yet resolved", target.Path())
	}
	return LoadFileEntry{
		Filename:   target.Name(),
		PartNumber: ref.PartNumber,
		Length:     uint32(len(rf.bytes)),
		CRC:        rf.crc,
	}, rf.bytes, nil
}

// generateBatchBytes builds and encodes a `.LUB` file from f's model
// attributes (§4.H step 1).
func generateBatchBytes(ms *MediaSet, f *File, supplement Supplement) ([]byte, error) {
	bd, _ := f.Batch()
	bf := &BatchFile{Version: versionFor(KindBatch, supplement), PartNumber: bd.PartNumber, Comment: bd.Comment}
	for _, t := range bd.Targets {
		bt := BatchFileTarget{ThwIDPosition: t.ThwIDPosition}
		loadFiles := t.Loads(ms)
		if len(loadFiles) != len(t.loads) {
			return nil, errors.Wrapf(BrokenReference, "batch %s: a referenced load no longer resolves", f.Path())
		}
		for _, loadFile := range loadFiles {
			ld, _ := loadFile.Load()
			bt.Loads = append(bt.Loads, BatchLoadRef{HeaderFilename: loadFile.Name(), PartNumber: ld.PartNumber})
		}
		bf.Targets = append(bf.Targets, bt)
	}
	return bf.Encode()
}

// versionFor looks up the version code for kind at supplement.
func versionFor(kind FileKind, supplement Supplement) Version {
	switch kind {
	case KindFileList:
		switch supplement {
		case Supplement2:
			return VersionFileListSupplement2
		case Supplement34:
			return VersionFileListSupplement34
		default:
			return VersionFileListSupplement5
		}
	case KindLoadList:
		switch supplement {
		case Supplement2:
			return VersionLoadListSupplement2
		case Supplement34:
			return VersionLoadListSupplement34
		default:
			return VersionLoadListSupplement5
		}
	case KindBatchList:
		switch supplement {
		case Supplement2:
			return VersionBatchListSupplement2
		case Supplement34:
			return VersionBatchListSupplement34
		default:
			return VersionBatchListSupplement5
		}
	case KindLoadHeader:
		switch supplement {
		case Supplement2:
			return VersionLoadHeaderSupplement2
		case Supplement34:
			return VersionLoadHeaderSupplement34
		default:
			return VersionLoadHeaderSupplement5
		}
	default:
		switch supplement {
		case Supplement2:
			return VersionBatchSupplement2
		case Supplement34:
			return VersionBatchSupplement34
		default:
			return VersionBatchSupplement5
		}
	}
}

// arincPathname renders f's containing directory as an ARINC pathname
// (e.g. `\A\`, or `\` for a file at the medium root), the inverse of
// arincPathSegments.
func arincPathname(f *File) string {
	segs := strings.Split(strings.TrimPrefix(f.Path(), "/"), "/")
	dirSegs := segs[:len(segs)-1]
	if len(dirSegs) == 0 {
		return `\`
	}
	return `\` + strings.Join(dirSegs, `\`) + `\`
}
