package arinc665

import "github.com/pkg/errors"

// FileType tags the three cases of File (§3 "File is a tagged variant").
type FileType int

const (
	FileTypeRegular FileType = iota
	FileTypeLoad
	FileTypeBatch
)

func (t FileType) String() string {
	switch t {
	case FileTypeRegular:
		return "Regular"
	case FileTypeLoad:
		return "Load"
	case FileTypeBatch:
		return "Batch"
	default:
		return "Unknown"
	}
}

// LoadType is a Load's optional (description, numeric id) type code (§3).
type LoadType struct {
	Description string
	ID          uint16
}

// TargetHardware is one THW-ID entry of a Load, with its ordered list of
// position codes (§3).
type TargetHardware struct {
	ThwID     string
	Positions []string
}

// LoadFileRef is a weak reference from a Load to one of its data or
// support RegularFiles, carrying the part number declared for that
// reference at the Load (§3 "per-reference part numbers"). The File
// itself is reached through Handle, so renaming or removing the target
// never invalidates the reference silently; a removed target simply
// stops resolving (§8 "weak reference safety").
type LoadFileRef struct {
	file       Handle
	PartNumber PartNumber
}

// loadData holds the attributes specific to File's Load case (§3).
type loadData struct {
	PartNumber      PartNumber
	Type            *LoadType
	PartFlags       uint16
	TargetHardware  []TargetHardware
	DataFiles       []LoadFileRef
	SupportFiles    []LoadFileRef
	UserDefinedData []byte
	CheckValue      *CheckValue
	// LoadCRC is the mandatory `.LUH` trailer CRC-32 over the Load's
	// data/support file contents in declared order (§4.G step 7). It is
	// populated from the load header's own trailer during decompilation;
	// Compile always recomputes it fresh rather than trusting this field.
	LoadCRC uint32
}

// BatchTarget maps one THW-ID-position string to the ordered list of
// Loads it runs, each reached weakly by Handle (§3).
type BatchTarget struct {
	ThwIDPosition string
	loads         []Handle
}

// AddLoad appends a weak reference to target to this target's load list.
func (t *BatchTarget) AddLoad(target *File) {
	t.loads = append(t.loads, target.Handle())
}

// Loads resolves every weak load reference against ms's file arena,
// silently skipping any that no longer resolve (§8 "weak reference
// safety").
func (t *BatchTarget) Loads(ms *MediaSet) []*File {
	var out []*File
	for _, h := range t.loads {
		if f, ok := resolveBatchLoad(ms, h); ok {
			out = append(out, f)
		}
	}
	return out
}

// batchData holds the attributes specific to File's Batch case (§3).
type batchData struct {
	PartNumber PartNumber
	Comment    string
	Targets    []BatchTarget
}

// File is the tagged variant of §3: every node in a Directory's file set
// is a File, whether it currently holds plain bytes (Regular), a decoded
// Load Header (Load), or a decoded Batch (Batch). Promotion during
// decompilation (§4.G steps 5-6) mutates typ/load/batch in place rather
// than allocating a new node, so existing Handles into this File keep
// resolving across the promotion.
type File struct {
	self   Handle // this file's own handle in mediaSet.files, for RemoveFile bookkeeping
	name   string
	medium *MediumNumber
	check  *CheckValueType
	parent ContainerEntity

	typ   FileType
	load  *loadData
	batch *batchData
}

// Handle returns f's own handle into its MediaSet's file arena, for
// building weak LoadFileRef/BatchTarget references to it.
func (f *File) Handle() Handle { return f.self }

// NewLoadFileRef builds a weak reference to target, tagged with the
// part number declared for it at the referencing Load (§3).
func NewLoadFileRef(target *File, partNumber PartNumber) LoadFileRef {
	return LoadFileRef{file: target.Handle(), PartNumber: partNumber}
}

// File resolves ref against ms's file arena. ok is false for a stale or
// removed reference (§8 "weak reference safety"), mirroring
// BatchTarget.Loads.
func (ref LoadFileRef) File(ms *MediaSet) (*File, bool) {
	return resolveLoadFile(ms, ref)
}

// Name returns the file's name within its parent directory.
func (f *File) Name() string { return f.name }

// Type reports which of the three File cases f currently holds.
func (f *File) Type() FileType { return f.typ }

// Path renders the file's full path by concatenating its parent's path
// with its name (§3 ContainerEntity "path").
func (f *File) Path() string {
	p := f.parent.Path()
	if p == "/" {
		return "/" + f.name
	}
	return p + "/" + f.name
}

// EffectiveMediumNumber resolves f's own override or the parent chain's
// effective default (§4.E "effectiveMediumNumber").
func (f *File) EffectiveMediumNumber() MediumNumber {
	if f.medium != nil {
		return *f.medium
	}
	return f.parent.EffectiveDefaultMediumNumber()
}

// SetMediumNumber sets or clears (nil) f's medium-number override.
func (f *File) SetMediumNumber(n *MediumNumber) { f.medium = n }

// MediumNumber returns f's own medium-number override, or nil when unset.
func (f *File) MediumNumber() *MediumNumber { return f.medium }

// CheckValueType returns f's own check-value-type override, or nil when
// unset.
func (f *File) CheckValueType() *CheckValueType { return f.check }

// EffectiveCheckValueType resolves f's own override or the owning Media
// Set's files default (§4.E).
func (f *File) EffectiveCheckValueType(ms *MediaSet) CheckValueType {
	if f.check != nil {
		return *f.check
	}
	return ms.EffectiveFilesCheckValueType()
}

// SetCheckValueType sets or clears (nil) f's check-value-type override.
func (f *File) SetCheckValueType(t *CheckValueType) { f.check = t }

// Load returns f's Load attributes. ok is false unless Type() is
// FileTypeLoad.
func (f *File) Load() (*loadData, bool) {
	if f.typ != FileTypeLoad {
		return nil, false
	}
	return f.load, true
}

// Batch returns f's Batch attributes. ok is false unless Type() is
// FileTypeBatch.
func (f *File) Batch() (*batchData, bool) {
	if f.typ != FileTypeBatch {
		return nil, false
	}
	return f.batch, true
}

// promoteToLoad rewrites f's tag to Load in place (§4.G step 5, §9
// "Polymorphic File"). Existing Handles to f continue to resolve to the
// same *File, now reporting Type() == FileTypeLoad.
func (f *File) promoteToLoad(d *loadData) {
	f.typ = FileTypeLoad
	f.load = d
	f.batch = nil
}

// promoteToBatch rewrites f's tag to Batch in place (§4.G step 6).
func (f *File) promoteToBatch(d *batchData) {
	f.typ = FileTypeBatch
	f.batch = d
	f.load = nil
}

// SetLoadAttributes overwrites every Load attribute of f in place,
// including its data/support file references. ok is false unless Type()
// is FileTypeLoad. Used by the XML round-trip's second pass (§4.F), once
// every file in the document has been created and can be referenced.
func (f *File) SetLoadAttributes(partNumber PartNumber, typ *LoadType, partFlags uint16, hw []TargetHardware, dataFiles, supportFiles []LoadFileRef, userDefinedData []byte, checkValue *CheckValue) bool {
	if f.typ != FileTypeLoad {
		return false
	}
	f.load.PartNumber = partNumber
	f.load.Type = typ
	f.load.PartFlags = partFlags
	f.load.TargetHardware = hw
	f.load.DataFiles = dataFiles
	f.load.SupportFiles = supportFiles
	f.load.UserDefinedData = userDefinedData
	f.load.CheckValue = checkValue
	return true
}

// SetBatchAttributes overwrites f's Batch part number, comment and target
// list in place. ok is false unless Type() is FileTypeBatch. Used by the
// XML round-trip's second pass (§4.F).
func (f *File) SetBatchAttributes(partNumber PartNumber, comment string, targets []BatchTarget) bool {
	if f.typ != FileTypeBatch {
		return false
	}
	f.batch.PartNumber = partNumber
	f.batch.Comment = comment
	f.batch.Targets = targets
	return true
}

// resolveLoadFile dereferences a weak Load→File reference against ms's
// central file arena. A stale or removed reference (ok == false) must be
// skipped by callers, never treated as an error (§8 "weak reference
// safety").
func resolveLoadFile(ms *MediaSet, ref LoadFileRef) (*File, bool) {
	return ms.files.get(ref.file)
}

// resolveBatchLoad dereferences a weak Batch→Load reference. ok is false
// if the handle is stale or the target is no longer a Load (e.g. it was
// removed and the slot recycled into an unrelated file).
func resolveBatchLoad(ms *MediaSet, h Handle) (*File, bool) {
	f, ok := ms.files.get(h)
	if !ok || f.typ != FileTypeLoad {
		return nil, false
	}
	return f, true
}

// errInvalidFilename wraps InvalidFilename with the offending name.
func errInvalidFilename(name string) error {
	return errors.Wrapf(InvalidFilename, "%q", name)
}
