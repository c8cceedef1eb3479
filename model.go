package arinc665

import (
	"sort"

	"github.com/pkg/errors"
)

// MediaSet is the root of the in-memory model (§3): a part number, the
// check-value-type defaults that cascade to every contained file, and an
// ordered collection of Media. A MediaSet has no parent and implements
// ContainerEntity itself, delegating to whichever Medium a given name or
// path resolves to (mirroring original_source's Media.hpp, where MediaSet
// and Medium are siblings sharing the ContainerEntity capability, each
// presenting "/" as their own path).
type MediaSet struct {
	PartNumber PartNumber

	defaultMedium MediumNumber

	mediaSetCheck  *CheckValueType
	fileListCheck  *CheckValueType
	loadListCheck  *CheckValueType
	batchListCheck *CheckValueType
	filesCheck     *CheckValueType

	mediumNumbers []MediumNumber
	media         map[MediumNumber]*Medium
	present       mediumSet

	files *arena[*File]
}

// NewMediaSet constructs an empty Media Set with the given part number
// and the default medium number (§3).
func NewMediaSet(pn PartNumber) *MediaSet {
	return &MediaSet{
		PartNumber:    pn,
		defaultMedium: DefaultMediumNumber,
		media:         map[MediumNumber]*Medium{},
		present:       newMediumSet(),
		files:         newArena[*File](),
	}
}

// SetDefaultMediumNumber sets the Media Set's own default medium number
// override, used by EffectiveDefaultMediumNumber when no ancestor in a
// lookup chain overrides it.
func (ms *MediaSet) SetDefaultMediumNumber(n MediumNumber) { ms.defaultMedium = n }

// SetMediaSetCheckValueType, SetFileListCheckValueType,
// SetLoadListCheckValueType, SetBatchListCheckValueType and
// SetFilesCheckValueType set or clear (nil) the five check-value-type
// defaults described in §3.
func (ms *MediaSet) SetMediaSetCheckValueType(t *CheckValueType)  { ms.mediaSetCheck = t }
func (ms *MediaSet) SetFileListCheckValueType(t *CheckValueType)  { ms.fileListCheck = t }
func (ms *MediaSet) SetLoadListCheckValueType(t *CheckValueType)  { ms.loadListCheck = t }
func (ms *MediaSet) SetBatchListCheckValueType(t *CheckValueType) { ms.batchListCheck = t }
func (ms *MediaSet) SetFilesCheckValueType(t *CheckValueType)     { ms.filesCheck = t }

// EffectiveFilesCheckValueType returns the files default, or NotUsed when
// unset (§4.E).
func (ms *MediaSet) EffectiveFilesCheckValueType() CheckValueType {
	if ms.filesCheck != nil {
		return *ms.filesCheck
	}
	return CheckValueNotUsed
}

// MediaSetCheckValueType, FileListCheckValueType, LoadListCheckValueType,
// BatchListCheckValueType and FilesCheckValueType return the Media Set's
// own override for each of the five check-value-type defaults described
// in §3, or nil when unset. Used by the XML round-trip (§4.F) to render
// and restore these defaults.
func (ms *MediaSet) MediaSetCheckValueType() *CheckValueType  { return ms.mediaSetCheck }
func (ms *MediaSet) FileListCheckValueType() *CheckValueType  { return ms.fileListCheck }
func (ms *MediaSet) LoadListCheckValueType() *CheckValueType  { return ms.loadListCheck }
func (ms *MediaSet) BatchListCheckValueType() *CheckValueType { return ms.batchListCheck }
func (ms *MediaSet) FilesCheckValueType() *CheckValueType     { return ms.filesCheck }

// DefaultMediumNumber returns the Media Set's own default-medium-number
// override, or 0 when unset (distinct from EffectiveDefaultMediumNumber,
// which falls back to 1).
func (ms *MediaSet) DefaultMediumNumber() MediumNumber { return ms.defaultMedium }

// Path implements ContainerEntity: a Media Set's own path is always "/"
// (§3).
func (ms *MediaSet) Path() string { return "/" }

// EffectiveDefaultMediumNumber implements ContainerEntity: a MediaSet has
// no parent to recurse to, so its own override (or 1) is the base case
// of the cascade (§4.E).
func (ms *MediaSet) EffectiveDefaultMediumNumber() MediumNumber {
	if ms.defaultMedium == 0 {
		return DefaultMediumNumber
	}
	return ms.defaultMedium
}

// noteMediumUse records that a Medium exists, backing the contiguity
// invariant (§3 "medium numbers are contiguous beginning at 1").
func (ms *MediaSet) noteMediumUse(n MediumNumber) {
	if !ms.present.has(n) {
		ms.present.add(n)
		ms.mediumNumbers = append(ms.mediumNumbers, n)
		sort.Slice(ms.mediumNumbers, func(i, j int) bool { return ms.mediumNumbers[i] < ms.mediumNumbers[j] })
	}
}

// Medium returns the Medium with the given number, creating it (along
// with an empty root Directory) if it does not already exist. Strong
// ownership runs MediaSet → Medium per §3.
func (ms *MediaSet) Medium(n MediumNumber) *Medium {
	if m, ok := ms.media[n]; ok {
		return m
	}
	m := &Medium{number: n, mediaSet: ms}
	m.root = newDirectory("", m, ms)
	ms.media[n] = m
	ms.noteMediumUse(n)
	return m
}

// Media returns every Medium, in ascending medium-number order.
func (ms *MediaSet) Media() []*Medium {
	out := make([]*Medium, 0, len(ms.mediumNumbers))
	for _, n := range ms.mediumNumbers {
		out = append(out, ms.media[n])
	}
	return out
}

// LastMediumNumber is the maximum effective medium number across every
// contained file, or 1 when the Media Set is empty (§4.E, §8
// "last-medium correctness"). It is computed live on every call rather
// than cached (§9 "Effective-value cascade"), so removing the only file
// on the highest medium is reflected immediately.
func (ms *MediaSet) LastMediumNumber() MediumNumber {
	max := MediumNumber(0)
	for _, f := range ms.RecursiveFiles() {
		if n := f.EffectiveMediumNumber(); n > max {
			max = n
		}
	}
	if max == 0 {
		return DefaultMediumNumber
	}
	return max
}

func (ms *MediaSet) resolveMediumFor(override *MediumNumber) MediumNumber {
	if override != nil {
		return *override
	}
	return ms.EffectiveDefaultMediumNumber()
}

// Subdirectory implements ContainerEntity by searching every Medium's
// root directory, in ascending medium-number order, for name (§3 path
// namespace is shared across media).
func (ms *MediaSet) Subdirectory(name string) (*Directory, bool) {
	for _, m := range ms.Media() {
		if d, ok := m.root.Subdirectory(name); ok {
			return d, true
		}
	}
	return nil, false
}

// File implements ContainerEntity, searching every Medium's root
// directory for an immediate child file named name.
func (ms *MediaSet) File(name string) (*File, bool) {
	for _, m := range ms.Media() {
		if f, ok := m.root.File(name); ok {
			return f, true
		}
	}
	return nil, false
}

// Subdirectories implements ContainerEntity, concatenating every
// Medium's root subdirectories in medium order.
func (ms *MediaSet) Subdirectories() []*Directory {
	var out []*Directory
	for _, m := range ms.Media() {
		out = append(out, m.root.Subdirectories()...)
	}
	return out
}

// Files implements ContainerEntity, concatenating every Medium's root
// files in medium order.
func (ms *MediaSet) Files() []*File {
	var out []*File
	for _, m := range ms.Media() {
		out = append(out, m.root.Files()...)
	}
	return out
}

// AddSubdirectory implements ContainerEntity by delegating to the root
// directory of the effective default medium.
func (ms *MediaSet) AddSubdirectory(name string) (*Directory, error) {
	return ms.Medium(ms.EffectiveDefaultMediumNumber()).root.AddSubdirectory(name)
}

// AddRegularFile implements ContainerEntity: the file is placed in the
// tree of the Medium matching its resolved effective medium number.
func (ms *MediaSet) AddRegularFile(name string, medium *MediumNumber) (*File, error) {
	return ms.Medium(ms.resolveMediumFor(medium)).root.AddRegularFile(name, medium)
}

// AddLoad implements ContainerEntity.
func (ms *MediaSet) AddLoad(name string, medium *MediumNumber) (*File, error) {
	return ms.Medium(ms.resolveMediumFor(medium)).root.AddLoad(name, medium)
}

// AddBatch implements ContainerEntity.
func (ms *MediaSet) AddBatch(name string, medium *MediumNumber) (*File, error) {
	return ms.Medium(ms.resolveMediumFor(medium)).root.AddBatch(name, medium)
}

// RemoveFile implements ContainerEntity by locating the owning Medium's
// root directory and delegating the removal to it.
func (ms *MediaSet) RemoveFile(name string) error {
	for _, m := range ms.Media() {
		if _, ok := m.root.File(name); ok {
			return m.root.RemoveFile(name)
		}
	}
	return errors.Wrapf(IoError, "no such file %q", name)
}

// RemoveSubdirectory implements ContainerEntity by locating the owning
// Medium's root directory and delegating the removal to it.
func (ms *MediaSet) RemoveSubdirectory(name string) error {
	for _, m := range ms.Media() {
		if _, ok := m.root.Subdirectory(name); ok {
			return m.root.RemoveSubdirectory(name)
		}
	}
	return errors.Wrapf(IoError, "no such subdirectory %q", name)
}

// RecursiveDirectories returns every Directory in the Media Set, media
// in ascending order, each subtree in depth-first pre-order.
func (ms *MediaSet) RecursiveDirectories() []*Directory {
	var out []*Directory
	for _, m := range ms.Media() {
		out = append(out, recurseDirectories(m.root)...)
	}
	return out
}

func recurseDirectories(d *Directory) []*Directory {
	out := []*Directory{d}
	for _, sub := range d.Subdirectories() {
		out = append(out, recurseDirectories(sub)...)
	}
	return out
}

// RecursiveFiles returns every File in the Media Set: media in ascending
// order, and within each directory its subdirectories' files (in
// insertion order, recursively) followed by its own files in insertion
// order (§4.E "deterministic pre-order").
func (ms *MediaSet) RecursiveFiles() []*File {
	var out []*File
	for _, m := range ms.Media() {
		out = append(out, recurseFiles(m.root)...)
	}
	return out
}

func recurseFiles(d *Directory) []*File {
	var out []*File
	for _, sub := range d.Subdirectories() {
		out = append(out, recurseFiles(sub)...)
	}
	return append(out, d.Files()...)
}

// RecursiveLoads returns every File currently tagged Load.
func (ms *MediaSet) RecursiveLoads() []*File {
	var out []*File
	for _, f := range ms.RecursiveFiles() {
		if f.typ == FileTypeLoad {
			out = append(out, f)
		}
	}
	return out
}

// RecursiveBatches returns every File currently tagged Batch.
func (ms *MediaSet) RecursiveBatches() []*File {
	var out []*File
	for _, f := range ms.RecursiveFiles() {
		if f.typ == FileTypeBatch {
			out = append(out, f)
		}
	}
	return out
}

// LoadsWithFile returns every Load that references target (as a data or
// support file) through a weak reference still resolving to it. A file
// removed from the tree is, by construction, no longer returned here
// even if a Load's LoadFileRef.file Handle has not been cleared, because
// the Handle itself stops resolving (§8 "weak reference safety").
func (ms *MediaSet) LoadsWithFile(target *File) []*File {
	var out []*File
	for _, f := range ms.RecursiveLoads() {
		ld, _ := f.Load()
		for _, ref := range append(append([]LoadFileRef{}, ld.DataFiles...), ld.SupportFiles...) {
			if resolved, ok := resolveLoadFile(ms, ref); ok && resolved == target {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// FileByName returns the File anywhere in the Media Set with the given
// bare filename (unique across a Media Set in real ARINC 665 practice,
// §4.G step 5/6). Used to resolve by-filename references such as a Load's
// data/support files or a Batch's load targets.
func (ms *MediaSet) FileByName(name string) (*File, bool) {
	return ms.findFileByName(name)
}

// FileByPath returns the File at an absolute path, e.g. "/A/DATA.BIN" (§8
// "path resolution"). It walks path segment by segment, choosing the
// MediaSet or Directory's Subdirectory/File children as appropriate.
func (ms *MediaSet) FileByPath(path string) (*File, bool) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, false
	}
	var cur ContainerEntity = ms
	for i, seg := range segs {
		if i == len(segs)-1 {
			return cur.File(seg)
		}
		d, ok := cur.Subdirectory(seg)
		if !ok {
			return nil, false
		}
		cur = d
	}
	return nil, false
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				segs = append(segs, path[start:i])
			}
			start = i + 1
		}
	}
	return segs
}

// Medium is one physical (or virtual) unit of a Media Set, numbered from
// 1, owning a single root Directory (§3). The back-reference to its
// owning MediaSet is a plain pointer: Go's collector makes the resulting
// cycle (MediaSet → Medium → MediaSet) safe without weak-pointer
// discipline.
type Medium struct {
	number   MediumNumber
	mediaSet *MediaSet
	root     *Directory
}

// Number returns the medium's number.
func (m *Medium) Number() MediumNumber { return m.number }

// Root returns the medium's root Directory.
func (m *Medium) Root() *Directory { return m.root }

// Path implements ContainerEntity: a Medium's own path is "/" (§3).
func (m *Medium) Path() string { return "/" }

// EffectiveDefaultMediumNumber implements ContainerEntity by returning
// this medium's number, the natural default for files placed here
// without an explicit override.
func (m *Medium) EffectiveDefaultMediumNumber() MediumNumber { return m.number }

func (m *Medium) Subdirectory(name string) (*Directory, bool)          { return m.root.Subdirectory(name) }
func (m *Medium) File(name string) (*File, bool)                      { return m.root.File(name) }
func (m *Medium) Subdirectories() []*Directory                        { return m.root.Subdirectories() }
func (m *Medium) Files() []*File                                      { return m.root.Files() }
func (m *Medium) AddSubdirectory(name string) (*Directory, error)     { return m.root.AddSubdirectory(name) }
func (m *Medium) AddRegularFile(name string, n *MediumNumber) (*File, error) {
	return m.root.AddRegularFile(name, n)
}
func (m *Medium) AddLoad(name string, n *MediumNumber) (*File, error) { return m.root.AddLoad(name, n) }
func (m *Medium) AddBatch(name string, n *MediumNumber) (*File, error) {
	return m.root.AddBatch(name, n)
}
func (m *Medium) RemoveFile(name string) error { return m.root.RemoveFile(name) }
func (m *Medium) RemoveSubdirectory(name string) error {
	return m.root.RemoveSubdirectory(name)
}

var (
	_ ContainerEntity = (*MediaSet)(nil)
	_ ContainerEntity = (*Medium)(nil)
	_ ContainerEntity = (*Directory)(nil)
)
