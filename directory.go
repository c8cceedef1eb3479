package arinc665

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ContainerEntity is the shared capability of MediaSet, Medium, and
// Directory (§3): every node able to hold subdirectories and files
// exposes the same surface, so add/lookup/recursive-iteration code is
// written once against the interface rather than once per concrete type.
type ContainerEntity interface {
	// Path renders this entity's location: "/" for a MediaSet or Medium,
	// parent path + "/" + name for a Directory.
	Path() string

	// EffectiveDefaultMediumNumber returns this entity's own override, or
	// recurses to the parent, or (at a MediaSet) falls back to 1.
	EffectiveDefaultMediumNumber() MediumNumber

	// Subdirectory looks up an immediate child directory by name.
	Subdirectory(name string) (*Directory, bool)
	// File looks up an immediate child file by name.
	File(name string) (*File, bool)

	// AddSubdirectory creates and returns a new immediate child
	// directory. Fails with NameExists if name collides with an existing
	// subdirectory or file, or InvalidFilename if name is not a valid
	// directory name.
	AddSubdirectory(name string) (*Directory, error)
	// AddRegularFile creates a new RegularFile child. medium may be nil
	// to inherit the effective default.
	AddRegularFile(name string, medium *MediumNumber) (*File, error)
	// AddLoad creates a new Load-typed file child.
	AddLoad(name string, medium *MediumNumber) (*File, error)
	// AddBatch creates a new Batch-typed file child.
	AddBatch(name string, medium *MediumNumber) (*File, error)

	// RemoveFile removes an immediate child file by name, releasing its
	// arena slot so outstanding weak references to it go empty.
	RemoveFile(name string) error
	// RemoveSubdirectory removes an immediate child directory by name,
	// releasing the arena slot of every file in its subtree.
	RemoveSubdirectory(name string) error

	// Subdirectories and Files list immediate children, in insertion
	// order.
	Subdirectories() []*Directory
	Files() []*File
}

// Directory is a named node owning a disjoint set of subdirectories and
// files (§3). Within one Directory, a subdirectory name and a file name
// may never collide.
type Directory struct {
	name    string
	medium  *MediumNumber // optional override of the effective default
	parent  ContainerEntity
	mediaSet *MediaSet

	subdirNames []string
	subdirs     map[string]*Directory
	fileNames   []string
	files       map[string]*File
}

func newDirectory(name string, parent ContainerEntity, ms *MediaSet) *Directory {
	return &Directory{
		name:     name,
		parent:   parent,
		mediaSet: ms,
		subdirs:  map[string]*Directory{},
		files:    map[string]*File{},
	}
}

// Name returns the directory's own name (empty for a medium's root).
func (d *Directory) Name() string { return d.name }

// Path implements ContainerEntity.
func (d *Directory) Path() string {
	p := d.parent.Path()
	if p == "/" {
		return "/" + d.name
	}
	return p + "/" + d.name
}

// SetDefaultMediumNumber sets or clears (nil) this directory's
// default-medium-number override.
func (d *Directory) SetDefaultMediumNumber(n *MediumNumber) { d.medium = n }

// DefaultMediumNumber returns this directory's own default-medium-number
// override, or nil when unset.
func (d *Directory) DefaultMediumNumber() *MediumNumber { return d.medium }

// EffectiveDefaultMediumNumber implements ContainerEntity (§4.E).
func (d *Directory) EffectiveDefaultMediumNumber() MediumNumber {
	if d.medium != nil {
		return *d.medium
	}
	return d.parent.EffectiveDefaultMediumNumber()
}

// Subdirectory implements ContainerEntity.
func (d *Directory) Subdirectory(name string) (*Directory, bool) {
	sub, ok := d.subdirs[name]
	return sub, ok
}

// File implements ContainerEntity.
func (d *Directory) File(name string) (*File, bool) {
	f, ok := d.files[name]
	return f, ok
}

// Subdirectories implements ContainerEntity.
func (d *Directory) Subdirectories() []*Directory {
	out := make([]*Directory, 0, len(d.subdirNames))
	for _, n := range d.subdirNames {
		out = append(out, d.subdirs[n])
	}
	return out
}

// Files implements ContainerEntity.
func (d *Directory) Files() []*File {
	out := make([]*File, 0, len(d.fileNames))
	for _, n := range d.fileNames {
		out = append(out, d.files[n])
	}
	return out
}

func (d *Directory) nameTaken(name string) bool {
	if _, ok := d.subdirs[name]; ok {
		return true
	}
	if _, ok := d.files[name]; ok {
		return true
	}
	return false
}

// AddSubdirectory implements ContainerEntity.
func (d *Directory) AddSubdirectory(name string) (*Directory, error) {
	if !validDirectoryName(name) {
		return nil, errInvalidFilename(name)
	}
	if d.nameTaken(name) {
		return nil, errors.Wrapf(NameExists, "%q", name)
	}
	sub := newDirectory(name, d, d.mediaSet)
	d.subdirs[name] = sub
	d.subdirNames = append(d.subdirNames, name)
	return sub, nil
}

// AddRegularFile implements ContainerEntity.
func (d *Directory) AddRegularFile(name string, medium *MediumNumber) (*File, error) {
	return d.addFile(name, medium, FileTypeRegular, nil, nil)
}

// AddLoad implements ContainerEntity.
func (d *Directory) AddLoad(name string, medium *MediumNumber) (*File, error) {
	return d.addFile(name, medium, FileTypeLoad, &loadData{}, nil)
}

// AddBatch implements ContainerEntity.
func (d *Directory) AddBatch(name string, medium *MediumNumber) (*File, error) {
	return d.addFile(name, medium, FileTypeBatch, nil, &batchData{})
}

func (d *Directory) addFile(name string, medium *MediumNumber, typ FileType, ld *loadData, bd *batchData) (*File, error) {
	if !ValidFilename(name) {
		return nil, errInvalidFilename(name)
	}
	if d.nameTaken(name) {
		return nil, errors.Wrapf(NameExists, "%q", name)
	}
	f := &File{name: name, medium: medium, parent: d, typ: typ, load: ld, batch: bd}
	f.self = d.mediaSet.files.alloc(f)
	d.files[name] = f
	d.fileNames = append(d.fileNames, name)
	d.mediaSet.noteMediumUse(f.EffectiveMediumNumber())
	return f, nil
}

// RemoveFile implements ContainerEntity. It releases the file's arena
// slot so any outstanding Load/Batch weak reference to it goes empty
// (§8 "weak reference safety"). MediaSet.LastMediumNumber is computed
// live, so it reflects the removal immediately (§4.E "last-medium
// tracking").
func (d *Directory) RemoveFile(name string) error {
	f, ok := d.files[name]
	if !ok {
		return errors.Wrapf(IoError, "no such file %q", name)
	}
	delete(d.files, name)
	for i, n := range d.fileNames {
		if n == name {
			d.fileNames = append(d.fileNames[:i], d.fileNames[i+1:]...)
			break
		}
	}
	Log.WithFields(logrus.Fields{"file": name, "handle": f.self.String()}).Debug("releasing weak-reference slot")
	d.mediaSet.files.release(f.self)
	return nil
}

// RemoveSubdirectory implements ContainerEntity. Every file anywhere in
// the removed subtree has its arena slot released, so weak references
// into it go empty just as a direct RemoveFile would (§8 "weak reference
// safety").
func (d *Directory) RemoveSubdirectory(name string) error {
	sub, ok := d.subdirs[name]
	if !ok {
		return errors.Wrapf(IoError, "no such subdirectory %q", name)
	}
	for _, f := range recurseFiles(sub) {
		Log.WithFields(logrus.Fields{"file": f.Name(), "handle": f.self.String()}).Debug("releasing weak-reference slot")
		d.mediaSet.files.release(f.self)
	}
	delete(d.subdirs, name)
	for i, n := range d.subdirNames {
		if n == name {
			d.subdirNames = append(d.subdirNames[:i], d.subdirNames[i+1:]...)
			break
		}
	}
	return nil
}

// validDirectoryName applies the same character-class predicate as
// ValidFilename; directories never carry the reserved .LUH/.LUB
// extensions since they hold no file contents.
func validDirectoryName(name string) bool {
	return ValidFilename(name)
}
