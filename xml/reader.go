package xml

import (
	"encoding/xml"
	"io"

	arinc665 "github.com/arinc665/go-arinc665"
	"github.com/pkg/errors"
)

// Load decodes a document written by Save back into a MediaSet and its
// File-to-source-path mapping (§4.F). Forward references (a Load or
// Batch naming a file declared later in the document) are permitted: a
// first pass creates every File, a second pass resolves every Load's
// data/support-file references and every Batch's load references once
// the whole tree exists.
func Load(r io.Reader) (*arinc665.MediaSet, FilePathMapping, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, errors.Wrap(arinc665.IoError, err.Error())
	}

	pn, err := arinc665.ParsePartNumber(doc.PartNumber)
	if err != nil {
		return nil, nil, err
	}
	ms := arinc665.NewMediaSet(pn)
	if doc.DefaultMediumNumber != nil {
		ms.SetDefaultMediumNumber(arinc665.MediumNumber(*doc.DefaultMediumNumber))
	}
	if err := setCheckValueDefault(ms.SetMediaSetCheckValueType, doc.MediaSetCheckValue); err != nil {
		return nil, nil, err
	}
	if err := setCheckValueDefault(ms.SetFileListCheckValueType, doc.FileListCheckValue); err != nil {
		return nil, nil, err
	}
	if err := setCheckValueDefault(ms.SetLoadListCheckValueType, doc.LoadListCheckValue); err != nil {
		return nil, nil, err
	}
	if err := setCheckValueDefault(ms.SetBatchListCheckValueType, doc.BatchListCheckValue); err != nil {
		return nil, nil, err
	}
	if err := setCheckValueDefault(ms.SetFilesCheckValueType, doc.FilesCheckValue); err != nil {
		return nil, nil, err
	}

	ld := &loader{ms: ms, paths: FilePathMapping{}}
	for _, xm := range doc.Media {
		medium := ms.Medium(arinc665.MediumNumber(xm.Number))
		if err := ld.walkDirectory(medium.Root(), xm.Directory); err != nil {
			return nil, nil, err
		}
	}
	if err := ld.resolveReferences(); err != nil {
		return nil, nil, err
	}
	return ms, ld.paths, nil
}

// loader carries the first pass's state into the second: the
// in-progress MediaSet, the source-path mapping being assembled, and the
// documents' Load/Batch elements paired with the File each one created,
// deferred here because their DataFile/SupportFile/Load references may
// name files not yet visited in pass one (§4.F "two-pass strategy").
type loader struct {
	ms    *arinc665.MediaSet
	paths FilePathMapping

	pendingLoads  []pendingLoad
	pendingBatches []pendingBatch
}

type pendingLoad struct {
	file *arinc665.File
	elem xmlLoad
}

type pendingBatch struct {
	file *arinc665.File
	elem xmlBatch
}

// walkDirectory is pass one's recursive cursor: it creates every
// subdirectory and every File (tagged Regular/Load/Batch, non-reference
// attributes only) under dir, queuing each Load/Batch for pass two.
func (ld *loader) walkDirectory(dir *arinc665.Directory, xd xmlDirectory) error {
	if xd.DefaultMediumNumber != nil {
		n := arinc665.MediumNumber(*xd.DefaultMediumNumber)
		dir.SetDefaultMediumNumber(&n)
	}
	for _, xsub := range xd.Directories {
		sub, err := dir.AddSubdirectory(xsub.Name)
		if err != nil {
			return err
		}
		if err := ld.walkDirectory(sub, xsub); err != nil {
			return err
		}
	}
	for _, xf := range xd.RegularFiles {
		medium := mediumPtrValue(xf.MediumNumber)
		f, err := dir.AddRegularFile(xf.Name, medium)
		if err != nil {
			return err
		}
		if cv, err := checkValueTypePtr(xf.CheckValueType); err != nil {
			return err
		} else if cv != nil {
			f.SetCheckValueType(cv)
		}
		if xf.SourcePath != "" {
			ld.paths[f.Path()] = xf.SourcePath
		}
	}
	for _, xl := range xd.Loads {
		medium := mediumPtrValue(xl.MediumNumber)
		f, err := dir.AddLoad(xl.Name, medium)
		if err != nil {
			return err
		}
		if cv, err := checkValueTypePtr(xl.CheckValueType); err != nil {
			return err
		} else if cv != nil {
			f.SetCheckValueType(cv)
		}
		if xl.SourcePath != "" {
			ld.paths[f.Path()] = xl.SourcePath
		}
		ld.pendingLoads = append(ld.pendingLoads, pendingLoad{file: f, elem: xl})
	}
	for _, xb := range xd.Batches {
		medium := mediumPtrValue(xb.MediumNumber)
		f, err := dir.AddBatch(xb.Name, medium)
		if err != nil {
			return err
		}
		if xb.SourcePath != "" {
			ld.paths[f.Path()] = xb.SourcePath
		}
		ld.pendingBatches = append(ld.pendingBatches, pendingBatch{file: f, elem: xb})
	}
	return nil
}

// resolveReferences is pass two: every Load and Batch queued by pass one
// has its by-filename references resolved against the now-complete tree.
func (ld *loader) resolveReferences() error {
	for _, p := range ld.pendingLoads {
		partNumber, err := arinc665.ParsePartNumber(p.elem.PartNumber)
		if err != nil {
			return err
		}
		var typ *arinc665.LoadType
		if p.elem.TypeDescription != "" || p.elem.TypeID != nil {
			typ = &arinc665.LoadType{Description: p.elem.TypeDescription}
			if p.elem.TypeID != nil {
				typ.ID = *p.elem.TypeID
			}
		}
		var hw []arinc665.TargetHardware
		for _, xhw := range p.elem.TargetHardware {
			hw = append(hw, arinc665.TargetHardware{ThwID: xhw.ThwID, Positions: xhw.Positions})
		}
		dataFiles, err := ld.resolveFileRefs(p.elem.DataFiles)
		if err != nil {
			return err
		}
		supportFiles, err := ld.resolveFileRefs(p.elem.SupportFiles)
		if err != nil {
			return err
		}
		p.file.SetLoadAttributes(partNumber, typ, p.elem.PartFlags, hw, dataFiles, supportFiles, nil, nil)
	}
	for _, p := range ld.pendingBatches {
		partNumber, err := arinc665.ParsePartNumber(p.elem.PartNumber)
		if err != nil {
			return err
		}
		var targets []arinc665.BatchTarget
		for _, xt := range p.elem.Targets {
			t := arinc665.BatchTarget{ThwIDPosition: xt.ThwIDPosition}
			for _, xl := range xt.Loads {
				load, ok := ld.ms.FileByName(xl.Filename)
				if !ok || load.Type() != arinc665.FileTypeLoad {
					return errors.Wrapf(arinc665.BrokenReference, "batch %s: load %s not present", p.elem.Name, xl.Filename)
				}
				t.AddLoad(load)
			}
			targets = append(targets, t)
		}
		p.file.SetBatchAttributes(partNumber, p.elem.Comment, targets)
	}
	return nil
}

func (ld *loader) resolveFileRefs(refs []xmlFileRef) ([]arinc665.LoadFileRef, error) {
	var out []arinc665.LoadFileRef
	for _, r := range refs {
		target, ok := ld.ms.FileByName(r.Filename)
		if !ok {
			return nil, errors.Wrapf(arinc665.BrokenReference, "referenced file %s not present", r.Filename)
		}
		partNumber, err := arinc665.ParsePartNumber(r.PartNumber)
		if err != nil {
			return nil, err
		}
		out = append(out, arinc665.NewLoadFileRef(target, partNumber))
	}
	return out, nil
}

func setCheckValueDefault(set func(*arinc665.CheckValueType), s string) error {
	if s == "" {
		return nil
	}
	t, ok := arinc665.ParseCheckValueType(s)
	if !ok {
		return errors.Wrapf(arinc665.InvalidCheckValue, "unknown check value type %q", s)
	}
	set(&t)
	return nil
}

func checkValueTypePtr(s string) (*arinc665.CheckValueType, error) {
	if s == "" {
		return nil, nil
	}
	t, ok := arinc665.ParseCheckValueType(s)
	if !ok {
		return nil, errors.Wrapf(arinc665.InvalidCheckValue, "unknown check value type %q", s)
	}
	return &t, nil
}

func mediumPtrValue(n *uint8) *arinc665.MediumNumber {
	if n == nil {
		return nil
	}
	m := arinc665.MediumNumber(*n)
	return &m
}
