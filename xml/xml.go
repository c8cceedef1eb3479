// Package xml implements the human-editable document format of §4.F: a
// full Media Set model plus a File-to-source-path mapping, saved and
// loaded as canonical XML. Grounded on desync/caibx's role as a thin
// alternate-serialization front end over the core package, generalized
// from caibx's single flat chunk table to a tree with forward references
// resolved in two passes.
package xml

import (
	"encoding/xml"
	"io"
	"sort"

	arinc665 "github.com/arinc665/go-arinc665"
	"github.com/pkg/errors"
)

// FilePathMapping pairs a File's absolute path ("/DIR/NAME.EXT") with the
// external source path the compiler should read its bytes from (§4.F,
// §6 "per-File source path mapping"). A RegularFile, Load or Batch with
// no entry here has no known source and must be generated or is assumed
// already present on the medium.
type FilePathMapping map[string]string

type document struct {
	XMLName             xml.Name    `xml:"MediaSet"`
	PartNumber           string      `xml:"partNumber,attr"`
	DefaultMediumNumber  *uint8      `xml:"defaultMediumNumber,attr,omitempty"`
	MediaSetCheckValue   string      `xml:"mediaSetCheckValueType,attr,omitempty"`
	FileListCheckValue   string      `xml:"fileListCheckValueType,attr,omitempty"`
	LoadListCheckValue   string      `xml:"loadListCheckValueType,attr,omitempty"`
	BatchListCheckValue  string      `xml:"batchListCheckValueType,attr,omitempty"`
	FilesCheckValue      string      `xml:"filesCheckValueType,attr,omitempty"`
	Media                []xmlMedium `xml:"Medium"`
}

type xmlMedium struct {
	Number    uint8        `xml:"number,attr"`
	Directory xmlDirectory `xml:"Directory"`
}

type xmlDirectory struct {
	Name                string           `xml:"name,attr,omitempty"`
	DefaultMediumNumber *uint8           `xml:"defaultMediumNumber,attr,omitempty"`
	Directories         []xmlDirectory   `xml:"Directory"`
	RegularFiles        []xmlRegularFile `xml:"RegularFile"`
	Loads               []xmlLoad        `xml:"Load"`
	Batches             []xmlBatch       `xml:"Batch"`
}

type xmlRegularFile struct {
	Name           string `xml:"name,attr"`
	MediumNumber   *uint8 `xml:"mediumNumber,attr,omitempty"`
	CheckValueType string `xml:"checkValueType,attr,omitempty"`
	SourcePath     string `xml:"sourcePath,attr,omitempty"`
}

type xmlTargetHardware struct {
	ThwID     string   `xml:"thwId,attr"`
	Positions []string `xml:"Position"`
}

type xmlFileRef struct {
	Filename   string `xml:"filename,attr"`
	PartNumber string `xml:"partNumber,attr"`
}

type xmlLoad struct {
	Name            string              `xml:"name,attr"`
	MediumNumber    *uint8              `xml:"mediumNumber,attr,omitempty"`
	SourcePath      string              `xml:"sourcePath,attr,omitempty"`
	PartNumber      string              `xml:"partNumber,attr"`
	TypeDescription string              `xml:"typeDescription,attr,omitempty"`
	TypeID          *uint16             `xml:"typeId,attr,omitempty"`
	PartFlags       uint16              `xml:"partFlags,attr,omitempty"`
	CheckValueType  string              `xml:"checkValueType,attr,omitempty"`
	TargetHardware  []xmlTargetHardware `xml:"TargetHardware"`
	DataFiles       []xmlFileRef        `xml:"DataFile"`
	SupportFiles    []xmlFileRef        `xml:"SupportFile"`
}

type xmlBatchTarget struct {
	ThwIDPosition string       `xml:"thwIdPosition,attr"`
	Loads         []xmlFileRef `xml:"Load"`
}

type xmlBatch struct {
	Name         string           `xml:"name,attr"`
	MediumNumber *uint8           `xml:"mediumNumber,attr,omitempty"`
	SourcePath   string           `xml:"sourcePath,attr,omitempty"`
	PartNumber   string           `xml:"partNumber,attr"`
	Comment      string           `xml:"Comment,omitempty"`
	Targets      []xmlBatchTarget `xml:"Target"`
}

// Save renders ms plus paths as canonical XML (§4.F): stable attribute
// order (fixed by the struct field order above) and stable element order
// (subdirectories, then regular files, then loads, then batches, each
// sorted by name).
func Save(w io.Writer, ms *arinc665.MediaSet, paths FilePathMapping) error {
	doc := document{
		PartNumber:          ms.PartNumber.String(),
		MediaSetCheckValue:  checkValueTypeAttr(ms.MediaSetCheckValueType()),
		FileListCheckValue:  checkValueTypeAttr(ms.FileListCheckValueType()),
		LoadListCheckValue:  checkValueTypeAttr(ms.LoadListCheckValueType()),
		BatchListCheckValue: checkValueTypeAttr(ms.BatchListCheckValueType()),
		FilesCheckValue:     checkValueTypeAttr(ms.FilesCheckValueType()),
	}
	if ms.DefaultMediumNumber() != 0 {
		doc.DefaultMediumNumber = u8ptr(ms.DefaultMediumNumber())
	}
	for _, m := range ms.Media() {
		doc.Media = append(doc.Media, xmlMedium{
			Number:    uint8(m.Number()),
			Directory: renderDirectory(ms, m.Root(), paths),
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return errors.Wrap(arinc665.IoError, err.Error())
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(arinc665.IoError, err.Error())
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func renderDirectory(ms *arinc665.MediaSet, d *arinc665.Directory, paths FilePathMapping) xmlDirectory {
	out := xmlDirectory{Name: d.Name(), DefaultMediumNumber: mediumPtrAttr(d.DefaultMediumNumber())}

	subs := append([]*arinc665.Directory(nil), d.Subdirectories()...)
	sort.Slice(subs, func(i, j int) bool { return subs[i].Name() < subs[j].Name() })
	for _, sub := range subs {
		out.Directories = append(out.Directories, renderDirectory(ms, sub, paths))
	}

	files := append([]*arinc665.File(nil), d.Files()...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })
	for _, f := range files {
		switch f.Type() {
		case arinc665.FileTypeRegular:
			out.RegularFiles = append(out.RegularFiles, renderRegularFile(f, paths))
		case arinc665.FileTypeLoad:
			out.Loads = append(out.Loads, renderLoad(ms, f, paths))
		case arinc665.FileTypeBatch:
			out.Batches = append(out.Batches, renderBatch(ms, f, paths))
		}
	}
	return out
}

func renderRegularFile(f *arinc665.File, paths FilePathMapping) xmlRegularFile {
	return xmlRegularFile{
		Name:           f.Name(),
		MediumNumber:   mediumPtrAttr(f.MediumNumber()),
		CheckValueType: checkValueTypeAttr(f.CheckValueType()),
		SourcePath:     paths[f.Path()],
	}
}

func renderLoad(ms *arinc665.MediaSet, f *arinc665.File, paths FilePathMapping) xmlLoad {
	ld, _ := f.Load()
	out := xmlLoad{
		Name:           f.Name(),
		MediumNumber:   mediumPtrAttr(f.MediumNumber()),
		SourcePath:     paths[f.Path()],
		PartNumber:     ld.PartNumber.String(),
		PartFlags:      ld.PartFlags,
		CheckValueType: checkValueTypeAttr(f.CheckValueType()),
	}
	if ld.Type != nil {
		out.TypeDescription = ld.Type.Description
		out.TypeID = &ld.Type.ID
	}
	for _, hw := range ld.TargetHardware {
		out.TargetHardware = append(out.TargetHardware, xmlTargetHardware{ThwID: hw.ThwID, Positions: hw.Positions})
	}
	for _, ref := range ld.DataFiles {
		if r, ok := renderFileRef(ms, ref); ok {
			out.DataFiles = append(out.DataFiles, r)
		}
	}
	for _, ref := range ld.SupportFiles {
		if r, ok := renderFileRef(ms, ref); ok {
			out.SupportFiles = append(out.SupportFiles, r)
		}
	}
	return out
}

// renderFileRef resolves ref's weak target so its filename can be
// written to the document; ok is false for a stale reference (§8 "weak
// reference safety"), in which case the caller omits the element rather
// than emit an unresolvable filename.
func renderFileRef(ms *arinc665.MediaSet, ref arinc665.LoadFileRef) (xmlFileRef, bool) {
	target, ok := ref.File(ms)
	if !ok {
		return xmlFileRef{}, false
	}
	return xmlFileRef{Filename: target.Name(), PartNumber: ref.PartNumber.String()}, true
}

func renderBatch(ms *arinc665.MediaSet, f *arinc665.File, paths FilePathMapping) xmlBatch {
	bd, _ := f.Batch()
	out := xmlBatch{
		Name:         f.Name(),
		MediumNumber: mediumPtrAttr(f.MediumNumber()),
		SourcePath:   paths[f.Path()],
		PartNumber:   bd.PartNumber.String(),
		Comment:      bd.Comment,
	}
	for _, t := range bd.Targets {
		xt := xmlBatchTarget{ThwIDPosition: t.ThwIDPosition}
		for _, l := range t.Loads(ms) {
			xt.Loads = append(xt.Loads, xmlFileRef{Filename: l.Name()})
		}
		out.Targets = append(out.Targets, xt)
	}
	return out
}

func checkValueTypeAttr(t *arinc665.CheckValueType) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func mediumPtrAttr(n *arinc665.MediumNumber) *uint8 {
	if n == nil {
		return nil
	}
	return u8ptr(*n)
}

func u8ptr(n arinc665.MediumNumber) *uint8 {
	v := uint8(n)
	return &v
}
