package arinc665

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// LoadFileEntry is one data- or support-file reference as it appears on
// the wire inside a Load Header, distinct from the model's weak
// LoadFileRef: the codec layer only ever sees the declared filename,
// part number, byte length and CRC-16 that the decompiler resolves
// against the Media Set's own file tree (§4.G step 5).
type LoadFileEntry struct {
	Filename   string
	PartNumber PartNumber
	Length     uint32
	CRC        uint16
}

// LoadHeader is the decoded form of a `.LUH` file (§4.C "Load Header").
type LoadHeader struct {
	Version         Version
	PartNumber      PartNumber
	Type            *LoadType
	PartFlags       uint16
	TargetHardware  []TargetHardware
	DataFiles       []LoadFileEntry
	SupportFiles    []LoadFileEntry
	UserDefinedData []byte
	LoadCheckValue  *CheckValue
	FilesCheckValue *CheckValue
	LoadCRC         uint32
}

// pointer table slot indices; Supplement 2 uses only the first five,
// Supplement 3/4 and 5 use all eight (§4.C "From Supplement 3/4 onward
// the pointer table also references load-type description + code, and
// load/files check values").
const (
	luhPtrPartNumber = iota
	luhPtrTargetHardware
	luhPtrDataFiles
	luhPtrSupportFiles
	luhPtrUserData
	luhPtrLoadType
	luhPtrLoadCheckValue
	luhPtrFilesCheckValue
	luhPtrCountSupplement2  = 5
	luhPtrCountSupplement34 = 8
)

func luhPointerCount(supplement Supplement) int {
	if supplement == Supplement2 {
		return luhPtrCountSupplement2
	}
	return luhPtrCountSupplement34
}

// DecodeLoadHeader decodes a complete `.LUH` byte buffer.
func DecodeLoadHeader(buf []byte) (*LoadHeader, error) {
	if err := checkFileLength(buf); err != nil {
		return nil, err
	}
	headerCRC, loadCRC, err := decodeLUHTrailer(buf)
	_ = headerCRC
	if err != nil {
		return nil, err
	}
	r := newReader(buf)
	version, err := decodeHeader(r)
	if err != nil {
		return nil, err
	}
	kind, ok := kindOf(version)
	if !ok || kind != KindLoadHeader {
		return nil, errors.Wrapf(UnsupportedVersion, "version %#04x is not a load header", uint16(version))
	}
	supplement, _ := supplementOf(version)
	n := luhPointerCount(supplement)

	ptrs, err := readPointerTable(r, n)
	if err != nil {
		return nil, err
	}
	if err := checkPointerOrder(ptrs); err != nil {
		return nil, err
	}

	if err := r.seekWords(ptrs[luhPtrPartNumber]); err != nil {
		return nil, errors.Wrap(err, "seeking to load part number")
	}
	pnStr, err := r.readString()
	if err != nil {
		return nil, errors.Wrap(err, "reading load part number")
	}
	pn, err := ParsePartNumber(pnStr)
	if err != nil {
		return nil, err
	}

	var loadType *LoadType
	var partFlags uint16
	if supplement != Supplement2 && ptrs[luhPtrLoadType] != 0 {
		if err := r.seekWords(ptrs[luhPtrLoadType]); err != nil {
			return nil, errors.Wrap(err, "seeking to load type block")
		}
		desc, err := r.readString()
		if err != nil {
			return nil, errors.Wrap(err, "reading load type description")
		}
		id, err := r.readU16()
		if err != nil {
			return nil, errors.Wrap(err, "reading load type id")
		}
		loadType = &LoadType{Description: desc, ID: id}
	}

	if err := r.seekWords(ptrs[luhPtrTargetHardware]); err != nil {
		return nil, errors.Wrap(err, "seeking to target hardware list")
	}
	thw, flags, err := decodeTargetHardwareList(r, supplement)
	if err != nil {
		return nil, err
	}
	partFlags = flags

	if err := r.seekWords(ptrs[luhPtrDataFiles]); err != nil {
		return nil, errors.Wrap(err, "seeking to data file list")
	}
	dataFiles, err := decodeLoadFileEntries(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading data file list")
	}

	if err := r.seekWords(ptrs[luhPtrSupportFiles]); err != nil {
		return nil, errors.Wrap(err, "seeking to support file list")
	}
	supportFiles, err := decodeLoadFileEntries(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading support file list")
	}

	var userData []byte
	if ptrs[luhPtrUserData] != 0 {
		if err := r.seekWords(ptrs[luhPtrUserData]); err != nil {
			return nil, errors.Wrap(err, "seeking to user-defined-data block")
		}
		userData, err = decodeUserData(r)
		if err != nil {
			return nil, err
		}
	}

	var loadCV, filesCV *CheckValue
	if supplement != Supplement2 {
		if ptrs[luhPtrLoadCheckValue] != 0 {
			if err := r.seekWords(ptrs[luhPtrLoadCheckValue]); err != nil {
				return nil, errors.Wrap(err, "seeking to load check value")
			}
			v, err := decodeCheckValue(r)
			if err != nil {
				return nil, errors.Wrap(err, "reading load check value")
			}
			if v.Type != CheckValueNotUsed {
				loadCV = &v
			}
		}
		if ptrs[luhPtrFilesCheckValue] != 0 {
			if err := r.seekWords(ptrs[luhPtrFilesCheckValue]); err != nil {
				return nil, errors.Wrap(err, "seeking to files check value")
			}
			v, err := decodeCheckValue(r)
			if err != nil {
				return nil, errors.Wrap(err, "reading files check value")
			}
			if v.Type != CheckValueNotUsed {
				filesCV = &v
			}
		}
	}

	return &LoadHeader{
		Version:         version,
		PartNumber:      pn,
		Type:            loadType,
		PartFlags:       partFlags,
		TargetHardware:  thw,
		DataFiles:       dataFiles,
		SupportFiles:    supportFiles,
		UserDefinedData: userData,
		LoadCheckValue:  loadCV,
		FilesCheckValue: filesCV,
		LoadCRC:         loadCRC,
	}, nil
}

// decodeTargetHardwareList reads a u16 count and that many THW-ID
// entries. Supplement 2 entries are bare strings (no position list, no
// part-flags field); Supplement 3/4 onward each entry carries an
// optional position list, and the block is preceded by the load's
// part-flags word (§4.C "target-hardware-id can carry per-position
// sub-entries").
func decodeTargetHardwareList(r *reader, supplement Supplement) ([]TargetHardware, uint16, error) {
	var partFlags uint16
	if supplement != Supplement2 {
		v, err := r.readU16()
		if err != nil {
			return nil, 0, errors.Wrap(err, "reading part flags")
		}
		partFlags = v
	}
	count, err := r.readU16()
	if err != nil {
		return nil, 0, errors.Wrap(err, "reading target hardware count")
	}
	out := make([]TargetHardware, count)
	for i := range out {
		id, err := r.readString()
		if err != nil {
			return nil, 0, errors.Wrapf(err, "reading thw id for entry %d", i)
		}
		var positions []string
		if supplement != Supplement2 {
			positions, err = r.readStrings()
			if err != nil {
				return nil, 0, errors.Wrapf(err, "reading thw positions for entry %d", i)
			}
		}
		out[i] = TargetHardware{ThwID: id, Positions: positions}
	}
	return out, partFlags, nil
}

func decodeLoadFileEntries(r *reader) ([]LoadFileEntry, error) {
	count, err := r.readU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading file count")
	}
	if count == 0 {
		return nil, nil
	}
	out := make([]LoadFileEntry, count)
	for i := range out {
		name, err := r.readString()
		if err != nil {
			return nil, errors.Wrapf(err, "reading filename for entry %d", i)
		}
		pnStr, err := r.readString()
		if err != nil {
			return nil, errors.Wrapf(err, "reading part number for entry %d", i)
		}
		pn, err := ParsePartNumber(pnStr)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		length, err := r.readU32()
		if err != nil {
			return nil, errors.Wrapf(err, "reading length for entry %d", i)
		}
		crc, err := r.readU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading CRC for entry %d", i)
		}
		out[i] = LoadFileEntry{Filename: name, PartNumber: pn, Length: length, CRC: crc}
	}
	return out, nil
}

// decodeLUHTrailer reads the Load Header's two-part trailer: the
// standard header file CRC-16 (over everything preceding it), followed
// by the load CRC-32 (over the load's data and support file contents,
// computed by the caller, not by this decoder) as the file's final four
// bytes (§4.C "Trailer").
func decodeLUHTrailer(buf []byte) (headerCRC uint16, loadCRC uint32, err error) {
	if len(buf) < 6 {
		return 0, 0, errors.Wrap(InvalidLength, "buffer too short for load header trailer")
	}
	body := buf[:len(buf)-6]
	headerCRC = binary.BigEndian.Uint16(buf[len(buf)-6 : len(buf)-4])
	loadCRC = binary.BigEndian.Uint32(buf[len(buf)-4:])
	got := CRC16(body)
	if got != headerCRC {
		return 0, 0, errors.Wrapf(BadCrc, "header CRC mismatch: got %#04x want %#04x", got, headerCRC)
	}
	return headerCRC, loadCRC, nil
}

// Encode serializes lh back to its on-wire form. loadCRC is taken from
// lh.LoadCRC as supplied by the caller (the compiler computes it over
// the referenced data/support files before calling Encode; §4.H step 5).
func (lh *LoadHeader) Encode() ([]byte, error) {
	supplement, ok := supplementOf(lh.Version)
	if !ok {
		return nil, errors.Wrapf(UnsupportedVersion, "version %#04x", uint16(lh.Version))
	}
	pw := newPointerWriter(lh.Version, luhPointerCount(supplement))

	pw.mark(luhPtrPartNumber)
	pw.w.writeString(lh.PartNumber.String())

	if supplement != Supplement2 {
		pw.markIfNonEmpty(luhPtrLoadType, lh.Type == nil)
		if lh.Type != nil {
			pw.w.writeString(lh.Type.Description)
			pw.w.writeU16(lh.Type.ID)
		}
	}

	pw.mark(luhPtrTargetHardware)
	encodeTargetHardwareList(pw.w, lh.TargetHardware, lh.PartFlags, supplement)

	pw.mark(luhPtrDataFiles)
	encodeLoadFileEntries(pw.w, lh.DataFiles)

	pw.mark(luhPtrSupportFiles)
	encodeLoadFileEntries(pw.w, lh.SupportFiles)

	pw.markIfNonEmpty(luhPtrUserData, len(lh.UserDefinedData) == 0)
	if len(lh.UserDefinedData) > 0 {
		encodeUserData(pw.w, lh.UserDefinedData)
	}

	if supplement != Supplement2 {
		pw.markIfNonEmpty(luhPtrLoadType, lh.Type == nil)
		if lh.Type != nil {
			pw.w.writeString(lh.Type.Description)
			pw.w.writeU16(lh.Type.ID)
		}
		pw.markIfNonEmpty(luhPtrLoadCheckValue, lh.LoadCheckValue == nil)
		if lh.LoadCheckValue != nil {
			encodeCheckValue(pw.w, *lh.LoadCheckValue)
		}
		pw.markIfNonEmpty(luhPtrFilesCheckValue, lh.FilesCheckValue == nil)
		if lh.FilesCheckValue != nil {
			encodeCheckValue(pw.w, *lh.FilesCheckValue)
		}
	}

	body := pad16(pw.w.b)
	total := len(body) + 6
	binary.BigEndian.PutUint32(body[0:4], uint32(total/2))
	headerCRC := CRC16(body)
	out := make([]byte, 0, total)
	out = append(out, body...)
	var hc [2]byte
	binary.BigEndian.PutUint16(hc[:], headerCRC)
	out = append(out, hc[:]...)
	var lc [4]byte
	binary.BigEndian.PutUint32(lc[:], lh.LoadCRC)
	out = append(out, lc[:]...)
	return out, nil
}

func encodeTargetHardwareList(w *writer, thw []TargetHardware, partFlags uint16, supplement Supplement) {
	if supplement != Supplement2 {
		w.writeU16(partFlags)
	}
	w.writeU16(uint16(len(thw)))
	for _, t := range thw {
		w.writeString(t.ThwID)
		if supplement != Supplement2 {
			w.writeStrings(t.Positions)
		}
	}
}

func encodeLoadFileEntries(w *writer, entries []LoadFileEntry) {
	w.writeU16(uint16(len(entries)))
	for _, e := range entries {
		w.writeString(e.Filename)
		w.writeString(e.PartNumber.String())
		w.writeU32(e.Length)
		w.writeU16(e.CRC)
	}
}
