package arinc665

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// FileListEntry is one record of a FILES.LUM file (§4.C "List of
// Files"). CheckValue is nil on Supplement 2, which carries no
// per-file check value in the file list.
type FileListEntry struct {
	Filename             string
	Pathname             string // e.g. `\DIR\`, always leading and trailing `\`
	MemberSequenceNumber uint16
	CRC                  uint16
	CheckValue           *CheckValue
}

// FileList is the decoded form of FILES.LUM (§4.C).
type FileList struct {
	Version                 Version
	PartNumber              PartNumber
	MediaSequenceNumber     uint8
	NumberOfMediaSetMembers uint8
	Files                   []FileListEntry
	UserDefinedData         []byte
}

// DecodeFileList decodes a complete FILES.LUM byte buffer.
func DecodeFileList(buf []byte) (*FileList, error) {
	if err := checkFileLength(buf); err != nil {
		return nil, err
	}
	if err := verifyFileCRC(buf); err != nil {
		return nil, err
	}
	r := newReader(buf)
	version, err := decodeHeader(r)
	if err != nil {
		return nil, err
	}
	kind, ok := kindOf(version)
	if !ok || kind != KindFileList {
		return nil, errors.Wrapf(UnsupportedVersion, "version %#04x is not a file list", uint16(version))
	}
	supplement, _ := supplementOf(version)

	ptrs, err := readPointerTable(r, 3)
	if err != nil {
		return nil, err
	}
	if err := checkPointerOrder(ptrs); err != nil {
		return nil, err
	}
	mediaInfoPtr, filesInfoPtr, userDataPtr := ptrs[0], ptrs[1], ptrs[2]

	if err := r.seekWords(mediaInfoPtr); err != nil {
		return nil, errors.Wrap(err, "seeking to media-information block")
	}
	mi, err := decodeMediaInformation(r)
	if err != nil {
		return nil, err
	}

	if err := r.seekWords(filesInfoPtr); err != nil {
		return nil, errors.Wrap(err, "seeking to files-info block")
	}
	count, err := r.readU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading file count")
	}
	entries, err := decodeFileListEntries(r, count, supplement)
	if err != nil {
		return nil, err
	}

	var userData []byte
	if userDataPtr != 0 {
		if err := r.seekWords(userDataPtr); err != nil {
			return nil, errors.Wrap(err, "seeking to user-defined-data block")
		}
		userData, err = decodeUserData(r)
		if err != nil {
			return nil, err
		}
	}

	return &FileList{
		Version:                 version,
		PartNumber:              mi.PartNumber,
		MediaSequenceNumber:     mi.MediaSequenceNumber,
		NumberOfMediaSetMembers: mi.NumberOfMediaSetMembers,
		Files:                   entries,
		UserDefinedData:         userData,
	}, nil
}

func decodeFileListEntries(r *reader, count uint16, supplement Supplement) ([]FileListEntry, error) {
	out := make([]FileListEntry, count)
	for i := range out {
		nextPtr, err := r.readU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading next-record pointer for entry %d", i)
		}
		filename, err := r.readString()
		if err != nil {
			return nil, errors.Wrapf(err, "reading filename for entry %d", i)
		}
		pathname, err := r.readString()
		if err != nil {
			return nil, errors.Wrapf(err, "reading pathname for entry %d", i)
		}
		memberSeq, err := r.readU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading member sequence number for entry %d", i)
		}
		crc, err := r.readU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading file CRC for entry %d", i)
		}
		var cv *CheckValue
		if supplement != Supplement2 {
			v, err := decodeCheckValue(r)
			if err != nil {
				return nil, errors.Wrapf(err, "reading check value for entry %d", i)
			}
			if v.Type != CheckValueNotUsed {
				cv = &v
			}
		}
		out[i] = FileListEntry{
			Filename:             filename,
			Pathname:             pathname,
			MemberSequenceNumber: memberSeq,
			CRC:                  crc,
			CheckValue:           cv,
		}
		if i < len(out)-1 {
			if nextPtr == 0 {
				return nil, errors.Wrap(BadPointer, "missing next-record pointer before last file entry")
			}
			if err := r.seekWords(uint32(nextPtr)); err != nil {
				return nil, errors.Wrapf(err, "seeking to next file entry after %d", i)
			}
		}
	}
	return out, nil
}

// Encode serializes fl back to its on-wire form.
func (fl *FileList) Encode() ([]byte, error) {
	supplement, ok := supplementOf(fl.Version)
	if !ok {
		return nil, errors.Wrapf(UnsupportedVersion, "version %#04x", uint16(fl.Version))
	}
	pw := newPointerWriter(fl.Version, 3)

	pw.mark(0)
	encodeMediaInformation(pw.w, mediaInformation{
		PartNumber:              fl.PartNumber,
		MediaSequenceNumber:     fl.MediaSequenceNumber,
		NumberOfMediaSetMembers: fl.NumberOfMediaSetMembers,
	})

	pw.mark(1)
	pw.w.writeU16(uint16(len(fl.Files)))
	encodeFileListEntries(pw.w, fl.Files, supplement)

	pw.markIfNonEmpty(2, len(fl.UserDefinedData) == 0)
	if len(fl.UserDefinedData) > 0 {
		encodeUserData(pw.w, fl.UserDefinedData)
	}

	return pw.finalize(nil), nil
}

func encodeFileListEntries(w *writer, entries []FileListEntry, supplement Supplement) {
	for i, e := range entries {
		nextPos := len(w.b)
		w.writeU16(0) // backfilled below unless this is the last entry
		w.writeString(e.Filename)
		w.writeString(e.Pathname)
		w.writeU16(e.MemberSequenceNumber)
		w.writeU16(e.CRC)
		if supplement != Supplement2 {
			var cv CheckValue
			if e.CheckValue != nil {
				cv = *e.CheckValue
			}
			encodeCheckValue(w, cv)
		}
		if i < len(entries)-1 {
			next := uint32(len(w.b) / 2)
			binary.BigEndian.PutUint16(w.b[nextPos:nextPos+2], uint16(next))
		}
	}
}
