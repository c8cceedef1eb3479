package arinc665

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// LoadListEntry is one record of a LOADS.LUM file (§4.C "List of
// Loads"). CheckValue is nil before Supplement 3/4.
type LoadListEntry struct {
	PartNumber           PartNumber
	HeaderFilename       string
	MemberSequenceNumber uint16
	TargetHardwareIDs    []string
	CheckValue           *CheckValue
}

// LoadList is the decoded form of LOADS.LUM (§4.C).
type LoadList struct {
	Version                 Version
	PartNumber              PartNumber
	MediaSequenceNumber     uint8
	NumberOfMediaSetMembers uint8
	Loads                   []LoadListEntry
	UserDefinedData         []byte
}

// DecodeLoadList decodes a complete LOADS.LUM byte buffer.
func DecodeLoadList(buf []byte) (*LoadList, error) {
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
	if !ok || kind != KindLoadList {
		return nil, errors.Wrapf(UnsupportedVersion, "version %#04x is not a load list", uint16(version))
	}
	supplement, _ := supplementOf(version)

	ptrs, err := readPointerTable(r, 3)
	if err != nil {
		return nil, err
	}
	if err := checkPointerOrder(ptrs); err != nil {
		return nil, err
	}
	mediaInfoPtr, loadsInfoPtr, userDataPtr := ptrs[0], ptrs[1], ptrs[2]

	if err := r.seekWords(mediaInfoPtr); err != nil {
		return nil, errors.Wrap(err, "seeking to media-information block")
	}
	mi, err := decodeMediaInformation(r)
	if err != nil {
		return nil, err
	}

	if err := r.seekWords(loadsInfoPtr); err != nil {
		return nil, errors.Wrap(err, "seeking to loads-info block")
	}
	count, err := r.readU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading load count")
	}
	entries, err := decodeLoadListEntries(r, count, supplement)
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

	return &LoadList{
		Version:                 version,
		PartNumber:              mi.PartNumber,
		MediaSequenceNumber:     mi.MediaSequenceNumber,
		NumberOfMediaSetMembers: mi.NumberOfMediaSetMembers,
		Loads:                   entries,
		UserDefinedData:         userData,
	}, nil
}

func decodeLoadListEntries(r *reader, count uint16, supplement Supplement) ([]LoadListEntry, error) {
	out := make([]LoadListEntry, count)
	for i := range out {
		nextPtr, err := r.readU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading next-record pointer for entry %d", i)
		}
		pnStr, err := r.readString()
		if err != nil {
			return nil, errors.Wrapf(err, "reading load part number for entry %d", i)
		}
		pn, err := ParsePartNumber(pnStr)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		filename, err := r.readString()
		if err != nil {
			return nil, errors.Wrapf(err, "reading load header filename for entry %d", i)
		}
		memberSeq, err := r.readU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading member sequence number for entry %d", i)
		}
		thwIDs, err := r.readStrings()
		if err != nil {
			return nil, errors.Wrapf(err, "reading target hardware ids for entry %d", i)
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
		out[i] = LoadListEntry{
			PartNumber:           pn,
			HeaderFilename:       filename,
			MemberSequenceNumber: memberSeq,
			TargetHardwareIDs:    thwIDs,
			CheckValue:           cv,
		}
		if i < len(out)-1 {
			if nextPtr == 0 {
				return nil, errors.Wrap(BadPointer, "missing next-record pointer before last load entry")
			}
			if err := r.seekWords(uint32(nextPtr)); err != nil {
				return nil, errors.Wrapf(err, "seeking to next load entry after %d", i)
			}
		}
	}
	return out, nil
}

// Encode serializes ll back to its on-wire form.
func (ll *LoadList) Encode() ([]byte, error) {
	supplement, ok := supplementOf(ll.Version)
	if !ok {
		return nil, errors.Wrapf(UnsupportedVersion, "version %#04x", uint16(ll.Version))
	}
	pw := newPointerWriter(ll.Version, 3)

	pw.mark(0)
	encodeMediaInformation(pw.w, mediaInformation{
		PartNumber:              ll.PartNumber,
		MediaSequenceNumber:     ll.MediaSequenceNumber,
		NumberOfMediaSetMembers: ll.NumberOfMediaSetMembers,
	})

	pw.mark(1)
	pw.w.writeU16(uint16(len(ll.Loads)))
	encodeLoadListEntries(pw.w, ll.Loads, supplement)

	pw.markIfNonEmpty(2, len(ll.UserDefinedData) == 0)
	if len(ll.UserDefinedData) > 0 {
		encodeUserData(pw.w, ll.UserDefinedData)
	}

	return pw.finalize(nil), nil
}

func encodeLoadListEntries(w *writer, entries []LoadListEntry, supplement Supplement) {
	for i, e := range entries {
		nextPos := len(w.b)
		w.writeU16(0)
		w.writeString(e.PartNumber.String())
		w.writeString(e.HeaderFilename)
		w.writeU16(e.MemberSequenceNumber)
		w.writeStrings(e.TargetHardwareIDs)
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
