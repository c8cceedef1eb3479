package arinc665

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// BatchListEntry is one record of a BATCHES.LUM file (§4.C "List of
// Batches").
type BatchListEntry struct {
	PartNumber           PartNumber
	Filename             string
	MemberSequenceNumber uint16
}

// BatchListFile is the decoded form of BATCHES.LUM (§4.C).
type BatchListFile struct {
	Version                 Version
	PartNumber              PartNumber
	MediaSequenceNumber     uint8
	NumberOfMediaSetMembers uint8
	Batches                 []BatchListEntry
	UserDefinedData         []byte
}

// DecodeBatchListFile decodes a complete BATCHES.LUM byte buffer.
func DecodeBatchListFile(buf []byte) (*BatchListFile, error) {
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
	if !ok || kind != KindBatchList {
		return nil, errors.Wrapf(UnsupportedVersion, "version %#04x is not a batch list", uint16(version))
	}

	ptrs, err := readPointerTable(r, 3)
	if err != nil {
		return nil, err
	}
	if err := checkPointerOrder(ptrs); err != nil {
		return nil, err
	}
	mediaInfoPtr, batchesInfoPtr, userDataPtr := ptrs[0], ptrs[1], ptrs[2]

	if err := r.seekWords(mediaInfoPtr); err != nil {
		return nil, errors.Wrap(err, "seeking to media-information block")
	}
	mi, err := decodeMediaInformation(r)
	if err != nil {
		return nil, err
	}

	if err := r.seekWords(batchesInfoPtr); err != nil {
		return nil, errors.Wrap(err, "seeking to batches-info block")
	}
	count, err := r.readU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading batch count")
	}
	entries, err := decodeBatchListEntries(r, count)
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

	return &BatchListFile{
		Version:                 version,
		PartNumber:              mi.PartNumber,
		MediaSequenceNumber:     mi.MediaSequenceNumber,
		NumberOfMediaSetMembers: mi.NumberOfMediaSetMembers,
		Batches:                 entries,
		UserDefinedData:         userData,
	}, nil
}

func decodeBatchListEntries(r *reader, count uint16) ([]BatchListEntry, error) {
	out := make([]BatchListEntry, count)
	for i := range out {
		nextPtr, err := r.readU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading next-record pointer for entry %d", i)
		}
		pnStr, err := r.readString()
		if err != nil {
			return nil, errors.Wrapf(err, "reading batch part number for entry %d", i)
		}
		pn, err := ParsePartNumber(pnStr)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		filename, err := r.readString()
		if err != nil {
			return nil, errors.Wrapf(err, "reading batch filename for entry %d", i)
		}
		memberSeq, err := r.readU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading member sequence number for entry %d", i)
		}
		out[i] = BatchListEntry{PartNumber: pn, Filename: filename, MemberSequenceNumber: memberSeq}
		if i < len(out)-1 {
			if nextPtr == 0 {
				return nil, errors.Wrap(BadPointer, "missing next-record pointer before last batch entry")
			}
			if err := r.seekWords(uint32(nextPtr)); err != nil {
				return nil, errors.Wrapf(err, "seeking to next batch entry after %d", i)
			}
		}
	}
	return out, nil
}

// Encode serializes bl back to its on-wire form.
func (bl *BatchListFile) Encode() ([]byte, error) {
	if _, ok := supplementOf(bl.Version); !ok {
		return nil, errors.Wrapf(UnsupportedVersion, "version %#04x", uint16(bl.Version))
	}
	pw := newPointerWriter(bl.Version, 3)

	pw.mark(0)
	encodeMediaInformation(pw.w, mediaInformation{
		PartNumber:              bl.PartNumber,
		MediaSequenceNumber:     bl.MediaSequenceNumber,
		NumberOfMediaSetMembers: bl.NumberOfMediaSetMembers,
	})

	pw.mark(1)
	pw.w.writeU16(uint16(len(bl.Batches)))
	encodeBatchListEntries(pw.w, bl.Batches)

	pw.markIfNonEmpty(2, len(bl.UserDefinedData) == 0)
	if len(bl.UserDefinedData) > 0 {
		encodeUserData(pw.w, bl.UserDefinedData)
	}

	return pw.finalize(nil), nil
}

func encodeBatchListEntries(w *writer, entries []BatchListEntry) {
	for i, e := range entries {
		nextPos := len(w.b)
		w.writeU16(0)
		w.writeString(e.PartNumber.String())
		w.writeString(e.Filename)
		w.writeU16(e.MemberSequenceNumber)
		if i < len(entries)-1 {
			next := uint32(len(w.b) / 2)
			binary.BigEndian.PutUint16(w.b[nextPos:nextPos+2], uint16(next))
		}
	}
}
