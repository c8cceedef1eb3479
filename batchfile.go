package arinc665

import "github.com/pkg/errors"

// BatchLoadRef is one (header filename, part number) load reference
// inside a Batch target entry (§4.C "Batch").
type BatchLoadRef struct {
	HeaderFilename string
	PartNumber     PartNumber
}

// BatchFileTarget is one THW-ID-position entry of a `.LUB` file, with
// its ordered list of load references.
type BatchFileTarget struct {
	ThwIDPosition string
	Loads         []BatchLoadRef
}

// BatchFile is the decoded form of a `.LUB` file (§4.C "Batch").
type BatchFile struct {
	Version    Version
	PartNumber PartNumber
	Comment    string
	Targets    []BatchFileTarget
}

// DecodeBatchFile decodes a complete `.LUB` byte buffer.
func DecodeBatchFile(buf []byte) (*BatchFile, error) {
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
	if !ok || kind != KindBatch {
		return nil, errors.Wrapf(UnsupportedVersion, "version %#04x is not a batch", uint16(version))
	}

	ptrs, err := readPointerTable(r, 3)
	if err != nil {
		return nil, err
	}
	if err := checkPointerOrder(ptrs); err != nil {
		return nil, err
	}
	partNumberPtr, targetsPtr, commentPtr := ptrs[0], ptrs[1], ptrs[2]

	if err := r.seekWords(partNumberPtr); err != nil {
		return nil, errors.Wrap(err, "seeking to batch part number")
	}
	pnStr, err := r.readString()
	if err != nil {
		return nil, errors.Wrap(err, "reading batch part number")
	}
	pn, err := ParsePartNumber(pnStr)
	if err != nil {
		return nil, err
	}

	if err := r.seekWords(targetsPtr); err != nil {
		return nil, errors.Wrap(err, "seeking to target hardware list")
	}
	targets, err := decodeBatchTargets(r)
	if err != nil {
		return nil, err
	}

	comment := ""
	if commentPtr != 0 {
		if err := r.seekWords(commentPtr); err != nil {
			return nil, errors.Wrap(err, "seeking to comment")
		}
		comment, err = r.readString()
		if err != nil {
			return nil, errors.Wrap(err, "reading comment")
		}
	}

	return &BatchFile{Version: version, PartNumber: pn, Comment: comment, Targets: targets}, nil
}

// decodeBatchTargets reads the outer THW-ID-position count, then for
// each target its own inner load-reference count — each inner list is
// read from the cursor left by the previous entry, not from a shared
// or outer-scoped position (§9 Open Question (b): the original's parser
// conflates the two cursors; this one keeps them distinct).
func decodeBatchTargets(r *reader) ([]BatchFileTarget, error) {
	count, err := r.readU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading target count")
	}
	out := make([]BatchFileTarget, count)
	for i := range out {
		thwIDPosition, err := r.readString()
		if err != nil {
			return nil, errors.Wrapf(err, "reading thw-id-position for target %d", i)
		}
		loadCount, err := r.readU16()
		if err != nil {
			return nil, errors.Wrapf(err, "reading load count for target %d", i)
		}
		loads := make([]BatchLoadRef, loadCount)
		for j := range loads {
			filename, err := r.readString()
			if err != nil {
				return nil, errors.Wrapf(err, "reading load header filename for target %d load %d", i, j)
			}
			pnStr, err := r.readString()
			if err != nil {
				return nil, errors.Wrapf(err, "reading load part number for target %d load %d", i, j)
			}
			pn, err := ParsePartNumber(pnStr)
			if err != nil {
				return nil, errors.Wrapf(err, "target %d load %d", i, j)
			}
			loads[j] = BatchLoadRef{HeaderFilename: filename, PartNumber: pn}
		}
		out[i] = BatchFileTarget{ThwIDPosition: thwIDPosition, Loads: loads}
	}
	return out, nil
}

// Encode serializes bf back to its on-wire form.
func (bf *BatchFile) Encode() ([]byte, error) {
	if _, ok := supplementOf(bf.Version); !ok {
		return nil, errors.Wrapf(UnsupportedVersion, "version %#04x", uint16(bf.Version))
	}
	pw := newPointerWriter(bf.Version, 3)

	pw.mark(0)
	pw.w.writeString(bf.PartNumber.String())

	pw.mark(1)
	encodeBatchTargets(pw.w, bf.Targets)

	// An empty comment encodes as a zero-length string, not an absent
	// block (§9 Open Question (c)): the comment pointer is always set.
	pw.mark(2)
	pw.w.writeString(bf.Comment)

	return pw.finalize(nil), nil
}

func encodeBatchTargets(w *writer, targets []BatchFileTarget) {
	w.writeU16(uint16(len(targets)))
	for _, t := range targets {
		w.writeString(t.ThwIDPosition)
		w.writeU16(uint16(len(t.Loads)))
		for _, l := range t.Loads {
			w.writeString(l.HeaderFilename)
			w.writeString(l.PartNumber.String())
		}
	}
}
