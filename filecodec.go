package arinc665

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// decodeHeader reads the common 8-byte prefix shared by all five file
// kinds (§4.C): the length-in-words field (validated separately by
// checkFileLength against the whole buffer), the format version, and the
// spare field (must be zero).
func decodeHeader(r *reader) (Version, error) {
	if _, err := r.readU32(); err != nil {
		return 0, errors.Wrap(err, "reading file length")
	}
	v, err := r.readU16()
	if err != nil {
		return 0, errors.Wrap(err, "reading format version")
	}
	spare, err := r.readU16()
	if err != nil {
		return 0, errors.Wrap(err, "reading spare field")
	}
	if spare != 0 {
		return 0, errors.Wrap(BadPointer, "non-zero spare field")
	}
	return Version(v), nil
}

// checkFileLength validates that the header's declared length-in-words
// equals half the total decoded byte length (§4.C, §8 "header
// invariants").
func checkFileLength(buf []byte) error {
	if len(buf) < 4 {
		return errors.Wrap(InvalidLength, "buffer shorter than header")
	}
	declared := binary.BigEndian.Uint32(buf[0:4])
	if int(declared)*2 != len(buf) {
		return errors.Wrapf(InvalidLength, "declared %d words, got %d bytes", declared, len(buf))
	}
	return nil
}

// verifyFileCRC checks the trailing CRC-16 over buf[:len(buf)-2] against
// the file's last two bytes (§4.C "File CRC").
func verifyFileCRC(buf []byte) error {
	if len(buf) < 2 {
		return errors.Wrap(InvalidLength, "buffer too short for trailing CRC")
	}
	body := buf[:len(buf)-2]
	want := binary.BigEndian.Uint16(buf[len(buf)-2:])
	got := CRC16(body)
	if got != want {
		return errors.Wrapf(BadCrc, "file CRC mismatch: got %#04x want %#04x", got, want)
	}
	return nil
}

// readPointerTable reads n consecutive u32 word-offset pointers starting
// at the reader's current position (§4.C "pointer table").
func readPointerTable(r *reader, n int) ([]uint32, error) {
	out := make([]uint32, n)
	for i := range out {
		v, err := r.readU32()
		if err != nil {
			return nil, errors.Wrapf(err, "reading pointer table entry %d", i)
		}
		out[i] = v
	}
	return out, nil
}

// checkPointerOrder validates that non-zero pointers (a zero pointer
// means the corresponding optional block is absent, e.g. user-defined
// data) are in non-decreasing word order, matching the sequential
// body-block layout the encoder produces (§4.C decoder contract (iii)).
func checkPointerOrder(pointers []uint32) error {
	last := uint32(0)
	for _, p := range pointers {
		if p == 0 {
			continue
		}
		if p < last {
			return errors.Wrapf(BadPointer, "pointer table out of order: %d before %d", p, last)
		}
		last = p
	}
	return nil
}

// mediaInformation is the media-information block shared by all three
// list files (§4.C): the media set part number, which medium this file
// was read from (or is destined for), and the declared total member
// count.
type mediaInformation struct {
	PartNumber              PartNumber
	MediaSequenceNumber     uint8
	NumberOfMediaSetMembers uint8
}

func decodeMediaInformation(r *reader) (mediaInformation, error) {
	pnStr, err := r.readString()
	if err != nil {
		return mediaInformation{}, errors.Wrap(err, "reading media-set part number")
	}
	pn, err := ParsePartNumber(pnStr)
	if err != nil {
		return mediaInformation{}, err
	}
	seq, err := r.readU8()
	if err != nil {
		return mediaInformation{}, errors.Wrap(err, "reading media sequence number")
	}
	num, err := r.readU8()
	if err != nil {
		return mediaInformation{}, errors.Wrap(err, "reading number of media set members")
	}
	return mediaInformation{PartNumber: pn, MediaSequenceNumber: seq, NumberOfMediaSetMembers: num}, nil
}

func encodeMediaInformation(w *writer, mi mediaInformation) {
	w.writeString(mi.PartNumber.String())
	w.writeU8(mi.MediaSequenceNumber)
	w.writeU8(mi.NumberOfMediaSetMembers)
}

// decodeUserData reads the optional user-defined-data block, which
// shares its length-prefixed-bytes layout with readString (§4.A); an
// absent block decodes to a zero-length string and is reported as nil.
func decodeUserData(r *reader) ([]byte, error) {
	s, err := r.readString()
	if err != nil {
		return nil, errors.Wrap(err, "reading user-defined-data")
	}
	if s == "" {
		return nil, nil
	}
	return []byte(s), nil
}

// encodeUserData writes data using the same length-prefixed-bytes layout
// as writeString.
func encodeUserData(w *writer, data []byte) {
	w.writeString(string(data))
}

// pointerWriter accumulates a writer body alongside a reserved pointer
// table that gets backfilled once every block's start offset is known
// (§9 "Pointer tables": reserve slots, emit the body, backfill).
type pointerWriter struct {
	w           *writer
	tableOffset int // byte offset of the first reserved pointer slot
	n           int
}

// newPointerWriter writes the common 8-byte header (length placeholder,
// version, zero spare) followed by n reserved zero pointer slots.
func newPointerWriter(version Version, n int) *pointerWriter {
	w := newWriter()
	w.writeU32(0) // length, backfilled by finalize
	w.writeU16(uint16(version))
	w.writeU16(0) // spare
	offset := len(w.b)
	for i := 0; i < n; i++ {
		w.writeU32(0)
	}
	return &pointerWriter{w: w, tableOffset: offset, n: n}
}

// mark records the writer's current word offset into pointer slot i.
// Call once per block, in slot order, immediately before emitting that
// block's bytes; call with the final offset (no following block) to
// leave a slot at the end-of-data marker if needed.
func (pw *pointerWriter) mark(i int) {
	off := pw.tableOffset + i*4
	binary.BigEndian.PutUint32(pw.w.b[off:off+4], pw.w.offsetWords())
}

// markIfNonEmpty records pw's current offset into slot i only if the
// block about to be written is non-empty; otherwise the slot is left
// zero, meaning "absent" (§4.C "User-defined-data pointer is 0 when the
// block is absent").
func (pw *pointerWriter) markIfNonEmpty(i int, empty bool) {
	if empty {
		return
	}
	pw.mark(i)
}

// finalize appends a trailer built by trailerFn (receiving the
// word-aligned body so far) then backfills the length-in-words header
// field and appends the trailing CRC-16 (§4.C "File CRC").
func (pw *pointerWriter) finalize(trailerFn func(body []byte) []byte) []byte {
	body := pad16(pw.w.b)
	if trailerFn != nil {
		body = trailerFn(body)
	}
	total := len(body) + 2
	binary.BigEndian.PutUint32(body[0:4], uint32(total/2))
	crc := CRC16(body)
	out := make([]byte, len(body)+2)
	copy(out, body)
	binary.BigEndian.PutUint16(out[len(body):], crc)
	return out
}
