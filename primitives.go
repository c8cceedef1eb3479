package arinc665

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// reader wraps a byte slice cursor with the big-endian, word-aligned
// primitive decoders every ARINC 665 file kind needs. All multi-byte
// integers on the wire are big-endian (§4.A).
type reader struct {
	b   []byte
	pos int
}

func newReader(b []byte) *reader {
	return &reader{b: b}
}

func (r *reader) remaining() int {
	return len(r.b) - r.pos
}

// offsetWords returns the current position in 16-bit words, used to validate
// pointer-table entries against the actual byte cursor.
func (r *reader) offsetWords() uint32 {
	return uint32(r.pos / 2)
}

func (r *reader) seekWords(words uint32) error {
	p := int(words) * 2
	if p < 0 || p > len(r.b) {
		return errors.Wrapf(BadPointer, "offset %d words out of range", words)
	}
	r.pos = p
	return nil
}

func (r *reader) readN(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, errors.Wrap(UnexpectedEnd, "reading fixed-size field")
	}
	b := r.b[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readU8() (uint8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readU16() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) readU32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) readU64() (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// readString decodes an ARINC length-prefixed string: a u16 byte count
// followed by that many bytes, padded with a single zero byte if the count
// is odd to keep the cursor on a 16-bit word boundary (§4.A).
func (r *reader) readString() (string, error) {
	n, err := r.readU16()
	if err != nil {
		return "", errors.Wrap(err, "reading string length")
	}
	b, err := r.readN(int(n))
	if err != nil {
		return "", errors.Wrap(UnexpectedEnd, "reading string contents")
	}
	if n%2 != 0 {
		pad, err := r.readU8()
		if err != nil {
			return "", errors.Wrap(UnexpectedEnd, "reading string pad byte")
		}
		if pad != 0 {
			return "", errors.Wrap(BadPadding, "non-zero string pad byte")
		}
	}
	return string(b), nil
}

// readStrings decodes a u16 count followed by that many readString entries.
func (r *reader) readStrings() ([]string, error) {
	n, err := r.readU16()
	if err != nil {
		return nil, errors.Wrap(err, "reading string list count")
	}
	out := make([]string, n)
	for i := range out {
		out[i], err = r.readString()
		if err != nil {
			return nil, errors.Wrapf(err, "reading string list entry %d", i)
		}
	}
	return out, nil
}

// writer accumulates bytes for an ARINC 665 file, mirroring reader's
// layout rules on the way out.
type writer struct {
	b []byte
}

func newWriter() *writer {
	return &writer{}
}

func (w *writer) offsetWords() uint32 {
	return uint32(len(w.b) / 2)
}

func (w *writer) writeU8(v uint8) {
	w.b = append(w.b, v)
}

func (w *writer) writeU16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.b = append(w.b, b[:]...)
}

func (w *writer) writeU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.b = append(w.b, b[:]...)
}

func (w *writer) writeU64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.b = append(w.b, b[:]...)
}

func (w *writer) writeBytes(b []byte) {
	w.b = append(w.b, b...)
}

// writeString encodes s as a u16 byte count followed by its bytes, padded
// with a single zero byte when the length is odd.
func (w *writer) writeString(s string) {
	w.writeU16(uint16(len(s)))
	w.writeBytes([]byte(s))
	if len(s)%2 != 0 {
		w.writeU8(0)
	}
}

// writeStrings encodes a u16 count followed by that many writeString entries.
func (w *writer) writeStrings(ss []string) {
	w.writeU16(uint16(len(ss)))
	for _, s := range ss {
		w.writeString(s)
	}
}

// pad16 appends a single zero byte if b has odd length, restoring 16-bit
// alignment. It returns the (possibly unchanged) slice.
func pad16(b []byte) []byte {
	if len(b)%2 != 0 {
		b = append(b, 0)
	}
	return b
}
