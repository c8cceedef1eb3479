package arinc665

// FileKind identifies which of the five ARINC 665 file kinds a format
// version code belongs to, derived from the high byte of the version word
// (§4.C "The decoder dispatches on the high byte to determine kind").
type FileKind int

const (
	KindFileList FileKind = iota
	KindLoadList
	KindBatchList
	KindLoadHeader
	KindBatch
)

// Version is a format-version code as it appears at offset 4 of every
// ARINC 665 file header. The low byte selects the supplement.
type Version uint16

// List-of-Files/Loads/Batches version codes (§4.C).
const (
	VersionFileListSupplement2  Version = 0xA003
	VersionFileListSupplement34 Version = 0xA004
	VersionFileListSupplement5  Version = 0xA005

	VersionLoadListSupplement2  Version = 0xA103
	VersionLoadListSupplement34 Version = 0xA104
	VersionLoadListSupplement5  Version = 0xA105

	VersionBatchListSupplement2  Version = 0xA203
	VersionBatchListSupplement34 Version = 0xA204
	VersionBatchListSupplement5  Version = 0xA205
)

// Load Header version codes (the 0x80xx series, §4.C).
const (
	VersionLoadHeaderSupplement2  Version = 0x8003
	VersionLoadHeaderSupplement34 Version = 0x8004
	VersionLoadHeaderSupplement5  Version = 0x8005
)

// Batch version codes (the 0x90xx series, §4.C).
const (
	VersionBatchSupplement2  Version = 0x9003
	VersionBatchSupplement34 Version = 0x9004
	VersionBatchSupplement5  Version = 0x9005
)

// Supplement identifies the wire-format variant, independent of file kind.
type Supplement int

const (
	Supplement2 Supplement = iota
	Supplement34
	Supplement5
)

// String renders a human-readable supplement name. Derived directly from
// the tag rather than a separate description table/registry (§9 "Enum
// descriptions" design note; original_source kept a name/value table in
// SupportedArinc665VersionDescription.*, deliberately not carried here).
func (s Supplement) String() string {
	switch s {
	case Supplement2:
		return "Supplement 2"
	case Supplement34:
		return "Supplement 3/4"
	case Supplement5:
		return "Supplement 5"
	default:
		return "unknown supplement"
	}
}

// supplementOf returns the wire-format variant for a recognized version
// code, regardless of file kind.
func supplementOf(v Version) (Supplement, bool) {
	switch v & 0x00FF {
	case 0x03:
		return Supplement2, true
	case 0x04:
		return Supplement34, true
	case 0x05:
		return Supplement5, true
	default:
		return 0, false
	}
}

// kindOf returns the file kind for a recognized version code's high byte.
func kindOf(v Version) (FileKind, bool) {
	switch v {
	case VersionFileListSupplement2, VersionFileListSupplement34, VersionFileListSupplement5:
		return KindFileList, true
	case VersionLoadListSupplement2, VersionLoadListSupplement34, VersionLoadListSupplement5:
		return KindLoadList, true
	case VersionBatchListSupplement2, VersionBatchListSupplement34, VersionBatchListSupplement5:
		return KindBatchList, true
	case VersionLoadHeaderSupplement2, VersionLoadHeaderSupplement34, VersionLoadHeaderSupplement5:
		return KindLoadHeader, true
	case VersionBatchSupplement2, VersionBatchSupplement34, VersionBatchSupplement5:
		return KindBatch, true
	default:
		return 0, false
	}
}
