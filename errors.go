package arinc665

import "fmt"

// Kind is the machine-readable error taxonomy of §7: every public
// operation fails with exactly one of these.
type Kind int

const (
	KindInvalidLength Kind = iota
	KindUnsupportedVersion
	KindBadCrc
	KindBadPointer
	KindBadString
	KindInvalidCheckValue
	KindInvalidPartNumber
	KindInvalidFilename
	KindNameExists
	KindBrokenReference
	KindInconsistent
	KindIoError
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidLength:
		return "InvalidLength"
	case KindUnsupportedVersion:
		return "UnsupportedVersion"
	case KindBadCrc:
		return "BadCrc"
	case KindBadPointer:
		return "BadPointer"
	case KindBadString:
		return "BadString"
	case KindInvalidCheckValue:
		return "InvalidCheckValue"
	case KindInvalidPartNumber:
		return "InvalidPartNumber"
	case KindInvalidFilename:
		return "InvalidFilename"
	case KindNameExists:
		return "NameExists"
	case KindBrokenReference:
		return "BrokenReference"
	case KindInconsistent:
		return "Inconsistent"
	case KindIoError:
		return "IoError"
	case KindCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is the sentinel value every public operation's failure can be
// compared against with errors.Is, carrying its Kind and an optional
// message; errors.Is matches on Kind alone. Operation call
// sites wrap it with github.com/pkg/errors to attach the offending medium
// number, file path, or byte offset (§7 "user-visible behaviour").
type Error struct {
	Kind Kind
	Msg  string
}

func (e Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for the taxonomy in §7. Call sites use errors.Wrap(InvalidLength, ...)
// (or errors.Is against these bare values) rather than constructing a fresh
// Error{} each time, matching desync's ChunkMissing-style typed sentinel.
var (
	InvalidLength     = Error{Kind: KindInvalidLength}
	UnsupportedVersion = Error{Kind: KindUnsupportedVersion}
	BadCrc            = Error{Kind: KindBadCrc}
	BadPointer        = Error{Kind: KindBadPointer}
	BadString         = Error{Kind: KindBadString}
	BadPadding        = Error{Kind: KindBadString, Msg: "non-zero alignment pad byte"}
	UnexpectedEnd     = Error{Kind: KindBadString, Msg: "unexpected end of input"}
	InvalidCheckValue = Error{Kind: KindInvalidCheckValue}
	InvalidPartNumber = Error{Kind: KindInvalidPartNumber}
	InvalidFilename   = Error{Kind: KindInvalidFilename}
	NameExists        = Error{Kind: KindNameExists}
	BrokenReference   = Error{Kind: KindBrokenReference}
	Inconsistent      = Error{Kind: KindInconsistent}
	IoError           = Error{Kind: KindIoError}
	Cancelled         = Error{Kind: KindCancelled}
)
