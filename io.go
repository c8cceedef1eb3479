package arinc665

// ReadFile reads the complete contents of relative path path on medium
// mediumNumber (§6 "Abstract I/O interfaces").
type ReadFile func(mediumNumber MediumNumber, path string) ([]byte, error)

// FileSize reports the byte length of path on mediumNumber without
// reading its contents. It is optional; when nil, callers fall back to
// len(ReadFile(...)) (§6).
type FileSize func(mediumNumber MediumNumber, path string) (uint64, error)

// WriteFile writes data to relative path path on medium mediumNumber,
// creating or overwriting it (§6).
type WriteFile func(mediumNumber MediumNumber, path string, data []byte) error

// CreateMedium prepares storage for a new medium (e.g. a directory or
// device) before any file is written to it (§6).
type CreateMedium func(mediumNumber MediumNumber) error

// CreateDirectory prepares an intermediate directory on mediumNumber
// before any file below it is written (§6).
type CreateDirectory func(mediumNumber MediumNumber, relativePath string) error

// Phase names a decompiler/compiler/validator progress stage, reported
// through ProgressHandler (§6). Grounded on desync's ProgressBar,
// generalized from a single numeric counter to named phases since a
// compile/decompile run has several distinct stages worth reporting
// separately (one medium, one load, one validation check at a time).
type Phase int

const (
	PhaseMedium Phase = iota
	PhaseFile
	PhaseLoad
	PhaseBatch
	PhaseValidate
)

func (p Phase) String() string {
	switch p {
	case PhaseMedium:
		return "medium"
	case PhaseFile:
		return "file"
	case PhaseLoad:
		return "load"
	case PhaseBatch:
		return "batch"
	case PhaseValidate:
		return "validate"
	default:
		return "unknown"
	}
}

// ProgressHandler receives one call per unit of work within phase
// (§6). current and total are 1-based/inclusive; total may be 0 if not
// known in advance. description is a short human-readable label (a
// medium number, a file path).
type ProgressHandler func(phase Phase, current, total int, description string)

// noopProgress is used wherever a caller passes a nil ProgressHandler,
// so call sites never need a nil check.
func noopProgress(Phase, int, int, string) {}

func progressOrNoop(h ProgressHandler) ProgressHandler {
	if h == nil {
		return noopProgress
	}
	return h
}

// CancelFunc reports whether a long-running compile/decompile/validate
// invocation should stop at the next medium- or file-level checkpoint
// (§5 "cooperative and coarse-grained" cancellation). A nil CancelFunc
// is treated as "never cancelled".
type CancelFunc func() bool

func cancelled(c CancelFunc) bool {
	return c != nil && c()
}
