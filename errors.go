package pntfs

import "errors"

// ErrorKind identifies one of the failure modes a Volume operation can
// report. It mirrors the teacher's fileResult pattern (fat.go): an enum
// returned alongside (or wrapped into) an error rather than a family of
// distinct sentinel values scattered across the package.
type ErrorKind uint8

const (
	// KindNone indicates no error.
	KindNone ErrorKind = iota
	// KindNoSpace means there was not enough contiguous+fragmented free
	// space for the requested allocation, or no room for one more child
	// UID in a directory's cluster pool.
	KindNoSpace
	// KindNoMFT means no free MFT record was available.
	KindNoMFT
	// KindNotFound means name resolution failed.
	KindNotFound
	// KindNotEmpty means rmdir was attempted on a non-empty directory.
	KindNotEmpty
	// KindHostIO means a host file could not be opened for import/export.
	KindHostIO
	// KindIndexOutOfRange means a disk index argument fell outside its
	// valid range. Unlike the other kinds this one is also latched as a
	// sticky flag on the Volume (see Volume.IndexOutOfRange).
	KindIndexOutOfRange
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoSpace:
		return "NOT ENOUGH FREE SPACE"
	case KindNoMFT:
		return "NOT ENOUGH FREE MFT ITEMS"
	case KindNotFound:
		return "NOT FOUND"
	case KindNotEmpty:
		return "NOT EMPTY"
	case KindHostIO:
		return "HOST IO ERROR"
	case KindIndexOutOfRange:
		return "INDEX OUT OF RANGE"
	default:
		return "NO ERROR"
	}
}

// VolumeError is the error type returned by Volume operations. It carries
// an ErrorKind so callers can branch on failure category with errors.Is,
// while Error() produces a human-readable message for logs.
type VolumeError struct {
	Kind ErrorKind
	Op   string
	Msg  string
}

func (e *VolumeError) Error() string {
	if e.Msg == "" {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Msg
}

// Is supports errors.Is(err, ErrNoSpace) and friends by comparing kinds.
func (e *VolumeError) Is(target error) bool {
	t, ok := target.(*VolumeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newVolumeError(op string, kind ErrorKind, msg string) *VolumeError {
	return &VolumeError{Op: op, Kind: kind, Msg: msg}
}

// Sentinel values usable with errors.Is(err, pntfs.ErrNoSpace).
var (
	ErrNoSpace          = &VolumeError{Kind: KindNoSpace}
	ErrNoMFT            = &VolumeError{Kind: KindNoMFT}
	ErrNotFound         = &VolumeError{Kind: KindNotFound}
	ErrNotEmpty         = &VolumeError{Kind: KindNotEmpty}
	ErrHostIO           = &VolumeError{Kind: KindHostIO}
	ErrIndexOutOfRange  = &VolumeError{Kind: KindIndexOutOfRange}
	errInvalidGeometry  = errors.New("pntfs: invalid disk geometry")
	errInvalidSignature = errors.New("pntfs: signature or descriptor too long")
)
