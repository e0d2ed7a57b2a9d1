package sbx

import (
	"errors"
	"fmt"
)

// Kind tags an error with the broad category of failure it represents, so
// that a CLI layer can map it to an exit code without string-matching.
type Kind int

const (
	// KindUsage marks a bad flag value or an unsatisfiable parameter
	// combination (e.g. RS shards missing for an RS version).
	KindUsage Kind = iota
	// KindIO marks an open/read/write/seek failure.
	KindIO
	// KindFormat marks a signature/CRC/parse failure local to one block.
	KindFormat
	// KindRS marks an insufficient-shards failure in the erasure coder.
	KindRS
	// KindInvariant marks a programmer-error / internal invariant
	// violation (lot arrangement, cancel with nothing to cancel, too
	// many total shards). These are meant to abort, not to be handled.
	KindInvariant
	// KindTooMuchMetadata marks a metadata pack that overflows the
	// payload area; the error carries the offending entries.
	KindTooMuchMetadata
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindIO:
		return "io"
	case KindFormat:
		return "format"
	case KindRS:
		return "rs"
	case KindInvariant:
		return "invariant"
	case KindTooMuchMetadata:
		return "too-much-metadata"
	default:
		return "unknown"
	}
}

// Error is a tagged error: every error the core package returns that isn't
// a plain io.EOF carries a Kind so callers can react programmatically.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sbx: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("sbx: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// TooMuchMetadataError carries the metadata entries that did not fit in the
// payload area, so that a CLI layer can tell the user which field(s) to
// shorten.
type TooMuchMetadataError struct {
	Entries []MetadataEntry
}

func (e *TooMuchMetadataError) Error() string {
	return fmt.Sprintf("sbx: %s: %d metadata entries exceed the data area", KindTooMuchMetadata, len(e.Entries))
}

// KindOf extracts the Kind from err, if it (or something it wraps) is an
// *Error. Returns false if no Kind is present.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	var tm *TooMuchMetadataError
	if errors.As(err, &tm) {
		return KindTooMuchMetadata, true
	}
	return 0, false
}
