package zseek

import "github.com/pkg/errors"

// Kind classifies an error returned by this package, independent of its
// message text, so callers can branch on failure category.
type Kind int

const (
	// ConfigInvalid: invalid configuration passed to New.
	ConfigInvalid Kind = iota + 1
	// OutOfMemory: an allocation failed (index growth, window, buffers).
	OutOfMemory
	// IoError: the compressed source's Read/Seek/Tell returned an error.
	IoError
	// DataError: the DEFLATE Adapter reported a decode error, or input was
	// exhausted before end-of-stream.
	DataError
	// InvalidArg: a bad argument was passed to Seek (whence != SEEK_SET) or
	// a negative offset.
	InvalidArg
	// NotBuilt: Seek or Read invoked on an Index before a successful Build.
	NotBuilt
)

func (k Kind) String() string {
	switch k {
	case ConfigInvalid:
		return "config invalid"
	case OutOfMemory:
		return "out of memory"
	case IoError:
		return "io error"
	case DataError:
		return "data error"
	case InvalidArg:
		return "invalid argument"
	case NotBuilt:
		return "index not built"
	default:
		return "unknown"
	}
}

// kindError pairs a Kind with the underlying wrapped error.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.kind.String() + ": " + e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }
func (e *kindError) Kind() Kind    { return e.kind }

func wrapErr(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, err: errors.Wrap(err, msg)}
}

func newErr(kind Kind, msg string) error {
	return &kindError{kind: kind, err: errors.New(msg)}
}

// KindOf extracts the Kind carried by err, if it (or something it wraps)
// was produced by this package.
func KindOf(err error) (Kind, bool) {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind, true
	}
	return 0, false
}

// Is reports whether err carries the given Kind, so callers can write
// `errors.Is`-style checks against a Kind value directly.
func (k Kind) Is(err error) bool {
	got, ok := KindOf(err)
	return ok && got == k
}
