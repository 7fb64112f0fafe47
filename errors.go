package isyntax

import (
	"errors"
	"fmt"

	"github.com/cocosip/go-isyntax/blockpool"
	"github.com/cocosip/go-isyntax/codeblock"
)

// errMissingMetadata is returned when a Parser hands back a *Metadata
// missing the fields Open requires (Pyramid, Directory).
var errMissingMetadata = errors.New("isyntax: parser returned incomplete metadata")

// Code is the error taxonomy exposed to callers of the public reader API
// (spec.md §7), mirrored after the teacher's codec package's sentinel
// errors (codec/errors.go) but widened into an enum since the spec names a
// closed, switchable set of outcomes rather than one error per failure
// site.
type Code int

const (
	OK Code = iota
	InvalidArgument
	NotFound
	IO
	Decompress
	OutOfMemory
	Fatal
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case InvalidArgument:
		return "InvalidArgument"
	case NotFound:
		return "NotFound"
	case IO:
		return "IO"
	case Decompress:
		return "Decompress"
	case OutOfMemory:
		return "OutOfMemory"
	case Fatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying error with the public Code a caller can switch
// on, while still letting errors.Is/errors.As reach through to whatever the
// codeblock loader, decompressor or file I/O actually returned.
type Error struct {
	Code Code
	Op   string // the operation that failed, e.g. "read_tile", "cache_inject"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("isyntax: %s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("isyntax: %s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrapErr classifies err into the public Code taxonomy for op. A nil err
// returns a nil *Error so callers can keep writing `if err := ...; err !=
// nil`.
func wrapErr(op string, code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Op: op, Err: err}
}

// classifyEngineErr maps an error surfaced by the reconstruction engine
// (ultimately from codeblock.Loader or a blockpool.Pool) onto the public
// Code taxonomy (spec.md §7), by checking for the sentinel errors those
// lower layers wrap their failures in rather than string-matching.
func classifyEngineErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, blockpool.ErrOutOfMemory):
		return wrapErr(op, OutOfMemory, err)
	case errors.Is(err, codeblock.ErrDecompress), errors.Is(err, codeblock.ErrDecompressorNotFound):
		return wrapErr(op, Decompress, err)
	case errors.Is(err, codeblock.ErrIO):
		return wrapErr(op, IO, err)
	case errors.Is(err, codeblock.ErrNotFound):
		return wrapErr(op, NotFound, err)
	default:
		return wrapErr(op, Fatal, err)
	}
}
