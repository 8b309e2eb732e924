package meshfeat

import (
	"errors"
	"fmt"

	"github.com/hupe1980/meshfeat/blobstore"
	"github.com/hupe1980/meshfeat/index"
	"github.com/hupe1980/meshfeat/metadata"
)

var (
	// ErrNotFound is returned for unknown partitions, zones, cycles, metrics
	// and missing files.
	ErrNotFound = errors.New("not found")

	// ErrParse is returned when a metadata, index or failure file is malformed.
	ErrParse = errors.New("parse error")

	// ErrRead is returned when a feature file is shorter than its index claims
	// or the backend fails mid-read.
	ErrRead = errors.New("read error")

	// ErrInvalidArgument is returned for arguments that can never be valid.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ParseError locates a malformed line in a dataset file.
//
// errors.Is(err, ErrParse) holds for every ParseError. The underlying
// parser error (if any) is reachable via errors.As.
type ParseError struct {
	Path  string
	Line  int
	Msg   string
	cause error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %s", e.Path, e.Line, e.Msg)
	}
	return fmt.Sprintf("parse %s: %s", e.Path, e.Msg)
}

func (e *ParseError) Unwrap() []error {
	if e.cause == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.cause}
}

// NewParseError creates a ParseError for path. Line 0 means the whole file.
func NewParseError(path string, line int, msg string) *ParseError {
	return &ParseError{Path: path, Line: line, Msg: msg}
}

// ReadError describes a failed or short positioned read.
//
// errors.Is(err, ErrRead) holds for every ReadError. The original backend
// error (if any) can be accessed via errors.Unwrap.
type ReadError struct {
	Path   string
	Offset int64
	Want   int
	Got    int
	cause  error
}

func (e *ReadError) Error() string {
	if e.Want == 0 && e.cause != nil {
		return fmt.Sprintf("read %s: %v", e.Path, e.cause)
	}
	if e.cause != nil {
		return fmt.Sprintf("read %s at %d: want %d bytes, got %d: %v", e.Path, e.Offset, e.Want, e.Got, e.cause)
	}
	return fmt.Sprintf("read %s at %d: want %d bytes, got %d", e.Path, e.Offset, e.Want, e.Got)
}

func (e *ReadError) Is(target error) bool { return target == ErrRead }

func (e *ReadError) Unwrap() error { return e.cause }

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func translateError(path string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrParse) || errors.Is(err, ErrRead) {
		return err
	}

	// Not found unification.
	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	}

	// Parser normalization.
	var mpe *metadata.ParseError
	if errors.As(err, &mpe) {
		return &ParseError{Path: path, Line: mpe.Line, Msg: mpe.Msg, cause: err}
	}
	var ipe *index.ParseError
	if errors.As(err, &ipe) {
		return &ParseError{Path: path, Line: ipe.Line, Msg: ipe.Msg, cause: err}
	}

	return err
}
