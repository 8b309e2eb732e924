package metadata

import (
	"errors"
	"fmt"
)

// ErrParse is the sentinel wrapped by every ParseError.
var ErrParse = errors.New("metadata: parse error")

// ParseError describes a malformed metadata file.
type ParseError struct {
	// Line is the 1-based line number, or 0 when the error concerns the file as a whole.
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("metadata: line %d: %s", e.Line, e.Msg)
	}
	return "metadata: " + e.Msg
}

func (e *ParseError) Unwrap() error { return ErrParse }

func errorf(line int, format string, args ...any) error {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}
