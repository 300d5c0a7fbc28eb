package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification.
var (
	ErrEmptyIdentifier   = errors.New("empty identifier")
	ErrUnknownPointType  = errors.New("unknown navigation point type")
	ErrAreaCodeNotFound  = errors.New("no area code found")
	ErrEmptyTable        = errors.New("reference table has no qualifying rows")
	ErrEmptyLine         = errors.New("line has no tokens")
	ErrMissingColumns    = errors.New("missing required columns")
	ErrInputFileNotFound = errors.New("input file not found")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindNotFound       ErrorKind = "not_found"
	KindInvalidInput   ErrorKind = "invalid_input"
	KindReferenceTable ErrorKind = "reference_table"
	KindWrite          ErrorKind = "write"
)

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string // optional
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind helps callers classify errors without depending on engine packages.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}
