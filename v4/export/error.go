package export

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies the failures of an export run.
type ErrorKind int

const (
	// ErrUsage is a bad invocation, such as a missing argument or flag value.
	ErrUsage ErrorKind = iota + 1
	// ErrNotFound is a missing input file.
	ErrNotFound
	// ErrQuery is a failed database statement or row fetch.
	ErrQuery
	// ErrIO is a failed local file operation.
	ErrIO
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUsage:
		return "usage error"
	case ErrNotFound:
		return "not found"
	case ErrQuery:
		return "query error"
	case ErrIO:
		return "io error"
	default:
		return fmt.Sprintf("error kind %d", int(k))
	}
}

// Error is an export failure, optionally bound to the table it happened on.
type Error struct {
	kind  ErrorKind
	table string
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.cause.Error())
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Cause implements the github.com/pkg/errors causer.
func (e *Error) Cause() error {
	return e.cause
}

// Kind returns the class of the error.
func (e *Error) Kind() ErrorKind {
	return e.kind
}

// Table returns the table the error happened on, empty for run level errors.
func (e *Error) Table() string {
	return e.table
}

func newError(kind ErrorKind, table string, cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) && e.kind == kind && e.table == table {
		return cause
	}
	return &Error{kind: kind, table: table, cause: withStack(cause)}
}

// UsageError reports a bad invocation.
func UsageError(format string, args ...interface{}) error {
	return &Error{kind: ErrUsage, cause: errors.Errorf(format, args...)}
}

// NotFoundError reports a missing input file.
func NotFoundError(path string, cause error) error {
	return newError(ErrNotFound, "", errors.WithMessagef(cause, "file %s not found", path))
}

// QueryError reports a failed statement, table may be empty.
func QueryError(table string, cause error) error {
	return newError(ErrQuery, table, cause)
}

// IOError reports a failed file operation, table may be empty.
func IOError(table string, cause error) error {
	return newError(ErrIO, table, cause)
}

// IsKind reports whether any error in err's chain is an *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == kind
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// withStack attaches a stack trace unless err carries one already.
func withStack(err error) error {
	if err == nil {
		return nil
	}
	var st stackTracer
	if errors.As(err, &st) {
		return err
	}
	return errors.WithStack(err)
}
