package lessonplanner

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResponse means the backend succeeded but returned no payload
	ErrEmptyResponse = errors.New("empty response")
	// ErrSchemaViolation means a payload was returned but does not have the expected shape
	ErrSchemaViolation = errors.New("schema violation")
	// ErrBackendUnavailable means the backend call itself failed (transport, auth, missing key)
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrExportFailed means local rendering or packaging failed
	ErrExportFailed = errors.New("export failed")
	// ErrInvalidInput means the caller supplied parameters that cannot be used
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means a library lookup found nothing
	ErrNotFound = errors.New("not found")

	// ErrMissingAPIKey is returned by NewBackend when no credential is configured
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")
)

// Error is an operation failure tagged with one of the kind sentinels above
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinel, so errors.Is(err, ErrSchemaViolation) works on wrapped causes too
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func newError(op string, kind error, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func schemaViolation(op string, format string, args ...interface{}) *Error {
	return newError(op, ErrSchemaViolation, fmt.Errorf(format, args...))
}

func invalidInput(op string, format string, args ...interface{}) *Error {
	return newError(op, ErrInvalidInput, fmt.Errorf(format, args...))
}
