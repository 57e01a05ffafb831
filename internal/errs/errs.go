// Package errs defines the error taxonomy of the rewrite pipeline (spec.md
// §7). Each kind is a distinct type so callers can use errors.As to branch
// on it; all of them are raised via github.com/pkg/errors so a Wrap() at
// any call site keeps the originating stack frame for diagnostics, the
// same convenience the teacher got from its go123-based raise()/raisef()
// panic helpers without needing panic/recover for ordinary control flow.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// IOError wraps a filesystem or child-process I/O failure.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("io error during %s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

func NewIOError(op string, err error) error {
	return errors.WithStack(&IOError{Op: op, Err: err})
}

// ProtocolError signals malformed framing from an external helper process
// (e.g. `git cat-file --batch`).
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Detail }

func NewProtocolError(format string, a ...interface{}) error {
	return errors.WithStack(&ProtocolError{Detail: fmt.Sprintf(format, a...)})
}

// IntegrityError signals a stored object whose recomputed hash disagrees
// with its name.
type IntegrityError struct {
	Want, Got string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity error: object named %s recomputes to %s", e.Want, e.Got)
}

func NewIntegrityError(want, got string) error {
	return errors.WithStack(&IntegrityError{Want: want, Got: got})
}

// TypeMismatch signals an object kind that does not match what the caller
// expected.
type TypeMismatch struct {
	Hash string
	Want string
	Got  string
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Hash, e.Want, e.Got)
}

func NewTypeMismatch(hash, want, got string) error {
	return errors.WithStack(&TypeMismatch{Hash: hash, Want: want, Got: got})
}

// MissingMappingError signals that a rewrite step expected a prior-phase
// mapping (blob_map / tree_map / commit_map) that is absent.
type MissingMappingError struct {
	Map  string
	Hash string
}

func (e *MissingMappingError) Error() string {
	return fmt.Sprintf("%s has no entry for %s", e.Map, e.Hash)
}

func NewMissingMappingError(mapName, hash string) error {
	return errors.WithStack(&MissingMappingError{Map: mapName, Hash: hash})
}

// ConsistencyError signals that two workers produced different rewrites
// for the same source hash -- a correctness bug, never an expected outcome.
type ConsistencyError struct {
	Hash     string
	Existing string
	New      string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency error: %s already mapped to %s, worker produced %s",
		e.Hash, e.Existing, e.New)
}

func NewConsistencyError(hash, existing, new string) error {
	return errors.WithStack(&ConsistencyError{Hash: hash, Existing: existing, New: new})
}

// FormatterError signals the external formatter exited non-zero or wrote
// to stderr.
type FormatterError struct {
	Blob   string
	Stderr string
	Err    error
}

func (e *FormatterError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("formatter error on blob %s: %s", e.Blob, e.Stderr)
	}
	return fmt.Sprintf("formatter error on blob %s: %v", e.Blob, e.Err)
}
func (e *FormatterError) Unwrap() error { return e.Err }

func NewFormatterError(blob, stderr string, err error) error {
	return errors.WithStack(&FormatterError{Blob: blob, Stderr: stderr, Err: err})
}

// NotFoundError signals an empty revision list or a missing expected tree
// entry (e.g. ".gitignore", "DEPS", "third_party").
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return "not found: " + e.What }

func NewNotFoundError(what string) error {
	return errors.WithStack(&NotFoundError{What: what})
}
