// Package repository wraps raw storage access for users, posts and comments
// and enforces the mutation protocol every write follows: check the
// precondition (uniqueness for creates, existence-and-ownership for edits and
// deletes), perform the write, and treat zero affected rows as a failure of
// its own kind. The check and the write are separate statements, so a
// concurrent delete or update can slip between them; the version predicate on
// the final statement turns that race into an observable failure instead of a
// lost update. Repositories never retry — re-running the whole
// read-check-write sequence is the caller's decision.
package repository

import "errors"

// ErrAlreadyExists is returned when a create precondition is violated, e.g.
// signing up with a user id or email that is already taken. Handlers should
// translate this into an HTTP 409 response.
var ErrAlreadyExists = errors.New("already exists")

// ErrNotFound is returned when the target record is absent or is not owned
// by the acting user. The two cases are deliberately indistinguishable so
// that mutation attempts cannot be used to probe which records exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrCreateFailed, ErrUpdateFailed and ErrDeleteFailed report that storage
// affected zero rows after the precondition passed. For version-guarded
// writes this usually means the version moved underneath the caller; it can
// also be a genuine storage fault. The two are not distinguished — the
// caller may re-run the full read-check-write sequence if it wants to
// converge.
var (
	ErrCreateFailed = errors.New("create affected no rows")
	ErrUpdateFailed = errors.New("update affected no rows")
	ErrDeleteFailed = errors.New("delete affected no rows")
)
