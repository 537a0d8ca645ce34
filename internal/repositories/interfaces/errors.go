package interfaces

import "errors"

// ErrNotFound is wrapped by every repository when the requested document
// does not exist, so callers can branch with errors.Is regardless of entity.
var ErrNotFound = errors.New("not found")

// ErrActiveConflict is wrapped by AssignmentRepository.Activate when the
// buggy already carries another active assignment. It surfaces the unique
// index on active assignments, so the caller can rerun its eviction pass.
var ErrActiveConflict = errors.New("buggy already has an active assignment")
