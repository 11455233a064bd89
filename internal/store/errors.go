package store

import "errors"

// ErrNotFound is returned when a project id has no row.
var ErrNotFound = errors.New("store: project not found")

// ErrVersionNotFound is returned when a rollback names a snapshot
// version the project does not have.
var ErrVersionNotFound = errors.New("store: snapshot version not found")

// ErrLogCapacity is returned when appending would exceed the configured
// per-project log bound. It is a distinct kind so callers can present a
// specific remediation (archive, snapshot-and-truncate) rather than a
// generic failure.
var ErrLogCapacity = errors.New("store: action log capacity exceeded")
