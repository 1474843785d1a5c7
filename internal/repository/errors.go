// Package repository keeps live browsing sessions in process memory.  The
// sentinel values below let handlers tell the failure scenarios apart:
// ErrSessionNotFound maps to 404 and ErrConflict to 409.
package repository

import "errors"

// ErrSessionNotFound is returned when no live session has the given id,
// either because it never existed or because it was evicted.
var ErrSessionNotFound = errors.New("session not found")

// ErrConflict is returned when a session id is already taken.
var ErrConflict = errors.New("conflict")
