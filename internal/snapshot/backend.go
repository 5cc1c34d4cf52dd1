// Package snapshot persists and restores the vector index through
// pluggable storage backends.
package snapshot

import (
	"errors"

	"github.com/hyperjump/tansaku/internal/vector"
)

// ErrNotFound is returned by Load when no snapshot has been saved yet.
var ErrNotFound = errors.New("snapshot not found")

// Backend stores a point-in-time copy of an index. Save must be atomic:
// a reader never observes a partially written snapshot. Entry order is
// preserved across Save/Load.
type Backend interface {
	Save(dimension int, entries []vector.Entry) error
	Load() (dimension int, entries []vector.Entry, err error)
	Close() error
}
