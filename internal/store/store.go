// Package store persists each item's packed retry status as one raw
// integer column, plus the part URLs needed to re-enqueue pending items.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("item status not found")

// Item identifies one tracked sync target. Kind decides the slot layout of
// the status word; the store does not interpret either.
type Item struct {
	ID   uuid.UUID
	Kind string
}

// PendingItem is a stored item whose completed flag is still clear.
type PendingItem struct {
	Item
	Status uint32
	Parts  map[string]string
}

// Store is the persistence boundary for status words. SaveStatus is a plain
// last-write-wins overwrite: there is no version token, so concurrent
// writers of the same item can silently lose each other's progress. The
// worker keeps a single queue group per subject to avoid that in practice.
type Store interface {
	// EnsureItem inserts a zero-status row if the item is unknown,
	// recording its part URLs for later reconciliation. Existing rows are
	// left untouched.
	EnsureItem(ctx context.Context, item Item, parts map[string]string) error
	// GetStatus returns the raw status word, or ErrNotFound.
	GetStatus(ctx context.Context, item Item) (uint32, error)
	SaveStatus(ctx context.Context, item Item, raw uint32) error
	// ListPending returns up to limit items of the kind whose completed
	// flag is unset.
	ListPending(ctx context.Context, kind string, limit int) ([]PendingItem, error)
}
