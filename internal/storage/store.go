// Package storage persists the selection state between cycles.
package storage

import (
	"context"

	"github.com/deusflow/ofertas/internal/deals"
)

// Store loads and saves the selection state document.
//
// Load always returns a usable state, even together with an error: a missing
// document is an empty state and no error, a malformed one is an empty state
// and an error wrapping ErrCorruptState. Save replaces the whole document.
type Store interface {
	Load(ctx context.Context) (*deals.SelectionState, error)
	Save(ctx context.Context, state *deals.SelectionState) error
	Close() error
}
