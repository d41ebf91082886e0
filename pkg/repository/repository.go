package repository

import (
	"github.com/m-mizutani/veostudio/pkg/model"
)

// Patch is a partial update of a HistoryItem. Nil fields are left
// untouched; set fields replace the current value (last write wins).
type Patch struct {
	Kind      *model.Kind
	Content   *string
	MediaURL  *string
	IsLoading *bool
}

// HistoryStore defines the interface for the session generation log.
// The log is append-only: items are never removed, and existing items
// are modified only through id-keyed partial merges.
type HistoryStore interface {
	// Append adds a new item to the end of the log
	Append(item *model.HistoryItem) error

	// Update applies a partial merge to the item with the given ID
	Update(id model.ItemID, patch Patch) error

	// Get retrieves an item by ID
	Get(id model.ItemID) (*model.HistoryItem, error)

	// List returns all items in append order
	List() []*model.HistoryItem
}

func ptr[T any](v T) *T { return &v }

// PatchContent returns a patch setting only the content
func PatchContent(s string) Patch { return Patch{Content: &s} }

// PatchLoading returns a patch setting only the loading flag
func PatchLoading(v bool) Patch { return Patch{IsLoading: ptr(v)} }
