package repository

import (
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/veostudio/pkg/model"
)

var ErrItemNotFound = goerr.New("history item not found")

// memoryStore implements HistoryStore in memory. The session log does
// not survive the process; that is intentional.
type memoryStore struct {
	mu    sync.RWMutex
	items []*model.HistoryItem
	index map[model.ItemID]int
}

// NewMemory creates a new in-memory history store
func NewMemory() HistoryStore {
	return &memoryStore{
		index: make(map[model.ItemID]int),
	}
}

func (s *memoryStore) Append(item *model.HistoryItem) error {
	if item.ID == "" {
		return goerr.New("history item ID is empty")
	}
	if err := item.Role.Validate(); err != nil {
		return goerr.Wrap(err, "invalid history item", goerr.V("id", item.ID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[item.ID]; exists {
		return goerr.New("duplicate history item ID", goerr.V("id", item.ID))
	}

	// Timestamps are monotonically non-decreasing across appends
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now()
	}
	if n := len(s.items); n > 0 && item.Timestamp.Before(s.items[n-1].Timestamp) {
		item.Timestamp = s.items[n-1].Timestamp
	}

	cp := *item
	s.index[cp.ID] = len(s.items)
	s.items = append(s.items, &cp)
	return nil
}

func (s *memoryStore) Update(id model.ItemID, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return goerr.Wrap(ErrItemNotFound, "update failed", goerr.V("id", id))
	}

	item := s.items[pos]
	if patch.Kind != nil {
		item.Kind = *patch.Kind
	}
	if patch.Content != nil {
		item.Content = *patch.Content
	}
	if patch.MediaURL != nil {
		item.MediaURL = *patch.MediaURL
	}
	if patch.IsLoading != nil {
		item.IsLoading = *patch.IsLoading
	}
	return nil
}

func (s *memoryStore) Get(id model.ItemID) (*model.HistoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return nil, goerr.Wrap(ErrItemNotFound, "get failed", goerr.V("id", id))
	}
	cp := *s.items[pos]
	return &cp, nil
}

func (s *memoryStore) List() []*model.HistoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.HistoryItem, 0, len(s.items))
	for _, item := range s.items {
		cp := *item
		out = append(out, &cp)
	}
	return out
}
