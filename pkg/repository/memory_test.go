package repository_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/veostudio/pkg/model"
	"github.com/m-mizutani/veostudio/pkg/repository"
)

func newUserItem(content string) *model.HistoryItem {
	return &model.HistoryItem{
		ID:      model.NewItemID(),
		Role:    model.RoleUser,
		Kind:    model.KindText,
		Content: content,
	}
}

func TestMemoryAppendAndGet(t *testing.T) {
	store := repository.NewMemory()

	item := newUserItem("a red fox in snow")
	gt.NoError(t, store.Append(item))

	retrieved, err := store.Get(item.ID)
	gt.NoError(t, err)
	gt.V(t, retrieved).NotNil()
	gt.Equal(t, retrieved.ID, item.ID)
	gt.Equal(t, retrieved.Content, "a red fox in snow")
	gt.True(t, !retrieved.Timestamp.IsZero())
}

func TestMemoryAppendRejectsDuplicateID(t *testing.T) {
	store := repository.NewMemory()

	item := newUserItem("first")
	gt.NoError(t, store.Append(item))

	dup := newUserItem("second")
	dup.ID = item.ID
	gt.Error(t, store.Append(dup))
}

func TestMemoryPartialMerge(t *testing.T) {
	store := repository.NewMemory()

	item := &model.HistoryItem{
		ID:        model.NewItemID(),
		Role:      model.RoleModel,
		Kind:      model.KindText,
		Content:   "Generating video...",
		IsLoading: true,
		ModelName: "veo-3.1-generate-preview",
	}
	gt.NoError(t, store.Append(item))

	kind := model.KindVideo
	url := "/tmp/out.mp4"
	loading := false
	gt.NoError(t, store.Update(item.ID, repository.Patch{
		Kind:      &kind,
		MediaURL:  &url,
		IsLoading: &loading,
	}))

	got, err := store.Get(item.ID)
	gt.NoError(t, err)
	gt.Equal(t, got.Kind, model.KindVideo)
	gt.Equal(t, got.MediaURL, "/tmp/out.mp4")
	gt.False(t, got.IsLoading)

	// Unset patch fields leave prior values
	gt.Equal(t, got.Content, "Generating video...")
	gt.Equal(t, got.ModelName, "veo-3.1-generate-preview")
}

func TestMemoryUpdateUnknownID(t *testing.T) {
	store := repository.NewMemory()
	err := store.Update(model.NewItemID(), repository.PatchLoading(false))
	gt.Error(t, err)
}

func TestMemoryListOrderAndTimestamps(t *testing.T) {
	store := repository.NewMemory()

	first := newUserItem("one")
	first.Timestamp = time.Now()
	gt.NoError(t, store.Append(first))

	// An explicitly older timestamp is raised to keep the log monotonic
	second := newUserItem("two")
	second.Timestamp = first.Timestamp.Add(-time.Hour)
	gt.NoError(t, store.Append(second))

	items := store.List()
	gt.A(t, items).Length(2)
	gt.Equal(t, items[0].Content, "one")
	gt.Equal(t, items[1].Content, "two")
	gt.True(t, !items[1].Timestamp.Before(items[0].Timestamp))
}

func TestMemoryListReturnsCopies(t *testing.T) {
	store := repository.NewMemory()
	gt.NoError(t, store.Append(newUserItem("original")))

	items := store.List()
	items[0].Content = "mutated"

	again := store.List()
	gt.Equal(t, again[0].Content, "original")
}
