package chatkit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/merak-travel/merak/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func textItem(threadID, id string, typ ItemType) *ThreadItem {
	return &ThreadItem{
		ID:       id,
		ThreadID: threadID,
		Type:     typ,
		Content:  []ContentPart{{Type: ContentInputText, Text: "text " + id}},
	}
}

func itemIDs(items []ThreadItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func threadIDs(threads []ThreadMetadata) []string {
	ids := make([]string, len(threads))
	for i, th := range threads {
		ids[i] = th.ID
	}
	return ids
}

func seededItems(t *testing.T, n int) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.SaveThread(ctx, &ThreadMetadata{ID: "thr", CreatedAt: baseTime}))
	for i := 1; i <= n; i++ {
		require.NoError(t, store.AddThreadItem(ctx, "thr", textItem("thr", fmt.Sprintf("i%d", i), ItemTypeUserMessage)))
	}
	return store
}

func TestMemoryStoreThreads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.LoadThread(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, store.SaveThread(ctx, &ThreadMetadata{ID: "a", Title: "first", CreatedAt: baseTime}))
	require.NoError(t, store.SaveThread(ctx, &ThreadMetadata{ID: "a", Title: "renamed", CreatedAt: baseTime}))

	got, err := store.LoadThread(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)

	got.Title = "mutated"
	again, err := store.LoadThread(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "renamed", again.Title)

	threads, _ := store.Stats()
	assert.Equal(t, 1, threads)
}

func TestMemoryStoreLoadThreadItems(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		after     string
		limit     int
		order     string
		wantIDs   []string
		wantMore  bool
		wantAfter string
	}{
		{name: "ascending first page", limit: 2, order: "asc", wantIDs: []string{"i1", "i2"}, wantMore: true, wantAfter: "i2"},
		{name: "descending is case insensitive", limit: 2, order: "DESC", wantIDs: []string{"i4", "i3"}, wantMore: true, wantAfter: "i3"},
		{name: "after cursor", after: "i2", limit: 2, order: "asc", wantIDs: []string{"i3", "i4"}},
		{name: "after cursor descending", after: "i3", limit: 5, order: "desc", wantIDs: []string{"i2", "i1"}},
		{name: "unknown cursor yields empty page", after: "nope", limit: 2, order: "asc", wantIDs: []string{}},
		{name: "exact fit has no more", limit: 4, order: "asc", wantIDs: []string{"i1", "i2", "i3", "i4"}},
		{name: "non-positive limit returns all", limit: 0, order: "asc", wantIDs: []string{"i1", "i2", "i3", "i4"}},
		{name: "unknown order is ascending", limit: 1, order: "sideways", wantIDs: []string{"i1"}, wantMore: true, wantAfter: "i1"},
	}

	store := seededItems(t, 4)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			page, err := store.LoadThreadItems(context.Background(), "thr", tt.after, tt.limit, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, itemIDs(page.Data))
			assert.Equal(t, tt.wantMore, page.HasMore)
			assert.Equal(t, tt.wantAfter, page.After)
		})
	}
}

func TestMemoryStoreLoadThreadItemsUnknownThread(t *testing.T) {
	t.Parallel()

	page, err := NewMemoryStore().LoadThreadItems(context.Background(), "ghost", "", 10, OrderAsc)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.False(t, page.HasMore)
}

func TestMemoryStoreSaveItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	err := store.SaveItem(ctx, "thr", textItem("thr", "i1", ItemTypeUserMessage))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "thread without items")

	store = seededItems(t, 2)
	err = store.SaveItem(ctx, "thr", textItem("thr", "i9", ItemTypeUserMessage))
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "unknown item")

	updated := textItem("thr", "i2", ItemTypeAssistantMessage)
	updated.Content[0].Text = "edited"
	require.NoError(t, store.SaveItem(ctx, "thr", updated))

	got, err := store.LoadItem(ctx, "thr", "i2")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Text())
	assert.Equal(t, ItemTypeAssistantMessage, got.Type)

	page, err := store.LoadThreadItems(ctx, "thr", "", 0, OrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"i1", "i2"}, itemIDs(page.Data), "replaced in place")
}

func TestMemoryStoreLoadItem(t *testing.T) {
	t.Parallel()

	store := seededItems(t, 1)
	_, err := store.LoadItem(context.Background(), "thr", "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	item, err := store.LoadItem(context.Background(), "thr", "i1")
	require.NoError(t, err)
	item.Content[0].Text = "changed"

	again, err := store.LoadItem(context.Background(), "thr", "i1")
	require.NoError(t, err)
	assert.Equal(t, "text i1", again.Text())
}

func TestMemoryStoreLoadThreads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	// saved out of chronological order; b and c share a timestamp
	require.NoError(t, store.SaveThread(ctx, &ThreadMetadata{ID: "c", CreatedAt: baseTime.Add(time.Hour)}))
	require.NoError(t, store.SaveThread(ctx, &ThreadMetadata{ID: "a", CreatedAt: baseTime}))
	require.NoError(t, store.SaveThread(ctx, &ThreadMetadata{ID: "b", CreatedAt: baseTime.Add(time.Hour)}))
	require.NoError(t, store.SaveThread(ctx, &ThreadMetadata{ID: "d", CreatedAt: baseTime.Add(2 * time.Hour)}))

	page, err := store.LoadThreads(ctx, 10, "", OrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b", "d"}, threadIDs(page.Data))

	page, err = store.LoadThreads(ctx, 2, "", OrderDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c"}, threadIDs(page.Data))
	assert.True(t, page.HasMore)
	assert.Equal(t, "c", page.After)

	page, err = store.LoadThreads(ctx, 2, page.After, OrderDesc)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, threadIDs(page.Data))
	assert.False(t, page.HasMore)
	assert.Empty(t, page.After)

	page, err = store.LoadThreads(ctx, 2, "missing", OrderDesc)
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestMemoryStoreDeletes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seededItems(t, 3)

	require.NoError(t, store.DeleteThreadItem(ctx, "thr", "i2"))
	require.NoError(t, store.DeleteThreadItem(ctx, "ghost", "i1"))
	page, err := store.LoadThreadItems(ctx, "thr", "", 0, OrderAsc)
	require.NoError(t, err)
	assert.Equal(t, []string{"i1", "i3"}, itemIDs(page.Data))

	threads, items := store.Stats()
	assert.Equal(t, 1, threads)
	assert.Equal(t, 2, items)

	require.NoError(t, store.DeleteThread(ctx, "thr"))
	require.NoError(t, store.DeleteThread(ctx, "thr"))
	_, err = store.LoadThread(ctx, "thr")
	assert.True(t, errors.IsNotFound(err))

	threads, items = store.Stats()
	assert.Zero(t, threads)
	assert.Zero(t, items)

	list, err := store.LoadThreads(ctx, 10, "", OrderAsc)
	require.NoError(t, err)
	assert.Empty(t, list.Data)
}

func TestMemoryStoreAttachments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.LoadAttachment(ctx, "atc_1")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, store.SaveAttachment(ctx, &Attachment{ID: "atc_1", Name: "map.png", MimeType: "image/png"}))
	got, err := store.LoadAttachment(ctx, "atc_1")
	require.NoError(t, err)
	assert.Equal(t, "map.png", got.Name)

	require.NoError(t, store.DeleteAttachment(ctx, "atc_1"))
	require.NoError(t, store.DeleteAttachment(ctx, "atc_1"))
	_, err = store.LoadAttachment(ctx, "atc_1")
	assert.True(t, errors.IsNotFound(err))
}
