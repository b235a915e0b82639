package chatkit

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/merak-travel/merak/internal/errors"
)

// Store persists threads, their items and attachments.
type Store interface {
	LoadThread(ctx context.Context, threadID string) (*ThreadMetadata, error)
	SaveThread(ctx context.Context, thread *ThreadMetadata) error
	LoadThreads(ctx context.Context, limit int, after, order string) (*Page[ThreadMetadata], error)
	DeleteThread(ctx context.Context, threadID string) error

	LoadThreadItems(ctx context.Context, threadID, after string, limit int, order string) (*Page[ThreadItem], error)
	AddThreadItem(ctx context.Context, threadID string, item *ThreadItem) error
	SaveItem(ctx context.Context, threadID string, item *ThreadItem) error
	LoadItem(ctx context.Context, threadID, itemID string) (*ThreadItem, error)
	DeleteThreadItem(ctx context.Context, threadID, itemID string) error

	SaveAttachment(ctx context.Context, attachment *Attachment) error
	LoadAttachment(ctx context.Context, attachmentID string) (*Attachment, error)
	DeleteAttachment(ctx context.Context, attachmentID string) error
}

// MemoryStore keeps everything in process memory; contents vanish on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	threads     map[string]ThreadMetadata
	order       []string
	items       map[string][]ThreadItem
	attachments map[string]Attachment
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads:     make(map[string]ThreadMetadata),
		items:       make(map[string][]ThreadItem),
		attachments: make(map[string]Attachment),
	}
}

func (s *MemoryStore) LoadThread(_ context.Context, threadID string) (*ThreadMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	thread, ok := s.threads[threadID]
	if !ok {
		return nil, notFound("thread %s not found", threadID)
	}
	return &thread, nil
}

func (s *MemoryStore) SaveThread(_ context.Context, thread *ThreadMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.threads[thread.ID]; !exists {
		s.order = append(s.order, thread.ID)
	}
	s.threads[thread.ID] = *thread
	return nil
}

// LoadThreads lists threads by creation time; ties keep insertion order.
func (s *MemoryStore) LoadThreads(_ context.Context, limit int, after, order string) (*Page[ThreadMetadata], error) {
	s.mu.RLock()
	threads := make([]ThreadMetadata, 0, len(s.order))
	for _, id := range s.order {
		threads = append(threads, s.threads[id])
	}
	s.mu.RUnlock()

	desc := strings.EqualFold(order, OrderDesc)
	slices.SortStableFunc(threads, func(a, b ThreadMetadata) int {
		if desc {
			return b.CreatedAt.Compare(a.CreatedAt)
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return paginate(threads, after, limit, func(t ThreadMetadata) string { return t.ID }), nil
}

func (s *MemoryStore) DeleteThread(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; ok {
		delete(s.threads, threadID)
		s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == threadID })
	}
	delete(s.items, threadID)
	return nil
}

// LoadThreadItems lists items in insertion order, reversed when order is "desc".
func (s *MemoryStore) LoadThreadItems(_ context.Context, threadID, after string, limit int, order string) (*Page[ThreadItem], error) {
	s.mu.RLock()
	stored := s.items[threadID]
	items := make([]ThreadItem, len(stored))
	for i := range stored {
		items[i] = stored[i].clone()
	}
	s.mu.RUnlock()

	if strings.EqualFold(order, OrderDesc) {
		slices.Reverse(items)
	}
	return paginate(items, after, limit, func(i ThreadItem) string { return i.ID }), nil
}

func (s *MemoryStore) AddThreadItem(_ context.Context, threadID string, item *ThreadItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[threadID] = append(s.items[threadID], item.clone())
	return nil
}

// SaveItem replaces an existing item in place.
func (s *MemoryStore) SaveItem(_ context.Context, threadID string, item *ThreadItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.items[threadID]
	if len(items) == 0 {
		return notFound("thread %s has no items", threadID)
	}
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item.clone()
			return nil
		}
	}
	return notFound("item %s not found in thread %s", item.ID, threadID)
}

func (s *MemoryStore) LoadItem(_ context.Context, threadID, itemID string) (*ThreadItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.items[threadID] {
		if s.items[threadID][i].ID == itemID {
			item := s.items[threadID][i].clone()
			return &item, nil
		}
	}
	return nil, notFound("item %s not found in thread %s", itemID, threadID)
}

func (s *MemoryStore) DeleteThreadItem(_ context.Context, threadID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.items[threadID]
	if !ok || len(items) == 0 {
		return nil
	}
	s.items[threadID] = slices.DeleteFunc(items, func(i ThreadItem) bool { return i.ID == itemID })
	return nil
}

func (s *MemoryStore) SaveAttachment(_ context.Context, attachment *Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[attachment.ID] = *attachment
	return nil
}

func (s *MemoryStore) LoadAttachment(_ context.Context, attachmentID string) (*Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attachments[attachmentID]
	if !ok {
		return nil, notFound("attachment %s not found", attachmentID)
	}
	return &a, nil
}

func (s *MemoryStore) DeleteAttachment(_ context.Context, attachmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attachments, attachmentID)
	return nil
}

// Stats reports the number of threads and items held
func (s *MemoryStore) Stats() (threads, items int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, list := range s.items {
		items += len(list)
	}
	return len(s.threads), items
}

// paginate applies the after cursor and limit; an unknown cursor yields an empty page
// and a non-positive limit returns everything.
func paginate[T any](all []T, after string, limit int, id func(T) string) *Page[T] {
	if after != "" {
		idx := slices.IndexFunc(all, func(v T) bool { return id(v) == after })
		if idx < 0 {
			all = nil
		} else {
			all = all[idx+1:]
		}
	}

	page := &Page[T]{Data: all}
	if limit > 0 && len(all) > limit {
		page.Data = all[:limit]
		page.HasMore = true
		page.After = id(page.Data[len(page.Data)-1])
	}
	if page.Data == nil {
		page.Data = []T{}
	}
	return page
}

func notFound(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("chatkit").
		Category(errors.CategoryNotFound).
		Build()
}
