package chatkit

import (
	"context"
	"sync"
	"time"

	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/planner"
	"github.com/merak-travel/merak/internal/session"
)

// AgentResponder answers thread messages by running an agent over the thread history.
type AgentResponder struct {
	agent  *planner.Agent
	runner planner.Runner
	store  Store
	newID  func(prefix string) string
	now    func() time.Time
}

// NewAgentResponder creates a responder that persists replies in store.
func NewAgentResponder(agent *planner.Agent, runner planner.Runner, store Store) *AgentResponder {
	return &AgentResponder{
		agent:  agent,
		runner: runner,
		store:  store,
		newID:  NewID,
		now:    time.Now,
	}
}

// Respond runs the agent on the input message and emits the stored assistant reply.
func (r *AgentResponder) Respond(ctx context.Context, thread *ThreadMetadata, input *ThreadItem, _ RequestContext, emit EmitFunc) error {
	sess := &threadSession{
		store:    r.store,
		threadID: thread.ID,
		exclude:  input.ID,
		newID:    r.newID,
		now:      r.now,
	}

	if _, err := r.runner.Run(ctx, r.agent, input.Text(), sess); err != nil {
		return err
	}

	reply := sess.lastAdded()
	if reply == nil {
		return errors.Newf("agent %s produced no reply", r.agent.Name).
			Component("chatkit").
			Category(errors.CategoryLLM).
			Context("thread_id", thread.ID).
			Build()
	}
	return emit(Event{Type: EventThreadItemDone, Item: reply})
}

// threadSession adapts a thread to session.Session. The server records user messages
// itself, so only assistant items are written; the in-flight input is hidden from history.
type threadSession struct {
	store    Store
	threadID string
	exclude  string
	newID    func(prefix string) string
	now      func() time.Time

	mu    sync.Mutex
	added []*ThreadItem
}

var _ session.Session = (*threadSession)(nil)

func (s *threadSession) ID() string { return s.threadID }

func (s *threadSession) Items(ctx context.Context, limit int) ([]session.Item, error) {
	page, err := s.store.LoadThreadItems(ctx, s.threadID, "", 0, OrderAsc)
	if err != nil {
		return nil, err
	}
	items := make([]session.Item, 0, len(page.Data))
	for i := range page.Data {
		item := &page.Data[i]
		if item.ID == s.exclude {
			continue
		}
		role := session.RoleUser
		if item.Type == ItemTypeAssistantMessage {
			role = session.RoleAssistant
		}
		items = append(items, session.Item{Role: role, Content: item.Text(), CreatedAt: item.CreatedAt})
	}
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items, nil
}

func (s *threadSession) AddItems(ctx context.Context, items ...session.Item) error {
	for _, it := range items {
		if it.Role != session.RoleAssistant {
			continue
		}
		item := &ThreadItem{
			ID:        s.newID("msg"),
			ThreadID:  s.threadID,
			Type:      ItemTypeAssistantMessage,
			Content:   []ContentPart{{Type: ContentOutputText, Text: it.Content}},
			CreatedAt: s.now(),
		}
		if err := s.store.AddThreadItem(ctx, s.threadID, item); err != nil {
			return err
		}
		s.mu.Lock()
		s.added = append(s.added, item)
		s.mu.Unlock()
	}
	return nil
}

func (s *threadSession) PopItem(ctx context.Context) (*session.Item, error) {
	page, err := s.store.LoadThreadItems(ctx, s.threadID, "", 1, OrderDesc)
	if err != nil || len(page.Data) == 0 {
		return nil, err
	}
	last := page.Data[0]
	if err := s.store.DeleteThreadItem(ctx, s.threadID, last.ID); err != nil {
		return nil, err
	}
	role := session.RoleUser
	if last.Type == ItemTypeAssistantMessage {
		role = session.RoleAssistant
	}
	return &session.Item{Role: role, Content: last.Text(), CreatedAt: last.CreatedAt}, nil
}

func (s *threadSession) Clear(ctx context.Context) error {
	page, err := s.store.LoadThreadItems(ctx, s.threadID, "", 0, OrderAsc)
	if err != nil {
		return err
	}
	for i := range page.Data {
		if err := s.store.DeleteThreadItem(ctx, s.threadID, page.Data[i].ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *threadSession) lastAdded() *ThreadItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.added) == 0 {
		return nil
	}
	return s.added[len(s.added)-1]
}
