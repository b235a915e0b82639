package chatkit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/logger"
	"github.com/merak-travel/merak/internal/planner"
	"github.com/merak-travel/merak/internal/session"
)

// historyRunner mimics the agent runner's session contract
type historyRunner struct {
	mu        sync.Mutex
	prompts   []string
	histories [][]session.Item
	fail      error
}

func (r *historyRunner) Run(ctx context.Context, _ *planner.Agent, prompt string, sess session.Session) (*planner.Result, error) {
	history, err := sess.Items(ctx, 0)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.prompts = append(r.prompts, prompt)
	r.histories = append(r.histories, history)
	r.mu.Unlock()

	if r.fail != nil {
		return nil, r.fail
	}
	out := "itinerary for " + prompt
	if err := sess.AddItems(ctx,
		session.Item{Role: session.RoleUser, Content: prompt},
		session.Item{Role: session.RoleAssistant, Content: out},
	); err != nil {
		return nil, err
	}
	return &planner.Result{FinalOutput: out}, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []string
	threads  int
	items    int
}

func (f *fakeRecorder) RecordRequest(requestType, status string, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, requestType+":"+status)
}

func (f *fakeRecorder) SetStoreSize(threads, items int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads, f.items = threads, items
}

type fixture struct {
	store    *MemoryStore
	runner   *historyRunner
	recorder *fakeRecorder
	server   *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	var (
		mu   sync.Mutex
		seq  int
		tick int
	)
	ids := func(prefix string) string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("%s_%d", prefix, seq)
	}
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return baseTime.Add(time.Duration(tick) * time.Minute)
	}

	store := NewMemoryStore()
	runner := &historyRunner{}
	responder := NewAgentResponder(&planner.Agent{Name: planner.TripPlannerName}, runner, store)
	responder.newID = ids
	responder.now = clock
	recorder := &fakeRecorder{}

	server := NewServer(store, responder,
		WithIDGenerator(ids),
		WithClock(clock),
		WithRecorder(recorder),
		WithPageSize(10),
		WithLogger(logger.NewSlogLogger(nil, logger.LogLevelError, time.UTC)))

	return &fixture{store: store, runner: runner, recorder: recorder, server: server}
}

func (f *fixture) process(t *testing.T, payload string) (Result, error) {
	t.Helper()
	return f.server.Process(context.Background(), []byte(payload), RequestContext{UserID: "traveler_123", ClientHost: "127.0.0.1"})
}

func (f *fixture) stream(t *testing.T, payload string) []Event {
	t.Helper()
	result, err := f.process(t, payload)
	require.NoError(t, err)
	streaming, ok := result.(*StreamingResult)
	require.True(t, ok, "expected a streaming result")

	var events []Event
	_ = streaming.Stream(context.Background(), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	return events
}

func (f *fixture) json(t *testing.T, payload string, into any) {
	t.Helper()
	result, err := f.process(t, payload)
	require.NoError(t, err)
	body, ok := result.(*JSONResult)
	require.True(t, ok, "expected a JSON result")
	require.NoError(t, json.Unmarshal(body.Body, into))
}

func eventTypes(events []Event) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

const createPayload = `{"type":"threads.create","params":{"input":{"content":[{"type":"input_text","text":"Plan a relaxed 3-day trip to Lisbon in March."}],"attachments":[],"inference_options":{}}}}`

func TestThreadsCreateStreamsConversation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	events := f.stream(t, createPayload)

	require.Equal(t, []string{EventThreadCreated, EventThreadItemDone, EventThreadItemDone}, eventTypes(events))

	thread := events[0].Thread
	require.NotNil(t, thread)
	assert.Equal(t, "thr_1", thread.ID)
	assert.Equal(t, "Plan a relaxed 3-day trip to Lisbon in March.", thread.Title)
	assert.Equal(t, "traveler_123", thread.Metadata["user_id"])

	user := events[1].Item
	assert.Equal(t, ItemTypeUserMessage, user.Type)
	assert.Equal(t, "Plan a relaxed 3-day trip to Lisbon in March.", user.Text())

	reply := events[2].Item
	assert.Equal(t, ItemTypeAssistantMessage, reply.Type)
	assert.Equal(t, ContentOutputText, reply.Content[0].Type)
	assert.Equal(t, "itinerary for Plan a relaxed 3-day trip to Lisbon in March.", reply.Text())

	assert.Equal(t, []string{"Plan a relaxed 3-day trip to Lisbon in March."}, f.runner.prompts)
	assert.Empty(t, f.runner.histories[0], "the in-flight message is not part of history")

	page, err := f.store.LoadThreadItems(context.Background(), thread.ID, "", 0, OrderAsc)
	require.NoError(t, err)
	assert.Len(t, page.Data, 2, "user message is stored once")

	assert.Equal(t, []string{"threads.create:ok"}, f.recorder.requests)
	assert.Equal(t, 1, f.recorder.threads)
	assert.Equal(t, 2, f.recorder.items)
}

func TestThreadsAddUserMessageUsesHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	created := f.stream(t, createPayload)
	threadID := created[0].Thread.ID

	events := f.stream(t, fmt.Sprintf(`{"type":"threads.add_user_message","params":{"thread_id":%q,"input":{"content":[{"type":"input_text","text":"Add a food tour"}]}}}`, threadID))
	require.Equal(t, []string{EventThreadItemDone, EventThreadItemDone}, eventTypes(events))

	require.Len(t, f.runner.histories, 2)
	history := f.runner.histories[1]
	require.Len(t, history, 2)
	assert.Equal(t, session.RoleUser, history[0].Role)
	assert.Equal(t, session.RoleAssistant, history[1].Role)
	assert.Equal(t, "Add a food tour", f.runner.prompts[1])
}

func TestStreamingResponderFailureEmitsError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.runner.fail = errors.NewStd("model unavailable")

	result, err := f.process(t, createPayload)
	require.NoError(t, err)

	var events []Event
	err = result.(*StreamingResult).Stream(context.Background(), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.Error(t, err)

	require.Equal(t, []string{EventThreadCreated, EventThreadItemDone, EventError}, eventTypes(events))
	assert.True(t, events[2].Error.AllowRetry)
	assert.NotContains(t, events[2].Error.Message, "model unavailable")
	assert.Equal(t, []string{"threads.create:error"}, f.recorder.requests)
}

func TestStreamStopsWhenClientGoesAway(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	result, err := f.process(t, createPayload)
	require.NoError(t, err)

	gone := errors.NewStd("client disconnected")
	calls := 0
	err = result.(*StreamingResult).Stream(context.Background(), func(Event) error {
		calls++
		return gone
	})
	require.ErrorIs(t, err, gone)
	assert.Equal(t, 1, calls)
	assert.Empty(t, f.runner.prompts)
}

func TestProcessJSONRequests(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	threadID := f.stream(t, createPayload)[0].Thread.ID

	var thread struct {
		ID    string           `json:"id"`
		Title string           `json:"title"`
		Items Page[ThreadItem] `json:"items"`
	}
	f.json(t, fmt.Sprintf(`{"type":"threads.get_by_id","params":{"thread_id":%q}}`, threadID), &thread)
	assert.Equal(t, threadID, thread.ID)
	assert.Len(t, thread.Items.Data, 2)

	var items Page[ThreadItem]
	f.json(t, fmt.Sprintf(`{"type":"items.list","params":{"thread_id":%q,"limit":1,"order":"desc"}}`, threadID), &items)
	require.Len(t, items.Data, 1)
	assert.Equal(t, ItemTypeAssistantMessage, items.Data[0].Type)
	assert.True(t, items.HasMore)
	assert.Equal(t, items.Data[0].ID, items.After)

	var updated ThreadMetadata
	f.json(t, fmt.Sprintf(`{"type":"threads.update","params":{"thread_id":%q,"title":"  Lisbon in spring "}}`, threadID), &updated)
	assert.Equal(t, "Lisbon in spring", updated.Title)

	var threads Page[ThreadMetadata]
	f.json(t, `{"type":"threads.list","params":{}}`, &threads)
	require.Len(t, threads.Data, 1)
	assert.Equal(t, "Lisbon in spring", threads.Data[0].Title)

	var attachment Attachment
	f.json(t, `{"type":"attachments.create","params":{"name":"map.pdf","mime_type":"application/pdf"}}`, &attachment)
	assert.True(t, strings.HasPrefix(attachment.ID, "atc_"))
	assert.Equal(t, "application/pdf", attachment.MimeType)

	var empty map[string]any
	f.json(t, fmt.Sprintf(`{"type":"attachments.delete","params":{"attachment_id":%q}}`, attachment.ID), &empty)
	assert.Empty(t, empty)
	_, err := f.store.LoadAttachment(context.Background(), attachment.ID)
	assert.True(t, errors.IsNotFound(err))

	f.json(t, fmt.Sprintf(`{"type":"threads.delete","params":{"thread_id":%q}}`, threadID), &empty)
	_, err = f.store.LoadThread(context.Background(), threadID)
	assert.True(t, errors.IsNotFound(err))
}

func TestProcessRejectsBadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		payload  string
		notFound bool
	}{
		{name: "malformed json", payload: `{"type":`},
		{name: "missing type", payload: `{"params":{}}`},
		{name: "unknown type", payload: `{"type":"noop"}`},
		{name: "bad params", payload: `{"type":"threads.list","params":[1,2]}`},
		{name: "create without text", payload: `{"type":"threads.create","params":{"input":{"content":[{"type":"input_text","text":"  "}]}}}`},
		{name: "create without input", payload: `{"type":"threads.create"}`},
		{name: "add message without thread", payload: `{"type":"threads.add_user_message","params":{"input":{"content":[{"type":"input_text","text":"hi"}]}}}`},
		{name: "add message to unknown thread", payload: `{"type":"threads.add_user_message","params":{"thread_id":"thr_x","input":{"content":[{"type":"input_text","text":"hi"}]}}}`, notFound: true},
		{name: "get unknown thread", payload: `{"type":"threads.get_by_id","params":{"thread_id":"thr_x"}}`, notFound: true},
		{name: "items of unknown thread", payload: `{"type":"items.list","params":{"thread_id":"thr_x"}}`, notFound: true},
		{name: "update without title", payload: `{"type":"threads.update","params":{"thread_id":"thr_x"}}`},
		{name: "update unknown thread", payload: `{"type":"threads.update","params":{"thread_id":"thr_x","title":"x"}}`, notFound: true},
		{name: "attachment without name", payload: `{"type":"attachments.create","params":{}}`},
		{name: "attachment delete without id", payload: `{"type":"attachments.delete","params":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			result, err := f.process(t, tt.payload)
			require.Error(t, err)
			assert.Nil(t, result)
			if tt.notFound {
				assert.True(t, errors.IsNotFound(err), err.Error())
			} else {
				assert.True(t, errors.IsValidation(err), err.Error())
			}
		})
	}
}

func TestFormatSSE(t *testing.T) {
	t.Parallel()

	frame, err := FormatSSE(Event{Type: EventError, Error: &EventError{Message: "oops"}})
	require.NoError(t, err)
	assert.Equal(t, `data: {"type":"error","error":{"message":"oops","allow_retry":false}}`+"\n\n", string(frame))
}

func TestTitleFrom(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Short trip", titleFrom("Short trip\nwith details"))
	long := strings.Repeat("á", 70)
	assert.Equal(t, strings.Repeat("á", 60)+"...", titleFrom(long))
}

func TestThreadSessionPopAndClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := seededItems(t, 3)
	sess := &threadSession{store: store, threadID: "thr", newID: NewID, now: time.Now}

	popped, err := sess.PopItem(ctx)
	require.NoError(t, err)
	require.NotNil(t, popped)
	assert.Equal(t, "text i3", popped.Content)

	items, err := sess.Items(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "text i2", items[0].Content)

	require.NoError(t, sess.Clear(ctx))
	popped, err = sess.PopItem(ctx)
	require.NoError(t, err)
	assert.Nil(t, popped)
}
