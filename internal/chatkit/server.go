package chatkit

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/merak-travel/merak/internal/errors"
	"github.com/merak-travel/merak/internal/logger"
)

// Request types
const (
	RequestThreadsCreate         = "threads.create"
	RequestThreadsAddUserMessage = "threads.add_user_message"
	RequestThreadsGetByID        = "threads.get_by_id"
	RequestThreadsList           = "threads.list"
	RequestItemsList             = "items.list"
	RequestThreadsUpdate         = "threads.update"
	RequestThreadsDelete         = "threads.delete"
	RequestAttachmentsCreate     = "attachments.create"
	RequestAttachmentsDelete     = "attachments.delete"
)

// Request status labels for metrics
const (
	StatusOK       = "ok"
	StatusInvalid  = "invalid"
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// DefaultPageSize is used when list requests omit a limit
const DefaultPageSize = 20

const maxTitleLength = 60

// EmitFunc delivers one stream event to the client
type EmitFunc func(Event) error

// Responder produces the assistant's reply to a user message.
type Responder interface {
	Respond(ctx context.Context, thread *ThreadMetadata, input *ThreadItem, rc RequestContext, emit EmitFunc) error
}

// Recorder receives request metrics. *metrics.ChatKitMetrics satisfies it.
type Recorder interface {
	RecordRequest(requestType, status string, duration float64)
	SetStoreSize(threads, items int)
}

// Result is either a *StreamingResult or a *JSONResult
type Result interface {
	isResult()
}

// JSONResult is a complete JSON response body
type JSONResult struct {
	Body []byte
}

func (*JSONResult) isResult() {}

// StreamingResult produces events until the response is complete.
type StreamingResult struct {
	run    func(ctx context.Context, emit EmitFunc) error
	finish func(err error)
}

func (*StreamingResult) isResult() {}

// Stream runs the request, calling emit for each event. An error from emit aborts the stream.
func (r *StreamingResult) Stream(ctx context.Context, emit EmitFunc) error {
	err := r.run(ctx, emit)
	if r.finish != nil {
		r.finish(err)
	}
	return err
}

// FormatSSE encodes an event as a server-sent event frame.
func FormatSSE(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}

// UserInput is the message a client submits
type UserInput struct {
	Content          []ContentPart  `json:"content"`
	Attachments      []string       `json:"attachments,omitempty"`
	InferenceOptions map[string]any `json:"inference_options,omitempty"`
}

func (u *UserInput) text() string {
	if u == nil {
		return ""
	}
	parts := make([]string, 0, len(u.Content))
	for _, c := range u.Content {
		if t := strings.TrimSpace(c.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

type request struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

type requestParams struct {
	ThreadID     string     `json:"thread_id"`
	Input        *UserInput `json:"input"`
	Limit        int        `json:"limit"`
	After        string     `json:"after"`
	Order        string     `json:"order"`
	Title        *string    `json:"title"`
	AttachmentID string     `json:"attachment_id"`
	Name         string     `json:"name"`
	MimeType     string     `json:"mime_type"`
}

type threadWithItems struct {
	ThreadMetadata
	Items *Page[ThreadItem] `json:"items"`
}

// Server processes ChatKit requests against a Store.
type Server struct {
	store     Store
	responder Responder
	pageSize  int
	recorder  Recorder
	log       logger.Logger
	now       func() time.Time
	newID     func(prefix string) string
}

// Option configures a Server
type Option func(*Server)

// WithPageSize sets the default list page size
func WithPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		s.recorder = r
	}
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithIDGenerator overrides id generation
func WithIDGenerator(gen func(prefix string) string) Option {
	return func(s *Server) {
		s.newID = gen
	}
}

// NewServer creates a request processor. A nil responder stores user messages without replying.
func NewServer(store Store, responder Responder, opts ...Option) *Server {
	s := &Server{
		store:     store,
		responder: responder,
		pageSize:  DefaultPageSize,
		now:       time.Now,
		newID:     NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Global().Module("chatkit")
	}
	return s
}

// NewID returns a random identifier with the given prefix
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Store returns the backing store
func (s *Server) Store() Store {
	return s.store
}

// Process decodes payload and executes it. Streaming request types return a
// *StreamingResult whose work happens when it is streamed.
func (s *Server) Process(ctx context.Context, payload []byte, rc RequestContext) (Result, error) {
	start := time.Now()

	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.record("unknown", StatusInvalid, start)
		return nil, invalid("malformed request payload: %v", err)
	}

	var params requestParams
	if len(req.Params) > 0 && string(req.Params) != "null" {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.record(req.Type, StatusInvalid, start)
			return nil, invalid("malformed params for %s: %v", req.Type, err)
		}
	}

	log := s.log.WithContext(ctx).With(
		logger.String("request_type", req.Type),
		logger.String("user_id", rc.UserID))

	var (
		result Result
		err    error
	)
	switch req.Type {
	case RequestThreadsCreate:
		result, err = s.createThread(params, rc, start)
	case RequestThreadsAddUserMessage:
		result, err = s.addUserMessage(ctx, params, rc, start)
	case RequestThreadsGetByID:
		result, err = s.getThread(ctx, params)
	case RequestThreadsList:
		result, err = s.listThreads(ctx, params)
	case RequestItemsList:
		result, err = s.listItems(ctx, params)
	case RequestThreadsUpdate:
		result, err = s.updateThread(ctx, params)
	case RequestThreadsDelete:
		result, err = s.deleteThread(ctx, params)
	case RequestAttachmentsCreate:
		result, err = s.createAttachment(ctx, params)
	case RequestAttachmentsDelete:
		result, err = s.deleteAttachment(ctx, params)
	case "":
		err = invalid("request type is required")
	default:
		err = invalid("unsupported request type %q", req.Type)
	}

	if err != nil {
		s.record(req.Type, statusFor(err), start)
		log.Debug("chatkit request rejected", logger.Error(err))
		return nil, err
	}
	if _, streaming := result.(*StreamingResult); !streaming {
		s.record(req.Type, StatusOK, start)
	}
	return result, nil
}

func (s *Server) createThread(p requestParams, rc RequestContext, start time.Time) (Result, error) {
	text := p.Input.text()
	if text == "" {
		return nil, invalid("input must contain text")
	}

	thread := &ThreadMetadata{
		ID:        s.newID("thr"),
		Title:     titleFrom(text),
		CreatedAt: s.now(),
		Metadata:  map[string]any{"user_id": rc.UserID},
	}

	return s.stream(RequestThreadsCreate, start, func(ctx context.Context, emit EmitFunc) error {
		if err := s.store.SaveThread(ctx, thread); err != nil {
			return err
		}
		if err := emit(Event{Type: EventThreadCreated, Thread: thread}); err != nil {
			return err
		}
		return s.respond(ctx, thread, text, rc, emit)
	}), nil
}

func (s *Server) addUserMessage(ctx context.Context, p requestParams, rc RequestContext, start time.Time) (Result, error) {
	if p.ThreadID == "" {
		return nil, invalid("thread_id is required")
	}
	text := p.Input.text()
	if text == "" {
		return nil, invalid("input must contain text")
	}
	thread, err := s.store.LoadThread(ctx, p.ThreadID)
	if err != nil {
		return nil, err
	}

	return s.stream(RequestThreadsAddUserMessage, start, func(ctx context.Context, emit EmitFunc) error {
		return s.respond(ctx, thread, text, rc, emit)
	}), nil
}

// respond records the user message and lets the responder reply. Responder failures
// are surfaced to the client as an error event.
func (s *Server) respond(ctx context.Context, thread *ThreadMetadata, text string, rc RequestContext, emit EmitFunc) error {
	item := &ThreadItem{
		ID:        s.newID("msg"),
		ThreadID:  thread.ID,
		Type:      ItemTypeUserMessage,
		Content:   []ContentPart{{Type: ContentInputText, Text: text}},
		CreatedAt: s.now(),
	}
	if err := s.store.AddThreadItem(ctx, thread.ID, item); err != nil {
		return err
	}
	if err := emit(Event{Type: EventThreadItemDone, Item: item}); err != nil {
		return err
	}
	if s.responder == nil {
		return nil
	}

	if err := s.responder.Respond(ctx, thread, item, rc, emit); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Error("responder failed",
			logger.String("thread_id", thread.ID),
			logger.Error(err))
		if emitErr := emit(Event{Type: EventError, Error: &EventError{
			Message:    "The trip planner could not generate a response. Please try again.",
			AllowRetry: true,
		}}); emitErr != nil {
			return emitErr
		}
		return err
	}
	return nil
}

func (s *Server) stream(requestType string, start time.Time, run func(context.Context, EmitFunc) error) *StreamingResult {
	return &StreamingResult{
		run: run,
		finish: func(err error) {
			status := StatusOK
			if err != nil {
				status = statusFor(err)
			}
			s.record(requestType, status, start)
		},
	}
}

func (s *Server) getThread(ctx context.Context, p requestParams) (Result, error) {
	if p.ThreadID == "" {
		return nil, invalid("thread_id is required")
	}
	thread, err := s.store.LoadThread(ctx, p.ThreadID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.LoadThreadItems(ctx, thread.ID, "", s.limit(p.Limit), OrderAsc)
	if err != nil {
		return nil, err
	}
	return jsonResult(threadWithItems{ThreadMetadata: *thread, Items: items})
}

func (s *Server) listThreads(ctx context.Context, p requestParams) (Result, error) {
	order := p.Order
	if order == "" {
		order = OrderDesc
	}
	page, err := s.store.LoadThreads(ctx, s.limit(p.Limit), p.After, order)
	if err != nil {
		return nil, err
	}
	return jsonResult(page)
}

func (s *Server) listItems(ctx context.Context, p requestParams) (Result, error) {
	if p.ThreadID == "" {
		return nil, invalid("thread_id is required")
	}
	if _, err := s.store.LoadThread(ctx, p.ThreadID); err != nil {
		return nil, err
	}
	order := p.Order
	if order == "" {
		order = OrderAsc
	}
	page, err := s.store.LoadThreadItems(ctx, p.ThreadID, p.After, s.limit(p.Limit), order)
	if err != nil {
		return nil, err
	}
	return jsonResult(page)
}

func (s *Server) updateThread(ctx context.Context, p requestParams) (Result, error) {
	if p.ThreadID == "" {
		return nil, invalid("thread_id is required")
	}
	if p.Title == nil {
		return nil, invalid("title is required")
	}
	thread, err := s.store.LoadThread(ctx, p.ThreadID)
	if err != nil {
		return nil, err
	}
	thread.Title = strings.TrimSpace(*p.Title)
	if err := s.store.SaveThread(ctx, thread); err != nil {
		return nil, err
	}
	return jsonResult(thread)
}

func (s *Server) deleteThread(ctx context.Context, p requestParams) (Result, error) {
	if p.ThreadID == "" {
		return nil, invalid("thread_id is required")
	}
	if err := s.store.DeleteThread(ctx, p.ThreadID); err != nil {
		return nil, err
	}
	return jsonResult(struct{}{})
}

func (s *Server) createAttachment(ctx context.Context, p requestParams) (Result, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, invalid("attachment name is required")
	}
	attachment := &Attachment{ID: s.newID("atc"), Name: p.Name, MimeType: p.MimeType}
	if err := s.store.SaveAttachment(ctx, attachment); err != nil {
		return nil, err
	}
	return jsonResult(attachment)
}

func (s *Server) deleteAttachment(ctx context.Context, p requestParams) (Result, error) {
	if p.AttachmentID == "" {
		return nil, invalid("attachment_id is required")
	}
	if err := s.store.DeleteAttachment(ctx, p.AttachmentID); err != nil {
		return nil, err
	}
	return jsonResult(struct{}{})
}

func (s *Server) limit(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.pageSize
}

func (s *Server) record(requestType, status string, start time.Time) {
	if s.recorder == nil {
		return
	}
	s.recorder.RecordRequest(requestType, status, time.Since(start).Seconds())
	if stats, ok := s.store.(interface{ Stats() (int, int) }); ok {
		s.recorder.SetStoreSize(stats.Stats())
	}
}

func jsonResult(v any) (Result, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, errors.New(err).
			Component("chatkit").
			Category(errors.CategoryGeneric).
			Context("operation", "encode_response").
			Build()
	}
	return &JSONResult{Body: body}, nil
}

func statusFor(err error) string {
	switch {
	case errors.IsValidation(err):
		return StatusInvalid
	case errors.IsNotFound(err):
		return StatusNotFound
	default:
		return StatusError
	}
}

func invalid(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("chatkit").
		Category(errors.CategoryValidation).
		Build()
}

// titleFrom derives a thread title from the first line of the opening message
func titleFrom(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) <= maxTitleLength {
		return line
	}
	runes := []rune(line)
	return strings.TrimSpace(string(runes[:maxTitleLength])) + "..."
}
