// Package chatkit implements a ChatKit-compatible thread store and request processor
// that bridges web chat clients to the trip planner agent.
package chatkit

import (
	"strings"
	"time"
)

// ItemType identifies the kind of a thread item
type ItemType string

const (
	ItemTypeUserMessage      ItemType = "user_message"
	ItemTypeAssistantMessage ItemType = "assistant_message"
)

// Content part types
const (
	ContentInputText  = "input_text"
	ContentOutputText = "output_text"
)

// Sort orders accepted by list operations
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ThreadMetadata describes a conversation thread
type ThreadMetadata struct {
	ID        string         `json:"id"`
	Title     string         `json:"title,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ContentPart is one segment of message content
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ThreadItem is a message stored in a thread
type ThreadItem struct {
	ID        string        `json:"id"`
	ThreadID  string        `json:"thread_id"`
	Type      ItemType      `json:"type"`
	Content   []ContentPart `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
}

// Text joins the item's text parts
func (i *ThreadItem) Text() string {
	parts := make([]string, 0, len(i.Content))
	for _, c := range i.Content {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (i *ThreadItem) clone() ThreadItem {
	cp := *i
	cp.Content = append([]ContentPart(nil), i.Content...)
	return cp
}

// Attachment is file metadata registered by a client
type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

// Page is one slice of a cursor-paginated listing
type Page[T any] struct {
	Data    []T    `json:"data"`
	HasMore bool   `json:"has_more"`
	After   string `json:"after,omitempty"`
}

// RequestContext carries caller metadata extracted by the transport
type RequestContext struct {
	UserID     string `json:"user_id"`
	ClientHost string `json:"client_host,omitempty"`
}

// Stream event types
const (
	EventThreadCreated  = "thread.created"
	EventThreadItemDone = "thread.item.done"
	EventError          = "error"
)

// Event is one server-sent stream event
type Event struct {
	Type   string          `json:"type"`
	Thread *ThreadMetadata `json:"thread,omitempty"`
	Item   *ThreadItem     `json:"item,omitempty"`
	Error  *EventError     `json:"error,omitempty"`
}

// EventError is the payload of an error event
type EventError struct {
	Message    string `json:"message"`
	AllowRetry bool   `json:"allow_retry"`
}
