// Package events provides the event bus the engine uses to push notices and
// transfer progress to the embedding UI without a framework dependency.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType defines the types of events the engine emits.
type EventType string

const (
	EventNotice           EventType = "notice"
	EventUploadProgress   EventType = "upload_progress"
	EventUploadCompleted  EventType = "upload_completed"
	EventUploadFailed     EventType = "upload_failed"
	EventSelectionCleared EventType = "selection_cleared"
	EventFavoriteChanged  EventType = "favorite_changed"
)

// NoticeLevel grades user-visible notices.
type NoticeLevel int

const (
	NoticeSuccess NoticeLevel = iota
	NoticeWarning
	NoticeError
)

func (l NoticeLevel) String() string {
	switch l {
	case NoticeSuccess:
		return "success"
	case NoticeWarning:
		return "warning"
	case NoticeError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// NoticeEvent is one transient user-visible notice (toast).
type NoticeEvent struct {
	BaseEvent
	Level   NoticeLevel
	Message string
}

// UploadEvent reports chunked upload session state.
type UploadEvent struct {
	BaseEvent
	SessionID   string
	Name        string
	ChunksSent  int
	TotalChunks int
	Percent     int
	Err         error
}

// SelectionEvent reports selection-set lifecycle changes.
type SelectionEvent struct {
	BaseEvent
	Reason string // "query_changed", "kind_changed", "bulk_completed"
}

// FavoriteEvent reports a committed or rolled-back favorite state change.
type FavoriteEvent struct {
	BaseEvent
	ItemID int
	State  string
}

// Bus manages event subscriptions and publishing. Publishing never blocks;
// events to a full subscriber buffer are dropped and counted.
type Bus struct {
	subscribers map[EventType][]chan Event
	all         []chan Event
	mu          sync.RWMutex
	bufferSize  int
	closed      bool
	dropped     atomic.Int64
}

const defaultBuffer = 256

// NewBus creates an event bus with the given per-subscriber buffer size.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBuffer
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type.
func (b *Bus) Subscribe(eventType EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events.
func (b *Bus) SubscribeAll() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.all = append(b.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
	for _, ch := range b.all {
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Unsubscribe removes a subscription channel from a specific event type.
func (b *Bus) Unsubscribe(eventType EventType, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	subscribers := b.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			b.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// UnsubscribeAll removes a catch-all subscription channel.
func (b *Bus) UnsubscribeAll(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for i, subCh := range b.all {
		if subCh == ch {
			b.all[i] = b.all[len(b.all)-1]
			b.all = b.all[:len(b.all)-1]
			break
		}
	}
}

// Close shuts down the bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
}

// Dropped returns the number of events dropped due to full buffers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// PublishNotice is a convenience method for publishing notice events.
func (b *Bus) PublishNotice(level NoticeLevel, message string) {
	b.Publish(&NoticeEvent{
		BaseEvent: BaseEvent{EventType: EventNotice, Time: time.Now()},
		Level:     level,
		Message:   message,
	})
}

// PublishUpload is a convenience method for publishing upload progress.
func (b *Bus) PublishUpload(eventType EventType, sessionID, name string, sent, total, percent int, err error) {
	b.Publish(&UploadEvent{
		BaseEvent:   BaseEvent{EventType: eventType, Time: time.Now()},
		SessionID:   sessionID,
		Name:        name,
		ChunksSent:  sent,
		TotalChunks: total,
		Percent:     percent,
		Err:         err,
	})
}
