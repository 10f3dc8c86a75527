// Package events carries upload lifecycle notifications from the orchestrator
// to whichever front end is running (progress bars in the CLI, widgets in the GUI).
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/docupload/docupload/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventLog EventType = "log"

	EventStageChange       EventType = "stage_change"       // Per-folder state machine transition
	EventFileUploaded      EventType = "file_uploaded"      // One payload file accepted by the backend
	EventDocumentCompleted EventType = "document_completed" // Folder uploaded in full
	EventDocumentFailed    EventType = "document_failed"    // Folder aborted
	EventBatchCompleted    EventType = "batch_completed"    // All selected folders processed
)

// Stage is a state of the per-folder upload state machine.
type Stage string

const (
	StageStart            Stage = "start"
	StageMetadataRead     Stage = "metadata_read"
	StageMetadataParsed   Stage = "metadata_parsed"
	StageContainerCreated Stage = "container_created"
	StageFilesUploading   Stage = "files_uploading"
	StageDone             Stage = "done"
	StageFailed           Stage = "failed"
)

// LogLevel defines log severity levels
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// LogEvent represents log messages
type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	Folder  string
	Error   error
}

// StageChangeEvent is published on every transition of a folder's state machine.
type StageChangeEvent struct {
	BaseEvent
	RunID       string
	Folder      string
	Document    string // empty until metadata is parsed
	Stage       Stage
	ContainerID string
	FileIndex   int // 1-based, only set for StageFilesUploading
	FileTotal   int
	FileName    string
}

// FileUploadedEvent is published after the backend accepts one payload file.
type FileUploadedEvent struct {
	BaseEvent
	RunID       string
	Folder      string
	Document    string
	ContainerID string
	FileName    string
	Index       int // 1-based
	Total       int
	Size        int64
}

// DocumentEvent reports the outcome of one folder.
type DocumentEvent struct {
	BaseEvent
	RunID       string
	Folder      string
	Document    string
	ContainerID string
	Files       int
	Error       error
	Duration    time.Duration
}

// BatchEvent reports the tally of one upload action.
type BatchEvent struct {
	BaseEvent
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// EventBus manages event subscriptions and publishing
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // Subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // Count of dropped events due to full buffers
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking. Events that do
// not fit in a subscriber's buffer are dropped and counted.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Close shuts down the event bus and closes all channels
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}

	for _, ch := range eb.all {
		close(ch)
	}
}

// PublishLog is a convenience method for publishing log events
func (eb *EventBus) PublishLog(level LogLevel, message, folder string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: BaseEvent{
			EventType: EventLog,
			Time:      time.Now(),
		},
		Level:   level,
		Message: message,
		Folder:  folder,
		Error:   err,
	})
}

// PublishStage is a convenience method for publishing state machine transitions
func (eb *EventBus) PublishStage(runID, folder, document string, stage Stage, containerID string) {
	eb.Publish(&StageChangeEvent{
		BaseEvent: BaseEvent{
			EventType: EventStageChange,
			Time:      time.Now(),
		},
		RunID:       runID,
		Folder:      folder,
		Document:    document,
		Stage:       stage,
		ContainerID: containerID,
	})
}

// UnsubscribeAll removes a subscription channel from every event type.
func (eb *EventBus) UnsubscribeAll(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	for eventType, subscribers := range eb.subscribers {
		for i, subCh := range subscribers {
			if subCh == ch {
				subscribers[i] = subscribers[len(subscribers)-1]
				eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
				break
			}
		}
	}

	for i, subCh := range eb.all {
		if subCh == ch {
			eb.all[i] = eb.all[len(eb.all)-1]
			eb.all = eb.all[:len(eb.all)-1]
			break
		}
	}
}

// GetDroppedEventCount returns the total number of events dropped due to full buffers
func (eb *EventBus) GetDroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}
