package domain

import (
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventLoadStart     EventType = "load-start"
	EventLoadItemStart EventType = "load-item-start"
	EventLoadSlice     EventType = "load-slice"
	EventLoadProgress  EventType = "load-progress"
	EventLoadEnd       EventType = "load-end"
	EventLoadError     EventType = "load-error"
	EventLoadAbort     EventType = "load-abort"
)

// EventTypes lists every event type in lifecycle order.
var EventTypes = []EventType{
	EventLoadStart,
	EventLoadItemStart,
	EventLoadSlice,
	EventLoadProgress,
	EventLoadEnd,
	EventLoadError,
	EventLoadAbort,
}

// Event is implemented by every relay event.
type Event interface {
	EventType() EventType
}

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	LoadID    string    `json:"load_id,omitempty"`
}

// EventType returns the event tag.
func (e EventBase) EventType() EventType {
	return e.Type
}

// NewBase stamps an EventBase.
func NewBase(t EventType, loadID string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, LoadID: loadID}
}

// StartEvent is fired once before the backend starts loading.
type StartEvent struct {
	EventBase
}

// ItemStartEvent is fired when a backend starts reading an item.
type ItemStartEvent struct {
	EventBase
	Item   Item   `json:"item"`
	Loader string `json:"loader"`
}

// SliceEvent is fired for every decoded item.
type SliceEvent struct {
	EventBase
	Data SliceInfo `json:"data"`
}

// ProgressEvent reports load progress. Backends report Loaded out of Total.
type ProgressEvent struct {
	EventBase
	LengthComputable bool  `json:"lengthComputable"`
	Loaded           int64 `json:"loaded"`
	Total            int64 `json:"total"`
}

// EndEvent is the last event of an image load. Record is what the controller journaled,
// before any journal middleware ran.
type EndEvent struct {
	EventBase
	Record LoadRecord `json:"-"`
}

// ErrorEvent carries a normalized error message and the original error.
type ErrorEvent struct {
	EventBase
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// AbortEvent carries a normalized abort message and the original abort payload.
type AbortEvent struct {
	EventBase
	Message string `json:"message"`
	Err     error  `json:"-"`
}
