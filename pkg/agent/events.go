package agent

import "time"

// EventType names what happened during a run.
type EventType string

const (
	EventModelOutput   EventType = "model_output"
	EventModelError    EventType = "model_error"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventToolError     EventType = "tool_error"
	EventSkippedCall   EventType = "skipped_call"
	EventFinal         EventType = "final"
	EventDepthExceeded EventType = "depth_exceeded"
)

// Event is delivered to observers synchronously, in the order things happen.
// Step is 1-based.
type Event struct {
	RunID     string
	Type      EventType
	Step      int
	Tool      string
	Params    map[string]any
	Text      string
	Err       error
	Timestamp time.Time
}

// Observer receives run events. It must not block for long; the loop waits.
type Observer func(Event)
