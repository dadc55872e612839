package events

import (
	"videobridge/internal/job"
)

// Event type constants for kelindar/event.
const (
	TypeJobProgress uint32 = iota + 1
	TypeJobAdvisory
	TypeJobComplete
	TypeJobCancelled
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// JobProgressEvent carries one normalized progress update for a running job.
type JobProgressEvent struct {
	Kind      job.Kind          `json:"kind" doc:"Job kind"`
	Progress  float64           `json:"progress" doc:"Global progress on the 0-100 scale"`
	Phase     string            `json:"phase" doc:"Active processing phase"`
	Message   string            `json:"message,omitempty" doc:"Tool output line behind the update"`
	Detail    map[string]string `json:"detail,omitempty" doc:"Signal-specific details (chunk counts, frames)"`
	Timestamp string            `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobProgressEvent.
func (e JobProgressEvent) Type() uint32 { return TypeJobProgress }

// JobAdvisoryEvent reports an error marker spotted mid-run. Diagnostic only;
// the terminal JobCompleteEvent decides the outcome.
type JobAdvisoryEvent struct {
	Kind      job.Kind      `json:"kind" doc:"Job kind"`
	ErrorKind job.ErrorKind `json:"error_kind" doc:"Classified error marker"`
	Message   string        `json:"message" doc:"Offending output line"`
	Timestamp string        `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobAdvisoryEvent.
func (e JobAdvisoryEvent) Type() uint32 { return TypeJobAdvisory }

// JobCompleteEvent delivers the terminal result of a job, success or
// failure. Emitted exactly once per job.
type JobCompleteEvent struct {
	Kind      job.Kind   `json:"kind" doc:"Job kind"`
	Result    job.Result `json:"result" doc:"Final job result"`
	Timestamp string     `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobCompleteEvent.
func (e JobCompleteEvent) Type() uint32 { return TypeJobComplete }

// JobCancelledEvent is published when a job reaches the cancelled state.
type JobCancelledEvent struct {
	Kind      job.Kind `json:"kind" doc:"Job kind"`
	Timestamp string   `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for JobCancelledEvent.
func (e JobCancelledEvent) Type() uint32 { return TypeJobCancelled }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" doc:"Log level"`
	Module     string         `json:"module" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
