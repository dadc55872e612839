package job

import (
	"fmt"
	"time"
)

// Kind identifies a class of media-processing job. At most one job of each
// kind runs at a time.
type Kind string

// Supported job kinds.
const (
	KindTranscribe Kind = "transcribe" // speech-to-text via the transcriber tool
	KindSilenceCut Kind = "silencecut" // silence removal / time-stretching
	KindAnalyze    Kind = "analyze"    // AI content analysis and clip selection
)

// Kinds lists all supported job kinds.
func Kinds() []Kind {
	return []Kind{KindTranscribe, KindSilenceCut, KindAnalyze}
}

// ParseKind validates a kind string from external input (API path, CLI arg).
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindTranscribe, KindSilenceCut, KindAnalyze:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown job kind %q", s)
}

// State represents the lifecycle state of a job.
type State string

// Job states. Completed, Failed, TimedOut and Cancelled are terminal.
const (
	StateCreated   State = "created"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state has no outgoing transitions.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateTimedOut, StateCancelled:
		return true
	}
	return false
}

// ErrorKind classifies job failures for callers. It is surfaced uniformly
// regardless of job kind.
type ErrorKind string

// Error kinds.
const (
	ErrorNone              ErrorKind = ""
	ErrorBinaryMissing     ErrorKind = "binary_missing"
	ErrorMissingDependency ErrorKind = "missing_dependency"
	ErrorMissingInput      ErrorKind = "missing_input"
	ErrorOutputMissing     ErrorKind = "output_missing"
	ErrorProcessing        ErrorKind = "processing_error"
	ErrorTimeout           ErrorKind = "timeout"
	ErrorCancelled         ErrorKind = "cancelled"
	ErrorSpawnFailure      ErrorKind = "spawn_failure"
	ErrorAlreadyRunning    ErrorKind = "already_running"
)

// Spec describes one supervised invocation of an external tool.
type Spec struct {
	Kind       Kind
	Executable string
	Args       []string
	WorkingDir string
	InputPath  string

	// ArtifactPath is the output file the tool must produce. Its existence
	// is verified after exit regardless of exit status.
	ArtifactPath string

	// CompletionMarker is the tool's own completion line, used by the
	// resolver when the exit code is unavailable.
	CompletionMarker string

	// Timeout is the wall-clock deadline for the whole job. Zero means no
	// timeout.
	Timeout time.Duration
}

// ExitStatus captures how a child process terminated.
type ExitStatus struct {
	// Code is the process exit code, or nil when the process was terminated
	// by a signal and no code was reported.
	Code *int

	// Signal is the terminating signal name ("interrupt", "killed"), empty
	// when the process exited normally.
	Signal string

	// Terminated is set when the bridge itself sent the termination signal
	// (cancel, timeout, shutdown).
	Terminated bool
}

// Result is the final outcome of a job, delivered exactly once per job.
type Result struct {
	Kind         Kind          `json:"kind"`
	Success      bool          `json:"success"`
	ErrorKind    ErrorKind     `json:"error_kind,omitempty"`
	Message      string        `json:"message,omitempty"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
	ExitCode     *int          `json:"exit_code,omitempty"`
	Signal       string        `json:"signal,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`

	// StderrExcerpt holds a bounded tail of captured stderr for diagnostics.
	StderrExcerpt string `json:"stderr_excerpt,omitempty"`
}

// State maps the result onto a terminal job state.
func (r Result) State() State {
	switch {
	case r.Success:
		return StateCompleted
	case r.ErrorKind == ErrorTimeout:
		return StateTimedOut
	case r.ErrorKind == ErrorCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}
