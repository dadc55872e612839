package job

import (
	"fmt"
	"strings"
	"time"

	"videobridge/internal/artifacts"
)

// maxExcerptBytes bounds the stderr excerpt carried on a Result.
const maxExcerptBytes = 4096

// Resolver derives a job's final outcome from its exit status, captured
// output and the artifact on disk.
type Resolver struct {
	// Strict disables the marker heuristic for signal-terminated processes.
	// In strict mode a missing exit code is always a failure.
	Strict bool

	// statArtifact is swapped in tests.
	statArtifact func(path string) bool
}

// NewResolver returns a resolver with the default (lenient) policy.
func NewResolver() *Resolver {
	return &Resolver{statArtifact: artifacts.Exists}
}

// Resolve computes the JobResult for a finished process.
//
// Success requires the artifact to exist on disk, always re-verified by
// stat. Exit code 0 plus artifact is success. A nil exit code caused by the
// bridge's own graceful termination counts as success only when the tool's
// completion marker appears in the captured output. Some tools spawn
// process trees that swallow the real exit code, so the marker plus the
// artifact is the only evidence the work finished. Strict mode drops that
// tolerance.
func (r *Resolver) Resolve(spec Spec, status ExitStatus, stdout, stderr string, startedAt time.Time, duration time.Duration) Result {
	res := Result{
		Kind:          spec.Kind,
		ArtifactPath:  spec.ArtifactPath,
		ExitCode:      status.Code,
		Signal:        status.Signal,
		StartedAt:     startedAt,
		Duration:      duration,
		StderrExcerpt: Excerpt(stderr),
	}

	stat := r.statArtifact
	if stat == nil {
		stat = artifacts.Exists
	}
	artifactOK := stat(spec.ArtifactPath)

	switch {
	case status.Code != nil && *status.Code == 0:
		if artifactOK {
			res.Success = true
			return res
		}
		res.ErrorKind = ErrorOutputMissing
		res.Message = "tool exited cleanly but produced no output artifact"
		return res

	case status.Code == nil && status.Terminated && !r.Strict &&
		hasCompletionMarker(spec, stdout, stderr):
		if artifactOK {
			res.Success = true
			return res
		}
		res.ErrorKind = ErrorOutputMissing
		res.Message = "completion marker found but output artifact is missing"
		return res
	}

	res.ErrorKind = ClassifyOutput(stderr)
	res.Message = failureMessage(res.ErrorKind, status)
	return res
}

func hasCompletionMarker(spec Spec, stdout, stderr string) bool {
	if spec.CompletionMarker == "" {
		return false
	}
	return strings.Contains(stdout, spec.CompletionMarker) ||
		strings.Contains(stderr, spec.CompletionMarker)
}

// Output markers the tools emit on well-understood failures. Matched against
// stderr to annotate failures; exit status alone decides success.
var (
	dependencyMarkers = []string{
		"ModuleNotFoundError",
		"ImportError",
		"No module named",
		"DLL load failed",
	}
	inputMarkers = []string{
		"FileNotFoundError",
		"No such file or directory",
		"Invalid data found when processing input",
	}
)

// ClassifyOutput maps known stderr markers to an ErrorKind, defaulting to
// ErrorProcessing.
func ClassifyOutput(stderr string) ErrorKind {
	for _, m := range dependencyMarkers {
		if strings.Contains(stderr, m) {
			return ErrorMissingDependency
		}
	}
	for _, m := range inputMarkers {
		if strings.Contains(stderr, m) {
			return ErrorMissingInput
		}
	}
	return ErrorProcessing
}

func failureMessage(kind ErrorKind, status ExitStatus) string {
	switch kind {
	case ErrorMissingDependency:
		return "tool is missing a required runtime component"
	case ErrorMissingInput:
		return "tool could not read its input file"
	}
	if status.Code != nil {
		return fmt.Sprintf("tool exited with code %d", *status.Code)
	}
	if status.Signal != "" {
		return "tool was terminated by signal " + status.Signal
	}
	return "tool failed without reporting an exit status"
}

// Excerpt returns a bounded tail of captured output, trimmed to whole lines
// where possible.
func Excerpt(s string) string {
	if len(s) <= maxExcerptBytes {
		return s
	}
	tail := s[len(s)-maxExcerptBytes:]
	if idx := strings.IndexByte(tail, '\n'); idx >= 0 && idx < len(tail)-1 {
		tail = tail[idx+1:]
	}
	return tail
}
