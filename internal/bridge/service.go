// Package bridge coordinates job execution: it builds tool invocations,
// hands them to the supervisor, and fans lifecycle updates out to the event
// bus and metrics.
package bridge

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"videobridge/internal/artifacts"
	"videobridge/internal/events"
	"videobridge/internal/job"
	"videobridge/internal/metrics"
	"videobridge/internal/precheck"
	"videobridge/internal/progress"
	"videobridge/internal/supervisor"
	"videobridge/internal/transcript"
)

// JobStatus is the externally visible view of one job slot.
type JobStatus struct {
	Kind      job.Kind    `json:"kind" doc:"Job kind"`
	State     job.State   `json:"state" doc:"Lifecycle state"`
	Progress  float64     `json:"progress" doc:"Global progress on the 0-100 scale"`
	Phase     string      `json:"phase,omitempty" doc:"Active processing phase"`
	PID       int         `json:"pid,omitempty" doc:"Process ID while running"`
	InputPath string      `json:"input_path,omitempty" doc:"Input media file"`
	StartedAt time.Time   `json:"started_at,omitzero" doc:"Start time"`
	Result    *job.Result `json:"result,omitempty" doc:"Terminal result, once finished"`
}

// Service ties the tool configuration, supervisor, dependency checker and
// event bus together behind one API.
type Service struct {
	tools   *job.Tools
	sup     *supervisor.Supervisor
	checker *precheck.Checker
	bus     *events.Bus
	logger  *slog.Logger

	mu   sync.Mutex
	last map[job.Kind]job.Result
}

// Config assembles a Service.
type Config struct {
	Tools       *job.Tools
	Bus         *events.Bus
	Logger      *slog.Logger
	GraceWindow time.Duration
	KillWait    time.Duration
	// Strict disables the completion-marker fallback when a process dies to
	// a graceful signal without an exit code.
	Strict bool
}

// NewService wires up a Service and its supervisor.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	resolver := job.NewResolver()
	resolver.Strict = cfg.Strict

	s := &Service{
		tools:   cfg.Tools,
		checker: precheck.New(cfg.Tools, cfg.Logger),
		bus:     cfg.Bus,
		logger:  cfg.Logger,
		last:    make(map[job.Kind]job.Result),
	}

	s.sup = supervisor.New(supervisor.Options{
		GraceWindow: cfg.GraceWindow,
		KillWait:    cfg.KillWait,
		Resolver:    resolver,
		Logger:      cfg.Logger,
		OnProgress:  s.onProgress,
		OnAdvisory:  s.onAdvisory,
		OnExit:      s.onExit,
	})

	return s
}

// Start launches a job of the given kind on the input file. Returns the
// status of the freshly started job, or supervisor.ErrAlreadyRunning when a
// job of that kind is still active.
func (s *Service) Start(kind job.Kind, inputPath string, opts job.Options) (JobStatus, error) {
	spec, err := s.tools.BuildSpec(kind, inputPath, opts)
	if err != nil {
		return JobStatus{}, err
	}

	handle, err := s.sup.Start(spec)
	if err != nil {
		return JobStatus{}, err
	}

	metrics.JobStarted(string(kind))
	s.logger.Info("Job started", "kind", kind, "input", inputPath, "pid", handle.PID)

	return handleStatus(handle), nil
}

// Cancel requests cancellation of the active job of a kind. The first call
// on a running job returns true; repeats and misses return false.
func (s *Service) Cancel(kind job.Kind) bool {
	ok := s.sup.Cancel(kind)
	if ok {
		s.logger.Info("Job cancellation requested", "kind", kind)
	}
	return ok
}

// CancelAll cancels every job active at the time of the call and returns how
// many cancellations were issued.
func (s *Service) CancelAll() int {
	n := s.sup.CancelAll()
	if n > 0 {
		s.logger.Info("Cancelling all active jobs", "count", n)
	}
	return n
}

// Wait blocks until all supervised jobs have fully wound down.
func (s *Service) Wait() {
	s.sup.Wait()
}

// CheckDependencies validates that the runtime for a kind is usable.
func (s *Service) CheckDependencies(ctx context.Context, kind job.Kind) precheck.Report {
	return s.checker.Check(ctx, kind)
}

// CheckAllDependencies runs the dependency check for every job kind.
func (s *Service) CheckAllDependencies(ctx context.Context) []precheck.Report {
	reports := make([]precheck.Report, 0, len(job.Kinds()))
	for _, kind := range job.Kinds() {
		reports = append(reports, s.checker.Check(ctx, kind))
	}
	return reports
}

// Status returns the current view of one job slot: the active job if one is
// running, otherwise the last terminal result for that kind.
func (s *Service) Status(kind job.Kind) JobStatus {
	if h := s.sup.Registry().Get(kind); h != nil {
		return handleStatus(h)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if result, ok := s.last[kind]; ok {
		return JobStatus{
			Kind:      kind,
			State:     result.State(),
			Progress:  statusProgress(result),
			StartedAt: result.StartedAt,
			Result:    &result,
		}
	}
	return JobStatus{Kind: kind, State: job.StateCreated}
}

// StatusAll returns the status of every job kind.
func (s *Service) StatusAll() []JobStatus {
	statuses := make([]JobStatus, 0, len(job.Kinds()))
	for _, kind := range job.Kinds() {
		statuses = append(statuses, s.Status(kind))
	}
	return statuses
}

func handleStatus(h *supervisor.Handle) JobStatus {
	pct, phase := h.Progress()
	return JobStatus{
		Kind:      h.Kind,
		State:     h.State(),
		Progress:  pct,
		Phase:     phase,
		PID:       h.PID,
		InputPath: h.Spec.InputPath,
		StartedAt: h.StartedAt,
	}
}

func statusProgress(result job.Result) float64 {
	if result.Success {
		return 100
	}
	return 0
}

// writeSubtitles renders an .srt next to a finished transcript so callers
// get subtitles without re-parsing the JSON. Best effort: the job outcome is
// already decided.
func (s *Service) writeSubtitles(transcriptPath string) {
	tr, err := transcript.Load(transcriptPath)
	if err != nil {
		s.logger.Warn("Transcript unusable for subtitles", "path", transcriptPath, "error", err)
		return
	}

	srtPath := artifacts.SubtitlePath(transcriptPath)
	if err := transcript.SaveSRT(srtPath, tr.Segments); err != nil {
		s.logger.Warn("Subtitle write failed", "path", srtPath, "error", err)
		return
	}
	s.logger.Info("Subtitles written", "path", srtPath, "segments", len(tr.Segments))
}

func (s *Service) onProgress(kind job.Kind, ev progress.Event) {
	metrics.SetJobProgress(string(kind), ev.Progress)
	s.bus.Publish(events.JobProgressEvent{
		Kind:      kind,
		Progress:  ev.Progress,
		Phase:     ev.Phase,
		Message:   ev.Message,
		Detail:    ev.Detail,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *Service) onAdvisory(kind job.Kind, adv progress.Advisory) {
	s.logger.Warn("Job output reported an error", "kind", kind, "error_kind", adv.Kind, "line", adv.Message)
	s.bus.Publish(events.JobAdvisoryEvent{
		Kind:      kind,
		ErrorKind: adv.Kind,
		Message:   adv.Message,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *Service) onExit(result job.Result) {
	s.mu.Lock()
	s.last[result.Kind] = result
	s.mu.Unlock()

	metrics.JobFinished(string(result.Kind), string(result.State()), result.Duration)

	if result.Success {
		s.logger.Info("Job completed",
			"kind", result.Kind,
			"artifact", result.ArtifactPath,
			"duration", result.Duration)
	} else {
		s.logger.Warn("Job failed",
			"kind", result.Kind,
			"state", result.State(),
			"error_kind", result.ErrorKind,
			"message", result.Message)
	}

	if result.Success && result.Kind == job.KindTranscribe {
		s.writeSubtitles(result.ArtifactPath)
	}

	now := time.Now().Format(time.RFC3339)
	s.bus.Publish(events.JobCompleteEvent{
		Kind:      result.Kind,
		Result:    result,
		Timestamp: now,
	})
	if result.State() == job.StateCancelled {
		s.bus.Publish(events.JobCancelledEvent{
			Kind:      result.Kind,
			Timestamp: now,
		})
	}
}
