package supervisor

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"videobridge/internal/artifacts"
	"videobridge/internal/job"
	"videobridge/internal/progress"
)

// Sentinel errors returned by Start.
var (
	ErrAlreadyRunning = errors.New("a job of this kind is already running")
	ErrSpawnFailure   = errors.New("failed to spawn job process")
)

// captureBytes bounds the per-stream output kept for result resolution.
const captureBytes = 64 * 1024

// Handle is the caller's reference to one supervised job.
type Handle struct {
	Kind      job.Kind
	Spec      job.Spec
	StartedAt time.Time
	PID       int

	mu              sync.Mutex
	state           job.State
	progress        float64
	phase           string
	cancelRequested bool
	cancelCh        chan struct{}
}

// State returns the job's current lifecycle state.
func (h *Handle) State() job.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Progress returns the last emitted progress value and phase.
func (h *Handle) Progress() (float64, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.progress, h.phase
}

func (h *Handle) setProgress(p float64, phase string) {
	h.mu.Lock()
	h.progress = p
	h.phase = phase
	h.mu.Unlock()
}

func (h *Handle) setState(s job.State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// requestCancel asks the supervising goroutine to terminate the job. Only
// the first call on a running job wins; later calls are no-ops.
func (h *Handle) requestCancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelRequested || h.state.Terminal() {
		return false
	}
	h.cancelRequested = true
	close(h.cancelCh)
	return true
}

// Options configures a Supervisor.
type Options struct {
	// GraceWindow is the delay between the graceful termination signal and
	// the forced kill. Defaults to 5s.
	GraceWindow time.Duration

	// KillWait bounds how long to wait for the process after SIGKILL.
	// Defaults to 5s.
	KillWait time.Duration

	// Clock defaults to the wall clock. Tests inject a fake.
	Clock Clock

	// Resolver computes final outcomes. Defaults to job.NewResolver().
	Resolver *job.Resolver

	// Logger for supervisor operations. If nil, uses slog.Default().
	Logger *slog.Logger

	// OnProgress receives normalized progress events (optional).
	OnProgress func(kind job.Kind, ev progress.Event)

	// OnAdvisory receives mid-run error markers (optional).
	OnAdvisory func(kind job.Kind, adv progress.Advisory)

	// OnExit receives exactly one terminal result per job (optional).
	OnExit func(result job.Result)
}

// Supervisor owns the spawn/monitor/kill lifecycle of external media jobs,
// one active job per kind.
type Supervisor struct {
	opts     Options
	registry *Registry
	clock    Clock
	resolver *job.Resolver
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// New creates a Supervisor.
func New(opts Options) *Supervisor {
	if opts.GraceWindow == 0 {
		opts.GraceWindow = 5 * time.Second
	}
	if opts.KillWait == 0 {
		opts.KillWait = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = NewClock()
	}
	if opts.Resolver == nil {
		opts.Resolver = job.NewResolver()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Supervisor{
		opts:     opts,
		registry: NewRegistry(),
		clock:    opts.Clock,
		resolver: opts.Resolver,
		logger:   opts.Logger,
	}
}

// Registry exposes the job registry for status queries.
func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// outcome distinguishes why the supervising loop finished.
type outcome int

const (
	outcomeExit outcome = iota
	outcomeCancelled
	outcomeTimedOut
)

type outputLine struct {
	source string
	text   string
}

// Start spawns the job described by spec and returns immediately. The
// terminal result is delivered later via OnExit. Fails with
// ErrAlreadyRunning while a job of the same kind is active and with
// ErrSpawnFailure when the executable cannot be started; in both cases no
// job is registered.
func (s *Supervisor) Start(spec job.Spec) (*Handle, error) {
	h := &Handle{
		Kind:      spec.Kind,
		Spec:      spec,
		StartedAt: s.clock.Now(),
		state:     job.StateCreated,
		cancelCh:  make(chan struct{}),
	}
	if err := s.registry.register(h); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Kind, err)
	}

	cmd := exec.Command(spec.Executable, spec.Args...)
	cmd.Dir = spec.WorkingDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.registry.unregister(h)
		return nil, fmt.Errorf("%w: stdout pipe: %v", ErrSpawnFailure, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.registry.unregister(h)
		return nil, fmt.Errorf("%w: stderr pipe: %v", ErrSpawnFailure, err)
	}

	if err := cmd.Start(); err != nil {
		s.registry.unregister(h)
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailure, err)
	}

	h.PID = cmd.Process.Pid
	h.setState(job.StateRunning)
	s.logger.Info("Job started",
		"kind", spec.Kind, "pid", h.PID, "executable", spec.Executable)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.supervise(h, cmd, stdout, stderr)
	}()

	return h, nil
}

// Cancel requests termination of the active job of a kind. Returns false
// when no job of that kind is running or cancellation was already requested.
func (s *Supervisor) Cancel(kind job.Kind) bool {
	h := s.registry.Get(kind)
	if h == nil {
		return false
	}
	if !h.requestCancel() {
		return false
	}
	s.logger.Info("Job cancellation requested", "kind", kind, "pid", h.PID)
	return true
}

// CancelAll cancels every active job. Used for application shutdown.
func (s *Supervisor) CancelAll() int {
	return s.registry.CancelAll()
}

// Wait blocks until all supervising goroutines have finished.
func (s *Supervisor) Wait() {
	s.wg.Wait()
}

// supervise monitors one running job until it reaches a terminal state.
func (s *Supervisor) supervise(h *Handle, cmd *exec.Cmd, stdout, stderr io.Reader) {
	parser := progress.NewParser(progress.ForKind(h.Kind))
	stdoutTail := newTailBuffer(captureBytes)
	stderrTail := newTailBuffer(captureBytes)

	lineCh := make(chan outputLine, 64)
	var readers sync.WaitGroup
	readers.Add(2)
	go s.readLines(stdout, "stdout", stdoutTail, lineCh, &readers)
	go s.readLines(stderr, "stderr", stderrTail, lineCh, &readers)
	go func() {
		readers.Wait()
		close(lineCh)
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	// exited lets the escalation goroutine stop waiting once the process is
	// reaped.
	exited := make(chan struct{})

	var timeoutC <-chan time.Time
	if h.Spec.Timeout > 0 {
		timer := s.clock.NewTimer(h.Spec.Timeout)
		defer timer.Stop()
		timeoutC = timer.C()
	}

	why := outcomeExit
	cancelCh := h.cancelCh
	terminating := false
	var waitErr error

	running := true
	for running {
		select {
		case line, ok := <-lineCh:
			if !ok {
				lineCh = nil
				continue
			}
			s.handleLine(h, parser, line)

		case <-timeoutC:
			timeoutC = nil
			if !terminating {
				terminating = true
				why = outcomeTimedOut
				s.logger.Warn("Job timeout reached, terminating",
					"kind", h.Kind, "timeout", h.Spec.Timeout)
				s.terminate(cmd, exited)
			}

		case <-cancelCh:
			cancelCh = nil
			if !terminating {
				terminating = true
				why = outcomeCancelled
				s.terminate(cmd, exited)
			}

		case waitErr = <-waitCh:
			running = false
		}
	}
	close(exited)

	// Drain remaining output; the pipes close once the process is gone.
	if lineCh != nil {
		for line := range lineCh {
			s.handleLine(h, parser, line)
		}
	}
	s.flushParser(h, parser)

	duration := s.clock.Now().Sub(h.StartedAt)
	result := s.resolve(h, why, waitErr, stdoutTail.String(), stderrTail.String(), duration)

	h.setState(result.State())
	s.registry.unregister(h)
	artifacts.CleanupScratch(h.Spec.WorkingDir, h.Spec.InputPath)

	s.logger.Info("Job finished",
		"kind", h.Kind, "state", result.State(), "error_kind", result.ErrorKind,
		"duration", duration)

	if s.opts.OnExit != nil {
		s.opts.OnExit(result)
	}
}

// terminate runs the graceful-then-forced termination sequence. The
// supervising loop guarantees it fires at most once per job, even when a
// cancel request races the timeout.
func (s *Supervisor) terminate(cmd *exec.Cmd, exited <-chan struct{}) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	s.logger.Info("Sending interrupt to job process", "pid", pid)
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
		if !errors.Is(err, os.ErrProcessDone) {
			s.logger.Warn("Failed to send interrupt", "pid", pid, "error", err)
		}
	}

	go func() {
		timer := s.clock.NewTimer(s.opts.GraceWindow)
		defer timer.Stop()
		select {
		case <-exited:
			return
		case <-timer.C():
		}

		s.logger.Warn("Grace window elapsed, force-killing job", "pid", pid)
		if err := cmd.Process.Kill(); err != nil {
			if !errors.Is(err, os.ErrProcessDone) {
				s.logger.Error("Failed to kill job process", "pid", pid, "error", err)
			}
		}

		killTimer := s.clock.NewTimer(s.opts.KillWait)
		defer killTimer.Stop()
		select {
		case <-exited:
		case <-killTimer.C():
			s.logger.Error("Job process did not exit after kill", "pid", pid)
		}
	}()
}

// resolve maps the loop outcome and exit error to the final JobResult.
func (s *Supervisor) resolve(h *Handle, why outcome, waitErr error, stdout, stderr string, duration time.Duration) job.Result {
	status := exitStatus(waitErr, why != outcomeExit)

	switch why {
	case outcomeTimedOut:
		return job.Result{
			Kind:          h.Kind,
			ErrorKind:     job.ErrorTimeout,
			Message:       fmt.Sprintf("job exceeded its %s timeout", h.Spec.Timeout),
			ArtifactPath:  h.Spec.ArtifactPath,
			ExitCode:      status.Code,
			Signal:        status.Signal,
			StartedAt:     h.StartedAt,
			Duration:      duration,
			StderrExcerpt: job.Excerpt(stderr),
		}

	case outcomeCancelled:
		// The tool may have finished its work before the signal landed;
		// the resolver's completion-marker heuristic decides.
		res := s.resolver.Resolve(h.Spec, status, stdout, stderr, h.StartedAt, duration)
		if res.Success {
			return res
		}
		return job.Result{
			Kind:          h.Kind,
			ErrorKind:     job.ErrorCancelled,
			Message:       "job was cancelled",
			ArtifactPath:  h.Spec.ArtifactPath,
			ExitCode:      status.Code,
			Signal:        status.Signal,
			StartedAt:     h.StartedAt,
			Duration:      duration,
			StderrExcerpt: job.Excerpt(stderr),
		}

	default:
		return s.resolver.Resolve(h.Spec, status, stdout, stderr, h.StartedAt, duration)
	}
}

// handleLine feeds one output line to the parser and fans out the resulting
// events.
func (s *Supervisor) handleLine(h *Handle, parser *progress.Parser, line outputLine) {
	events, advisories := parser.Feed(line.source, line.text+"\n")
	s.dispatch(h, events, advisories)
}

func (s *Supervisor) flushParser(h *Handle, parser *progress.Parser) {
	events, advisories := parser.Flush()
	s.dispatch(h, events, advisories)
}

func (s *Supervisor) dispatch(h *Handle, events []progress.Event, advisories []progress.Advisory) {
	for _, ev := range events {
		h.setProgress(ev.Progress, ev.Phase)
		if s.opts.OnProgress != nil {
			s.opts.OnProgress(h.Kind, ev)
		}
	}
	for _, adv := range advisories {
		s.logger.Warn("Job output advisory",
			"kind", h.Kind, "error_kind", adv.Kind, "message", adv.Message)
		if s.opts.OnAdvisory != nil {
			s.opts.OnAdvisory(h.Kind, adv)
		}
	}
}

// readLines streams one pipe line by line into the shared channel and the
// bounded tail buffer.
func (s *Supervisor) readLines(r io.Reader, source string, tail *tailBuffer, ch chan<- outputLine, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		tail.WriteLine(line)
		s.logger.Debug("Job output", "source", source, "line", line)
		ch <- outputLine{source: source, text: line}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("Error reading job output", "source", source, "error", err)
	}
}

// exitStatus extracts the exit code and signal from a Wait error. A
// signal-terminated process reports no exit code.
func exitStatus(waitErr error, terminated bool) job.ExitStatus {
	status := job.ExitStatus{Terminated: terminated}
	if waitErr == nil {
		zero := 0
		status.Code = &zero
		return status
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			status.Signal = ws.Signal().String()
			return status
		}
		code := exitErr.ExitCode()
		status.Code = &code
		return status
	}

	// Wait failed for a non-exit reason; treat as failure with no code.
	return status
}
