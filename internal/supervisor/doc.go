// Package supervisor provides lifecycle management for external
// media-processing jobs.
//
// A Supervisor spawns one child process per job, observes its stdout and
// stderr asynchronously, and guarantees a terminal outcome on every exit
// path:
//   - Start is non-blocking: it registers the job and returns a Handle;
//     completion arrives later through the OnExit callback.
//   - At most one job per kind runs at a time; a second Start for an active
//     kind fails fast with ErrAlreadyRunning.
//   - Cancellation and timeout both follow the same escalation: a graceful
//     interrupt, a grace window, then a forced kill.
//   - Output lines flow through the progress parser for the job's kind and
//     surface as normalized progress events and advisories.
//   - The final result is computed by the resolver from exit status,
//     captured output and the artifact on disk, and delivered exactly once.
//
// Timers are created through an injectable Clock so the timeout and
// grace-kill escalation are testable without wall-clock waits.
package supervisor
