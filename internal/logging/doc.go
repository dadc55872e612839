// Package logging provides structured logging with per-module log level
// configuration.
//
// The system uses Go's slog package with automatic output routing: stdout
// (text or json), the systemd journal when available, and an in-memory ring
// buffer that backs the API's log history and SSE log stream.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"supervisor": "debug",
//			"api":        "warn",
//		},
//	})
//
// Then get a logger per module:
//
//	logger := logging.GetLogger("supervisor")
//	logger.Info("Job started", "kind", kind, "pid", pid)
//
// Module-specific levels override the global level for that module only and
// can be changed at runtime by calling Initialize again (the config watcher
// does this on file changes).
//
// When running under systemd:
//
//	journalctl -t videobridge -f
//	journalctl -t videobridge MODULE=supervisor
package logging
