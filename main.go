package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"videobridge/cmd"
	"videobridge/internal/api"
	"videobridge/internal/bridge"
	"videobridge/internal/config"
	"videobridge/internal/events"
	"videobridge/internal/job"
	"videobridge/internal/logging"
	"videobridge/internal/metrics"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Tool settings
	Deployment     string `help:"Tool deployment mode (bundled, scripted)" default:"scripted" toml:"tools.deployment" env:"TOOLS_DEPLOYMENT"`
	Interpreter    string `help:"Interpreter for the scripted deployment" default:"python3" toml:"tools.interpreter" env:"TOOLS_INTERPRETER"`
	ScriptDir      string `help:"Directory containing the tool scripts" default:"tools" toml:"tools.script_dir" env:"TOOLS_SCRIPT_DIR"`
	TranscriberBin string `help:"Bundled transcriber executable" default:"" toml:"tools.transcriber_bin" env:"TOOLS_TRANSCRIBER_BIN"`
	SilencecutBin  string `help:"Bundled silence-cut executable" default:"" toml:"tools.silencecut_bin" env:"TOOLS_SILENCECUT_BIN"`
	AnalyzerBin    string `help:"Bundled analyzer executable" default:"" toml:"tools.analyzer_bin" env:"TOOLS_ANALYZER_BIN"`
	TempDir        string `help:"Scratch and output directory" default:"" toml:"tools.temp_dir" env:"TOOLS_TEMP_DIR"`

	// Job settings
	GraceWindow string `help:"Delay between graceful signal and forced kill" default:"5s" toml:"jobs.grace_window" env:"JOBS_GRACE_WINDOW"`
	Strict      bool   `help:"Disable the completion-marker success fallback" default:"false" toml:"jobs.strict" env:"JOBS_STRICT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSupervisor string `help:"Supervisor logging level" default:"info" toml:"logging.supervisor" env:"LOGGING_SUPERVISOR"`
	LoggingBridge     string `help:"Bridge service logging level" default:"info" toml:"logging.bridge" env:"LOGGING_BRIDGE"`
	LoggingPrecheck   string `help:"Dependency check logging level" default:"info" toml:"logging.precheck" env:"LOGGING_PRECHECK"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP       string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.Load(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"supervisor": opts.LoggingSupervisor,
				"bridge":     opts.LoggingBridge,
				"precheck":   opts.LoggingPrecheck,
				"api":        opts.LoggingAPI,
				"http":       opts.LoggingHTTP,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		graceWindow, err := time.ParseDuration(opts.GraceWindow)
		if err != nil {
			graceWindow = 5 * time.Second
		}

		tempDir := opts.TempDir
		if tempDir == "" {
			tempDir = os.TempDir()
		}

		tools := &job.Tools{
			Deployment:     job.Deployment(opts.Deployment),
			Interpreter:    opts.Interpreter,
			ScriptDir:      opts.ScriptDir,
			TranscriberBin: opts.TranscriberBin,
			SilenceCutBin:  opts.SilencecutBin,
			AnalyzerBin:    opts.AnalyzerBin,
			TempDir:        tempDir,
		}

		eventBus := events.New()

		// Forward buffered log entries onto the bus for SSE streaming.
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		service := bridge.NewService(bridge.Config{
			Tools:       tools,
			Bus:         eventBus,
			Logger:      logging.GetLogger("bridge"),
			GraceWindow: graceWindow,
			Strict:      opts.Strict,
		})

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Service:           service,
			EventBus:          eventBus,
			PrometheusHandler: metrics.Handler(),
		})

		// Hot-reload logging levels when the config file changes.
		watcher := config.NewWatcher(opts.Config, logger, func(cfg logging.Config) {
			logging.Initialize(cfg)
		})

		hooks.OnStart(func() {
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Debug("Config watcher unavailable", "error", watchErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Cancel active jobs and wait for their processes to wind down.
			if n := service.CancelAll(); n > 0 {
				logger.Info("Waiting for jobs to stop", "count", n)
			}
			service.Wait()

			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Debug("Error stopping config watcher", "error", stopErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateRunCmd())
	cli.Root().AddCommand(cmd.CreateCheckCmd())

	cli.Run()
}
