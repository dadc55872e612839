package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"videobridge/internal/bridge"
	"videobridge/internal/events"
	"videobridge/internal/job"
	"videobridge/internal/logging"
)

// CreateRunCmd creates the run command for executing a single job in the
// foreground without the API server.
func CreateRunCmd() *cobra.Command {
	var tools ToolFlags
	var model string
	var language string
	var silentThreshold float64
	var maxClips int
	var outputPath string
	var timeout time.Duration
	var strict bool
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "run [kind] [input-file]",
		Short: "Run a single job in the foreground",
		Long: `Runs one media processing job (transcribe, silencecut, or analyze) to completion, ` +
			`printing progress to stdout. Ctrl-C cancels the job gracefully.`,
		Args: cobra.ExactArgs(2),
		Run: func(c *cobra.Command, args []string) {
			loggingConfig := logging.Config{
				Level:  "warn",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)

			kind, err := job.ParseKind(args[0])
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}

			bus := events.New()
			service := bridge.NewService(bridge.Config{
				Tools:  tools.Build(),
				Bus:    bus,
				Logger: logging.GetLogger("run"),
				Strict: strict,
			})

			done := make(chan job.Result, 1)
			bus.Subscribe(func(ev events.JobProgressEvent) {
				fmt.Printf("\r[%5.1f%%] %s", ev.Progress, ev.Phase)
			})
			bus.Subscribe(func(ev events.JobCompleteEvent) {
				done <- ev.Result
			})

			opts := job.Options{
				Model:           model,
				Language:        language,
				SilentThreshold: silentThreshold,
				MaxClips:        maxClips,
				OutputPath:      outputPath,
				Timeout:         timeout,
			}

			status, err := service.Start(kind, args[1], opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Printf("Started %s (pid %d)\n", status.Kind, status.PID)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			var result job.Result
			select {
			case result = <-done:
			case <-sigCh:
				fmt.Println("\nCancelling...")
				service.Cancel(kind)
				result = <-done
			}
			service.Wait()

			fmt.Println()
			if result.Success {
				fmt.Printf("Done: %s\n", result.ArtifactPath)
				return
			}
			fmt.Fprintf(os.Stderr, "Failed (%s): %s\n", result.ErrorKind, result.Message)
			os.Exit(1)
		},
	}

	tools.Register(cmd)
	cmd.Flags().StringVar(&model, "model", "", "Whisper model size (tiny, base, small, medium, large)")
	cmd.Flags().StringVar(&language, "language", "", "Transcription language hint")
	cmd.Flags().Float64Var(&silentThreshold, "silent-threshold", 0, "Silence detection threshold")
	cmd.Flags().IntVar(&maxClips, "max-clips", 0, "Maximum clips for content analysis")
	cmd.Flags().StringVar(&outputPath, "output", "", "Override for the artifact path")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Job timeout (0 uses the per-kind default)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Disable the completion-marker success fallback")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}

// ToolFlags groups the tool location flags shared by the run and check
// commands.
type ToolFlags struct {
	Deployment     string
	Interpreter    string
	ScriptDir      string
	TranscriberBin string
	SilenceCutBin  string
	AnalyzerBin    string
	TempDir        string
}

// Register adds the tool location flags to a command.
func (f *ToolFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Deployment, "deployment", "scripted", "Tool deployment mode (bundled, scripted)")
	cmd.Flags().StringVar(&f.Interpreter, "interpreter", "python3", "Interpreter for the scripted deployment")
	cmd.Flags().StringVar(&f.ScriptDir, "script-dir", "tools", "Directory containing the tool scripts")
	cmd.Flags().StringVar(&f.TranscriberBin, "transcriber-bin", "", "Bundled transcriber executable")
	cmd.Flags().StringVar(&f.SilenceCutBin, "silencecut-bin", "", "Bundled silence-cut executable")
	cmd.Flags().StringVar(&f.AnalyzerBin, "analyzer-bin", "", "Bundled analyzer executable")
	cmd.Flags().StringVar(&f.TempDir, "temp-dir", os.TempDir(), "Scratch and output directory")
}

// Build converts the flags into a tool configuration.
func (f *ToolFlags) Build() *job.Tools {
	return &job.Tools{
		Deployment:     job.Deployment(f.Deployment),
		Interpreter:    f.Interpreter,
		ScriptDir:      f.ScriptDir,
		TranscriberBin: f.TranscriberBin,
		SilenceCutBin:  f.SilenceCutBin,
		AnalyzerBin:    f.AnalyzerBin,
		TempDir:        f.TempDir,
	}
}
