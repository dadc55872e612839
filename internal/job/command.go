package job

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"videobridge/internal/artifacts"
)

// Deployment selects how the external tools are invoked.
type Deployment string

// Deployment modes.
const (
	// DeploymentBundled runs a self-contained executable per kind.
	DeploymentBundled Deployment = "bundled"
	// DeploymentScripted runs each tool script through an interpreter.
	DeploymentScripted Deployment = "scripted"
)

// Tools holds the external tool configuration shared by all job kinds.
type Tools struct {
	Deployment Deployment

	// Bundled executables, one per kind.
	TranscriberBin string
	SilenceCutBin  string
	AnalyzerBin    string

	// Scripted deployment: interpreter plus a directory of tool scripts.
	Interpreter string
	ScriptDir   string

	// TempDir is the shared scratch/output directory.
	TempDir string
}

// Script names for the scripted deployment.
const (
	transcriberScript = "transcriber.py"
	silenceCutScript  = "silence_cut.py"
	analyzerScript    = "analyzer.py"
)

// Completion markers printed by the tools on success. Used when the exit
// code is unavailable.
const (
	transcribeMarker = "Transcription completed"
	silenceCutMarker = "Processing completed successfully"
	analyzeMarker    = "Processing completed successfully"
)

// Default per-kind timeouts. Media jobs are long; these bound runaway tools,
// not normal runs.
const (
	defaultTranscribeTimeout = 2 * time.Hour
	defaultSilenceCutTimeout = 2 * time.Hour
	defaultAnalyzeTimeout    = 3 * time.Hour
)

// Options carries per-job tunables supplied by the caller. Zero values fall
// back to tool defaults.
type Options struct {
	Model           string  `json:"model,omitempty"`
	Language        string  `json:"language,omitempty"`
	SilentThreshold float64 `json:"silent_threshold,omitempty"`
	SoundedSpeed    float64 `json:"sounded_speed,omitempty"`
	SilentSpeed     float64 `json:"silent_speed,omitempty"`
	MaxClips        int     `json:"max_clips,omitempty"`
	OutputPath      string  `json:"output_path,omitempty"`
	Timeout         time.Duration
}

// Executable returns the program to spawn for a kind.
func (t *Tools) Executable(kind Kind) (string, error) {
	if t.Deployment == DeploymentScripted {
		if t.Interpreter == "" {
			return "", fmt.Errorf("scripted deployment requires an interpreter")
		}
		return t.Interpreter, nil
	}
	switch kind {
	case KindTranscribe:
		return t.TranscriberBin, nil
	case KindSilenceCut:
		return t.SilenceCutBin, nil
	case KindAnalyze:
		return t.AnalyzerBin, nil
	}
	return "", fmt.Errorf("unknown job kind %q", kind)
}

func (t *Tools) script(kind Kind) string {
	switch kind {
	case KindTranscribe:
		return filepath.Join(t.ScriptDir, transcriberScript)
	case KindSilenceCut:
		return filepath.Join(t.ScriptDir, silenceCutScript)
	default:
		return filepath.Join(t.ScriptDir, analyzerScript)
	}
}

// BuildSpec assembles the full invocation for a job: executable, argument
// list in the tools' fixed flag convention, the deterministic artifact path,
// completion marker and timeout.
func (t *Tools) BuildSpec(kind Kind, inputPath string, opts Options) (Spec, error) {
	executable, err := t.Executable(kind)
	if err != nil {
		return Spec{}, err
	}
	if inputPath == "" {
		return Spec{}, fmt.Errorf("input path is required")
	}

	output := opts.OutputPath
	if output == "" {
		output = artifacts.OutputPath(string(kind), inputPath, t.TempDir)
	}

	var args []string
	if t.Deployment == DeploymentScripted {
		args = append(args, t.script(kind))
	}
	args = append(args, "--input_file", inputPath, "--output_file", output)

	switch kind {
	case KindTranscribe:
		if opts.Model != "" {
			args = append(args, "--model", opts.Model)
		}
		if opts.Language != "" {
			args = append(args, "--language", opts.Language)
		}
	case KindSilenceCut:
		if opts.SilentThreshold > 0 {
			args = append(args, "--silent_threshold", formatFloat(opts.SilentThreshold))
		}
		if opts.SoundedSpeed > 0 {
			args = append(args, "--sounded_speed", formatFloat(opts.SoundedSpeed))
		}
		if opts.SilentSpeed > 0 {
			args = append(args, "--silent_speed", formatFloat(opts.SilentSpeed))
		}
	case KindAnalyze:
		if opts.Model != "" {
			args = append(args, "--model", opts.Model)
		}
		if opts.MaxClips > 0 {
			args = append(args, "--max_clips", strconv.Itoa(opts.MaxClips))
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout(kind)
	}

	return Spec{
		Kind:             kind,
		Executable:       executable,
		Args:             args,
		WorkingDir:       t.TempDir,
		InputPath:        inputPath,
		ArtifactPath:     output,
		CompletionMarker: completionMarker(kind),
		Timeout:          timeout,
	}, nil
}

func completionMarker(kind Kind) string {
	switch kind {
	case KindTranscribe:
		return transcribeMarker
	case KindSilenceCut:
		return silenceCutMarker
	default:
		return analyzeMarker
	}
}

func defaultTimeout(kind Kind) time.Duration {
	switch kind {
	case KindTranscribe:
		return defaultTranscribeTimeout
	case KindSilenceCut:
		return defaultSilenceCutTimeout
	default:
		return defaultAnalyzeTimeout
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
