package job

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func scriptedTools() *Tools {
	return &Tools{
		Deployment:  DeploymentScripted,
		Interpreter: "python3",
		ScriptDir:   "/opt/tools",
		TempDir:     "/var/tmp/videobridge",
	}
}

func TestBuildSpecScriptedTranscribe(t *testing.T) {
	tools := scriptedTools()
	spec, err := tools.BuildSpec(KindTranscribe, "/media/talk.mp4", Options{
		Model:    "base",
		Language: "en",
	})
	if err != nil {
		t.Fatalf("BuildSpec: %v", err)
	}

	if spec.Executable != "python3" {
		t.Errorf("executable = %q, want python3", spec.Executable)
	}
	want := []string{
		filepath.Join("/opt/tools", "transcriber.py"),
		"--input_file", "/media/talk.mp4",
		"--output_file", filepath.Join("/var/tmp/videobridge", "talk_transcript.json"),
		"--model", "base",
		"--language", "en",
	}
	if !reflect.DeepEqual(spec.Args, want) {
		t.Errorf("args = %v, want %v", spec.Args, want)
	}
	if spec.CompletionMarker != "Transcription completed" {
		t.Errorf("marker = %q", spec.CompletionMarker)
	}
	if spec.Timeout != 2*time.Hour {
		t.Errorf("timeout = %v, want 2h", spec.Timeout)
	}
}

func TestBuildSpecSilenceCutKeepsContainer(t *testing.T) {
	tools := scriptedTools()
	spec, err := tools.BuildSpec(KindSilenceCut, "/media/talk.mkv", Options{
		SilentThreshold: 0.03,
	})
	if err != nil {
		t.Fatalf("BuildSpec: %v", err)
	}

	wantArtifact := filepath.Join("/var/tmp/videobridge", "talk_silenced.mkv")
	if spec.ArtifactPath != wantArtifact {
		t.Errorf("artifact = %q, want %q", spec.ArtifactPath, wantArtifact)
	}

	found := false
	for i, arg := range spec.Args {
		if arg == "--silent_threshold" && i+1 < len(spec.Args) {
			found = true
			if spec.Args[i+1] != "0.03" {
				t.Errorf("silent_threshold = %q, want 0.03", spec.Args[i+1])
			}
		}
	}
	if !found {
		t.Errorf("missing --silent_threshold in %v", spec.Args)
	}
}

func TestBuildSpecBundledAnalyze(t *testing.T) {
	tools := &Tools{
		Deployment:  DeploymentBundled,
		AnalyzerBin: "/usr/libexec/videobridge/analyzer",
		TempDir:     "/var/tmp/videobridge",
	}
	spec, err := tools.BuildSpec(KindAnalyze, "/media/talk.mp4", Options{MaxClips: 5})
	if err != nil {
		t.Fatalf("BuildSpec: %v", err)
	}

	if spec.Executable != "/usr/libexec/videobridge/analyzer" {
		t.Errorf("executable = %q", spec.Executable)
	}
	// Bundled deployment takes no script path; flags come first.
	if spec.Args[0] != "--input_file" {
		t.Errorf("args start with %q, want --input_file", spec.Args[0])
	}
	wantArtifact := filepath.Join("/var/tmp/videobridge", "talk_analysis.json")
	if spec.ArtifactPath != wantArtifact {
		t.Errorf("artifact = %q, want %q", spec.ArtifactPath, wantArtifact)
	}
	if spec.Timeout != 3*time.Hour {
		t.Errorf("timeout = %v, want 3h", spec.Timeout)
	}
}

func TestBuildSpecOverrides(t *testing.T) {
	tools := scriptedTools()
	spec, err := tools.BuildSpec(KindTranscribe, "/media/talk.mp4", Options{
		OutputPath: "/custom/out.json",
		Timeout:    10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("BuildSpec: %v", err)
	}
	if spec.ArtifactPath != "/custom/out.json" {
		t.Errorf("artifact = %q, want override", spec.ArtifactPath)
	}
	if spec.Timeout != 10*time.Minute {
		t.Errorf("timeout = %v, want 10m", spec.Timeout)
	}
}

func TestBuildSpecRequiresInput(t *testing.T) {
	if _, err := scriptedTools().BuildSpec(KindTranscribe, "", Options{}); err == nil {
		t.Error("expected error for empty input path")
	}
}

func TestExecutableScriptedRequiresInterpreter(t *testing.T) {
	tools := &Tools{Deployment: DeploymentScripted}
	if _, err := tools.Executable(KindTranscribe); err == nil {
		t.Error("expected error for missing interpreter")
	}
}

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds() {
		got, err := ParseKind(string(kind))
		if err != nil || got != kind {
			t.Errorf("ParseKind(%s) = %v, %v", kind, got, err)
		}
	}
	if _, err := ParseKind("transcode"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestStateTerminal(t *testing.T) {
	terminal := []State{StateCompleted, StateFailed, StateTimedOut, StateCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []State{StateCreated, StateRunning} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
