package bridge

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"videobridge/internal/events"
	"videobridge/internal/job"
)

func testService(t *testing.T, script string) (*Service, *events.Bus, string) {
	t.Helper()
	dir := t.TempDir()

	bin := filepath.Join(dir, "transcriber")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}

	bus := events.New()
	svc := NewService(Config{
		Tools: &job.Tools{
			Deployment:     job.DeploymentBundled,
			TranscriberBin: bin,
			SilenceCutBin:  bin,
			AnalyzerBin:    bin,
			TempDir:        dir,
		},
		Bus:         bus,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		GraceWindow: 100 * time.Millisecond,
		KillWait:    100 * time.Millisecond,
	})
	return svc, bus, dir
}

func waitComplete(t *testing.T, ch <-chan events.JobCompleteEvent) events.JobCompleteEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
	return events.JobCompleteEvent{}
}

func TestServiceRunToCompletion(t *testing.T) {
	// The tool is invoked as: bin --input_file <in> --output_file <out>,
	// so $4 is the artifact path.
	svc, bus, dir := testService(t, `
echo "[50.0%] Transcribing audio"
echo "transcript" > "$4"
echo "Transcription completed"
`)
	defer svc.Wait()

	complete := make(chan events.JobCompleteEvent, 1)
	defer bus.Subscribe(func(e events.JobCompleteEvent) { complete <- e })()

	status, err := svc.Start(job.KindTranscribe, filepath.Join(dir, "talk.mp4"), job.Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if status.Kind != job.KindTranscribe || status.State != job.StateRunning {
		t.Errorf("unexpected start status: %+v", status)
	}
	if status.PID == 0 {
		t.Error("start status missing pid")
	}

	ev := waitComplete(t, complete)
	if !ev.Result.Success {
		t.Fatalf("job failed: %+v", ev.Result)
	}

	final := svc.Status(job.KindTranscribe)
	if final.State != job.StateCompleted {
		t.Errorf("final state = %q, want completed", final.State)
	}
	if final.Progress != 100 {
		t.Errorf("final progress = %v, want 100", final.Progress)
	}
	if final.Result == nil || final.Result.ArtifactPath == "" {
		t.Errorf("final status missing result: %+v", final)
	}
}

func TestServiceWritesSubtitlesAfterTranscribe(t *testing.T) {
	svc, bus, dir := testService(t, `
cat > "$4" <<'DOC'
{"language":"en","segments":[{"id":0,"start":0.0,"end":2.5,"text":" hello world"}]}
DOC
echo "Transcription completed"
`)
	defer svc.Wait()

	complete := make(chan events.JobCompleteEvent, 1)
	defer bus.Subscribe(func(e events.JobCompleteEvent) { complete <- e })()

	if _, err := svc.Start(job.KindTranscribe, filepath.Join(dir, "talk.mp4"), job.Options{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ev := waitComplete(t, complete)
	if !ev.Result.Success {
		t.Fatalf("job failed: %+v", ev.Result)
	}

	data, err := os.ReadFile(filepath.Join(dir, "talk.srt"))
	if err != nil {
		t.Fatalf("subtitles not written: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:02,500\nhello world\n\n"
	if string(data) != want {
		t.Errorf("srt content:\n%s\nwant:\n%s", data, want)
	}
}

func TestServiceSkipsSubtitlesForUnparseableTranscript(t *testing.T) {
	svc, bus, dir := testService(t, `
echo "not json" > "$4"
echo "Transcription completed"
`)
	defer svc.Wait()

	complete := make(chan events.JobCompleteEvent, 1)
	defer bus.Subscribe(func(e events.JobCompleteEvent) { complete <- e })()

	if _, err := svc.Start(job.KindTranscribe, filepath.Join(dir, "talk.mp4"), job.Options{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ev := waitComplete(t, complete)
	if !ev.Result.Success {
		t.Fatalf("job failed: %+v", ev.Result)
	}

	if _, err := os.Stat(filepath.Join(dir, "talk.srt")); err == nil {
		t.Error("subtitles written from an unparseable transcript")
	}
}

func TestServiceFailureIsRecorded(t *testing.T) {
	svc, bus, dir := testService(t, `
echo "ModuleNotFoundError: No module named 'faster_whisper'" >&2
exit 1
`)
	defer svc.Wait()

	complete := make(chan events.JobCompleteEvent, 1)
	defer bus.Subscribe(func(e events.JobCompleteEvent) { complete <- e })()

	if _, err := svc.Start(job.KindTranscribe, filepath.Join(dir, "talk.mp4"), job.Options{}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ev := waitComplete(t, complete)
	if ev.Result.Success {
		t.Fatal("expected failure")
	}
	if ev.Result.ErrorKind != job.ErrorMissingDependency {
		t.Errorf("error kind = %q, want missing_dependency", ev.Result.ErrorKind)
	}

	final := svc.Status(job.KindTranscribe)
	if final.State != job.StateFailed {
		t.Errorf("final state = %q, want failed", final.State)
	}
	if final.Progress != 0 {
		t.Errorf("failed job progress = %v, want 0", final.Progress)
	}
}

func TestServiceStartValidation(t *testing.T) {
	svc, _, _ := testService(t, "exit 0\n")

	if _, err := svc.Start(job.KindTranscribe, "", job.Options{}); err == nil {
		t.Error("expected error for empty input path")
	}
}

func TestServiceStatusIdleKind(t *testing.T) {
	svc, _, _ := testService(t, "exit 0\n")

	status := svc.Status(job.KindAnalyze)
	if status.State != job.StateCreated {
		t.Errorf("idle state = %q, want created", status.State)
	}
	if status.Result != nil {
		t.Errorf("idle status carries result: %+v", status.Result)
	}

	all := svc.StatusAll()
	if len(all) != 3 {
		t.Errorf("StatusAll returned %d entries, want 3", len(all))
	}
}

func TestServiceCancelIdleKind(t *testing.T) {
	svc, _, _ := testService(t, "exit 0\n")

	if svc.Cancel(job.KindSilenceCut) {
		t.Error("cancel of idle kind should return false")
	}
	if n := svc.CancelAll(); n != 0 {
		t.Errorf("CancelAll = %d, want 0", n)
	}
}

func TestServiceCheckDependencies(t *testing.T) {
	svc, _, _ := testService(t, "exit 0\n")

	report := svc.CheckDependencies(context.Background(), job.KindTranscribe)
	if report.Kind != job.KindTranscribe {
		t.Errorf("report kind = %q", report.Kind)
	}
	if !report.Available {
		t.Errorf("bundled executable stub should be available: %+v", report)
	}

	reports := svc.CheckAllDependencies(context.Background())
	if len(reports) != 3 {
		t.Errorf("got %d reports, want 3", len(reports))
	}
}
