package progress

import (
	"math"
	"testing"

	"videobridge/internal/job"
)

func feedLine(p *Parser, line string) []Event {
	events, _ := p.Feed("stdout", line+"\n")
	return events
}

func TestChunkProjection(t *testing.T) {
	p := NewParser(ForKind(job.KindSilenceCut))

	feedLine(p, "=== Phase: Chunk Processing ===")
	events := feedLine(p, "Progress: 10/40 chunks (25.0%)")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	// 25% of the 35-75 range lands at 45.
	got := events[0].Progress
	if math.Abs(got-45) > 1 {
		t.Errorf("projected progress = %v, want 45±1", got)
	}
	if events[0].Phase != "Chunk Processing" {
		t.Errorf("phase = %q, want Chunk Processing", events[0].Phase)
	}
	if events[0].Detail["chunks_done"] != "10" || events[0].Detail["chunks_total"] != "40" {
		t.Errorf("unexpected detail: %v", events[0].Detail)
	}
}

func TestMonotonicProgress(t *testing.T) {
	p := NewParser(ForKind(job.KindSilenceCut))

	feedLine(p, "=== Phase: Chunk Processing ===")
	feedLine(p, "Progress: 30/40 chunks (75.0%)")
	high := p.Last()

	// A lower local percentage must not move the cursor backwards.
	events := feedLine(p, "Progress: 10/40 chunks (25.0%)")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Progress < high {
		t.Errorf("progress went backwards: %v after %v", events[0].Progress, high)
	}

	// A banner for an earlier phase is likewise ignored.
	events = feedLine(p, "=== Phase: Extracting Audio ===")
	if len(events) == 1 && events[0].Progress < high {
		t.Errorf("phase re-entry moved progress backwards: %v", events[0].Progress)
	}
}

func TestProjectionClampedBelowPhaseEnd(t *testing.T) {
	p := NewParser(ForKind(job.KindSilenceCut))

	feedLine(p, "=== Phase: Chunk Processing ===")
	events := feedLine(p, "Progress: 40/40 chunks (100.0%)")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Progress >= 75 {
		t.Errorf("progress %v reached the next phase's range", events[0].Progress)
	}
}

func TestStepLineGlobalScale(t *testing.T) {
	p := NewParser(ForKind(job.KindTranscribe))

	events := feedLine(p, "[30.0%] Transcribing audio with Whisper AI")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Progress != 30 {
		t.Errorf("progress = %v, want 30", events[0].Progress)
	}
	// A 30% global value lands inside the Transcribing phase.
	if events[0].Phase != "Transcribing" {
		t.Errorf("phase = %q, want Transcribing", events[0].Phase)
	}
}

func TestNudgeBoundedAndCapped(t *testing.T) {
	p := NewParser(ForKind(job.KindTranscribe))

	// Unrecognized output advances by at most nudgeStep per line and never
	// reaches the phase ceiling.
	var last float64
	for i := 0; i < 100; i++ {
		events := feedLine(p, "some unrecognized tool chatter")
		for _, ev := range events {
			if ev.Progress-last > nudgeStep+0.01 {
				t.Fatalf("nudge advanced %v in one step", ev.Progress-last)
			}
			last = ev.Progress
		}
	}
	if last >= 15 {
		t.Errorf("nudge crossed the phase boundary: %v", last)
	}

	// Once saturated, further chatter emits nothing.
	events := feedLine(p, "more chatter")
	if len(events) != 0 {
		t.Errorf("expected no event at the nudge ceiling, got %v", events)
	}
}

func TestFrameProgressWithTotalUnits(t *testing.T) {
	p := NewParser(ForKind(job.KindSilenceCut))
	feedLine(p, "=== Phase: Rendering Video ===")
	p.SetTotalUnits(1000)

	events := feedLine(p, "frame=  500 fps= 30 q=28.0 size=    2048KiB")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	// 50% of the 75-100 range.
	if math.Abs(events[0].Progress-87.5) > 1 {
		t.Errorf("progress = %v, want 87.5±1", events[0].Progress)
	}
	if events[0].Detail["frame"] != "500" {
		t.Errorf("unexpected detail: %v", events[0].Detail)
	}
}

func TestAdvisoryClassification(t *testing.T) {
	cases := []struct {
		line string
		want job.ErrorKind
	}{
		{"ModuleNotFoundError: No module named 'faster_whisper'", job.ErrorMissingDependency},
		{"ImportError: cannot import name 'x'", job.ErrorMissingDependency},
		{"FileNotFoundError: [Errno 2] No such file or directory: 'in.mp4'", job.ErrorMissingInput},
		{"Traceback (most recent call last):", job.ErrorProcessing},
		{"Processing failed: unexpected codec", job.ErrorProcessing},
	}

	for _, tc := range cases {
		p := NewParser(ForKind(job.KindTranscribe))
		_, advisories := p.Feed("stderr", tc.line+"\n")
		if len(advisories) != 1 {
			t.Errorf("%q: expected 1 advisory, got %d", tc.line, len(advisories))
			continue
		}
		if advisories[0].Kind != tc.want {
			t.Errorf("%q: advisory kind = %s, want %s", tc.line, advisories[0].Kind, tc.want)
		}
	}
}

func TestAdvisoryDoesNotAdvanceProgress(t *testing.T) {
	p := NewParser(ForKind(job.KindTranscribe))
	events, _ := p.Feed("stderr", "ModuleNotFoundError: No module named 'numpy'\n")
	if len(events) != 0 {
		t.Errorf("advisory line produced progress events: %v", events)
	}
	if p.Last() != 0 {
		t.Errorf("advisory line moved the cursor to %v", p.Last())
	}
}

func TestPartialLineBuffering(t *testing.T) {
	p := NewParser(ForKind(job.KindSilenceCut))
	feedLine(p, "=== Phase: Chunk Processing ===")

	// A line split across chunks only parses once complete.
	events, _ := p.Feed("stdout", "Progress: 20/40 chu")
	if len(events) != 0 {
		t.Fatalf("incomplete line produced events: %v", events)
	}
	events, _ = p.Feed("stdout", "nks (50.0%)\n")
	if len(events) != 1 {
		t.Fatalf("expected 1 event after completing the line, got %d", len(events))
	}
	if math.Abs(events[0].Progress-55) > 1 {
		t.Errorf("progress = %v, want 55±1", events[0].Progress)
	}
}

func TestPartialBuffersArePerStream(t *testing.T) {
	p := NewParser(ForKind(job.KindTranscribe))

	p.Feed("stdout", "[20.0")
	// stderr traffic must not corrupt the buffered stdout fragment.
	p.Feed("stderr", "warning: something harmless\n")
	events, _ := p.Feed("stdout", "%] Transcribing\n")
	if len(events) != 1 || events[0].Progress != 20 {
		t.Errorf("expected progress 20 from reassembled line, got %v", events)
	}
}

func TestFlushDrainsBufferedLine(t *testing.T) {
	p := NewParser(ForKind(job.KindTranscribe))

	p.Feed("stdout", "[40.0%] Transcribing")
	events, _ := p.Flush()
	if len(events) != 1 || events[0].Progress != 40 {
		t.Errorf("expected progress 40 from flushed line, got %v", events)
	}

	// A second flush finds nothing.
	events, advisories := p.Flush()
	if len(events) != 0 || len(advisories) != 0 {
		t.Errorf("second flush produced output: %v %v", events, advisories)
	}
}

func TestUnknownBannerNudges(t *testing.T) {
	p := NewParser(ForKind(job.KindTranscribe))
	events := feedLine(p, "=== Phase: Reticulating Splines ===")
	if len(events) != 1 {
		t.Fatalf("expected nudge event for unknown banner, got %d", len(events))
	}
	if events[0].Progress > nudgeStep {
		t.Errorf("unknown banner jumped to %v", events[0].Progress)
	}
}
