package progress

import (
	"testing"

	"videobridge/internal/job"
)

func TestForKindTablesValid(t *testing.T) {
	for _, kind := range job.Kinds() {
		if err := ForKind(kind).Validate(); err != nil {
			t.Errorf("table for %s invalid: %v", kind, err)
		}
	}
}

func TestValidateRejectsBadTables(t *testing.T) {
	cases := []struct {
		name  string
		table Table
	}{
		{"empty", Table{}},
		{"unnamed", Table{Phases: []Phase{{Name: "", Start: 0, End: 100}}}},
		{"overlap", Table{Phases: []Phase{
			{Name: "a", Start: 0, End: 50},
			{Name: "b", Start: 40, End: 100},
		}}},
		{"empty range", Table{Phases: []Phase{
			{Name: "a", Start: 0, End: 0},
		}}},
		{"short", Table{Phases: []Phase{
			{Name: "a", Start: 0, End: 90},
		}}},
	}
	for _, tc := range cases {
		if err := tc.table.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestPhaseAt(t *testing.T) {
	table := ForKind(job.KindSilenceCut)

	cases := []struct {
		global float64
		want   string
	}{
		{0, "Extracting Audio"},
		{19.9, "Extracting Audio"},
		{20, "Analyzing Audio"},
		{35, "Chunk Processing"},
		{74.9, "Chunk Processing"},
		{75, "Rendering Video"},
		{100, "Rendering Video"},
		{150, "Rendering Video"},
	}
	for _, tc := range cases {
		idx := table.phaseAt(tc.global)
		if got := table.Phases[idx].Name; got != tc.want {
			t.Errorf("phaseAt(%v) = %q, want %q", tc.global, got, tc.want)
		}
	}
}

func TestIndexOf(t *testing.T) {
	table := ForKind(job.KindTranscribe)
	if idx := table.indexOf("Transcribing"); idx != 1 {
		t.Errorf("indexOf(Transcribing) = %d, want 1", idx)
	}
	if idx := table.indexOf("Nonexistent"); idx != -1 {
		t.Errorf("indexOf(Nonexistent) = %d, want -1", idx)
	}
}
