// Package progress translates free-form tool output into a phase-aware
// progress model. Each job kind owns a table of named phases, each phase a
// half-open [Start, End) sub-range of the global 0-100 scale. Local
// percentages reported by the tool are projected into the active phase's
// range, and the emitted value never decreases within one job.
package progress

import (
	"fmt"

	"videobridge/internal/job"
)

// Phase is a named processing stage owning a sub-range of the global scale.
type Phase struct {
	Name  string
	Start float64
	End   float64 // half-open: End belongs to the next phase
}

// Table is the ordered phase layout for one job kind.
type Table struct {
	Phases []Phase
}

// Validate checks that phases are ordered, non-overlapping and that the
// final phase ends at 100.
func (t *Table) Validate() error {
	if len(t.Phases) == 0 {
		return fmt.Errorf("phase table is empty")
	}
	prev := 0.0
	for i, ph := range t.Phases {
		if ph.Name == "" {
			return fmt.Errorf("phase %d has no name", i)
		}
		if ph.Start < prev {
			return fmt.Errorf("phase %q overlaps previous phase", ph.Name)
		}
		if ph.End <= ph.Start {
			return fmt.Errorf("phase %q has empty range", ph.Name)
		}
		prev = ph.End
	}
	if last := t.Phases[len(t.Phases)-1]; last.End != 100 {
		return fmt.Errorf("final phase %q ends at %v, want 100", last.Name, last.End)
	}
	return nil
}

// indexOf returns the position of a phase by banner name, -1 if unknown.
func (t *Table) indexOf(name string) int {
	for i, ph := range t.Phases {
		if ph.Name == name {
			return i
		}
	}
	return -1
}

// phaseAt returns the index of the phase whose range contains the global
// value. Values at or past 100 map to the final phase.
func (t *Table) phaseAt(global float64) int {
	for i, ph := range t.Phases {
		if global >= ph.Start && global < ph.End {
			return i
		}
	}
	return len(t.Phases) - 1
}

// ForKind returns the phase table for a job kind. The tables mirror the
// stages the tools actually announce in their output.
func ForKind(kind job.Kind) *Table {
	switch kind {
	case job.KindSilenceCut:
		return &Table{Phases: []Phase{
			{Name: "Extracting Audio", Start: 0, End: 20},
			{Name: "Analyzing Audio", Start: 20, End: 35},
			{Name: "Chunk Processing", Start: 35, End: 75},
			{Name: "Rendering Video", Start: 75, End: 100},
		}}
	case job.KindTranscribe:
		return &Table{Phases: []Phase{
			{Name: "Loading Model", Start: 0, End: 15},
			{Name: "Transcribing", Start: 15, End: 85},
			{Name: "Writing Output", Start: 85, End: 100},
		}}
	default:
		return &Table{Phases: []Phase{
			{Name: "Preparing", Start: 0, End: 10},
			{Name: "Transcribing", Start: 10, End: 50},
			{Name: "Analyzing Content", Start: 50, End: 70},
			{Name: "Generating Clips", Start: 70, End: 90},
			{Name: "Finalizing", Start: 90, End: 100},
		}}
	}
}
