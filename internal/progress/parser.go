package progress

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"videobridge/internal/job"
)

// Event is one normalized progress update.
type Event struct {
	Progress float64           `json:"progress"`
	Phase    string            `json:"phase"`
	Message  string            `json:"message,omitempty"`
	Detail   map[string]string `json:"detail,omitempty"`
}

// Advisory is an error marker spotted in the output stream. Advisories are
// diagnostic only; the exit status decides the final outcome.
type Advisory struct {
	Kind    job.ErrorKind `json:"error_kind"`
	Message string        `json:"message"`
}

// Output signal patterns recognized across the tools.
var (
	// "=== Phase: Chunk Processing ==="
	bannerRe = regexp.MustCompile(`^=+\s*Phase:\s*(.+?)\s*=+$`)
	// "Progress: 10/40 chunks (25.0%)"
	chunksRe = regexp.MustCompile(`^Progress:\s*(\d+)/(\d+)\s+chunks\s*\((\d+(?:\.\d+)?)%\)`)
	// "[30.0%] Transcribing audio with Whisper AI"
	stepRe = regexp.MustCompile(`^\[(\d+(?:\.\d+)?)%\]\s*(.+)$`)
	// "frame= 1234 fps= 30 ..."
	frameRe = regexp.MustCompile(`frame=\s*(\d+)`)
)

// margin keeps projected values strictly below the phase's upper bound;
// [Start, End) is half-open and End belongs to the next phase.
const margin = 0.1

// nudgeStep is the bounded advance for unrecognized but non-empty output.
// An explicit approximation, not a measurement: it only keeps the job from
// appearing stalled while the tool prints lines we have no pattern for.
const nudgeStep = 1.0

// Parser maps one job's output streams to progress events. Not safe for
// concurrent use; the supervisor feeds it from a single goroutine.
type Parser struct {
	table      *Table
	phase      int
	last       float64
	totalUnits int
	partial    map[string]string
}

// NewParser creates a parser over the given phase table.
func NewParser(table *Table) *Parser {
	return &Parser{table: table, partial: make(map[string]string)}
}

// SetTotalUnits supplies an expected total for unit-counting signals such as
// "frame=NNNN". Without it those signals fall back to the bounded nudge.
func (p *Parser) SetTotalUnits(n int) {
	p.totalUnits = n
}

// Last returns the current progress cursor.
func (p *Parser) Last() float64 {
	return p.last
}

// Feed consumes a chunk from one output stream ("stdout" or "stderr") and
// returns the normalized events it produced. Incomplete trailing lines are
// buffered per stream until the next chunk.
func (p *Parser) Feed(source, chunk string) ([]Event, []Advisory) {
	data := p.partial[source] + chunk
	lines := strings.Split(data, "\n")
	p.partial[source] = lines[len(lines)-1]

	var events []Event
	var advisories []Advisory
	for _, line := range lines[:len(lines)-1] {
		ev, adv := p.parseLine(strings.TrimRight(line, "\r"))
		if adv != nil {
			advisories = append(advisories, *adv)
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, advisories
}

// Flush drains any buffered partial lines, for use after the process exits.
func (p *Parser) Flush() ([]Event, []Advisory) {
	var events []Event
	var advisories []Advisory
	for source, rest := range p.partial {
		p.partial[source] = ""
		if rest == "" {
			continue
		}
		ev, adv := p.parseLine(rest)
		if adv != nil {
			advisories = append(advisories, *adv)
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, advisories
}

func (p *Parser) parseLine(line string) (*Event, *Advisory) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, nil
	}

	if kind := classifyAdvisory(trimmed); kind != job.ErrorNone {
		return nil, &Advisory{Kind: kind, Message: trimmed}
	}

	if m := bannerRe.FindStringSubmatch(trimmed); m != nil {
		return p.enterPhase(m[1]), nil
	}

	if m := chunksRe.FindStringSubmatch(trimmed); m != nil {
		done, _ := strconv.Atoi(m[1])
		total, _ := strconv.Atoi(m[2])
		local, err := strconv.ParseFloat(m[3], 64)
		if err != nil && total > 0 {
			local = 100 * float64(done) / float64(total)
		}
		ev := p.projectLocal(local, trimmed)
		ev.Detail = map[string]string{
			"chunks_done":  m[1],
			"chunks_total": m[2],
		}
		return ev, nil
	}

	if m := stepRe.FindStringSubmatch(trimmed); m != nil {
		global, _ := strconv.ParseFloat(m[1], 64)
		return p.projectGlobal(global, m[2]), nil
	}

	if m := frameRe.FindStringSubmatch(trimmed); m != nil {
		frame, _ := strconv.Atoi(m[1])
		if p.totalUnits > 0 {
			local := 100 * float64(frame) / float64(p.totalUnits)
			ev := p.projectLocal(local, trimmed)
			ev.Detail = map[string]string{"frame": m[1]}
			return ev, nil
		}
		ev := p.nudge(trimmed)
		if ev != nil {
			ev.Detail = map[string]string{"frame": m[1]}
		}
		return ev, nil
	}

	return p.nudge(trimmed), nil
}

// enterPhase switches to a named phase. Banners for phases already passed
// are ignored so progress never moves backwards.
func (p *Parser) enterPhase(name string) *Event {
	idx := p.table.indexOf(name)
	if idx < 0 {
		return p.nudge(name)
	}
	if idx > p.phase {
		p.phase = idx
	}
	ph := p.table.Phases[p.phase]
	return p.emit(ph.Start, ph.Name, name)
}

// projectLocal maps a local percentage onto the active phase's range.
func (p *Parser) projectLocal(local float64, message string) *Event {
	local = math.Max(0, math.Min(100, local))
	ph := p.table.Phases[p.phase]
	global := ph.Start + local/100*(ph.End-ph.Start)
	return p.emit(global, ph.Name, message)
}

// projectGlobal handles tools that already report on the global scale.
func (p *Parser) projectGlobal(global float64, message string) *Event {
	global = math.Max(0, math.Min(100, global))
	idx := p.table.phaseAt(global)
	if idx > p.phase {
		p.phase = idx
	}
	return p.emit(global, p.table.Phases[p.phase].Name, message)
}

// nudge advances the cursor by a small bounded increment for output we have
// no pattern for, capped at the active phase's ceiling. Emits only when the
// cursor actually moved.
func (p *Parser) nudge(message string) *Event {
	ph := p.table.Phases[p.phase]
	ceiling := ph.End - margin
	candidate := math.Min(p.last+nudgeStep, ceiling)
	if candidate <= p.last {
		return nil
	}
	p.last = round1(candidate)
	return &Event{Progress: p.last, Phase: ph.Name, Message: message}
}

// emit clamps the computed value against the half-open phase bound and the
// monotonic cursor, then records and returns the event.
func (p *Parser) emit(global float64, phase, message string) *Event {
	ph := p.table.Phases[p.phase]
	if global >= ph.End {
		global = ph.End - margin
	}
	if global < p.last {
		global = p.last
	}
	p.last = round1(global)
	return &Event{Progress: p.last, Phase: phase, Message: message}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

// Advisory marker sets, matched against any output line. These mirror the
// resolver's stderr classification so mid-run diagnostics and the final
// failure annotation agree.
var advisoryDependency = []string{
	"ModuleNotFoundError",
	"ImportError",
	"No module named",
	"=== MISSING DEPENDENCIES ===",
}

var advisoryInput = []string{
	"FileNotFoundError",
	"No such file or directory",
}

var advisoryFailure = []string{
	"Traceback (most recent call last)",
	"Processing failed:",
}

func classifyAdvisory(line string) job.ErrorKind {
	for _, m := range advisoryDependency {
		if strings.Contains(line, m) {
			return job.ErrorMissingDependency
		}
	}
	for _, m := range advisoryInput {
		if strings.Contains(line, m) {
			return job.ErrorMissingInput
		}
	}
	for _, m := range advisoryFailure {
		if strings.Contains(line, m) {
			return job.ErrorProcessing
		}
	}
	return job.ErrorNone
}
