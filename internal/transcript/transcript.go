// Package transcript reads the structured result the transcription tool
// writes next to its input and renders subtitle output from it. The segment
// schema ({start, end, text} per segment) is a contract boundary consumed by
// downstream caption generation.
package transcript

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// Word is a word-level timestamp inside a segment, when the tool provides
// them.
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability,omitempty"`
}

// Segment is one timed span of recognized speech.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Transcript is the parsed transcription artifact.
type Transcript struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// Parse decodes a transcription result document.
func Parse(data []byte) (*Transcript, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("transcript is not valid JSON")
	}
	doc := gjson.ParseBytes(data)

	if errMsg := doc.Get("error"); errMsg.Exists() && errMsg.String() != "" {
		return nil, fmt.Errorf("transcription tool reported: %s", errMsg.String())
	}

	t := &Transcript{
		Text:     doc.Get("text").String(),
		Language: doc.Get("language").String(),
	}

	segments := doc.Get("segments")
	if !segments.IsArray() {
		return nil, fmt.Errorf("transcript has no segments array")
	}

	var parseErr error
	segments.ForEach(func(_, seg gjson.Result) bool {
		start := seg.Get("start")
		end := seg.Get("end")
		if !start.Exists() || !end.Exists() {
			parseErr = fmt.Errorf("segment %d is missing timing", len(t.Segments))
			return false
		}
		s := Segment{
			ID:    int(seg.Get("id").Int()),
			Start: start.Float(),
			End:   end.Float(),
			Text:  seg.Get("text").String(),
		}
		seg.Get("words").ForEach(func(_, w gjson.Result) bool {
			s.Words = append(s.Words, Word{
				Word:        w.Get("word").String(),
				Start:       w.Get("start").Float(),
				End:         w.Get("end").Float(),
				Probability: w.Get("probability").Float(),
			})
			return true
		})
		t.Segments = append(t.Segments, s)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return t, nil
}

// Load reads and parses a transcription artifact from disk.
func Load(path string) (*Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return Parse(data)
}
