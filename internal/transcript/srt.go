package transcript

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// WriteSRT renders segments as SubRip subtitles. Cue numbering starts at 1
// and timestamps use the HH:MM:SS,mmm form SRT requires.
func WriteSRT(w io.Writer, segments []Segment) error {
	for i, seg := range segments {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(seg.Start), srtTimestamp(seg.End),
			strings.TrimSpace(seg.Text))
		if err != nil {
			return err
		}
	}
	return nil
}

// SaveSRT writes segments to an .srt file.
func SaveSRT(path string, segments []Segment) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create srt file: %w", err)
	}
	if err := WriteSRT(f, segments); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// srtTimestamp formats seconds as HH:MM:SS,mmm.
func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(seconds)
	millis := int((seconds - float64(whole)) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d",
		whole/3600, (whole%3600)/60, whole%60, millis)
}
