// Package artifacts derives and verifies the output files produced by
// external media-processing tools. Output filenames are a deterministic
// function of the input path, so concurrent jobs on distinct inputs never
// collide in the shared temp directory.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Per-kind output suffixes. Kinds that produce a structured sibling result
// replace the extension; silencecut keeps the input container format.
const (
	transcriptSuffix = "_transcript.json"
	silencedSuffix   = "_silenced"
	analysisSuffix   = "_analysis.json"
)

// OutputPath returns the artifact path a job of the given kind writes for
// the given input, rooted in dir.
func OutputPath(kind, inputPath, dir string) string {
	stem := Stem(inputPath)
	switch kind {
	case "transcribe":
		return filepath.Join(dir, stem+transcriptSuffix)
	case "silencecut":
		return filepath.Join(dir, stem+silencedSuffix+filepath.Ext(inputPath))
	default:
		return filepath.Join(dir, stem+analysisSuffix)
	}
}

// SubtitlePath returns the .srt sibling for a transcript artifact, named
// after the original input stem.
func SubtitlePath(transcriptPath string) string {
	if strings.HasSuffix(transcriptPath, transcriptSuffix) {
		return strings.TrimSuffix(transcriptPath, transcriptSuffix) + ".srt"
	}
	return strings.TrimSuffix(transcriptPath, filepath.Ext(transcriptPath)) + ".srt"
}

// Stem returns the input basename without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Exists reports whether the artifact is present as a regular file with
// non-zero size. An empty file is treated as missing since the tools write
// output atomically only on success.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

// EnsureDir creates the shared temp/output directory if needed.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	return nil
}

// Scratch file suffixes the tools leave behind in the temp directory.
var scratchSuffixes = []string{"_audio.wav", "_thumbnail.jpg"}

// CleanupScratch removes intermediate files a job derived from inputPath.
// Best effort: the job outcome was already decided and deregistration never
// waits on cleanup.
func CleanupScratch(dir, inputPath string) {
	stem := Stem(inputPath)
	for _, suffix := range scratchSuffixes {
		_ = os.Remove(filepath.Join(dir, stem+suffix))
	}
}
