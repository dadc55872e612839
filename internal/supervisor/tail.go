package supervisor

import (
	"strings"
	"sync"
)

// tailBuffer keeps the last maxBytes of an output stream for diagnostics.
// Trimming happens on whole lines so excerpts stay readable.
type tailBuffer struct {
	mu      sync.Mutex
	max     int
	builder []string
	size    int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) WriteLine(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.builder = append(b.builder, line)
	b.size += len(line) + 1
	for b.size > b.max && len(b.builder) > 1 {
		b.size -= len(b.builder[0]) + 1
		b.builder = b.builder[1:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.builder) == 0 {
		return ""
	}
	return strings.Join(b.builder, "\n") + "\n"
}
