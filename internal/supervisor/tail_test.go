package supervisor

import (
	"strings"
	"testing"
)

func TestTailBufferKeepsRecentLines(t *testing.T) {
	b := newTailBuffer(64)
	for i := 0; i < 100; i++ {
		b.WriteLine("line with padding to overflow the buffer")
	}
	out := b.String()
	if len(out) > 64+len("line with padding to overflow the buffer\n") {
		t.Errorf("tail buffer grew past its bound: %d bytes", len(out))
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("tail output should end with a newline")
	}
}

func TestTailBufferEmpty(t *testing.T) {
	b := newTailBuffer(64)
	if out := b.String(); out != "" {
		t.Errorf("empty buffer produced %q", out)
	}
}

func TestTailBufferShortContentUnchanged(t *testing.T) {
	b := newTailBuffer(1024)
	b.WriteLine("first")
	b.WriteLine("second")
	if out := b.String(); out != "first\nsecond\n" {
		t.Errorf("unexpected tail content %q", out)
	}
}
