package chunk

import (
	"fmt"
	"strings"
	"testing"
)

func TestWordsShortText(t *testing.T) {
	c := NewWords(100, 20)
	chunks := c.Chunk("just a few words here")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "just a few words here" {
		t.Errorf("unexpected chunk: %q", chunks[0])
	}
}

func TestWordsOverlap(t *testing.T) {
	words := make([]string, 25)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	c := NewWords(10, 3)
	chunks := c.Chunk(strings.Join(words, " "))
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %v", len(chunks), chunks)
	}
	// Second chunk starts at word 7 (step = size - overlap = 7).
	if !strings.HasPrefix(chunks[1], "w7 ") {
		t.Errorf("second chunk should start at w7: %q", chunks[1])
	}
	// All words must appear somewhere.
	joined := strings.Join(chunks, " ")
	for _, w := range words {
		if !strings.Contains(joined, w) {
			t.Errorf("word %q missing from chunks", w)
		}
	}
}

func TestWordsEmpty(t *testing.T) {
	c := NewWords(10, 2)
	if got := c.Chunk("   \n\t  "); got != nil {
		t.Errorf("expected nil for blank text, got %v", got)
	}
}

func TestWordsClamp(t *testing.T) {
	c := NewWords(0, -1)
	if c.Size != 512 || c.Overlap != 0 {
		t.Errorf("clamp failed: %+v", c)
	}
	c = NewWords(10, 10)
	if c.Overlap >= c.Size {
		t.Errorf("overlap not clamped below size: %+v", c)
	}
}

func TestParagraphsMerge(t *testing.T) {
	text := "first paragraph\n\nsecond paragraph\n\nthird paragraph"
	c := NewParagraphs(1000)
	chunks := c.Chunk(text)
	if len(chunks) != 1 {
		t.Fatalf("expected all paragraphs merged, got %d chunks", len(chunks))
	}
	if !strings.Contains(chunks[0], "first paragraph") || !strings.Contains(chunks[0], "third paragraph") {
		t.Errorf("merged chunk missing paragraphs: %q", chunks[0])
	}
}

func TestParagraphsSplit(t *testing.T) {
	a := strings.Repeat("aaaa ", 20)
	b := strings.Repeat("bbbb ", 20)
	c := NewParagraphs(120)
	chunks := c.Chunk(strings.TrimSpace(a) + "\n\n" + strings.TrimSpace(b))
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !strings.HasPrefix(chunks[0], "aaaa") || !strings.HasPrefix(chunks[1], "bbbb") {
		t.Errorf("chunks out of order: %v", chunks)
	}
}

func TestParagraphsOversized(t *testing.T) {
	big := strings.Repeat("x", 5000)
	c := NewParagraphs(2000)
	chunks := c.Chunk(big)
	if len(chunks) != 1 {
		t.Fatalf("oversized paragraph should stay one chunk, got %d", len(chunks))
	}
	if chunks[0] != big {
		t.Error("oversized paragraph was altered")
	}
}
