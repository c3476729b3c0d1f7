package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/coldcase-labs/detective/internal/domain"
)

func doc(text string) domain.Document {
	return domain.Document{ID: "doc1.txt", Text: text}
}

func TestSplit_EmptyText(t *testing.T) {
	s := New(100, 10)
	if chunks := s.Split(doc("")); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestSplit_SingleChunk(t *testing.T) {
	s := New(100, 10)
	chunks := s.Split(doc("short text"))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "short text" {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
	if chunks[0].Source != "doc1.txt" || chunks[0].Index != 0 {
		t.Errorf("chunk metadata = %+v", chunks[0])
	}
}

func TestSplit_MaxSize(t *testing.T) {
	text := strings.Repeat("word and more text. ", 100)
	s := New(80, 8)
	for i, c := range s.Split(doc(text)) {
		if len(c.Text) > 80 {
			t.Errorf("chunk %d exceeds max size: %d bytes", i, len(c.Text))
		}
	}
}

// Concatenating chunks minus the overlapping prefixes must reconstruct the
// original text byte for byte.
func TestSplit_Reconstruction(t *testing.T) {
	text := "First paragraph with some detail.\n\nSecond paragraph.\nA line inside it. " +
		strings.Repeat("Filler sentence number one. ", 30) +
		"\n\nFinal short paragraph."
	overlap := 12
	s := New(90, overlap)

	chunks := s.Split(doc(text))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	var b strings.Builder
	b.WriteString(chunks[0].Text)
	for _, c := range chunks[1:] {
		b.WriteString(c.Text[overlap:])
	}
	if b.String() != text {
		t.Errorf("reconstruction mismatch:\nwant %q\ngot  %q", text, b.String())
	}
}

func TestSplit_OverlapMatches(t *testing.T) {
	text := strings.Repeat("The suspect crossed the bridge at midnight. ", 40)
	overlap := 15
	s := New(120, overlap)

	chunks := s.Split(doc(text))
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1].Text, chunks[i].Text
		if prev[len(prev)-overlap:] != cur[:overlap] {
			t.Fatalf("overlap mismatch between chunks %d and %d: %q vs %q",
				i-1, i, prev[len(prev)-overlap:], cur[:overlap])
		}
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	text := "Alpha paragraph here.\n\nBeta paragraph follows with more words than alpha did before."
	s := New(40, 5)

	chunks := s.Split(doc(text))
	if !strings.HasSuffix(chunks[0].Text, "\n\n") {
		t.Errorf("first chunk should end at the paragraph boundary, got %q", chunks[0].Text)
	}
}

func TestSplit_IndivisibleTokenHardCut(t *testing.T) {
	// No separator at all: a single oversized token still yields chunks.
	text := strings.Repeat("x", 250)
	s := New(100, 10)

	chunks := s.Split(doc(text))
	if len(chunks) == 0 {
		t.Fatal("expected chunks for an indivisible token")
	}
	for i, c := range chunks {
		if len(c.Text) > 100 {
			t.Errorf("chunk %d exceeds max size: %d", i, len(c.Text))
		}
	}
	var b strings.Builder
	b.WriteString(chunks[0].Text)
	for _, c := range chunks[1:] {
		b.WriteString(c.Text[10:])
	}
	if b.String() != text {
		t.Error("hard-cut chunks do not reconstruct original text")
	}
}

// Non-ASCII text with no separators forces hard cuts; both the cut and the
// overlapped next start must land on rune boundaries so no chunk carries a
// torn multi-byte rune at either seam.
func TestSplit_MultiByteRunesStayIntact(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteRune(rune('一' + i)) // distinct 3-byte runes, no separators
	}
	text := b.String()
	s := New(100, 10)

	chunks := s.Split(doc(text))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	pos, end := 0, 0
	for i, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d contains invalid UTF-8: %q", i, c.Text)
		}
		if len(c.Text) > 100 {
			t.Errorf("chunk %d exceeds max size: %d bytes", i, len(c.Text))
		}
		idx := strings.Index(text[pos:], c.Text)
		if idx < 0 {
			t.Fatalf("chunk %d is not a substring of the document", i)
		}
		pos += idx
		if i > 0 && pos > end {
			t.Fatalf("gap before chunk %d: starts at byte %d, previous ended at %d", i, pos, end)
		}
		end = pos + len(c.Text)
	}
	if end != len(text) {
		t.Errorf("chunks cover %d of %d bytes", end, len(text))
	}
}

func TestSplit_ChunkIndicesOrdered(t *testing.T) {
	text := strings.Repeat("Sentence goes here. ", 50)
	s := New(60, 6)
	for i, c := range s.Split(doc(text)) {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
}
