// Package chunker splits document text into overlapping chunks along
// natural boundaries.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/coldcase-labs/detective/internal/domain"
)

// Default splitting parameters.
const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// separators, highest priority first. The empty string means a hard cut at
// the size limit.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts text into chunks of at most chunkSize bytes, preferring the
// highest-priority separator available within each window. Every chunk after
// the first repeats the trailing overlap bytes of its predecessor.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a Splitter. Non-positive or inconsistent parameters fall back
// to defaults.
func New(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split cuts the document into ordered chunks. Empty text yields no chunks.
// A document whose text fits in one chunk yields exactly one chunk.
func (s *Splitter) Split(doc domain.Document) []domain.Chunk {
	text := doc.Text
	if text == "" {
		return nil
	}

	var chunks []domain.Chunk
	start := 0
	for {
		if len(text)-start <= s.chunkSize {
			chunks = append(chunks, domain.Chunk{
				Source: doc.ID,
				Index:  len(chunks),
				Text:   text[start:],
			})
			return chunks
		}

		cut := s.cutPoint(text, start)
		chunks = append(chunks, domain.Chunk{
			Source: doc.ID,
			Index:  len(chunks),
			Text:   text[start:cut],
		})
		// The next chunk re-reads the trailing overlap of this one,
		// widened to the nearest rune boundary so no chunk starts
		// mid-rune.
		next := backToRuneStart(text, cut-s.overlap)
		if next <= start {
			next = cut
		}
		start = next
	}
}

// cutPoint picks the end of the chunk starting at start. It scans the window
// for the last occurrence of each separator in priority order and takes the
// first that still makes progress past the overlap region. Falls back to a
// hard cut at the size limit.
func (s *Splitter) cutPoint(text string, start int) int {
	window := text[start : start+s.chunkSize]
	for _, sep := range separators {
		if sep == "" {
			break
		}
		pos := strings.LastIndex(window, sep)
		if pos < 0 {
			continue
		}
		cut := start + pos + len(sep)
		// The cut must move past the overlap region or the next chunk
		// would start at or before this one.
		if cut > start+s.overlap {
			return cut
		}
	}
	// Hard cut at the size limit, backed off to a rune boundary so a
	// multi-byte rune is never split across chunks.
	cut := backToRuneStart(text, start+s.chunkSize)
	if cut <= start {
		cut = start + s.chunkSize
	}
	return cut
}

// backToRuneStart moves i left until text[i] begins a UTF-8 rune.
func backToRuneStart(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
