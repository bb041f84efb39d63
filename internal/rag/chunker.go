// Package rag turns raw documents into searchable context: chunking,
// embedding association, semantic search, and context assembly.
package rag

import (
	"strings"
	"unicode"
)

// Chunk is one bounded substring of a document, with its character offsets
// in the original text.
type Chunk struct {
	Text  string
	Start int
	End   int
}

// Chunker splits text into overlapping character windows. Identical input
// and parameters always yield identical chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker with the given window size and overlap in
// characters. Nonsensical values are clamped to safe ones.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk splits text into trimmed, non-empty chunks. A window is cut at the
// last whitespace at or after its midpoint so words are not split; when no
// such boundary exists the cut is at the exact window size. The next window
// starts overlap characters before the previous cut.
func (c *Chunker) Chunk(text string) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []Chunk
	pos := 0
	for pos < n {
		end := pos + c.chunkSize
		if end >= n {
			end = n
		} else {
			if cut := boundary(runes, pos+c.chunkSize/2, end); cut > 0 {
				end = cut
			}
		}
		piece := strings.TrimSpace(string(runes[pos:end]))
		if piece != "" {
			chunks = append(chunks, Chunk{Text: piece, Start: pos, End: end})
		}
		if end >= n {
			break
		}
		next := end - c.overlap
		if next <= pos {
			// Overlap would stall the scan; advance past the cut instead.
			next = end
		}
		pos = next
	}
	return chunks
}

// boundary returns the index just after the last whitespace rune in
// [mid, end), or 0 when the window has no usable boundary.
func boundary(runes []rune, mid, end int) int {
	for i := end - 1; i >= mid; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return 0
}

// Texts returns just the chunk strings, in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Text
	}
	return out
}

// EstimateTokens approximates the token count of a chunk: roughly one token
// per four characters.
func EstimateTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
