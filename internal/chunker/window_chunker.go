// Package chunker splits extracted text into retrieval chunks.
package chunker

import (
	"fmt"
	"strings"

	"crerag/internal/config"
	"crerag/internal/domain"
)

// WindowChunker cuts text into fixed-size character windows that overlap.
// Text no longer than one window is returned whole.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker returns a chunker with the given window and overlap, in characters.
func NewWindowChunker(size, overlap int) *WindowChunker {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &WindowChunker{size: size, overlap: overlap}
}

func (c *WindowChunker) Chunk(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}
	var chunks []string
	for start := 0; start < len(runes); start = start + c.size - c.overlap {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// LineChunker emits each non-blank line as its own chunk.
type LineChunker struct{}

func (LineChunker) Chunk(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// New builds the chunker selected by cfg.Type.
func New(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "", "window":
		return NewWindowChunker(cfg.ChunkSize, cfg.Overlap), nil
	case "sentence":
		return NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences), nil
	case "line":
		return LineChunker{}, nil
	default:
		return nil, fmt.Errorf("unknown chunker type %q", cfg.Type)
	}
}
