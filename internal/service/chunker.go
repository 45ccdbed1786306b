package service

import (
	"strings"

	"github.com/archivist-ai/archivist/internal/domain"
)

// ChunkConfig controls token-based chunking for document ingestion.
type ChunkConfig struct {
	MaxTokens     int
	OverlapTokens int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxTokens:     300,
		OverlapTokens: 50,
	}
}

// Chunker splits extracted text into overlapping token windows sized for the
// embedding model.
type Chunker struct {
	tokens *TokenCounter
	cfg    ChunkConfig
}

// NewChunker creates a Chunker. Returns ErrInvalidChunkConfig when the
// overlap is not strictly smaller than the window.
func NewChunker(tokens *TokenCounter, cfg ChunkConfig) (*Chunker, error) {
	if cfg.MaxTokens <= 0 || cfg.OverlapTokens < 0 || cfg.OverlapTokens >= cfg.MaxTokens {
		return nil, domain.ErrInvalidChunkConfig
	}
	return &Chunker{tokens: tokens, cfg: cfg}, nil
}

// Chunk splits text into ordered segments of at most MaxTokens tokens. Each
// segment after the first re-includes the previous segment's last
// OverlapTokens tokens, so no semantic unit shorter than the overlap is lost
// at a boundary. Within the overlap tail of a window the split prefers a
// sentence or paragraph boundary; otherwise it hard-breaks at the window edge.
// Empty text yields zero chunks; callers reject empty documents before
// reaching here.
func (c *Chunker) Chunk(text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	toks := c.tokens.Encode(text)
	if len(toks) == 0 {
		return nil
	}

	offsets := c.tokens.TokenByteOffsets(toks)

	if len(toks) <= c.cfg.MaxTokens {
		return []domain.Chunk{{
			Index: 0,
			Start: 0,
			End:   len(text),
			Text:  text,
		}}
	}

	var chunks []domain.Chunk
	start := 0
	for start < len(toks) {
		end := start + c.cfg.MaxTokens
		if end >= len(toks) {
			end = len(toks)
		} else {
			end = c.preferBoundary(text, offsets, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			Index: len(chunks),
			Start: offsets[start],
			End:   offsets[end],
			Text:  text[offsets[start]:offsets[end]],
		})

		if end >= len(toks) {
			break
		}

		next := end - c.cfg.OverlapTokens
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// preferBoundary walks back from the window edge through the overlap tail
// looking for a token boundary that ends a sentence or paragraph. Returns the
// original edge when none exists.
func (c *Chunker) preferBoundary(text string, offsets []int, start, end int) int {
	low := end - c.cfg.OverlapTokens
	if low <= start {
		low = start + 1
	}
	for j := end; j > low; j-- {
		if isBreakPoint(text, offsets[j]) {
			return j
		}
	}
	return end
}

// isBreakPoint reports whether the byte offset falls just after a sentence
// terminator or a newline.
func isBreakPoint(text string, offset int) bool {
	if offset <= 0 || offset >= len(text) {
		return false
	}
	prev := text[offset-1]
	if prev == '\n' {
		return true
	}
	if prev == '.' || prev == '!' || prev == '?' {
		return true
	}
	if prev == ' ' && offset >= 2 {
		switch text[offset-2] {
		case '.', '!', '?', ':', ';':
			return true
		}
	}
	return false
}
