package domain

import "time"

// Chunk is an ordered text segment derived from one document. Chunks are
// immutable once created and removed only when their document is removed.
type Chunk struct {
	DocumentID string
	Collection string
	Index      int
	Start      int
	End        int
	Text       string
}

// EmbeddingRecord is a chunk's vector representation plus the copies of text
// and metadata needed to answer a query without a second storage round-trip.
// One record exists per chunk, created atomically with it.
type EmbeddingRecord struct {
	ID         string
	Collection string
	DocumentID string
	ChunkIndex int
	Title      string
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredRecord pairs an EmbeddingRecord with its similarity score for one query.
type ScoredRecord struct {
	Record EmbeddingRecord
	Score  float32
}
