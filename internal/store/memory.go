package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/archivist-ai/archivist/internal/domain"
)

// Memory is an in-process VectorStore using brute-force scan. It backs tests
// and single-node deployments that run without Postgres.
type Memory struct {
	mu          sync.RWMutex
	dims        int
	seq         uint64
	collections map[string]*memoryCollection
	order       []string
}

type memoryCollection struct {
	meta    domain.Collection
	records []memoryRecord
}

type memoryRecord struct {
	rec domain.EmbeddingRecord
	seq uint64
}

// NewMemory creates an empty in-memory store enforcing the given embedding
// dimension.
func NewMemory(dims int) *Memory {
	return &Memory{
		dims:        dims,
		collections: make(map[string]*memoryCollection),
	}
}

// Dimensions returns the embedding dimension the store enforces.
func (m *Memory) Dimensions() int {
	return m.dims
}

// Insert stores a batch of records atomically. The whole batch is validated
// before any record is appended, so a dimension mismatch leaves the store
// unchanged.
func (m *Memory) Insert(ctx context.Context, ownerUserID string, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	for i := range records {
		if err := domain.ValidateCollectionName(records[i].Collection); err != nil {
			return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid collection name", err)
		}
		if len(records[i].Embedding) != m.dims {
			return domain.ErrDimensionMismatch
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range records {
		col := m.ensureCollectionLocked(records[i].Collection, ownerUserID)
		m.seq++
		col.records = append(col.records, memoryRecord{rec: records[i], seq: m.seq})
		col.meta.RecordCount++
	}
	return nil
}

func (m *Memory) ensureCollectionLocked(name, ownerUserID string) *memoryCollection {
	if col, ok := m.collections[name]; ok {
		return col
	}
	col := &memoryCollection{
		meta: domain.Collection{
			Name:        name,
			OwnerUserID: ownerUserID,
			CreatedAt:   time.Now().UTC(),
		},
	}
	m.collections[name] = col
	m.order = append(m.order, name)
	return col
}

// Search scans the named collections and returns the topK records by inner
// product, descending. Equal scores rank by insertion order. Unknown
// collections contribute no candidates.
func (m *Memory) Search(ctx context.Context, collections []string, vector []float32, topK int) ([]domain.ScoredRecord, error) {
	if len(vector) != m.dims {
		return nil, domain.ErrDimensionMismatch
	}
	if topK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		rec   domain.EmbeddingRecord
		score float32
		seq   uint64
	}

	var candidates []scored
	for _, name := range collections {
		col, ok := m.collections[name]
		if !ok {
			continue
		}
		for i := range col.records {
			candidates = append(candidates, scored{
				rec:   col.records[i].rec,
				score: dot(vector, col.records[i].rec.Embedding),
				seq:   col.records[i].seq,
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].seq < candidates[j].seq
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]domain.ScoredRecord, len(candidates))
	for i, c := range candidates {
		results[i] = domain.ScoredRecord{Record: c.rec, Score: c.score}
	}
	return results, nil
}

// DeleteDocument removes every record of the document from the collection.
// Absent collections and documents delete zero records without error.
func (m *Memory) DeleteDocument(ctx context.Context, collection, documentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	col, ok := m.collections[collection]
	if !ok {
		return 0, nil
	}

	kept := col.records[:0]
	removed := 0
	for _, r := range col.records {
		if r.rec.DocumentID == documentID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	col.records = kept
	col.meta.RecordCount -= removed
	return removed, nil
}

// ListCollections returns all collections in creation order.
func (m *Memory) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Collection, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.collections[name].meta)
	}
	return out, nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

var _ VectorStore = (*Memory)(nil)
