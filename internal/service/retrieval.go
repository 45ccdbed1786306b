package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/store"
)

const (
	// DefaultTopK is the number of nearest neighbors fetched per query
	DefaultTopK = 5
	// DefaultSimilarityFloor is the minimum cosine similarity a chunk needs
	// to count as relevant in strict mode
	DefaultSimilarityFloor = 0.75
	// DefaultContextTokenBudget caps the assembled context passed to the
	// generation model
	DefaultContextTokenBudget = 3000
)

// RetrievalService answers nearest-neighbor queries over the vector store
// and assembles generation context from the results.
type RetrievalService struct {
	vectors  store.VectorStore
	embedder EmbeddingClient
	tokens   *TokenCounter
}

func NewRetrievalService(vectors store.VectorStore, embedder EmbeddingClient, tokens *TokenCounter) *RetrievalService {
	return &RetrievalService{
		vectors:  vectors,
		embedder: embedder,
		tokens:   tokens,
	}
}

type RetrieveInput struct {
	Query       string
	Collections []string
	TopK        int
	// Floor drops results scoring below it. Negative means no floor.
	Floor float32
	// OwnerUserID, when set, rejects collections owned by another user.
	// Callers that resolve ownership themselves leave it empty.
	OwnerUserID string
}

// Retrieve embeds the query and returns the best-matching chunks across the
// given collections, deduplicated by (document, chunk). Collections that do
// not exist contribute no results; collections owned by someone other than
// OwnerUserID are an authorization failure.
func (s *RetrievalService) Retrieve(ctx context.Context, input RetrieveInput) ([]domain.ScoredRecord, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}
	if len(input.Collections) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "at least one collection is required")
	}

	if input.OwnerUserID != "" {
		if err := s.authorizeCollections(ctx, input.OwnerUserID, input.Collections); err != nil {
			return nil, err
		}
	}

	topK := input.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.vectors.Search(ctx, input.Collections, vector, topK)
	if err != nil {
		return nil, err
	}

	results = dedupeResults(results)

	if input.Floor >= 0 {
		filtered := results[:0]
		for _, r := range results {
			if r.Score >= input.Floor {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	return results, nil
}

// authorizeCollections checks every requested collection that exists against
// its owner. Unknown names pass; they simply match nothing.
func (s *RetrievalService) authorizeCollections(ctx context.Context, userID string, names []string) error {
	all, err := s.vectors.ListCollections(ctx)
	if err != nil {
		return err
	}
	owners := make(map[string]string, len(all))
	for _, c := range all {
		owners[c.Name] = c.OwnerUserID
	}
	for _, name := range names {
		if owner, ok := owners[name]; ok && owner != userID {
			return domain.ErrAccessDenied
		}
	}
	return nil
}

// dedupeResults keeps the first (highest ranked) occurrence of each
// (document, chunk) pair. Searching overlapping scopes must not repeat a
// chunk in the context window.
func dedupeResults(results []domain.ScoredRecord) []domain.ScoredRecord {
	type chunkKey struct {
		documentID string
		chunkIndex int
	}
	seen := make(map[chunkKey]bool, len(results))
	out := results[:0]
	for _, r := range results {
		key := chunkKey{r.Record.DocumentID, r.Record.ChunkIndex}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// BuildContext renders retrieved chunks into a generation context, best
// matches first, each tagged with its source title. Chunks that would push
// the context past the token budget are dropped from the low-scoring end.
func (s *RetrievalService) BuildContext(results []domain.ScoredRecord, tokenBudget int) string {
	if tokenBudget <= 0 {
		tokenBudget = DefaultContextTokenBudget
	}

	var b strings.Builder
	used := 0
	for _, r := range results {
		passage := fmt.Sprintf("[Source: %s]\n%s", r.Record.Title, r.Record.Content)
		cost := s.tokens.CountTokens(passage)
		if used+cost > tokenBudget {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(passage)
		used += cost
	}
	return b.String()
}

// Sources lists the distinct source titles of the results, in rank order.
func Sources(results []domain.ScoredRecord) []string {
	seen := make(map[string]bool, len(results))
	var titles []string
	for _, r := range results {
		if seen[r.Record.Title] {
			continue
		}
		seen[r.Record.Title] = true
		titles = append(titles, r.Record.Title)
	}
	return titles
}
