package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/store"
)

// mapEmbedder returns a fixed vector per text, for precise score control.
type mapEmbedder struct {
	dims int
	vecs map[string][]float32
}

func (e *mapEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.vecs[text]; ok {
		return vec, nil
	}
	vec := make([]float32, e.dims)
	vec[0] = 1
	return vec, nil
}

func (e *mapEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *mapEmbedder) Dimensions() int { return e.dims }

func seedSolarRecords(t *testing.T, vectors *store.Memory) {
	t.Helper()
	err := vectors.Insert(context.Background(), "user-1", []domain.EmbeddingRecord{
		{ID: "r1", Collection: "brochures", DocumentID: "solarx", ChunkIndex: 0,
			Title: "SolarX Brochure", Content: "SolarX panels produce 400W each.",
			Embedding: []float32{1, 0, 0}},
		{ID: "r2", Collection: "brochures", DocumentID: "solarx", ChunkIndex: 1,
			Title: "SolarX Brochure", Content: "SolarX ships with a 25 year warranty.",
			Embedding: []float32{0.8, 0.6, 0}},
		{ID: "r3", Collection: "brochures", DocumentID: "windy", ChunkIndex: 0,
			Title: "Windy Turbine Specs", Content: "Windy turbines rotate at 15 rpm.",
			Embedding: []float32{0, 0, 1}},
	})
	require.NoError(t, err)
}

func newRetrievalFixture(t *testing.T) (*RetrievalService, *store.Memory) {
	t.Helper()
	tokens := newTestTokenCounter(t)
	vectors := store.NewMemory(3)
	embedder := &mapEmbedder{dims: 3, vecs: map[string][]float32{
		"solar power output": {1, 0, 0},
		"wind turbines":      {0, 0, 1},
	}}
	return NewRetrievalService(vectors, embedder, tokens), vectors
}

func TestRetrievalService_Retrieve_RanksBySimilarity(t *testing.T) {
	svc, vectors := newRetrievalFixture(t)
	seedSolarRecords(t, vectors)

	results, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:       "solar power output",
		Collections: []string{"brochures"},
		TopK:        3,
		Floor:       -1,
	})

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "SolarX panels produce 400W each.", results[0].Record.Content)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	assert.InDelta(t, 0.8, float64(results[1].Score), 1e-6)
}

func TestRetrievalService_Retrieve_FloorFiltersWeakMatches(t *testing.T) {
	svc, vectors := newRetrievalFixture(t)
	seedSolarRecords(t, vectors)

	results, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:       "solar power output",
		Collections: []string{"brochures"},
		TopK:        3,
		Floor:       DefaultSimilarityFloor,
	})

	require.NoError(t, err)
	require.Len(t, results, 2, "the turbine chunk scores 0 and must be dropped")
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, float32(DefaultSimilarityFloor))
	}
}

func TestRetrievalService_Retrieve_EmptyQuery(t *testing.T) {
	svc, _ := newRetrievalFixture(t)

	_, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:       "   ",
		Collections: []string{"brochures"},
	})

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestRetrievalService_Retrieve_UnknownCollectionIsEmpty(t *testing.T) {
	svc, vectors := newRetrievalFixture(t)
	seedSolarRecords(t, vectors)

	results, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:       "anything",
		Collections: []string{"missing"},
		Floor:       -1,
	})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrievalService_Retrieve_ForeignCollectionDenied(t *testing.T) {
	svc, vectors := newRetrievalFixture(t)
	seedSolarRecords(t, vectors)

	_, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:       "solar power output",
		Collections: []string{"brochures"},
		Floor:       -1,
		OwnerUserID: "user-2",
	})
	assert.Equal(t, domain.ErrAccessDenied, err)

	// the owner still gets results; unknown names stay invisible
	results, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:       "solar power output",
		Collections: []string{"brochures", "missing"},
		Floor:       -1,
		OwnerUserID: "user-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestRetrievalService_BuildContext_TagsSources(t *testing.T) {
	svc, vectors := newRetrievalFixture(t)
	seedSolarRecords(t, vectors)

	results, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:       "solar power output",
		Collections: []string{"brochures"},
		TopK:        2,
		Floor:       -1,
	})
	require.NoError(t, err)

	contextText := svc.BuildContext(results, DefaultContextTokenBudget)

	assert.Contains(t, contextText, "[Source: SolarX Brochure]")
	assert.Contains(t, contextText, "SolarX panels produce 400W each.")
	assert.Contains(t, contextText, "SolarX ships with a 25 year warranty.")
}

func TestRetrievalService_BuildContext_DropsLowScoringOverBudget(t *testing.T) {
	svc, vectors := newRetrievalFixture(t)
	seedSolarRecords(t, vectors)

	results, err := svc.Retrieve(context.Background(), RetrieveInput{
		Query:       "solar power output",
		Collections: []string{"brochures"},
		TopK:        3,
		Floor:       -1,
	})
	require.NoError(t, err)

	// budget fits only the first passage
	tokens := newTestTokenCounter(t)
	firstCost := tokens.CountTokens("[Source: SolarX Brochure]\nSolarX panels produce 400W each.")
	contextText := svc.BuildContext(results, firstCost)

	assert.Contains(t, contextText, "SolarX panels produce 400W each.")
	assert.NotContains(t, contextText, "warranty")
	assert.NotContains(t, contextText, "turbines")
}

func TestDedupeResults(t *testing.T) {
	results := []domain.ScoredRecord{
		{Record: domain.EmbeddingRecord{DocumentID: "a", ChunkIndex: 0}, Score: 0.9},
		{Record: domain.EmbeddingRecord{DocumentID: "a", ChunkIndex: 0}, Score: 0.8},
		{Record: domain.EmbeddingRecord{DocumentID: "a", ChunkIndex: 1}, Score: 0.7},
		{Record: domain.EmbeddingRecord{DocumentID: "b", ChunkIndex: 0}, Score: 0.6},
	}

	deduped := dedupeResults(results)

	require.Len(t, deduped, 3)
	assert.Equal(t, float32(0.9), deduped[0].Score, "highest ranked duplicate wins")
}

func TestSources_DistinctInRankOrder(t *testing.T) {
	results := []domain.ScoredRecord{
		{Record: domain.EmbeddingRecord{Title: "Doc B"}},
		{Record: domain.EmbeddingRecord{Title: "Doc A"}},
		{Record: domain.EmbeddingRecord{Title: "Doc B"}},
	}

	assert.Equal(t, []string{"Doc B", "Doc A"}, Sources(results))
}

func TestBuildUserPrompt_NoContext(t *testing.T) {
	prompt := buildUserPrompt("", "What is SolarX?")

	assert.True(t, strings.HasPrefix(prompt, "Context:"))
	assert.Contains(t, prompt, "(no relevant documents found)")
	assert.Contains(t, prompt, "Question: What is SolarX?")
}
