package ai

import (
	"context"
	"errors"
	"math"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAPI is a mock for the OpenAI API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockAPI) CreateChatCompletion(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func testVector(dims int, seed float32) []float32 {
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = seed + float32(i)*0.001
	}
	return vec
}

func TestClient_Embed_Success(t *testing.T) {
	mockAPI := new(MockAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	text := "Solar panels convert light into power."

	mockAPI.On("CreateEmbeddings", ctx, []string{text}).
		Return([][]float32{testVector(1536, 0.5)}, nil)

	embedding, err := client.Embed(ctx, text)

	assert.NoError(t, err)
	assert.Len(t, embedding, 1536)
	mockAPI.AssertExpectations(t)
}

func TestClient_Embed_ReturnsUnitVector(t *testing.T) {
	mockAPI := new(MockAPI)
	client := &Client{api: mockAPI, dimensions: 4}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).
		Return([][]float32{{3, 0, 4, 0}}, nil)

	embedding, err := client.Embed(ctx, "text")

	require.NoError(t, err)
	var norm float64
	for _, v := range embedding {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
	assert.InDelta(t, 0.6, float64(embedding[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(embedding[2]), 1e-6)
}

func TestClient_Embed_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.Embed(context.Background(), "")

	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_Embed_WrongDimensions(t *testing.T) {
	mockAPI := new(MockAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).
		Return([][]float32{testVector(512, 0.1)}, nil)

	embedding, err := client.Embed(ctx, "text")

	assert.Nil(t, embedding)
	assert.Equal(t, ErrWrongDimensions, err)
}

func TestClient_EmbedBatch_PreservesOrder(t *testing.T) {
	mockAPI := new(MockAPI)
	client := &Client{api: mockAPI, dimensions: 3}

	ctx := context.Background()
	texts := []string{"first", "second", "third"}
	mockAPI.On("CreateEmbeddings", ctx, texts).
		Return([][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, nil)

	embeddings, err := client.EmbedBatch(ctx, texts)

	require.NoError(t, err)
	require.Len(t, embeddings, 3)
	assert.Equal(t, []float32{1, 0, 0}, embeddings[0])
	assert.Equal(t, []float32{0, 1, 0}, embeddings[1])
	assert.Equal(t, []float32{0, 0, 1}, embeddings[2])
}

func TestClient_EmbedBatch_NonTransientErrorFailsFast(t *testing.T) {
	mockAPI := new(MockAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	apiErr := &openai.APIError{HTTPStatusCode: 401, Message: "invalid api key"}
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return(nil, apiErr).Once()

	embeddings, err := client.EmbedBatch(ctx, []string{"text"})

	assert.Nil(t, embeddings)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create embeddings")
	mockAPI.AssertExpectations(t)
}

func TestClient_EmbedBatch_RetriesRateLimit(t *testing.T) {
	mockAPI := new(MockAPI)
	client := &Client{api: mockAPI, dimensions: 3}

	ctx := context.Background()
	rateLimited := &openai.APIError{HTTPStatusCode: 429, Message: "rate limited"}
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return(nil, rateLimited).Once()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).
		Return([][]float32{{1, 0, 0}}, nil).Once()

	embeddings, err := client.EmbedBatch(ctx, []string{"text"})

	assert.NoError(t, err)
	assert.Len(t, embeddings, 1)
	mockAPI.AssertExpectations(t)
}

func TestClient_Generate_Success(t *testing.T) {
	mockAPI := new(MockAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, "system prompt", "user prompt").
		Return("generated answer", nil)

	answer, err := client.Generate(ctx, "system prompt", "user prompt")

	assert.NoError(t, err)
	assert.Equal(t, "generated answer", answer)
	mockAPI.AssertExpectations(t)
}

func TestClient_Generate_APIError(t *testing.T) {
	mockAPI := new(MockAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, "", "prompt").
		Return("", errors.New("boom")).Once()

	answer, err := client.Generate(ctx, "", "prompt")

	assert.Empty(t, answer)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate completion")
}

func TestIsTransient(t *testing.T) {
	assert.False(t, isTransient(nil))
	assert.False(t, isTransient(errors.New("plain error")))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(&openai.APIError{HTTPStatusCode: 400}))
	assert.False(t, isTransient(&openai.APIError{HTTPStatusCode: 403}))
	assert.True(t, isTransient(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, isTransient(&openai.APIError{HTTPStatusCode: 500}))
	assert.True(t, isTransient(&openai.APIError{HTTPStatusCode: 503}))
}

func TestNewClientFromEnv_NoAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	client, err := NewClientFromEnv()

	assert.Nil(t, client)
	assert.Equal(t, ErrNoAPIKey, err)
}

func TestNewClientFromEnv_WithAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-api-key")

	client, err := NewClientFromEnv()

	assert.NotNil(t, client)
	assert.NoError(t, err)
	assert.Equal(t, DefaultEmbeddingDimensions, client.Dimensions())
}
