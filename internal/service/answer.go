package service

import (
	"context"
	"strings"

	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/telemetry"
)

// GenerationClient defines the interface for text generation
type GenerationClient interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// AnswerMode selects how the generation model may use knowledge outside the
// retrieved context.
type AnswerMode string

const (
	// AnswerModeStrict answers only from retrieved context
	AnswerModeStrict AnswerMode = "strict"
	// AnswerModeComprehensive may add general knowledge, marked as such
	AnswerModeComprehensive AnswerMode = "comprehensive"
)

// NoAnswerFound is returned in strict mode when nothing relevant is indexed.
const NoAnswerFound = "No relevant information was found in the indexed documents."

const strictSystemPrompt = `You are a document assistant. Answer using ONLY the provided context.
If the context does not contain the answer, reply exactly: "` + NoAnswerFound + `"
Do not use outside knowledge. Cite the source titles you used.`

const comprehensiveSystemPrompt = `You are a document assistant. Answer the question using the provided context first.
You may add general knowledge, but clearly separate it: prefix context-based statements with "From your documents:" and general knowledge with "From general knowledge:".
Cite the source titles for context-based statements.`

// ParseAnswerMode normalizes a mode string; empty defaults to strict.
func ParseAnswerMode(s string) (AnswerMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return AnswerModeStrict, nil
	case "comprehensive":
		return AnswerModeComprehensive, nil
	}
	return "", domain.NewDomainError(domain.ErrCodeValidation, "answer mode must be strict or comprehensive")
}

// QueryService runs the full RAG query path: retrieve, assemble context,
// generate.
type QueryService struct {
	retrieval *RetrievalService
	generator GenerationClient
}

func NewQueryService(retrieval *RetrievalService, generator GenerationClient) *QueryService {
	return &QueryService{
		retrieval: retrieval,
		generator: generator,
	}
}

type QueryInput struct {
	Question    string
	Collections []string
	Mode        AnswerMode
	TopK        int
	// OwnerUserID scopes the query to collections the caller owns.
	OwnerUserID string
}

type QueryResult struct {
	Answer  string
	Sources []string
	Mode    AnswerMode
}

// Query answers a question over the given collections. Strict mode only
// considers chunks above the similarity floor and refuses to answer from
// outside the documents; comprehensive mode keeps every retrieved chunk and
// lets the model fill gaps with labeled general knowledge.
func (s *QueryService) Query(ctx context.Context, input QueryInput) (*QueryResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Query", telemetry.SpanAttributes{
		UserID:    input.OwnerUserID,
		Operation: "query",
	})
	defer span.End()

	mode := input.Mode
	if mode == "" {
		mode = AnswerModeStrict
	}

	floor := float32(DefaultSimilarityFloor)
	if mode == AnswerModeComprehensive {
		floor = -1
	}

	results, err := s.retrieval.Retrieve(ctx, RetrieveInput{
		Query:       input.Question,
		Collections: input.Collections,
		TopK:        input.TopK,
		Floor:       floor,
		OwnerUserID: input.OwnerUserID,
	})
	if err != nil {
		return nil, err
	}

	if len(results) == 0 && mode == AnswerModeStrict {
		return &QueryResult{Answer: NoAnswerFound, Mode: mode}, nil
	}

	contextText := s.retrieval.BuildContext(results, DefaultContextTokenBudget)

	systemPrompt := strictSystemPrompt
	if mode == AnswerModeComprehensive {
		systemPrompt = comprehensiveSystemPrompt
	}

	userPrompt := buildUserPrompt(contextText, input.Question)

	answer, err := s.generator.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return &QueryResult{
		Answer:  answer,
		Sources: Sources(results),
		Mode:    mode,
	}, nil
}

func buildUserPrompt(contextText, question string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	if contextText == "" {
		b.WriteString("(no relevant documents found)\n")
	} else {
		b.WriteString(contextText)
		b.WriteString("\n")
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	return b.String()
}
