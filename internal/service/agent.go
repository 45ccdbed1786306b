package service

import (
	"context"
	"strings"
	"time"

	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/store"
	"github.com/archivist-ai/archivist/internal/telemetry"
)

// DefaultStepTimeout bounds each plan step so one stuck call cannot hang the
// whole task.
const DefaultStepTimeout = 30 * time.Second

const agentSystemPrompt = `You are a task assistant working over a user's document collections.
Complete the task using the retrieved context below. Cite the source titles you used.
If parts of the task could not be researched, say so instead of inventing content.`

// AgentService decomposes a free-form task into retrieval and generation
// steps and executes them against the user's collections.
type AgentService struct {
	retrieval   *RetrievalService
	generator   GenerationClient
	vectors     store.VectorStore
	stepTimeout time.Duration
}

func NewAgentService(retrieval *RetrievalService, generator GenerationClient, vectors store.VectorStore) *AgentService {
	return &AgentService{
		retrieval:   retrieval,
		generator:   generator,
		vectors:     vectors,
		stepTimeout: DefaultStepTimeout,
	}
}

// BuildPlan decomposes a task into one retrieve step per topic plus a final
// generate step. It is a pure function of its inputs: no clock, no I/O, no
// randomness, so the same task always yields the same plan.
func BuildPlan(task, userID string, collections []string) (*domain.Plan, error) {
	topics := splitTaskTopics(task)
	if len(topics) == 0 {
		return nil, domain.ErrPlanningFailed
	}

	steps := make([]domain.PlanStep, 0, len(topics)+1)
	for _, topic := range topics {
		steps = append(steps, domain.PlanStep{
			Kind:        domain.StepRetrieve,
			Query:       topic,
			Collections: collections,
		})
	}
	steps = append(steps, domain.PlanStep{
		Kind:   domain.StepGenerate,
		Prompt: strings.TrimSpace(task),
	})

	plan := &domain.Plan{
		Task:   strings.TrimSpace(task),
		UserID: userID,
		Steps:  steps,
	}
	if err := domain.ValidatePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// splitTaskTopics breaks a task into independently retrievable topics on
// punctuation and " and " conjunctions. A task with no splittable structure
// yields itself as the single topic.
func splitTaskTopics(task string) []string {
	var topics []string
	chunks := strings.FieldsFunc(task, func(r rune) bool {
		switch r {
		case ',', ';', '/', '|', ':', '?', '!', '(', ')', '[', ']', '{', '}':
			return true
		default:
			return false
		}
	})

	for _, chunk := range chunks {
		subParts := strings.Split(chunk, " and ")
		for _, sub := range subParts {
			sub = strings.TrimSpace(sub)
			if sub != "" {
				topics = append(topics, sub)
			}
		}
	}

	return topics
}

type TaskResult struct {
	Task    string
	Status  domain.TaskStatus
	Answer  string
	Sources []string
	Trace   []domain.StepTrace
}

// Execute runs a task end to end: resolve the collection scope against the
// user's holdings, build the plan, run each step under its timeout, and
// produce the final answer. Retrieve failures never lose work already done:
// as long as at least one retrieval succeeded, a final generate still runs
// over whatever was gathered, but any failed step leaves the task failed. A
// user with no collections gets a best-effort answer over an empty context.
func (s *AgentService) Execute(ctx context.Context, task, userID string, scope []string) (*TaskResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "AgentService.Execute", telemetry.SpanAttributes{
		UserID:    userID,
		Operation: "task",
	})
	defer span.End()

	result := &TaskResult{Task: strings.TrimSpace(task), Status: domain.TaskStatusReceived}

	collections, err := s.resolveScope(ctx, userID, scope)
	if err != nil {
		return nil, err
	}

	result.Status = domain.TaskStatusPlanning
	plan, err := BuildPlan(task, userID, collections)
	if err != nil {
		return nil, err
	}

	result.Status = domain.TaskStatusExecuting

	var gathered []domain.ScoredRecord
	succeeded := 0
	attempted := 0

	for _, step := range plan.Steps {
		if step.Kind != domain.StepRetrieve {
			continue
		}
		attempted++

		start := time.Now()
		var results []domain.ScoredRecord
		var err error
		if len(step.Collections) > 0 {
			stepCtx, cancel := context.WithTimeout(ctx, s.stepTimeout)
			results, err = s.retrieval.Retrieve(stepCtx, RetrieveInput{
				Query:       step.Query,
				Collections: step.Collections,
				TopK:        DefaultTopK,
				Floor:       -1,
			})
			cancel()
		}

		trace := domain.StepTrace{
			Kind:     domain.StepRetrieve,
			Query:    step.Query,
			Duration: time.Since(start).Milliseconds(),
		}
		if err != nil {
			trace.Error = err.Error()
		} else {
			trace.Sources = Sources(results)
			gathered = append(gathered, results...)
			succeeded++
		}
		result.Trace = append(result.Trace, trace)
	}

	if attempted > 0 && succeeded == 0 {
		result.Status = domain.TaskStatusFailed
		return result, nil
	}

	gathered = dedupeResults(gathered)
	contextText := s.retrieval.BuildContext(gathered, DefaultContextTokenBudget)

	stepCtx, cancel := context.WithTimeout(ctx, s.stepTimeout)
	start := time.Now()
	answer, err := s.generator.Generate(stepCtx, agentSystemPrompt, buildUserPrompt(contextText, plan.Task))
	cancel()

	trace := domain.StepTrace{
		Kind:     domain.StepGenerate,
		Duration: time.Since(start).Milliseconds(),
	}
	if err != nil {
		trace.Error = err.Error()
		result.Trace = append(result.Trace, trace)
		result.Status = domain.TaskStatusFailed
		return result, nil
	}
	result.Trace = append(result.Trace, trace)

	result.Answer = answer
	result.Sources = Sources(gathered)
	if succeeded < attempted {
		result.Status = domain.TaskStatusFailed
	} else {
		result.Status = domain.TaskStatusDone
	}
	return result, nil
}

// resolveScope intersects the requested scope with the collections the user
// owns. The scope "all" (or an empty scope) means every owned collection,
// which may be none; the task then runs over an empty scope. Naming a
// collection owned by someone else is an authorization failure, not a lookup
// failure, so the caller cannot probe for other users' collections.
func (s *AgentService) resolveScope(ctx context.Context, userID string, scope []string) ([]string, error) {
	all, err := s.vectors.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	owned := make(map[string]bool, len(all))
	var ownedNames []string
	for _, c := range all {
		if c.OwnerUserID == userID {
			owned[c.Name] = true
			ownedNames = append(ownedNames, c.Name)
		}
	}

	wantAll := len(scope) == 0
	for _, name := range scope {
		if name == domain.ScopeAll {
			wantAll = true
		}
	}

	if wantAll {
		return ownedNames, nil
	}

	var resolved []string
	for _, name := range scope {
		if !owned[name] {
			return nil, domain.ErrAccessDenied
		}
		resolved = append(resolved, name)
	}
	return resolved, nil
}
