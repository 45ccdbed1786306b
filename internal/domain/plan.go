package domain

import "fmt"

// TaskStatus tracks a task request through its lifecycle.
type TaskStatus string

const (
	TaskStatusReceived  TaskStatus = "received"
	TaskStatusPlanning  TaskStatus = "planning"
	TaskStatusExecuting TaskStatus = "executing"
	TaskStatusDone      TaskStatus = "done"
	TaskStatusFailed    TaskStatus = "failed"
)

// StepKind is the type of a plan step.
type StepKind string

const (
	StepRetrieve StepKind = "retrieve"
	StepGenerate StepKind = "generate"
)

// PlanStep is a single action of a plan: either a retrieval against a
// collection scope or a generation over previously retrieved context.
type PlanStep struct {
	Kind        StepKind
	Query       string
	Collections []string
	Prompt      string
}

// Plan is the ordered sequence of steps the task agent executes for one
// request. Plans are scoped to one user's collections and never persisted.
type Plan struct {
	Task   string
	UserID string
	Steps  []PlanStep
}

// ValidatePlan validates a Plan instance
func ValidatePlan(p *Plan) error {
	if p == nil {
		return fmt.Errorf("plan cannot be nil")
	}
	if p.UserID == "" {
		return fmt.Errorf("plan UserID is required")
	}
	if len(p.Steps) == 0 {
		return ErrPlanningFailed
	}
	for i, step := range p.Steps {
		if !isValidStepKind(step.Kind) {
			return fmt.Errorf("plan step %d has invalid kind: %s", i, step.Kind)
		}
		if step.Kind == StepRetrieve && step.Query == "" {
			return fmt.Errorf("plan step %d: retrieve step requires a query", i)
		}
	}
	return nil
}

func isValidStepKind(k StepKind) bool {
	switch k {
	case StepRetrieve, StepGenerate:
		return true
	}
	return false
}

// StepTrace records the outcome of one executed plan step for debuggability.
type StepTrace struct {
	Kind     StepKind
	Query    string
	Sources  []string
	Error    string
	Duration int64
}
