package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/archivist-ai/archivist/internal/api"
	"github.com/archivist-ai/archivist/internal/api/middleware"
	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/service"
)

type AgentServiceInterface interface {
	Execute(ctx context.Context, task, userID string, scope []string) (*service.TaskResult, error)
}

type TaskHandler struct {
	svc AgentServiceInterface
}

func NewTaskHandler(svc AgentServiceInterface) *TaskHandler {
	return &TaskHandler{svc: svc}
}

type TaskRequest struct {
	Task  string   `json:"task"`
	Scope []string `json:"scope"`
}

type StepTraceResponse struct {
	Kind       string   `json:"kind"`
	Query      string   `json:"query,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

type TaskResponse struct {
	Task    string              `json:"task"`
	Status  string              `json:"status"`
	Answer  string              `json:"answer,omitempty"`
	Sources []string            `json:"sources,omitempty"`
	Trace   []StepTraceResponse `json:"trace"`
}

func taskToResponse(result *service.TaskResult) *TaskResponse {
	trace := make([]StepTraceResponse, len(result.Trace))
	for i, step := range result.Trace {
		trace[i] = StepTraceResponse{
			Kind:       string(step.Kind),
			Query:      step.Query,
			Sources:    step.Sources,
			Error:      step.Error,
			DurationMS: step.Duration,
		}
	}
	return &TaskResponse{
		Task:    result.Task,
		Status:  string(result.Status),
		Answer:  result.Answer,
		Sources: result.Sources,
		Trace:   trace,
	}
}

func (h *TaskHandler) Execute(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Task == "" {
		api.Error(w, http.StatusBadRequest, "task is required")
		return
	}

	result, err := h.svc.Execute(r.Context(), req.Task, userID, req.Scope)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	status := http.StatusOK
	if result.Status == domain.TaskStatusFailed {
		status = http.StatusBadGateway
	}

	api.JSON(w, status, api.SuccessResponse{Data: taskToResponse(result)})
}
