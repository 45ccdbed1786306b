package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/archivist-ai/archivist/internal/api"
	"github.com/archivist-ai/archivist/internal/api/middleware"
	"github.com/archivist-ai/archivist/internal/service"
)

type QueryServiceInterface interface {
	Query(ctx context.Context, input service.QueryInput) (*service.QueryResult, error)
}

type QueryHandler struct {
	svc QueryServiceInterface
}

func NewQueryHandler(svc QueryServiceInterface) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequest struct {
	Question    string   `json:"question"`
	Collections []string `json:"collections"`
	Mode        string   `json:"mode"`
	TopK        int      `json:"top_k"`
}

type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
	Mode    string   `json:"mode"`
}

func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}
	if len(req.Collections) == 0 {
		api.Error(w, http.StatusBadRequest, "collections is required")
		return
	}

	mode, err := service.ParseAnswerMode(req.Mode)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.Query(r.Context(), service.QueryInput{
		Question:    req.Question,
		Collections: req.Collections,
		Mode:        mode,
		TopK:        req.TopK,
		OwnerUserID: userID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	sources := result.Sources
	if sources == nil {
		sources = []string{}
	}

	api.Success(w, http.StatusOK, QueryResponse{
		Answer:  result.Answer,
		Sources: sources,
		Mode:    string(result.Mode),
	})
}
