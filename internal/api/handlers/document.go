package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/archivist-ai/archivist/internal/api"
	"github.com/archivist-ai/archivist/internal/api/middleware"
	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/service"
)

type IngestionServiceInterface interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
	IngestAsync(ctx context.Context, input service.IngestInput) (*service.IngestAsyncResult, error)
	GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error)
	ListDocuments(ctx context.Context, userID, collection string) ([]*domain.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID string) error
}

type DocumentHandler struct {
	svc IngestionServiceInterface
}

func NewDocumentHandler(svc IngestionServiceInterface) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type IngestDocumentRequest struct {
	Collection string `json:"collection"`
	Title      string `json:"title"`
	Format     string `json:"format"`
	Content    string `json:"content"`
	// ContentBase64 carries binary formats (pdf, docx) that cannot be
	// embedded in a JSON string directly.
	ContentBase64 string `json:"content_base64,omitempty"`
}

type DocumentResponse struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Title      string `json:"title"`
	Format     string `json:"format"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:         d.ID,
		Collection: d.Collection,
		Title:      d.Title,
		Format:     string(d.Format),
		Status:     string(d.Status),
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *DocumentHandler) decodeIngestRequest(w http.ResponseWriter, r *http.Request) (*service.IngestInput, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	var req IngestDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	if req.Collection == "" {
		api.Error(w, http.StatusBadRequest, "collection is required")
		return nil, false
	}
	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return nil, false
	}
	if req.Content == "" && req.ContentBase64 == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return nil, false
	}

	content := []byte(req.Content)
	if req.ContentBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ContentBase64)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "content_base64 is not valid base64")
			return nil, false
		}
		content = decoded
	}

	return &service.IngestInput{
		Collection:  req.Collection,
		Title:       req.Title,
		Format:      req.Format,
		Content:     content,
		OwnerUserID: userID,
	}, true
}

type IngestResponse struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
}

func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeIngestRequest(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Ingest(r.Context(), *input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, IngestResponse{
		DocumentID: result.DocumentID,
		ChunkCount: result.ChunkCount,
	})
}

type IngestAsyncResponse struct {
	DocumentID string `json:"document_id"`
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
}

func (h *DocumentHandler) IngestAsync(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeIngestRequest(w, r)
	if !ok {
		return
	}

	result, err := h.svc.IngestAsync(r.Context(), *input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, IngestAsyncResponse{
		DocumentID: result.DocumentID,
		JobID:      result.JobID,
		Status:     string(domain.DocumentStatusPending),
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

type DocumentListResponse struct {
	Items []*DocumentResponse `json:"items"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	collection := r.URL.Query().Get("collection")
	if collection == "" {
		api.Error(w, http.StatusBadRequest, "collection is required")
		return
	}

	docs, err := h.svc.ListDocuments(r.Context(), userID, collection)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*DocumentResponse, len(docs))
	for i, d := range docs {
		responses[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{Items: responses})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeleteDocument(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}
