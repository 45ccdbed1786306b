package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/archivist-ai/archivist/internal/api/middleware"
	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/service"
)

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

func (m *MockIngestionService) IngestAsync(ctx context.Context, input service.IngestInput) (*service.IngestAsyncResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestAsyncResult), args.Error(1)
}

func (m *MockIngestionService) GetDocument(ctx context.Context, userID, documentID string) (*domain.Document, error) {
	args := m.Called(ctx, userID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockIngestionService) ListDocuments(ctx context.Context, userID, collection string) ([]*domain.Document, error) {
	args := m.Called(ctx, userID, collection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

func (m *MockIngestionService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	args := m.Called(ctx, userID, documentID)
	return args.Error(0)
}

func newTestDocument() *domain.Document {
	now := time.Now().UTC()
	return &domain.Document{
		ID:         "doc-123",
		Collection: "brochures",
		Title:      "SolarX Brochure",
		Format:     domain.FormatTXT,
		Status:     domain.DocumentStatusReady,
		ChunkCount: 3,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func requestWithUserID(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, "user-456")
	return req.WithContext(ctx)
}

func TestDocumentHandler_Ingest_Success(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Ingest", mock.Anything, mock.MatchedBy(func(input service.IngestInput) bool {
		return input.Collection == "brochures" &&
			input.Title == "SolarX Brochure" &&
			input.OwnerUserID == "user-456"
	})).Return(&service.IngestResult{DocumentID: "doc-123", ChunkCount: 3}, nil)

	body := `{"collection":"brochures","title":"SolarX Brochure","format":"txt","content":"SolarX panels produce 400W each."}`
	req := requestWithUserID(http.MethodPost, "/documents", []byte(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "doc-123")
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Ingest_Base64Content(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	raw := []byte("%PDF-1.4 binary payload")
	mockSvc.On("Ingest", mock.Anything, mock.MatchedBy(func(input service.IngestInput) bool {
		return bytes.Equal(input.Content, raw)
	})).Return(&service.IngestResult{DocumentID: "doc-123", ChunkCount: 1}, nil)

	body := `{"collection":"brochures","title":"Spec Sheet","format":"pdf","content_base64":"` +
		base64.StdEncoding.EncodeToString(raw) + `"}`
	req := requestWithUserID(http.MethodPost, "/documents", []byte(body))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Ingest_InvalidBase64(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	body := `{"collection":"brochures","title":"Spec Sheet","format":"pdf","content_base64":"not-base64!!"}`
	req := requestWithUserID(http.MethodPost, "/documents", []byte(body))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "content_base64")
	mockSvc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestDocumentHandler_Ingest_MissingFields(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing collection", `{"title":"T","format":"txt","content":"x"}`, "collection is required"},
		{"missing title", `{"collection":"c","format":"txt","content":"x"}`, "title is required"},
		{"missing content", `{"collection":"c","title":"T","format":"txt"}`, "content is required"},
		{"invalid json", `{`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithUserID(http.MethodPost, "/documents", []byte(tt.body))
			w := httptest.NewRecorder()

			handler.Ingest(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
	mockSvc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestDocumentHandler_Ingest_Unauthorized(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocumentHandler_Ingest_UnsupportedFormat(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("Ingest", mock.Anything, mock.Anything).Return(nil, domain.ErrUnsupportedFormat)

	body := `{"collection":"brochures","title":"T","format":"csv","content":"a,b"}`
	req := requestWithUserID(http.MethodPost, "/documents", []byte(body))
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestDocumentHandler_IngestAsync_Success(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("IngestAsync", mock.Anything, mock.Anything).
		Return(&service.IngestAsyncResult{DocumentID: "doc-123", JobID: "job-1"}, nil)

	body := `{"collection":"brochures","title":"T","format":"txt","content":"text"}`
	req := requestWithUserID(http.MethodPost, "/documents/async", []byte(body))
	w := httptest.NewRecorder()

	handler.IngestAsync(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "job-1")
	assert.Contains(t, w.Body.String(), "pending")
}

func TestDocumentHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("GetDocument", mock.Anything, "user-456", "doc-123").Return(newTestDocument(), nil)

	req := requestWithUserID(http.MethodGet, "/documents/doc-123", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "doc-123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data DocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "doc-123", resp.Data.ID)
	assert.Equal(t, 3, resp.Data.ChunkCount)
	assert.Equal(t, "ready", resp.Data.Status)
}

func TestDocumentHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("GetDocument", mock.Anything, "user-456", "missing").Return(nil, domain.ErrDocumentNotFound)

	req := requestWithUserID(http.MethodGet, "/documents/missing", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "missing")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_List_Success(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("ListDocuments", mock.Anything, "user-456", "brochures").
		Return([]*domain.Document{newTestDocument()}, nil)

	req := requestWithUserID(http.MethodGet, "/documents?collection=brochures", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SolarX Brochure")
}

func TestDocumentHandler_List_MissingCollection(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	req := requestWithUserID(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "collection is required")
}

func TestDocumentHandler_Delete_Success(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("DeleteDocument", mock.Anything, "user-456", "doc-123").Return(nil)

	req := requestWithUserID(http.MethodDelete, "/documents/doc-123", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "doc-123")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deleted")
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Delete_ForeignCollection(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	mockSvc.On("DeleteDocument", mock.Anything, "user-456", "doc-999").Return(domain.ErrAccessDenied)

	req := requestWithUserID(http.MethodDelete, "/documents/doc-999", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "doc-999")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDocumentHandler_Get_Unauthorized(t *testing.T) {
	mockSvc := new(MockIngestionService)
	handler := NewDocumentHandler(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-123", nil)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockSvc.AssertNotCalled(t, "GetDocument", mock.Anything, mock.Anything, mock.Anything)
}
