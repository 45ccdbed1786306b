package handlers

import (
	"context"
	"net/http"

	"github.com/archivist-ai/archivist/internal/api"
	"github.com/archivist-ai/archivist/internal/api/middleware"
	"github.com/archivist-ai/archivist/internal/domain"
)

type CollectionLister interface {
	ListCollections(ctx context.Context) ([]domain.Collection, error)
}

type CollectionHandler struct {
	store CollectionLister
}

func NewCollectionHandler(store CollectionLister) *CollectionHandler {
	return &CollectionHandler{store: store}
}

type CollectionResponse struct {
	Name        string `json:"name"`
	RecordCount int    `json:"record_count"`
	CreatedAt   string `json:"created_at"`
}

type CollectionListResponse struct {
	Items []*CollectionResponse `json:"items"`
}

// List returns the caller's collections. Other users' collections are never
// listed.
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	collections, err := h.store.ListCollections(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*CollectionResponse, 0, len(collections))
	for _, c := range collections {
		if c.OwnerUserID != userID {
			continue
		}
		items = append(items, &CollectionResponse{
			Name:        c.Name,
			RecordCount: c.RecordCount,
			CreatedAt:   c.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	api.Success(w, http.StatusOK, CollectionListResponse{Items: items})
}
