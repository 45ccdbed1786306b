package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/archivist-ai/archivist/internal/domain"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) CreateUser(ctx context.Context, name string) (*domain.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockAuthService) CreateAPIKey(ctx context.Context, userID, name string) (string, error) {
	args := m.Called(ctx, userID, name)
	return args.String(0), args.Error(1)
}

func TestAuthHandler_CreateUser_Success(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	mockSvc.On("CreateUser", mock.Anything, "alice").Return(&domain.User{
		ID:        "user-1",
		Name:      "alice",
		CreatedAt: time.Now().UTC(),
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader([]byte(`{"name":"alice"}`)))
	w := httptest.NewRecorder()

	handler.CreateUser(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
	mockSvc.AssertExpectations(t)
}

func TestAuthHandler_CreateUser_Duplicate(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	mockSvc.On("CreateUser", mock.Anything, "alice").Return(nil, domain.ErrUserAlreadyExists)

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader([]byte(`{"name":"alice"}`)))
	w := httptest.NewRecorder()

	handler.CreateUser(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_CreateUser_MissingName(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.CreateUser(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestAuthHandler_CreateAPIKey_Success(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	mockSvc.On("CreateAPIKey", mock.Anything, "user-1", "laptop").
		Return("arc_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", nil)

	body := `{"user_id":"user-1","name":"laptop"}`
	req := httptest.NewRequest(http.MethodPost, "/apikeys", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.CreateAPIKey(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "arc_")
	mockSvc.AssertExpectations(t)
}

func TestAuthHandler_CreateAPIKey_UnknownUser(t *testing.T) {
	mockSvc := new(MockAuthService)
	handler := NewAuthHandler(mockSvc)

	mockSvc.On("CreateAPIKey", mock.Anything, "ghost", "laptop").Return("", domain.ErrUserNotFound)

	body := `{"user_id":"ghost","name":"laptop"}`
	req := httptest.NewRequest(http.MethodPost, "/apikeys", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.CreateAPIKey(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
