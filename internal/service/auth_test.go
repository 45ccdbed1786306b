package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/archivist-ai/archivist/internal/domain"
)

// MockUserRepository is a mock for UserRepositoryInterface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

// MockAPIKeyRepository is a mock for APIKeyRepositoryInterface
type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) ListByUser(ctx context.Context, userID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newAuthFixture() (*AuthService, *MockUserRepository, *MockAPIKeyRepository) {
	users := new(MockUserRepository)
	keys := new(MockAPIKeyRepository)
	return NewAuthService(users, keys, &seqUUIDGenerator{}), users, keys
}

func TestAuthService_CreateUser(t *testing.T) {
	svc, users, _ := newAuthFixture()
	ctx := context.Background()

	users.On("GetByName", ctx, "alice").Return(nil, domain.ErrUserNotFound)
	users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Name == "alice" && u.ID != ""
	})).Return(nil)

	user, err := svc.CreateUser(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
	users.AssertExpectations(t)
}

func TestAuthService_CreateUser_Duplicate(t *testing.T) {
	svc, users, _ := newAuthFixture()
	ctx := context.Background()

	users.On("GetByName", ctx, "alice").Return(&domain.User{ID: "u1", Name: "alice"}, nil)

	_, err := svc.CreateUser(ctx, "alice")

	assert.Equal(t, domain.ErrUserAlreadyExists, err)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_CreateUser_EmptyName(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, err := svc.CreateUser(context.Background(), "")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestAuthService_CreateAPIKey_ReturnsPlaintextOnce(t *testing.T) {
	svc, users, keys := newAuthFixture()
	ctx := context.Background()

	users.On("GetByID", ctx, "u1").Return(&domain.User{ID: "u1", Name: "alice"}, nil)

	var storedHash string
	keys.On("Create", ctx, mock.MatchedBy(func(k *domain.APIKey) bool {
		storedHash = k.KeyHash
		return k.UserID == "u1" && k.Name == "laptop" && k.RevokedAt == nil
	})).Return(nil)

	token, err := svc.CreateAPIKey(ctx, "u1", "laptop")

	require.NoError(t, err)
	assert.True(t, IsValidAPIToken(token))
	assert.Equal(t, hashToken(token), storedHash, "only the hash is persisted")
	assert.NotEqual(t, token, storedHash)
	keys.AssertExpectations(t)
}

func TestAuthService_CreateAPIKey_UnknownUser(t *testing.T) {
	svc, users, keys := newAuthFixture()
	ctx := context.Background()

	users.On("GetByID", ctx, "ghost").Return(nil, domain.ErrUserNotFound)

	_, err := svc.CreateAPIKey(ctx, "ghost", "laptop")

	assert.Equal(t, domain.ErrUserNotFound, err)
	keys.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_ValidateAPIKey(t *testing.T) {
	svc, users, keys := newAuthFixture()
	ctx := context.Background()

	users.On("GetByID", ctx, "u1").Return(&domain.User{ID: "u1", Name: "alice"}, nil)

	var issued *domain.APIKey
	keys.On("Create", ctx, mock.MatchedBy(func(k *domain.APIKey) bool {
		issued = k
		return true
	})).Return(nil)

	token, err := svc.CreateAPIKey(ctx, "u1", "laptop")
	require.NoError(t, err)

	keys.On("GetByHash", ctx, issued.KeyHash).Return(issued, nil)

	userID, err := svc.ValidateAPIKey(ctx, token)

	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestAuthService_ValidateAPIKey_BadFormat(t *testing.T) {
	svc, _, keys := newAuthFixture()

	for _, token := range []string{
		"",
		"arc_",
		"arc_tooshort",
		"sk_" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		"arc_" + "zzzz456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
	} {
		_, err := svc.ValidateAPIKey(context.Background(), token)
		assert.Equal(t, domain.ErrInvalidAPIKey, err, "token %q", token)
	}
	keys.AssertNotCalled(t, "GetByHash", mock.Anything, mock.Anything)
}

func TestAuthService_ValidateAPIKey_UnknownToken(t *testing.T) {
	svc, _, keys := newAuthFixture()
	ctx := context.Background()

	token := apiKeyPrefix + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	keys.On("GetByHash", ctx, hashToken(token)).Return(nil, domain.ErrAPIKeyNotFound)

	_, err := svc.ValidateAPIKey(ctx, token)

	assert.Equal(t, domain.ErrInvalidAPIKey, err)
}

func TestAuthService_ValidateAPIKey_Revoked(t *testing.T) {
	svc, _, keys := newAuthFixture()
	ctx := context.Background()

	token := apiKeyPrefix + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	revokedAt := time.Now().UTC()
	keys.On("GetByHash", ctx, hashToken(token)).Return(&domain.APIKey{
		ID:        "k1",
		UserID:    "u1",
		Name:      "laptop",
		KeyHash:   hashToken(token),
		CreatedAt: revokedAt.Add(-time.Hour),
		RevokedAt: &revokedAt,
	}, nil)

	_, err := svc.ValidateAPIKey(ctx, token)

	assert.Equal(t, domain.ErrAPIKeyRevoked, err)
}

func TestAuthService_RevokeAPIKey(t *testing.T) {
	svc, _, keys := newAuthFixture()
	ctx := context.Background()

	keys.On("Revoke", ctx, "k1").Return(nil)

	require.NoError(t, svc.RevokeAPIKey(ctx, "k1"))
	keys.AssertExpectations(t)

	err := svc.RevokeAPIKey(ctx, "")
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestGenerateAPIToken_Format(t *testing.T) {
	a, err := generateAPIToken()
	require.NoError(t, err)
	b, err := generateAPIToken()
	require.NoError(t, err)

	assert.True(t, IsValidAPIToken(a))
	assert.True(t, IsValidAPIToken(b))
	assert.NotEqual(t, a, b)
}
