package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/pagination"
)

const testToken = "vrg_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestAuthService_CreateUser(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	keyRepo := new(MockAPIKeyRepository)

	userRepo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.ID == "user-123" && u.Email == "ada@example.com" && u.Name == "Ada"
	})).Return(nil)

	svc := NewAuthService(userRepo, keyRepo, NewMockUUIDGenerator("user-123"))
	user, err := svc.CreateUser(ctx, "  Ada@Example.com ", " Ada ")

	require.NoError(t, err)
	assert.Equal(t, "user-123", user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	userRepo.AssertExpectations(t)
}

func TestAuthService_CreateUser_EmptyEmail(t *testing.T) {
	svc := NewAuthService(new(MockUserRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	_, err := svc.CreateUser(context.Background(), "  ", "Ada")

	require.Error(t, err)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
}

func TestAuthService_CreateUser_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	userRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrUserAlreadyExists)

	svc := NewAuthService(userRepo, new(MockAPIKeyRepository), NewMockUUIDGenerator("user-1"))
	_, err := svc.CreateUser(ctx, "ada@example.com", "")

	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestAuthService_CreateAPIKey_GeneratesVrgToken(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	keyRepo := new(MockAPIKeyRepository)

	userRepo.On("GetByID", mock.Anything, "user-1").Return(&domain.User{ID: "user-1", Email: "a@b.c"}, nil)
	var stored *domain.APIKey
	keyRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.APIKey")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.APIKey) }).
		Return(nil)

	svc := NewAuthService(userRepo, keyRepo, NewMockUUIDGenerator("key-1"))
	token, err := svc.CreateAPIKey(ctx, "user-1", "ci")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "vrg_"))
	assert.True(t, IsValidAPIToken(token))

	require.NotNil(t, stored)
	sum := sha256.Sum256([]byte(token))
	assert.Equal(t, hex.EncodeToString(sum[:]), stored.KeyHash)
	assert.Equal(t, "user-1", stored.UserID)
	assert.Equal(t, "key-1", stored.ID)
}

func TestAuthService_CreateAPIKey_UnknownUser(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	keyRepo := new(MockAPIKeyRepository)
	userRepo.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrUserNotFound)

	svc := NewAuthService(userRepo, keyRepo, NewMockUUIDGenerator())
	_, err := svc.CreateAPIKey(ctx, "missing", "ci")

	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	keyRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAuthService_CreateAPIKey_Validation(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		key    string
	}{
		{name: "empty user", userID: "", key: "ci"},
		{name: "empty name", userID: "user-1", key: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthService(new(MockUserRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())
			_, err := svc.CreateAPIKey(context.Background(), tt.userID, tt.key)
			require.Error(t, err)
			assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
		})
	}
}

func TestAuthService_ValidateAPIKey(t *testing.T) {
	revokedAt := time.Now()

	tests := []struct {
		name    string
		token   string
		key     *domain.APIKey
		repoErr error
		want    string
		wantErr error
	}{
		{
			name:  "valid",
			token: testToken,
			key:   &domain.APIKey{ID: "k1", UserID: "user-1"},
			want:  "user-1",
		},
		{
			name:    "malformed",
			token:   "abc_abc",
			wantErr: domain.ErrInvalidAPIKey,
		},
		{
			name:    "unknown",
			token:   testToken,
			repoErr: domain.ErrAPIKeyNotFound,
			wantErr: domain.ErrInvalidAPIKey,
		},
		{
			name:    "revoked",
			token:   testToken,
			key:     &domain.APIKey{ID: "k1", UserID: "user-1", RevokedAt: &revokedAt},
			wantErr: domain.ErrAPIKeyRevoked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			keyRepo := new(MockAPIKeyRepository)
			if tt.key != nil || tt.repoErr != nil {
				keyRepo.On("GetByHash", mock.Anything, hashToken(tt.token)).Return(tt.key, tt.repoErr)
			}

			svc := NewAuthService(new(MockUserRepository), keyRepo, NewMockUUIDGenerator())
			userID, err := svc.ValidateAPIKey(ctx, tt.token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, userID)
		})
	}
}

func TestAuthService_RevokeAPIKey(t *testing.T) {
	ctx := context.Background()
	keyRepo := new(MockAPIKeyRepository)
	keyRepo.On("Revoke", mock.Anything, "key-1").Return(nil)

	svc := NewAuthService(new(MockUserRepository), keyRepo, NewMockUUIDGenerator())

	require.NoError(t, svc.RevokeAPIKey(ctx, "key-1"))
	assert.Error(t, svc.RevokeAPIKey(ctx, ""))
	keyRepo.AssertExpectations(t)
}

func TestAuthService_RevokeOwnAPIKey(t *testing.T) {
	ctx := context.Background()
	keyRepo := new(MockAPIKeyRepository)
	keyRepo.On("GetByID", mock.Anything, "key-1").Return(&domain.APIKey{ID: "key-1", UserID: "user-1"}, nil)
	keyRepo.On("Revoke", mock.Anything, "key-1").Return(nil).Once()

	svc := NewAuthService(new(MockUserRepository), keyRepo, NewMockUUIDGenerator())

	err := svc.RevokeOwnAPIKey(ctx, "user-2", "key-1")
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)

	require.NoError(t, svc.RevokeOwnAPIKey(ctx, "user-1", "key-1"))
	keyRepo.AssertExpectations(t)
}

func TestAuthService_ListAPIKeys(t *testing.T) {
	ctx := context.Background()
	keyRepo := new(MockAPIKeyRepository)
	page := &pagination.PageResult[*domain.APIKey]{Items: []*domain.APIKey{{ID: "k1"}}}
	keyRepo.On("ListByUserWithCursor", mock.Anything, "user-1", (*pagination.Cursor)(nil), 10).Return(page, nil)

	svc := NewAuthService(new(MockUserRepository), keyRepo, NewMockUUIDGenerator())
	got, err := svc.ListAPIKeys(ctx, "user-1", "", 10)

	require.NoError(t, err)
	assert.Len(t, got.Items, 1)

	_, err = svc.ListAPIKeys(ctx, "user-1", "%%%", 10)
	assert.Equal(t, domain.ErrCodeValidation, domain.CodeOf(err))
}

func TestAuthService_CreateAPIKeyWithToken(t *testing.T) {
	ctx := context.Background()
	userRepo := new(MockUserRepository)
	keyRepo := new(MockAPIKeyRepository)
	userRepo.On("GetByID", mock.Anything, "user-1").Return(&domain.User{ID: "user-1"}, nil)
	keyRepo.On("Create", mock.Anything, mock.MatchedBy(func(k *domain.APIKey) bool {
		return k.KeyHash == hashToken(testToken)
	})).Return(nil)

	svc := NewAuthService(userRepo, keyRepo, NewMockUUIDGenerator("key-1"))

	require.NoError(t, svc.CreateAPIKeyWithToken(ctx, "user-1", "seed", testToken))
	assert.Error(t, svc.CreateAPIKeyWithToken(ctx, "user-1", "seed", "vrg_short"))
	keyRepo.AssertExpectations(t)
}

func TestIsValidAPIToken(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{testToken, true},
		{strings.ToUpper(testToken[:4]) + testToken[4:], false},
		{"vrg_" + strings.Repeat("A", 64), true},
		{"vrg_" + strings.Repeat("g", 64), false},
		{"vrg_" + strings.Repeat("a", 63), false},
		{"abc_" + strings.Repeat("a", 64), false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidAPIToken(tt.token), tt.token)
	}
}
