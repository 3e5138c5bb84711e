package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/voicerag/internal/api"
	"github.com/cloo-solutions/voicerag/internal/api/middleware"
	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/pagination"
	"github.com/cloo-solutions/voicerag/internal/service"
)

const testUserID = "user-456"

type MockOwnershipChecker struct {
	mock.Mock
}

func (m *MockOwnershipChecker) AuthorizeAgent(ctx context.Context, userID, agentID string) (*domain.Agent, error) {
	args := m.Called(ctx, userID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agent), args.Error(1)
}

func (m *MockOwnershipChecker) AuthorizeKnowledgeBase(ctx context.Context, userID, knowledgeBaseID string) (*domain.KnowledgeBase, error) {
	args := m.Called(ctx, userID, knowledgeBaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeBase), args.Error(1)
}

type MockCatalogService struct {
	MockOwnershipChecker
}

func (m *MockCatalogService) CreateAgent(ctx context.Context, userID, name, description string) (*domain.Agent, error) {
	args := m.Called(ctx, userID, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agent), args.Error(1)
}

func (m *MockCatalogService) ListAgents(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.Agent], error) {
	args := m.Called(ctx, userID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.Agent]), args.Error(1)
}

func (m *MockCatalogService) CreateKnowledgeBase(ctx context.Context, userID, name, description string) (*domain.KnowledgeBase, error) {
	args := m.Called(ctx, userID, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeBase), args.Error(1)
}

func (m *MockCatalogService) ListKnowledgeBases(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.KnowledgeBase], error) {
	args := m.Called(ctx, userID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.KnowledgeBase]), args.Error(1)
}

type MockMemoryService struct {
	mock.Mock
}

func (m *MockMemoryService) Save(ctx context.Context, input service.SaveMemoryInput) (*domain.MemoryRecord, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MemoryRecord), args.Error(1)
}

func (m *MockMemoryService) Query(ctx context.Context, agentID, userID, query string, limit int) ([]domain.MemoryResult, error) {
	args := m.Called(ctx, agentID, userID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MemoryResult), args.Error(1)
}

func (m *MockMemoryService) Clear(ctx context.Context, agentID, userID string) (int, error) {
	args := m.Called(ctx, agentID, userID)
	return args.Int(0), args.Error(1)
}

type MockKnowledgeQueryService struct {
	mock.Mock
}

func (m *MockKnowledgeQueryService) QueryKnowledgeBase(ctx context.Context, knowledgeBaseID, query string, limit int) ([]domain.KnowledgeResult, error) {
	args := m.Called(ctx, knowledgeBaseID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.KnowledgeResult), args.Error(1)
}

func (m *MockKnowledgeQueryService) GenerateRAGResponse(ctx context.Context, input service.GenerateInput) (*domain.RAGResponse, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RAGResponse), args.Error(1)
}

type MockQueryLogService struct {
	mock.Mock
}

func (m *MockQueryLogService) List(ctx context.Context, knowledgeBaseID, cursor string, limit int) (*pagination.PageResult[*domain.RAGQueryLog], error) {
	args := m.Called(ctx, knowledgeBaseID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.RAGQueryLog]), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, input service.UploadInput) (*domain.Document, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) AddText(ctx context.Context, userID, knowledgeBaseID, title, text string) (*domain.Document, error) {
	args := m.Called(ctx, userID, knowledgeBaseID, title, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, knowledgeBaseID, documentID string) (*domain.Document, error) {
	args := m.Called(ctx, knowledgeBaseID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, knowledgeBaseID, cursor string, limit int) (*pagination.PageResult[*domain.Document], error) {
	args := m.Called(ctx, knowledgeBaseID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.Document]), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) CreateAPIKey(ctx context.Context, userID, name string) (string, error) {
	args := m.Called(ctx, userID, name)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) ListAPIKeys(ctx context.Context, userID, cursor string, limit int) (*pagination.PageResult[*domain.APIKey], error) {
	args := m.Called(ctx, userID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.APIKey]), args.Error(1)
}

func (m *MockAuthService) RevokeOwnAPIKey(ctx context.Context, userID, keyID string) error {
	args := m.Called(ctx, userID, keyID)
	return args.Error(0)
}

// authedRequest builds a request as the auth middleware would leave it,
// with optional chi URL params given as key/value pairs.
func authedRequest(method, url string, body []byte, params ...string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), testUserID)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}
