//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/voicerag/internal/api/handlers"
	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/embedding"
	"github.com/cloo-solutions/voicerag/internal/extract"
	"github.com/cloo-solutions/voicerag/internal/jobs"
	"github.com/cloo-solutions/voicerag/internal/repository"
	"github.com/cloo-solutions/voicerag/internal/server"
	"github.com/cloo-solutions/voicerag/internal/service"
	"github.com/cloo-solutions/voicerag/internal/storage"
	"github.com/cloo-solutions/voicerag/internal/testutil"
)

const embeddingDimensions = 256

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	S3C        *testutil.S3Container
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	ServerURL  string
	Auth       *service.AuthService
	Knowledge  *service.KnowledgeQueryService
	Ingestion  *jobs.IngestionWorker
	Generator  *recordingGenerator
	UserID     string
	AuthToken  string
	HTTPClient *http.Client
}

// recordingGenerator answers with a fixed string and keeps the prompts it saw.
type recordingGenerator struct {
	mu      sync.Mutex
	answer  string
	prompts []domain.Prompt
}

func (g *recordingGenerator) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.answer, nil
}

func (g *recordingGenerator) LastPrompt() domain.Prompt {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return domain.Prompt{}
	}
	return g.prompts[len(g.prompts)-1]
}

// SetupE2EEnv starts Postgres and an S3-compatible store and serves the full
// router against them. Embeddings use the hashing embedder so no provider
// credentials are needed.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewS3Container(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	blobs, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.S3AccessKey,
		SecretAccessKey: testutil.S3SecretKey,
		Bucket:          "e2e-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	embedder := embedding.NewHashingEmbedder(embeddingDimensions)
	index := repository.NewVectorIndex(pool, "e2e")
	generator := &recordingGenerator{answer: "We open at nine in the morning."}
	uuidGen := &service.DefaultUUIDGenerator{}

	documentRepo := repository.NewDocumentRepository(pool)
	jobRepo := repository.NewIngestionJobRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)

	authSvc := service.NewAuthService(repository.NewUserRepository(pool), repository.NewAPIKeyRepository(pool), uuidGen)
	catalogSvc := service.NewCatalogService(repository.NewAgentRepository(pool), repository.NewKnowledgeBaseRepository(pool), uuidGen)
	extractor := extract.NewExtractor()
	memorySvc := service.NewMemoryService(embedder, index, service.MemoryConfig{})
	knowledgeSvc := service.NewKnowledgeQueryService(embedder, index, generator, queryLogRepo, service.DefaultKnowledgeQueryConfig())
	documentSvc := service.NewDocumentService(documentRepo, jobRepo, blobs, extractor, repository.NewTxRunner(pool), 0)
	ingestionSvc := service.NewIngestionService(documentRepo, blobs, extractor, embedder, index, service.DefaultChunkConfig())

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:    authSvc,
		MemoryHandler:    handlers.NewMemoryHandler(memorySvc, catalogSvc),
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc, service.NewQueryLogService(queryLogRepo), catalogSvc),
		CatalogHandler:   handlers.NewCatalogHandler(catalogSvc),
		DocumentHandler:  handlers.NewDocumentHandler(documentSvc, catalogSvc),
		AuthHandler:      handlers.NewAuthHandler(authSvc),
		Health:           pool,
	})
	srv := httptest.NewServer(router)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		S3C:        s3C,
		Pool:       pool,
		Server:     srv,
		ServerURL:  srv.URL,
		Auth:       authSvc,
		Knowledge:  knowledgeSvc,
		Ingestion:  jobs.NewIngestionWorker(jobRepo, ingestionSvc, nil),
		Generator:  generator,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.Knowledge != nil {
		ctx, cancel := context.WithTimeout(e.Ctx, 5*time.Second)
		_ = e.Knowledge.Drain(ctx)
		cancel()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.S3C != nil {
		_ = e.S3C.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		_ = e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap creates a user with an API key and makes it the default caller.
func (e *E2ETestEnv) Bootstrap() {
	e.UserID, e.AuthToken = e.NewCaller(fmt.Sprintf("owner-%d@example.com", time.Now().UnixNano()))
}

// NewCaller creates a user and returns its ID and a fresh API token.
func (e *E2ETestEnv) NewCaller(email string) (string, string) {
	user, err := e.Auth.CreateUser(e.Ctx, email, "E2E")
	if err != nil {
		e.T.Fatalf("failed to create user: %v", err)
	}
	token, err := e.Auth.CreateAPIKey(e.Ctx, user.ID, "e2e")
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}
	return user.ID, token
}

// RunIngestion drains the ingestion queue once.
func (e *E2ETestEnv) RunIngestion() {
	if err := e.Ingestion.ProcessJobs(e.Ctx); err != nil {
		e.T.Fatalf("ingestion failed: %v", err)
	}
}

// APIResponse is the decoded response envelope
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

func (r *APIResponse) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Get performs a GET request with the default caller's token
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.DoAs(e.AuthToken, http.MethodGet, path, nil)
}

// Post performs a POST request with the default caller's token
func (e *E2ETestEnv) Post(path string, body any) (*APIResponse, error) {
	return e.DoAs(e.AuthToken, http.MethodPost, path, body)
}

// Delete performs a DELETE request with the default caller's token
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.DoAs(e.AuthToken, http.MethodDelete, path, nil)
}

// DoAs sends a JSON request authenticated with token. An empty token sends
// no Authorization header. Non-2xx responses are returned as errors along
// with the decoded envelope.
func (e *E2ETestEnv) DoAs(token, method, path string, body any) (*APIResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.ServerURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, token)
}

// Upload posts a multipart document to a knowledge base.
func (e *E2ETestEnv) Upload(knowledgeBaseID, filename, contentType, content string) (*APIResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, strings.NewReader(content)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(e.Ctx, http.MethodPost, e.ServerURL+"/knowledge-bases/"+knowledgeBaseID+"/documents", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.send(req, e.AuthToken)
}

func (e *E2ETestEnv) send(req *http.Request, token string) (*APIResponse, error) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &APIResponse{StatusCode: resp.StatusCode}
	if len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return out, fmt.Errorf("failed to parse response (status %d): %s", resp.StatusCode, data)
		}
	}
	if resp.StatusCode >= 400 {
		return out, fmt.Errorf("API error (status %d): %s", resp.StatusCode, out.Error)
	}
	return out, nil
}
