package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/voicerag/internal/api/handlers"
	"github.com/cloo-solutions/voicerag/internal/config"
	"github.com/cloo-solutions/voicerag/internal/database"
	"github.com/cloo-solutions/voicerag/internal/domain"
	"github.com/cloo-solutions/voicerag/internal/extract"
	"github.com/cloo-solutions/voicerag/internal/jobs"
	"github.com/cloo-solutions/voicerag/internal/logging"
	"github.com/cloo-solutions/voicerag/internal/repository"
	"github.com/cloo-solutions/voicerag/internal/server"
	"github.com/cloo-solutions/voicerag/internal/service"
	"github.com/cloo-solutions/voicerag/internal/telemetry"
)

const (
	shutdownTimeout   = 30 * time.Second
	logDrainTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the voicerag API server and the document ingestion worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides VOICERAG_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Do not run the ingestion worker in this process")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logging.SetDefault(logger)

	shutdownTelemetry, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		TracesSampleRate: cfg.SentrySampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
	} else {
		defer shutdownTelemetry()
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if cfg.AutoMigrate && !noMigrate {
		if _, err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsDir, logger); err != nil {
			return err
		}
	}

	embedder, closeEmbedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	defer closeEmbedder()

	index, err := newVectorIndex(cfg, pool)
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}
	if generator == nil {
		logger.Info("grounded generation disabled")
	}

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	kbRepo := repository.NewKnowledgeBaseRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	jobRepo := repository.NewIngestionJobRepository(pool)
	queryLogRepo := repository.NewQueryLogRepository(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(userRepo, apiKeyRepo, uuidGen)

	if cfg.InitUserEmail != "" {
		if err := bootstrapInitialUser(ctx, cfg, authSvc, userRepo, logger); err != nil {
			return fmt.Errorf("failed to bootstrap initial user: %w", err)
		}
	}

	extractor := extract.NewExtractor()
	memorySvc := service.NewMemoryService(embedder, index, service.MemoryConfig{
		DefaultLimit: cfg.DefaultTopK,
		MaxTopK:      cfg.MaxTopK,
	})
	knowledgeSvc := service.NewKnowledgeQueryService(embedder, index, generator, queryLogRepo, service.KnowledgeQueryConfig{
		DefaultLimit:     cfg.DefaultTopK,
		MaxTopK:          cfg.MaxTopK,
		MaxContextChunks: cfg.MaxContextChunks,
		MaxContextChars:  cfg.MaxContextChars,
		LogTimeout:       cfg.QueryLogTimeout,
	})
	catalogSvc := service.NewCatalogService(agentRepo, kbRepo, uuidGen)
	documentSvc := service.NewDocumentService(documentRepo, jobRepo, blobs, extractor, repository.NewTxRunner(pool), cfg.MaxDocumentBytes)
	queryLogSvc := service.NewQueryLogService(queryLogRepo)

	var worker *jobs.Worker
	if noWorker, _ := cmd.Flags().GetBool("no-worker"); !noWorker {
		ingestionSvc := service.NewIngestionService(documentRepo, blobs, extractor, embedder, index, chunkConfig(cfg))
		workerLogger := logger.Named("ingestion")
		worker = jobs.NewWorker(jobs.NewIngestionWorker(jobRepo, ingestionSvc, workerLogger), cfg.IngestionPollInterval, workerLogger)
		go worker.Start(ctx)
		logger.Info("ingestion worker started", zap.Duration("poll_interval", cfg.IngestionPollInterval))
	}

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:     authSvc,
		MemoryHandler:     handlers.NewMemoryHandler(memorySvc, catalogSvc),
		KnowledgeHandler:  handlers.NewKnowledgeHandler(knowledgeSvc, queryLogSvc, catalogSvc),
		CatalogHandler:    handlers.NewCatalogHandler(catalogSvc),
		DocumentHandler:   handlers.NewDocumentHandler(documentSvc, catalogSvc),
		AuthHandler:       handlers.NewAuthHandler(authSvc),
		Health:            pool,
		MaxBodyBytes:      cfg.MaxRequestBytes,
		MaxMultipartBytes: cfg.MaxDocumentBytes + (1 << 20),
	})

	srv := newHTTPServer(cfg, router)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server failed", zap.Error(err))
	}

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := shutdownServer(shutdownCtx, srv, knowledgeSvc, logger); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}

// newHTTPServer bounds each request by the configured write timeout, which
// also caps the upstream embedding and generation calls it makes.
func newHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
	}
}

type gracefulServer interface {
	Shutdown(ctx context.Context) error
}

type logDrainer interface {
	Drain(ctx context.Context) error
}

// shutdownServer stops the HTTP server and then waits for pending query log
// writes. The drain gets its own deadline so a shutdown that ran out of time
// still flushes the logs.
func shutdownServer(ctx context.Context, srv gracefulServer, logs logDrainer, logger *zap.Logger) error {
	shutdownErr := srv.Shutdown(ctx)

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logDrainTimeout)
	defer cancel()
	if err := logs.Drain(drainCtx); err != nil {
		logger.Warn("pending query logs were not written", zap.Error(err))
	}

	if shutdownErr != nil {
		return fmt.Errorf("server forced to shutdown: %w", shutdownErr)
	}
	return nil
}

func chunkConfig(cfg *config.Config) service.ChunkConfig {
	chunks := service.DefaultChunkConfig()
	if cfg.ChunkSize > 0 {
		chunks.MaxChars = cfg.ChunkSize
		if chunks.MinChars > cfg.ChunkSize/2 {
			chunks.MinChars = cfg.ChunkSize / 2
		}
	}
	if cfg.ChunkOverlap >= 0 {
		chunks.Overlap = cfg.ChunkOverlap
	}
	if chunks.Overlap >= chunks.MaxChars {
		chunks.Overlap = chunks.MaxChars / 5
	}
	return chunks
}

// bootstrapInitialUser creates the configured user and, when a token is
// given, registers it as that user's key. Reruns are no-ops.
func bootstrapInitialUser(ctx context.Context, cfg *config.Config, authSvc *service.AuthService, users *repository.UserRepository, logger *zap.Logger) error {
	user, err := users.GetByEmail(ctx, cfg.InitUserEmail)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	if user == nil {
		user, err = authSvc.CreateUser(ctx, cfg.InitUserEmail, "bootstrap")
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		logger.Info("bootstrap: created user", zap.String("email", user.Email), zap.String("user_id", user.ID))
	} else {
		logger.Info("bootstrap: user already exists", zap.String("email", user.Email), zap.String("user_id", user.ID))
	}

	if cfg.InitAPIKey == "" {
		return nil
	}
	if !service.IsValidAPIToken(cfg.InitAPIKey) {
		return fmt.Errorf("invalid VOICERAG_INIT_API_KEY format (expected 'vrg_<64 hex chars>')")
	}

	if _, err := authSvc.ValidateAPIKey(ctx, cfg.InitAPIKey); err == nil {
		logger.Info("bootstrap: API key already exists")
		return nil
	}

	if err := authSvc.CreateAPIKeyWithToken(ctx, user.ID, "bootstrap", cfg.InitAPIKey); err != nil {
		if errors.Is(err, domain.ErrAPIKeyAlreadyExists) {
			return nil
		}
		return fmt.Errorf("failed to create API key: %w", err)
	}
	logger.Info("bootstrap: created API key", zap.String("user_id", user.ID))
	return nil
}
