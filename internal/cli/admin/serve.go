package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/archivist-ai/archivist/internal/ai"
	"github.com/archivist-ai/archivist/internal/api/handlers"
	"github.com/archivist-ai/archivist/internal/config"
	"github.com/archivist-ai/archivist/internal/domain"
	"github.com/archivist-ai/archivist/internal/jobs"
	"github.com/archivist-ai/archivist/internal/repository"
	"github.com/archivist-ai/archivist/internal/server"
	"github.com/archivist-ai/archivist/internal/service"
	"github.com/archivist-ai/archivist/internal/storage"
	"github.com/archivist-ai/archivist/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the archivist API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasSentry() {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	docRepo := repository.NewDocumentRepository(pool)
	vectorRepo := repository.NewVectorRepository(pool, cfg.EmbeddingDimensions)
	jobRepo := repository.NewIngestJobRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	txRunner := repository.NewTxRunner(pool, cfg.EmbeddingDimensions)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(userRepo, apiKeyRepo, uuidGen)

	if cfg.InitUserName != "" {
		if err := bootstrapInitialUser(ctx, cfg, userRepo, authSvc); err != nil {
			return fmt.Errorf("failed to bootstrap initial user: %w", err)
		}
	}

	var storageClient service.StorageClientInterface
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		storageClient = s3Client
	}

	var embedder service.EmbeddingClient
	var generator service.GenerationClient
	if cfg.HasOpenAI() {
		aiClient := ai.NewClientWithConfig(ai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
		embedder = aiClient
		generator = aiClient
	} else {
		unconfigured := &UnconfiguredAI{dimensions: cfg.EmbeddingDimensions}
		embedder = unconfigured
		generator = unconfigured
		log.Println("OPENAI_API_KEY not set: ingestion and query endpoints will reject requests")
	}

	tokens, err := service.NewTokenCounter()
	if err != nil {
		return fmt.Errorf("failed to initialize token counter: %w", err)
	}
	chunker, err := service.NewChunker(tokens, service.DefaultChunkConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize chunker: %w", err)
	}

	ingestionSvc := service.NewIngestionService(docRepo, vectorRepo, embedder, chunker, uuidGen).
		WithJobs(jobRepo).
		WithTxRunner(txRunner)
	if storageClient != nil {
		ingestionSvc = ingestionSvc.WithStorage(storageClient)
	}

	var ingestWorker *jobs.Worker
	if cfg.HasOpenAI() {
		processor := jobs.NewIngestWorker(jobRepo, ingestionSvc)
		ingestWorker = jobs.NewWorker(processor, 10*time.Second)
		go ingestWorker.Start(ctx)
		log.Println("ingest worker started")
	}

	retrievalSvc := service.NewRetrievalService(vectorRepo, embedder, tokens)
	querySvc := service.NewQueryService(retrievalSvc, generator)
	agentSvc := service.NewAgentService(retrievalSvc, generator, vectorRepo)

	routerCfg := server.RouterConfig{
		AuthValidator:     authSvc,
		DocumentHandler:   handlers.NewDocumentHandler(ingestionSvc),
		QueryHandler:      handlers.NewQueryHandler(querySvc),
		TaskHandler:       handlers.NewTaskHandler(agentSvc),
		CollectionHandler: handlers.NewCollectionHandler(vectorRepo),
		AuthHandler:       handlers.NewAuthHandler(authSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestWorker != nil {
		ingestWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// UnconfiguredAI stands in for the OpenAI client when no API key is set.
// Every call fails with a service error so handlers return a clear message
// instead of the server refusing to start.
type UnconfiguredAI struct {
	dimensions int
}

func (u *UnconfiguredAI) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, domain.NewDomainError(domain.ErrCodeServiceError, "embedding provider not configured: OPENAI_API_KEY required")
}

func (u *UnconfiguredAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, domain.NewDomainError(domain.ErrCodeServiceError, "embedding provider not configured: OPENAI_API_KEY required")
}

func (u *UnconfiguredAI) Dimensions() int {
	return u.dimensions
}

func (u *UnconfiguredAI) Generate(ctx context.Context, system, user string) (string, error) {
	return "", domain.NewDomainError(domain.ErrCodeServiceError, "generation provider not configured: OPENAI_API_KEY required")
}

func bootstrapInitialUser(ctx context.Context, cfg *config.Config, userRepo *repository.UserRepository, authSvc *service.AuthService) error {
	user, err := userRepo.GetByName(ctx, cfg.InitUserName)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	if user == nil {
		user, err = authSvc.CreateUser(ctx, cfg.InitUserName)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		log.Printf("bootstrap: created user '%s' (id: %s)", user.Name, user.ID)
	} else {
		log.Printf("bootstrap: user '%s' already exists (id: %s)", user.Name, user.ID)
	}

	if cfg.InitAPIKey != "" {
		if !service.IsValidAPIToken(cfg.InitAPIKey) {
			return fmt.Errorf("invalid ARCHIVIST_INIT_API_KEY format (expected 'arc_<64 hex chars>')")
		}

		existingKey, err := authSvc.GetAPIKeyByHash(ctx, cfg.InitAPIKey)
		if err == nil && existingKey != nil {
			log.Printf("bootstrap: API key already exists (id: %s)", existingKey.ID)
			return nil
		}

		if err := authSvc.CreateAPIKeyWithToken(ctx, user.ID, "bootstrap", cfg.InitAPIKey); err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: created API key")
	}

	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql handle
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		log.Printf("migrations: applied (version %d)", version)
	}

	return nil
}
