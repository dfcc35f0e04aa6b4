package cli

import (
	"context"
	"database/sql"
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
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/relaya-ai/relaya/internal/api/handlers"
	"github.com/relaya-ai/relaya/internal/config"
	"github.com/relaya-ai/relaya/internal/database"
	"github.com/relaya-ai/relaya/internal/extract"
	"github.com/relaya-ai/relaya/internal/jobs"
	"github.com/relaya-ai/relaya/internal/openai"
	"github.com/relaya-ai/relaya/internal/repository"
	"github.com/relaya-ai/relaya/internal/server"
	"github.com/relaya-ai/relaya/internal/service"
	"github.com/relaya-ai/relaya/internal/storage"
	"github.com/relaya-ai/relaya/internal/telemetry"
	"github.com/relaya-ai/relaya/internal/vectorstore"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and ingestion worker",
		Long:  "Start the relaya API server on the specified port together with the background ingestion worker",
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

	if cfg.SentryDSN != "" {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: cfg.SentrySampleRate,
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

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasOpenAI() {
		return fmt.Errorf("RELAYA_OPENAI_API_KEY is required")
	}

	itemRepo := repository.NewKnowledgeItemRepository(pool)
	vectorIndex := vectorstore.NewPostgresIndex(pool)
	vectorStore := vectorstore.NewStore(vectorIndex,
		vectorstore.WithRetryClassifier(openai.IsRateLimited),
	)
	embeddingClient := openai.NewClient(cfg.OpenAIAPIKey)

	uploads, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	var knowledgeSvc *service.KnowledgeService
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		knowledgeSvc = service.NewKnowledgeServiceWithArchive(itemRepo, uploads, vectorStore, s3Client)
	} else {
		knowledgeSvc = service.NewKnowledgeService(itemRepo, uploads, vectorStore)
	}

	ingestionSvc := service.NewIngestionService(
		extract.NewExtractor(),
		uploads,
		itemRepo,
		embeddingClient,
		vectorStore,
	)
	retrievalSvc := service.NewRetrievalService(embeddingClient, vectorStore)

	ingestWorker := jobs.NewWorker(jobs.NewIngestWorker(itemRepo, ingestionSvc), cfg.WorkerPollInterval)
	go ingestWorker.Start(ctx)
	log.Println("ingestion worker started")

	routerCfg := server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc),
		RetrievalHandler: handlers.NewRetrievalHandler(retrievalSvc),
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

	ingestWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
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
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
