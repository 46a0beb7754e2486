package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"dicomcat/internal/config"
	"dicomcat/internal/database"
	"dicomcat/internal/database/migration"
	"dicomcat/internal/extractor"
	"dicomcat/internal/graphql"
	handlers "dicomcat/internal/http/handler"
	"dicomcat/internal/http/middleware"
	"dicomcat/internal/otel"
	"dicomcat/internal/repository/postgres"
	"dicomcat/internal/service"
	"dicomcat/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc := time.Local

	ctx := context.Background()

	// Initialize OpenTelemetry tracing (no-op when OTEL_SDK_DISABLED=true)
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("failed to shut down tracing: %v", err)
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Apply schema migrations on a fresh database
	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Initialize object storage for uploaded DICOM blobs
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Ensure the local staging directory for extraction exists
	if err := os.MkdirAll(cfg.Upload.Root, 0o755); err != nil {
		log.Fatalf("failed to create upload directory %s: %v", cfg.Upload.Root, err)
	}

	// Initialize repository, services, and the extraction adapter
	catalogRepo := postgres.NewCatalogPostgres()
	uploadSvc := service.NewUploadService(db, catalogRepo, cfg.Upload.Root)
	catalogSvc := service.NewCatalogService(db, catalogRepo)
	dicomExtractor := extractor.NewProcessExtractor(
		cfg.Extractor.ToolPath,
		cfg.Extractor.Interpreter,
		time.Duration(cfg.Extractor.TimeoutSec)*time.Second,
	)

	schema, err := graphql.NewSchema(catalogSvc, uploadSvc)
	if err != nil {
		log.Fatalf("failed to build graphql schema: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.Upload.MaxSizeMB * 1024 * 1024,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	// Trace inbound requests
	app.Use(otelfiber.Middleware())

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to set up prometheus middleware: %v", err)
	}
	app.Use(promMW.Handler())

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, schema, handlers.Services{
		DB:         db,
		Extractor:  dicomExtractor,
		Storage:    objStore,
		UploadRoot: cfg.Upload.Root,
	})

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
