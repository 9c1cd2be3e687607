package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/parts-inventory-api/api/swagger"
	"github.com/noah-isme/parts-inventory-api/internal/handler"
	internalmiddleware "github.com/noah-isme/parts-inventory-api/internal/middleware"
	"github.com/noah-isme/parts-inventory-api/internal/repository"
	"github.com/noah-isme/parts-inventory-api/internal/service"
	"github.com/noah-isme/parts-inventory-api/pkg/cache"
	"github.com/noah-isme/parts-inventory-api/pkg/config"
	"github.com/noah-isme/parts-inventory-api/pkg/database"
	"github.com/noah-isme/parts-inventory-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/parts-inventory-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/parts-inventory-api/pkg/middleware/requestid"
	"github.com/noah-isme/parts-inventory-api/pkg/storage"
)

// @title Parts Inventory API
// @version 1.0.0
// @description Stock ledger and attachment store for electronic parts.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx := context.Background()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		logr.Info("database schema applied")
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	backend, err := newBlobBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init blob storage: %w", err)
	}

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	var blobs *service.BlobStore
	if redisClient != nil {
		blobIndex := repository.NewBlobIndexRepository(redisClient)
		defer blobIndex.Close() //nolint:errcheck
		blobs = service.NewBlobStore(backend, blobIndex, metricsSvc, cfg.Attachments.StorageTimeout, logr)
	} else {
		blobs = service.NewBlobStore(backend, nil, metricsSvc, cfg.Attachments.StorageTimeout, logr)
	}

	validate := validator.New()
	tx := database.NewTransactor(db)
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	stockRepo := repository.NewStockRepository(db)
	stockSvc := service.NewStockService(stockRepo, tx, metricsSvc, logr)
	boxSvc := service.NewBoxService(repository.NewBoxRepository(db), stockRepo, tx, validate, logr)
	attachmentSvc := service.NewAttachmentService(repository.NewAttachmentRepository(db), blobs, signer, tx, metricsSvc, validate, logr,
		service.AttachmentServiceConfig{
			MaxImageSize:      cfg.Attachments.MaxImageSize,
			MaxFileSize:       cfg.Attachments.MaxFileSize,
			AllowedImageTypes: cfg.Attachments.AllowedImageTypes,
			AllowedFileTypes:  cfg.Attachments.AllowedFileTypes,
			APIPrefix:         cfg.APIPrefix,
		})
	partSvc := service.NewPartService(repository.NewPartRepository(db), attachmentSvc, tx, validate, logr,
		service.PartServiceConfig{KeyLength: cfg.Parts.KeyLength})
	kitSvc := service.NewKitService(repository.NewKitRepository(db), attachmentSvc, tx, validate, logr)
	exportSvc := service.NewExportService(boxSvc, stockSvc, logr, nil, nil)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	if metricsSvc != nil {
		r.Use(internalmiddleware.Metrics(metricsSvc))
	}

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
		r.GET("/metrics/snapshot", metricsHandler.Snapshot)
	}
	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	uploadLimit := cfg.Attachments.MaxFileSize
	if cfg.Attachments.MaxImageSize > uploadLimit {
		uploadLimit = cfg.Attachments.MaxImageSize
	}
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Boxes:       handler.NewBoxHandler(boxSvc),
		Stock:       handler.NewStockHandler(stockSvc),
		Parts:       handler.NewPartHandler(partSvc),
		Kits:        handler.NewKitHandler(kitSvc),
		Attachments: handler.NewAttachmentHandler(attachmentSvc, uploadLimit+1<<20),
		Exports:     handler.NewExportHandler(exportSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
	return nil
}

type blobBackend interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

func newBlobBackend(ctx context.Context, cfg *config.Config) (blobBackend, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMinIO:
		return storage.NewMinIOStorage(ctx, cfg.Storage.MinIO)
	case config.StorageDriverLocal, "":
		return storage.NewLocalStorage(cfg.Storage.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
