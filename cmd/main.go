package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/quiltline/patternvault-backend/internal/clients/redisbus"
	"github.com/quiltline/patternvault-backend/internal/data/db"
	authrepos "github.com/quiltline/patternvault-backend/internal/data/repos/auth"
	"github.com/quiltline/patternvault-backend/internal/data/repos/catalog"
	httpapi "github.com/quiltline/patternvault-backend/internal/http"
	"github.com/quiltline/patternvault-backend/internal/http/handlers"
	"github.com/quiltline/patternvault-backend/internal/http/middleware"
	"github.com/quiltline/patternvault-backend/internal/platform/envutil"
	"github.com/quiltline/patternvault-backend/internal/platform/gcs"
	"github.com/quiltline/patternvault-backend/internal/platform/logger"
	"github.com/quiltline/patternvault-backend/internal/realtime"
	"github.com/quiltline/patternvault-backend/internal/services"
	"github.com/quiltline/patternvault-backend/internal/thumbnail"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := envutil.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := envutil.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if envutil.GetEnvAsBool("AUTO_MIGRATE", true, log) {
		if err := db.AutoMigrateAll(postgresService.DB()); err != nil {
			log.Error("Postgres auto migration failed", "error", err)
			os.Exit(1)
		}
	}
	thePG := postgresService.DB()
	txRunner := db.NewTxRunner(thePG)

	// Repos
	log.Info("Setting up repos from main...")
	patternRepo := catalog.NewPatternRepo(thePG, log)
	uploadBatchRepo := catalog.NewUploadBatchRepo(thePG, log)
	keywordRepo := catalog.NewKeywordRepo(thePG, log)
	adminUserRepo := authrepos.NewAdminUserRepo(thePG, log)

	// Realtime
	log.Info("Setting up SSE hub from main...")
	hub := realtime.NewHub(log)
	var bus redisbus.Bus
	if b, busErr := redisbus.NewBus(log); busErr != nil {
		log.Warn("Redis bus disabled", "error", busErr)
	} else {
		bus = b
		if fErr := bus.StartForwarder(context.Background(), func(m realtime.Message) {
			hub.Broadcast(m)
		}); fErr != nil {
			log.Warn("Redis forwarder failed to start", "error", fErr)
		}
	}
	var publisher realtime.Publisher
	if bus != nil {
		publisher = bus
	}
	notifier := realtime.NewNotifier(log, hub, publisher)

	// Services
	log.Info("Setting up services from main...")
	bucketService, err := gcs.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	renderer := thumbnail.NewPDFRenderer(log)
	authService := services.NewAuthService(log, adminUserRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	ingestService := services.NewIngestService(log, patternRepo, uploadBatchRepo, bucketService, renderer, notifier)
	batchService := services.NewBatchService(log, txRunner, patternRepo, uploadBatchRepo, keywordRepo, bucketService)
	patternService := services.NewPatternService(log, patternRepo, keywordRepo, bucketService)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	uploadHandler := handlers.NewUploadHandler(log, ingestService)
	batchHandler := handlers.NewBatchHandler(log, batchService, hub)
	patternHandler := handlers.NewPatternHandler(log, patternService)
	healthHandler := handlers.NewHealthHandler(thePG)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := httpapi.NewRouter(httpapi.RouterConfig{
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		UploadHandler:  uploadHandler,
		BatchHandler:   batchHandler,
		PatternHandler: patternHandler,
		HealthHandler:  healthHandler,
	})

	port := envutil.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server failed", "error", err)
	}
}
