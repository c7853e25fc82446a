package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	billingapp "github.com/vidgen/backend/internal/application/billing"
	genapp "github.com/vidgen/backend/internal/application/generation"
	identityapp "github.com/vidgen/backend/internal/application/identity"
	ledgerapp "github.com/vidgen/backend/internal/application/ledger"
	"github.com/vidgen/backend/internal/domain/shared"
	"github.com/vidgen/backend/internal/infrastructure/auth"
	infrabilling "github.com/vidgen/backend/internal/infrastructure/billing"
	"github.com/vidgen/backend/internal/infrastructure/cache"
	"github.com/vidgen/backend/internal/infrastructure/config"
	"github.com/vidgen/backend/internal/infrastructure/logger"
	"github.com/vidgen/backend/internal/infrastructure/persistence"
	"github.com/vidgen/backend/internal/infrastructure/provider"
	"github.com/vidgen/backend/internal/infrastructure/storage"
	"github.com/vidgen/backend/internal/interfaces/http/handler"
	"github.com/vidgen/backend/internal/interfaces/http/middleware"
	"github.com/vidgen/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting vidgen backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)
	generationRepo := persistence.NewGormGenerationRepository(db.DB)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB)

	// Payment gateway
	stripeCfg := &infrabilling.StripeConfig{
		SecretKey:       cfg.Billing.StripeSecretKey,
		WebhookSecret:   cfg.Billing.StripeWebhookSecret,
		ApplicationTag:  cfg.Billing.ApplicationTag,
		DefaultCurrency: cfg.Billing.Currency,
		SuccessURL:      cfg.Billing.SuccessURL,
		CancelURL:       cfg.Billing.CancelURL,
	}
	gateway, err := infrabilling.NewStripeGateway(stripeCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	// Media provider and object storage
	mediaProvider, err := provider.NewMediaProvider(cfg.Provider, log)
	if err != nil {
		log.Fatal("Failed to initialize media provider", zap.Error(err))
	}

	objectStorage, err := storage.NewS3ObjectStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiry))
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to ensure storage bucket", zap.Error(err))
		}
		cancel()
	}

	// Webhook idempotency cache: Redis when configured, otherwise in-process
	var idempotency shared.IdempotencyStore
	if cfg.Redis.Enabled {
		redisStore, err := cache.NewRedisIdempotencyStore(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisStore.Close()
		idempotency = redisStore
		log.Info("Using Redis idempotency store", zap.String("addr", cfg.Redis.Addr()))
	} else {
		memStore := cache.NewInMemoryIdempotencyStore()
		defer memStore.Close()
		idempotency = memStore
	}

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, cfg.Tokens.StartingBalance, log)
	tokenService := ledgerapp.NewTokenService(ledgerRepo, log)
	orchestrator := genapp.NewOrchestrator(genapp.OrchestratorConfig{
		UserRepo:       userRepo,
		GenerationRepo: generationRepo,
		Provider:       mediaProvider,
		Storage:        objectStorage,
		Costs: genapp.CostTable{
			Image: cfg.Tokens.ImageCost,
			Video: cfg.Tokens.VideoCost,
		},
		Logger: log,
	})
	paymentService := billingapp.NewPaymentService(billingapp.PaymentServiceConfig{
		SubscriptionRepo: subscriptionRepo,
		Gateway:          gateway,
		Idempotency:      idempotency,
		ApplicationTag:   cfg.Billing.ApplicationTag,
		Logger:           log,
	})

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine.Use(
		logger.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(corsConfig),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	// Handlers and routes
	authHandler := handler.NewAuthHandler(authService)
	generationHandler := handler.NewGenerationHandler(orchestrator)
	tokenHandler := handler.NewTokenHandler(tokenService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	webhookHandler := handler.NewWebhookHandler(paymentService)
	systemHandler := handler.NewSystemHandler(db, version)

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithAuthMiddleware(middleware.RequireAuth(jwtService)))
	r.Public(systemHandler, authHandler, webhookHandler)
	r.Protected(
		generationHandler,
		tokenHandler,
		paymentHandler,
		router.RegistrarFunc(authHandler.RegisterProtectedRoutes),
	)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
