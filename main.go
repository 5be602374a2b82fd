package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/GuilhermeXavier08/mythic/attestation"
	"github.com/GuilhermeXavier08/mythic/common/auth"
	"github.com/GuilhermeXavier08/mythic/common/logger"
	commonmw "github.com/GuilhermeXavier08/mythic/common/middleware"
	"github.com/GuilhermeXavier08/mythic/controllers"
	"github.com/GuilhermeXavier08/mythic/database"
	"github.com/GuilhermeXavier08/mythic/kafka"
	"github.com/GuilhermeXavier08/mythic/metrics"
	awspkg "github.com/GuilhermeXavier08/mythic/pkg/aws"
	"github.com/GuilhermeXavier08/mythic/repository"
	"github.com/GuilhermeXavier08/mythic/routes"
	"github.com/GuilhermeXavier08/mythic/services"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "checkout-service"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig(ctx)
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	// --- AWS setup (optional locally) ---
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)

	var cwWriter io.Writer
	if awsErr == nil && cfg.CloudWatchLogGroup != "" {
		cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			log.Printf("CloudWatch logs disabled: %v", err)
		} else {
			cwWriter = cwLogs
		}
	}

	zapLogger, err := logger.New(cfg.Env, cwWriter)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = zapLogger.Sync() }()

	if awsErr != nil {
		zapLogger.Warn("AWS config unavailable, AWS integrations disabled", zap.Error(awsErr))
	}

	// --- Database ---
	db, err := database.ConnectPostgres(ctx, cfg.Postgres, zapLogger)
	if err != nil {
		zapLogger.Fatal("DB connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("Migration failed", zap.Error(err))
	}

	// --- Redis (idempotency keys) ---
	var idempotency repository.IdempotencyStore
	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		zapLogger.Warn("Redis unavailable, Idempotency-Key support disabled", zap.Error(err))
	} else {
		idempotency = repository.NewRedisIdempotencyStore(redisClient, cfg.IdempotencyTTL)
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := metrics.New(registry)

	var cw *awspkg.MetricsClient
	if awsErr == nil {
		cw = awspkg.NewMetricsClient(awsCfg, "", cfg.CloudWatchMetrics)
	}

	// --- Dependency injection ---
	sealer, err := attestation.NewSealer(cfg.EncryptionKey)
	if err != nil {
		zapLogger.Fatal("Invalid encryption key", zap.Error(err))
	}

	couponRepo := repository.NewGormCouponRepository(db)
	cartRepo := repository.NewGormCartRepository(db)
	catalogRepo := repository.NewGormCatalogRepository(db)
	ledgerRepo := repository.NewGormLedgerRepository(db)
	wishlistRepo := repository.NewGormWishlistRepository(db)
	badgeRepo := repository.NewGormBadgeRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)
	uow := repository.NewGormUnitOfWork(db)

	couponService := services.NewCouponService(couponRepo, zapLogger)
	cartService := services.NewCartService(cartRepo, catalogRepo, ledgerRepo, couponService, zapLogger)
	libraryService := services.NewLibraryService(ledgerRepo, wishlistRepo, notificationRepo, badgeRepo, zapLogger)

	var queue services.EventQueue
	if cfg.EventsQueueURL != "" && awsErr == nil {
		queue = services.NewSQSEventQueue(awspkg.NewSQSQueue(awsCfg, cfg.EventsQueueURL, zapLogger), zapLogger)
		zapLogger.Info("Side effects routed through SQS", zap.String("queue", cfg.EventsQueueURL))
	} else {
		queue = services.NewChannelQueue(cfg.EventQueueSize, cfg.EventWorkers, 10*time.Second)
	}

	dispatcherOpts := []services.DispatcherOption{services.WithCloudWatch(cw)}
	var producer *kafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, zapLogger)
		dispatcherOpts = append(dispatcherOpts, services.WithKafkaPublisher(producer))
	}
	if cfg.SNSTopicARN != "" && awsErr == nil {
		dispatcherOpts = append(dispatcherOpts, services.WithSNS(awspkg.NewSNSClient(awsCfg), cfg.SNSTopicARN))
	}
	dispatcher := services.NewDispatcher(queue, badgeRepo, notificationRepo, prom, zapLogger, dispatcherOpts...)
	dispatcher.Start(context.WithoutCancel(ctx))

	checkoutService := services.NewCheckoutService(
		cartRepo, couponService, uow, sealer, dispatcher, prom, cw, zapLogger,
		services.CheckoutConfig{MaxTxRetries: cfg.MaxTxRetries, RetryBackoff: cfg.RetryBackoff},
	)

	// --- HTTP router ---
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter := commonmw.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, 10*time.Minute)
	go limiter.Run(ctx)

	r := gin.New()
	r.Use(
		gin.Recovery(),
		commonmw.RequestID(),
		commonmw.RequestLogger(zapLogger),
		commonmw.Metrics(prom, cw, serviceName),
		commonmw.SecurityHeaders(),
		commonmw.CORS(cfg.CORSOrigins),
		limiter.Middleware(),
		commonmw.Timeout(cfg.RequestTimeout),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": serviceName})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	routes.Register(r, auth.NewVerifier(cfg.JWTSecret), routes.Controllers{
		Cart:     controllers.NewCartController(cartService, couponService),
		Checkout: controllers.NewCheckoutController(checkoutService, idempotency, prom, zapLogger),
		Coupon:   controllers.NewCouponController(couponService),
		Library:  controllers.NewLibraryController(libraryService),
		Admin:    controllers.NewAdminController(couponService, libraryService),
	})

	// --- HTTP server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zapLogger.Info("Checkout Service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	zapLogger.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown error", zap.Error(err))
	}

	// Requests are drained, so no new events can arrive.
	dispatcher.Stop()

	if producer != nil {
		if err := producer.Close(); err != nil {
			zapLogger.Error("Kafka producer close error", zap.Error(err))
		}
	}
	closeRedis(redisClient, zapLogger)
	if err := database.Close(db); err != nil {
		zapLogger.Error("Database close error", zap.Error(err))
	}

	zapLogger.Info("Checkout Service stopped gracefully")
}

func closeRedis(client *redis.Client, logger *zap.Logger) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}
}
