package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rdpmakerop/spark-host-sell/auth"
	"github.com/rdpmakerop/spark-host-sell/backend"
	"github.com/rdpmakerop/spark-host-sell/config"
	"github.com/rdpmakerop/spark-host-sell/database"
	"github.com/rdpmakerop/spark-host-sell/handlers"
	"github.com/rdpmakerop/spark-host-sell/kafka"
	"github.com/rdpmakerop/spark-host-sell/middleware"
	"github.com/rdpmakerop/spark-host-sell/notifications"
	"github.com/rdpmakerop/spark-host-sell/rpc"
	"github.com/rdpmakerop/spark-host-sell/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Prices go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	// Initialize OpenTelemetry
	shutdownTracing, err := middleware.InitTracing(cfg.ServiceName, cfg.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Initialize the storefront backend
	var (
		db        *sql.DB
		dataStore store.Store
	)
	switch cfg.BackendMode {
	case config.BackendModePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.BackendTimeout)
		db, err = database.InitDB(ctx, cfg.DSN(), logger)
		cancel()
		if err != nil {
			logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		dataStore = database.NewPostgresStore(db, logger)
	default:
		dataStore = backend.NewRESTStore(cfg.BackendURL, cfg.BackendAnonKey, cfg.BackendTimeout, logger)
	}
	logger.Info("Storefront backend ready", zap.String("mode", cfg.BackendMode))

	authClient := auth.NewClient(auth.ClientConfig{
		BaseURL:   cfg.BackendURL,
		AnonKey:   cfg.BackendAnonKey,
		JWTSecret: cfg.AuthJWTSecret,
		Timeout:   cfg.BackendTimeout,
	}, logger)

	// Initialize Kafka order events and the Redis notification queue they feed
	var (
		publisher            *kafka.Publisher
		notificationConsumer *kafka.NotificationConsumer
		redisClient          *redis.Client
		queue                notifications.Queue = notifications.EmptyQueue{}
	)
	if cfg.KafkaEnabled() {
		redisClient, err = notifications.InitRedis(cfg.RedisAddr(), cfg.RedisPassword, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		queue = notifications.NewRedisQueue(redisClient, cfg.NotificationTTL)

		producer, err := kafka.InitProducer(cfg.KafkaBroker, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Kafka producer", zap.Error(err))
		}
		publisher = kafka.NewPublisher(producer, cfg.KafkaTopic, logger)

		consumer, err := kafka.InitConsumer(cfg.KafkaBroker, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
		}
		notificationConsumer = kafka.NewNotificationConsumer(consumer, cfg.KafkaTopic, queue, logger)
		notificationConsumer.Start(context.Background())
	} else {
		logger.Info("KAFKA_BROKER not set, order events and notifications disabled")
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	// OpenTelemetry middleware must be first to extract trace context
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.SessionMiddleware(authClient, logger))

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", middleware.PrometheusHandler())

	authHandler := handlers.NewAuthHandler(authClient, logger)
	router.GET("/auth/session", authHandler.GetSession)
	router.POST("/auth/session", authHandler.SignIn)
	router.POST("/auth/signout", authHandler.SignOut)
	router.GET("/auth/events", authHandler.Events)

	api := router.Group("/api")
	catalogHandler := handlers.NewCatalogHandler(dataStore, logger)
	api.GET("/catalog", catalogHandler.GetCatalog)

	var events handlers.EventPublisher
	if publisher != nil {
		events = publisher
	}
	orderHandler := handlers.NewOrderHandler(dataStore, events, logger)
	api.POST("/orders", orderHandler.PlaceOrder)
	api.GET("/orders", orderHandler.GetOrderHistory)

	notificationHandler := handlers.NewNotificationHandler(queue, logger)
	api.GET("/notifications", notificationHandler.GetNotifications)

	// Start server
	restSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		if err := restSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Storefront REST API started", zap.String("addr", cfg.HTTPAddr))

	// Start gRPC health server
	grpcServer := rpc.NewServer(cfg.ServiceName, logger)
	go func() {
		if err := grpcServer.Listen(cfg.GRPCAddr); err != nil {
			logger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	gracefulShutdown(restSrv, grpcServer, db, redisClient, publisher, notificationConsumer, shutdownTracing, logger)
}

// gracefulShutdown handles SIGINT/SIGTERM and shuts down all services gracefully
func gracefulShutdown(
	restSrv *http.Server,
	grpcServer *rpc.Server,
	db *sql.DB,
	redisClient *redis.Client,
	publisher *kafka.Publisher,
	notificationConsumer *kafka.NotificationConsumer,
	shutdownTracing func(),
	logger *zap.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown signal received. Exiting...")

	// Health probes see NOT_SERVING before connections are refused.
	grpcServer.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop REST server
	if err := restSrv.Shutdown(ctx); err != nil {
		logger.Error("REST server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("REST server stopped gracefully")
	}

	grpcServer.Stop()

	if notificationConsumer != nil {
		if err := notificationConsumer.Stop(); err != nil {
			logger.Error("Failed to close Kafka consumer", zap.Error(err))
		} else {
			logger.Info("Kafka consumer closed gracefully")
		}
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close Kafka producer", zap.Error(err))
		} else {
			logger.Info("Kafka producer closed gracefully")
		}
	}

	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", zap.Error(err))
		} else {
			logger.Info("Database connection closed gracefully")
		}
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close Redis", zap.Error(err))
		} else {
			logger.Info("Redis connection closed gracefully")
		}
	}

	shutdownTracing()
	logger.Info("Tracer provider shut down")
}
