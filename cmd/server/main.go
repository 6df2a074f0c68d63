package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketflow/config"
	"marketflow/internal/api"
	"marketflow/internal/broker"
	"marketflow/internal/cart"
	"marketflow/internal/fixtures"
	"marketflow/internal/redisclient"
	"marketflow/internal/service"
	"marketflow/internal/storage"
	"marketflow/internal/store"
	"marketflow/internal/util"
	"marketflow/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting marketflow",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("cart_backend", cfg.Cart.Backend))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("marketflow", cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	seed, err := fixtures.Load(cfg.Business.FixturesDir)
	if err != nil {
		logger.Fatal("Failed to load fixtures", zap.Error(err))
	}
	db := store.New(seed)
	logger.Info("Fixtures loaded",
		zap.Int("products", len(seed.Products)),
		zap.Int("categories", len(seed.Categories)),
		zap.Int("orders", len(seed.Orders)),
		zap.Int("reviews", len(seed.Reviews)))

	// Redis backs checkout idempotency whenever it is reachable and is
	// mandatory for the redis cart backend.
	var idempotency service.IdempotencyStore
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		if cfg.Cart.Backend == "redis" {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		logger.Warn("Redis unavailable, checkout idempotency disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		idempotency = redisClient
		logger.Info("Redis connected")
	}

	var slot storage.Slot
	switch cfg.Cart.Backend {
	case "memory":
		slot = storage.NewMemorySlot()
	case "redis":
		slot = redisClient.Slot(cfg.Cart.Key)
	case "postgres":
		pg, err := storage.NewPostgres(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer pg.Close()
		slot = pg.Slot(cfg.Cart.Key)
		logger.Info("Database connected")
	case "file":
		slot = storage.NewFileSlot(cfg.Cart.File)
	default:
		logger.Fatal("Unknown cart backend", zap.String("backend", cfg.Cart.Backend))
	}

	var publisher service.EventPublisher
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var stockWorker *worker.StockWorker
	latency := service.Latency{Scale: cfg.Business.LatencyScale}
	productService := service.NewProductService(db, latency)

	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
		stockWorker = worker.NewStockWorker(consumer, productService)
		go func() {
			if err := stockWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Stock worker error", zap.Error(err))
			}
		}()
	}

	cartStore := cart.New(context.Background(), slot, logger)
	orderService := service.NewOrderService(db, publisher, latency)
	pricing := service.Pricing{
		FreeShippingThreshold: cfg.Business.FreeShippingThreshold,
		ShippingFee:           cfg.Business.ShippingFee,
		TaxRate:               cfg.Business.TaxRate,
	}

	handler := api.NewHandler(api.Services{
		Products:   productService,
		Categories: service.NewCategoryService(db, latency),
		Orders:     orderService,
		Reviews:    service.NewReviewService(db, publisher, latency),
		Checkout:   service.NewCheckoutService(cartStore, orderService, pricing, idempotency, cfg.Business.IdempotencyTTL),
		Cart:       cartStore,
	})

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if stockWorker != nil {
		if err := stockWorker.Stop(); err != nil {
			logger.Error("Error stopping stock worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
