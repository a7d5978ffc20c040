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

	"chainpos/config"
	"chainpos/internal/api"
	"chainpos/internal/broker"
	"chainpos/internal/redisclient"
	"chainpos/internal/service"
	"chainpos/internal/store"
	"chainpos/internal/util"
	"chainpos/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting chainpos order core")

	tp, err := util.InitTracer("chainpos", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	if err := db.Bootstrap(context.Background()); err != nil {
		log.Fatalf("Failed to bootstrap schema: %v", err)
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	orderProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer orderProducer.Close()
	alertProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertProducer.Close()
	log.Println("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(orderProducer, alertProducer)

	alertTTL := time.Duration(cfg.Business.LowStockAlertTTLSecs) * time.Second
	inventoryEngine := service.NewInventoryEngine(db, redisClient, eventPublisher, alertTTL)
	loyaltyService := service.NewLoyaltyService(db, cfg.Business.LoyaltyEarnRateBps)
	orderService := service.NewOrderService(db, redisClient, eventPublisher, inventoryEngine, loyaltyService, cfg.Business.TaxRateBps)
	rollupService := service.NewRollupService(db)

	ctx := context.Background()
	if err := orderService.SyncPromotionCounters(ctx); err != nil {
		log.Printf("Failed to sync promotion counters: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	rollupInterval := time.Duration(cfg.Business.RollupIntervalSeconds) * time.Second
	rollupConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	rollupWorker := worker.NewRollupWorker(rollupConsumer, rollupService, db, rollupInterval)
	go func() {
		if err := rollupWorker.Start(workerCtx); err != nil {
			log.Printf("Rollup worker error: %v", err)
		}
	}()

	alertConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, "replenishment-group")
	replenishmentWorker := worker.NewReplenishmentWorker(alertConsumer)
	go func() {
		if err := replenishmentWorker.Start(workerCtx); err != nil {
			log.Printf("Replenishment worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(orderService, loyaltyService, inventoryEngine, rollupService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	rollupWorker.Stop()
	replenishmentWorker.Stop()

	log.Println("Server exited")
}
