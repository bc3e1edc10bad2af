package main

import (
	"log"
	"os"
	"time"

	"vitalink/internal/api"
	"vitalink/internal/config"
	"vitalink/internal/ratelimit"
	"vitalink/internal/redis"
	"vitalink/internal/service/ai"
	"vitalink/internal/service/health"
	"vitalink/internal/storage"
	"vitalink/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfgPath := os.Getenv("VITALINK_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbType := os.Getenv("VITALINK_DB")
	if dbType == "" {
		dbType = "sqlite3"
	}
	log.Printf("dbType: %s\n", dbType)
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	rdb, err := redis.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("create redis client: %v", err)
	}
	defer rdb.Close()

	// Create necessary tables: readings, scores.
	if err := storage.Migrate(db, dbType); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	healthService := health.NewService(db)
	assistantService, err := ai.NewService(cfg)
	if err != nil {
		log.Fatalf("init assistant service: %v", err)
	}

	limiter := ratelimit.NewLimiter(
		ratelimit.NewRedisStore(rdb),
		cfg.RateLimit.Ceiling,
		time.Duration(cfg.RateLimit.WindowHours)*time.Hour,
	)

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		MinWorkers: cfg.BasicConfig.MinWorkers,
		MaxWorkers: cfg.BasicConfig.MaxWorkers,
		QueueSize:  cfg.BasicConfig.QueueSize,
	}, healthService.RecomputeScore)
	defer dispatcher.Stop()

	handlers := api.NewHandler(healthService, assistantService, limiter, dispatcher, cfg.Webhook.Secret, cfg.RateLimit.FailOpen)

	router := gin.Default()
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}

	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
