package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"buggydispatch/internal/config"
	"buggydispatch/internal/handlers"
	"buggydispatch/internal/middleware"
	"buggydispatch/internal/repositories/mongodb"
	"buggydispatch/internal/services"
	"buggydispatch/pkg/cache"
	"buggydispatch/pkg/database"
	"buggydispatch/pkg/logger"
	"buggydispatch/pkg/websocket"
	"buggydispatch/routes"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close()

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.EnsureIndexes(indexCtx, db.Database)
	cancelIndexes()
	if err != nil {
		log.WithError(err).Fatal("Failed to create indexes")
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	// Multi-document transactions need a replica set; standalone deployments
	// fall back to sequential writes.
	var tx database.Transactor
	if cfg.Database.ReplicaSet {
		tx = database.NewTransactor(db)
	} else {
		tx = database.NoopTransactor{}
	}

	// Repositories
	userRepo := mongodb.NewUserRepository(db.Database)
	buggyRepo := mongodb.NewBuggyRepository(db.Database)
	assignmentRepo := mongodb.NewAssignmentRepository(db.Database)
	locationRepo := mongodb.NewLocationRepository(db.Database)
	requestRepo := mongodb.NewRequestRepository(db.Database)
	auditLogRepo := mongodb.NewAuditLogRepository(db.Database)

	// WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Deferred cleanup worker
	worker := services.NewCleanupWorker(cfg.Worker, log)
	worker.Start()

	// Services
	sessions := services.NewSessionStore(redisCache, cfg.Security.SessionTTL)
	audit := services.NewAuditService(auditLogRepo, log)
	sessionService := services.NewSessionService(userRepo, assignmentRepo, buggyRepo, locationRepo, audit, hub, tx, worker, sessions, log)
	authService := services.NewAuthService(userRepo, sessions, sessionService, audit, cfg.Security, log)
	buggyService := services.NewBuggyService(buggyRepo, assignmentRepo, userRepo, audit, hub, log)
	locationService := services.NewLocationService(locationRepo, buggyRepo, assignmentRepo, requestRepo, audit, hub, log)
	requestService := services.NewRequestService(requestRepo, locationRepo, buggyRepo, assignmentRepo, audit, hub, log)

	// Router
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(log))

	routes.Setup(router, &routes.Handlers{
		Auth:      handlers.NewAuthHandler(authService),
		Session:   handlers.NewSessionHandler(sessionService),
		Buggy:     handlers.NewBuggyHandler(buggyService),
		Location:  handlers.NewLocationHandler(locationService),
		Request:   handlers.NewRequestHandler(requestService),
		Audit:     handlers.NewAuditHandler(audit),
		WebSocket: handlers.NewWebSocketHandler(hub, log),
	}, cfg.Security.JWTSecret, sessions)

	router.GET("/health", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": cfg.App.Version,
		})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.App.Port).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	// Drain queued logout cleanups before the process exits.
	worker.Stop()
	hub.Stop()

	log.Info("Server stopped")
}
