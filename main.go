package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xboikom1/Quiz-builder/config"
	"github.com/xboikom1/Quiz-builder/handlers"
	"github.com/xboikom1/Quiz-builder/logger"
	"github.com/xboikom1/Quiz-builder/routes"
	"github.com/xboikom1/Quiz-builder/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zapLogger, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer zapLogger.Sync()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := config.Migrate(db); err != nil {
		return err
	}

	// Initialize WebSocket hub
	hub := services.NewHub(zapLogger.Named("hub"))
	go hub.Run(ctx)

	// Publish through Redis when configured so every instance sees every change
	var publisher services.EventPublisher = services.NewHubPublisher(hub)
	redisClient, err := config.InitRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		publisher = services.NewRedisPublisher(redisClient, cfg.Redis.Channel)
		go func() {
			if err := services.RelayRedisEvents(ctx, redisClient, cfg.Redis.Channel, hub, zapLogger.Named("relay")); err != nil {
				zapLogger.Error("redis relay stopped", zap.Error(err))
			}
		}()
	}

	// Initialize services and handlers
	quizService := services.NewQuizService(db, publisher, zapLogger.Named("quizzes"))
	quizHandler := handlers.NewQuizHandler(quizService, services.NewQuizValidator())
	eventsHandler := handlers.NewEventsHandler(hub, cfg.AllowedOrigins(), zapLogger.Named("events"))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(routes.Dependencies{
		QuizHandler:    quizHandler,
		EventsHandler:  eventsHandler,
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         zapLogger.Named("http"),
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server starting", zap.String("addr", server.Addr), zap.String("db_driver", cfg.DB.Driver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	zapLogger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
