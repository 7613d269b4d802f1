package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"polgar_trainer/internal/adapters"
	"polgar_trainer/internal/bootstrap"
	"polgar_trainer/internal/delivery/identity"
	trainerDelivery "polgar_trainer/internal/delivery/trainer"
	"polgar_trainer/internal/middleware"
	repo "polgar_trainer/internal/repository"
	trainerUsecase "polgar_trainer/internal/usecase/trainer"
)

func main() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	cfg, err := bootstrap.Setup(".env")
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	mongoAdapter := adapters.NewAdapterMongo(cfg, logger)
	if err := mongoAdapter.Init(ctx); err != nil {
		logger.Fatalf("mongo init failed: %v", err)
	}
	defer mongoAdapter.Close(ctx)

	redisAdapter := adapters.NewAdapterRedis(cfg, logger)
	if err := redisAdapter.Init(ctx); err != nil {
		logger.Fatalf("redis init failed: %v", err)
	}
	defer redisAdapter.Close(ctx)

	puzzleRepo := repo.NewPuzzleRepository(*cfg, logger, redisAdapter.GetClient(), mongoAdapter.Database)
	trainerUC := trainerUsecase.NewTrainerUseCase(puzzleRepo, logger)
	identityHandler := identity.NewIdentityHandler(logger)
	trainerHandler := trainerDelivery.NewTrainerHandler(*cfg, logger, trainerUC, identityHandler)

	router := chi.NewRouter()
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	if cfg.IsLocalCors {
		router.Use(middleware.CORS)
	}

	router.Get("/api/trainer/ws", trainerHandler.ServeWS)
	router.Post("/api/getPuzzleById", trainerHandler.GetPuzzleByID)
	router.Get("/api/puzzleCount", trainerHandler.PuzzleCount)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down")
		mongoAdapter.Close(ctx)
		redisAdapter.Close(ctx)
		os.Exit(0)
	}()

	logger.Infof("listening on :%s", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, router); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}
