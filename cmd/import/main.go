package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"polgar_trainer/internal/adapters"
	"polgar_trainer/internal/bootstrap"
	repo "polgar_trainer/internal/repository"
)

var (
	puzzlesDir string
	envPath    string
)

var rootCmd = &cobra.Command{
	Use:   "import",
	Short: "Load legacy puzzle JSON files into MongoDB",
	Long: `Walks a directory of puzzle files (chunk-N.json arrays or
{"problems": [...]} dumps), converts the flat move lines into solution
trees and inserts everything into the puzzles collection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport()
	},
}

func init() {
	rootCmd.Flags().StringVar(&puzzlesDir, "puzzles", "./puzzles", "directory with legacy puzzle JSON files")
	rootCmd.Flags().StringVar(&envPath, "env", ".env", "path to the config file")
}

func runImport() error {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	cfg, err := bootstrap.Setup(envPath)
	if err != nil {
		return err
	}

	ctx := context.Background()

	mongoAdapter := adapters.NewAdapterMongo(cfg, logger)
	if err := mongoAdapter.Init(ctx); err != nil {
		return err
	}
	defer mongoAdapter.Close(ctx)

	redisAdapter := adapters.NewAdapterRedis(cfg, logger)
	if err := redisAdapter.Init(ctx); err != nil {
		return err
	}
	defer redisAdapter.Close(ctx)

	puzzleRepo := repo.NewPuzzleRepository(*cfg, logger, redisAdapter.GetClient(), mongoAdapter.Database)

	inserted, err := puzzleRepo.PutAllPuzzlesToMongoByPath(ctx, puzzlesDir)
	if err != nil {
		return err
	}

	logger.Infof("import finished, %d puzzles inserted", inserted)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
