package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/TFMV/spender/config"
	"github.com/TFMV/spender/errs"
	"github.com/TFMV/spender/pipeline"
	"github.com/docopt/docopt.go"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	usage := `Spender: purchase data cleaning and spender scoring.

Reads Project1.csv from the working directory and writes cleaned_data.csv.

Usage:
  spender
  spender (-h | --help)
  spender --version

Options:
  -h --help  Show this screen.
  --version  Show version.
`
	arguments, err := docopt.ParseDoc(usage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}
	if v, _ := arguments.Bool("--version"); v {
		fmt.Println("Spender version " + version)
		os.Exit(0)
	}

	// Initialize zap logger.
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(logger))
}

func run(logger *zap.Logger) int {
	defer logger.Sync()

	// Cancel on SIGINT/SIGTERM so an interrupted run leaves no output.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Default()
	if _, err := pipeline.Run(ctx, cfg, logger); err != nil {
		logger.Error("Run failed",
			zap.String("kind", errs.KindOf(err).String()),
			zap.Error(err))
		return errs.ExitCode(err)
	}

	fmt.Printf("Data cleaning and feature engineering are complete. Cleaned data saved as '%s'.\n", cfg.OutputPath)
	return 0
}
