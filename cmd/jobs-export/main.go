package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/export"
	"github.com/joseph-ayodele/docjobs/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file (default $DOCJOBS_CONFIG)")
		backend    = flag.String("store", "", "store backend override: redis|sqlite|postgres|badger")
		path       = flag.String("path", "", "sqlite file or badger directory override")
		out        = flag.String("out", "jobs.xlsx", "output XLSX file path")
		fromStr    = flag.String("from", "", "from date YYYY-MM-DD")
		toStr      = flag.String("to", "", "to date YYYY-MM-DD")
		typeStr    = flag.String("type", "", "only this job type")
	)
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *path != "" {
		cfg.Store.Path = *path
	}
	if cfg.Store.Backend == "memory" {
		printError("Error: the memory store lives inside the daemon; pick --store\n")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	var filter export.Filter
	if filter.From, err = parseDate(*fromStr); err != nil {
		printError("Error: invalid --from date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}
	if filter.To, err = parseDate(*toStr); err != nil {
		printError("Error: invalid --to date format, use YYYY-MM-DD: %v\n", err)
		os.Exit(1)
	}
	if *typeStr != "" {
		t, ok := constants.ParseJobType(*typeStr)
		if !ok {
			printError("Error: unknown job type %q\n", *typeStr)
			os.Exit(1)
		}
		filter.Type = t
	}

	logger := common.NewLogger(cfg.Log, os.Stderr)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, cfg, filter, *out, logger); err != nil {
		logger.Error("export failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Exported job status to %s\n", *out)
}

func run(ctx context.Context, cfg *common.Config, filter export.Filter, out string, logger *slog.Logger) error {
	var rdb *redis.Client
	if cfg.Store.Backend == "redis" {
		var err error
		if rdb, err = repository.NewRedisClient(ctx, cfg.Redis, logger); err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
	}

	store, closeStore, err := repository.OpenStatusStore(ctx, cfg, rdb, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	xlsx, err := export.NewService(store, logger).StatusXLSX(ctx, filter)
	if err != nil {
		return err
	}
	return os.WriteFile(out, xlsx, 0o644)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
