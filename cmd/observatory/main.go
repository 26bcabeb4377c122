// Command observatory runs the industry evidence pipeline.
//
// Usage:
//
//	observatory -db evidence.db -seed sources.yaml        # register sources
//	observatory -db evidence.db -run run_42 -regions EMEA,SEA -signals
//	observatory -db evidence.db -run run_42 -stats        # registry counts
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stefanhermes-code/Observatory/dbopen"
	"github.com/stefanhermes-code/Observatory/observatory"
)

func main() {
	configPath := flag.String("config", "", "path to observatory.yaml config file")
	dbPath := flag.String("db", "", "path to SQLite database")
	runID := flag.String("run", "", "run id: execute ingestion for this run")
	workspace := flag.String("workspace", "", "owning workspace id")
	specID := flag.String("spec-id", "", "owning specification id")
	regions := flag.String("regions", "", "comma-separated regions")
	categories := flag.String("categories", "", "comma-separated category ids")
	entities := flag.String("entities", "", "comma-separated tracked entity names")
	lookback := flag.Int("lookback", 30, "lookback window in days")
	signals := flag.Bool("signals", false, "extract and record signals after ingestion")
	showStats := flag.Bool("stats", false, "show registry stats and exit")
	seedPath := flag.String("seed", "", "seed sources from YAML file and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := cliOptions{
		runID:      *runID,
		workspace:  *workspace,
		specID:     *specID,
		regions:    splitList(*regions),
		categories: splitList(*categories),
		entities:   splitList(*entities),
		lookback:   *lookback,
		signals:    *signals,
		stats:      *showStats,
		seedPath:   *seedPath,
	}
	if err := run(ctx, logger, *configPath, *dbPath, opts); err != nil {
		logger.Error("observatory: fatal", "error", err)
		os.Exit(1)
	}
}

type cliOptions struct {
	runID      string
	workspace  string
	specID     string
	regions    []string
	categories []string
	entities   []string
	lookback   int
	signals    bool
	stats      bool
	seedPath   string
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath string, opts cliOptions) error {
	cfg, err := resolveConfig(configPath, dbPath)
	if err != nil {
		return err
	}

	db, err := dbopen.Open(cfg.DBPath, dbopen.WithMkdirAll())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	svc, err := observatory.New(db, cfg, logger)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")

	if opts.seedPath != "" {
		added, err := svc.SeedSources(ctx, opts.seedPath)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		return out.Encode(map[string]int{"sources_added": added})
	}

	if opts.stats {
		stats, err := svc.Stats(ctx)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		return out.Encode(stats)
	}

	if opts.runID == "" {
		fmt.Fprintln(os.Stderr, "usage: observatory -config <file> | -db <path> [-run <id> [-signals]] [-stats] [-seed <file>]")
		os.Exit(1)
	}

	runCtx := observatory.RunContext{
		RunID:           opts.runID,
		WorkspaceID:     opts.workspace,
		SpecificationID: opts.specID,
		Regions:         opts.regions,
		Categories:      opts.categories,
		LookbackStart:   time.Now().UTC().AddDate(0, 0, -opts.lookback),
	}
	for _, name := range opts.entities {
		runCtx.TrackedEntities = append(runCtx.TrackedEntities, observatory.TrackedEntity{Name: name})
	}

	evidence, err := svc.RunIngestion(ctx, runCtx)
	if err != nil {
		return fmt.Errorf("ingestion: %w", err)
	}

	result := map[string]any{"evidence": evidence}
	if opts.signals {
		sigSummary, err := svc.RunSignalExtraction(ctx, runCtx)
		if err != nil {
			return fmt.Errorf("signal extraction: %w", err)
		}
		result["signals"] = sigSummary
	}
	return out.Encode(result)
}

func resolveConfig(configPath, dbPath string) (*observatory.Config, error) {
	if configPath != "" {
		cfg, err := observatory.LoadConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		return cfg, nil
	}

	cfg := &observatory.Config{}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.DBPath == "" {
		fmt.Fprintln(os.Stderr, "usage: observatory -config <file> | -db <path> [-run <id>] [-stats] [-seed <file>]")
		os.Exit(1)
	}
	return cfg, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
