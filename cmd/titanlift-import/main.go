package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/meltforce/titanlift/internal/app"
	"github.com/meltforce/titanlift/internal/config"
	"github.com/meltforce/titanlift/internal/importer"
	"github.com/meltforce/titanlift/internal/logging"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	file := flag.String("file", "", "path to Alpha Progression CSV export (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to the store")
	tz := flag.String("tz", "Local", "time zone the export's timestamps were written in")
	flag.Parse()

	if *file == "" {
		fmt.Fprintf(os.Stderr, "Usage: titanlift-import -config config.yaml -file export.csv [-dry-run] [-tz Europe/Berlin]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, logCloser := logging.New(cfg.Log, os.Stdout)
	defer logCloser.Close()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Error("unknown time zone", "tz", *tz, "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Error("failed to open export", "path", *file, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: nothing will be written to the store")
	}

	a, err := app.Open(ctx, cfg, log, app.Hooks{})
	if err != nil {
		log.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer a.Close(ctx)

	// Run import
	imp := importer.New(a.Service, log, *dryRun)
	imp.SetLocation(loc)
	stats, err := imp.Import(ctx, f)
	if err != nil {
		log.Error("import failed", "error", err)
		if stats != nil {
			printStats(log, stats)
		}
		_ = a.Close(ctx)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"sessions_parsed", stats.SessionsParsed,
		"sessions_added", stats.SessionsAdded,
		"exercises_added", stats.ExercisesAdded,
		"sets_imported", stats.SetsImported,
		"warmups_skipped", stats.WarmupsSkipped,
	)
}
