package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/jengzang/trajectory-prep/internal/config"
	"github.com/jengzang/trajectory-prep/internal/database"
	"github.com/jengzang/trajectory-prep/internal/partition"
	"github.com/jengzang/trajectory-prep/internal/pipeline"
	"github.com/jengzang/trajectory-prep/internal/repository"
	"github.com/jengzang/trajectory-prep/internal/service"
)

func main() {
	cfg := config.Load()
	fs := pflag.NewFlagSet("prepare", pflag.ExitOnError)
	if err := cfg.LoadFromFlags(fs, os.Args[1:]); err != nil {
		log.Fatalf("[Prepare] %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Prepare] Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("[Prepare] %+v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return errors.Wrap(err, "could not create database directory")
	}
	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		return errors.Wrap(err, "could not initialize database")
	}
	defer database.Close()

	datasets := service.NewDatasetService(repository.NewDatasetRepository(database.GetDB()), cfg)

	progress := func(processed, failed, total int) {
		log.Printf("[Prepare] %d/%d sources processed (%d problems)", processed, total, failed)
	}

	ds, cached, err := datasets.Prepare(ctx, cfg.Force, progress)
	if err != nil {
		return errors.Wrap(err, "could not prepare dataset")
	}
	if cached {
		log.Printf("[Prepare] Using cached dataset %s (pass --force to rebuild)", ds.Key)
	}
	if problems := ds.ProblemSources(); len(problems) > 0 {
		log.Printf("[Prepare] Problem sources: %s", strings.Join(problems, ", "))
	}

	split, err := partition.SplitRows(ds.Rows, ds.Params, cfg.Fractions(), cfg.Seed)
	if err != nil {
		return errors.Wrap(err, "could not partition dataset")
	}

	outDir := filepath.Join(cfg.OutputDir, ds.Key)
	if _, err := split.Export(outDir, ds.Key); err != nil {
		return errors.Wrapf(err, "could not export partitions to %s", outDir)
	}
	if err := pipeline.WriteReport(filepath.Join(outDir, "report.csv"), ds.Sources); err != nil {
		return errors.Wrap(err, "could not write report")
	}
	if cfg.ExportCSV {
		if err := pipeline.WriteRows(filepath.Join(outDir, "rows.csv"), ds.Params, ds.Rows); err != nil {
			return errors.Wrap(err, "could not write rows")
		}
	}

	log.Printf("[Prepare] Dataset %s: %d rows (train %d, test %d, dev %d) written to %s",
		ds.Key, len(ds.Rows), split.Train.Rows, split.Test.Rows, split.Dev.Rows, outDir)
	return nil
}
