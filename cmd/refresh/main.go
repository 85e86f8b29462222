package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/invintel/internal/config"
	"github.com/andresuchdata/invintel/internal/domain"
	"github.com/andresuchdata/invintel/internal/pipeline"
	"github.com/andresuchdata/invintel/internal/report"
	"github.com/andresuchdata/invintel/internal/source"
	"github.com/andresuchdata/invintel/internal/storage"
	"github.com/andresuchdata/invintel/pkg/logger"
)

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Usage:   "Source kind: sheets, drive, xlsx, csv or object",
			EnvVars: []string{"SOURCE_KIND"},
		},
		&cli.StringFlag{
			Name:  "workbook",
			Usage: "Workbook path for the xlsx source",
		},
		&cli.StringFlag{
			Name:  "csv-dir",
			Usage: "Directory of <table>.csv files for the csv source",
		},
		&cli.StringFlag{
			Name:  "policy",
			Usage: "Cell coercion policy: default_zero or strict",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level",
			Value: "info",
		},
	}
}

func main() {
	app := &cli.App{
		Name:  "refresh",
		Usage: "Run the inventory metrics pipeline from the command line",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Refresh all metrics and print a summary",
				Flags: append(sourceFlags(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full snapshot as JSON instead of the summary",
					},
				),
				Action: runRefresh,
			},
			{
				Name:  "export",
				Usage: "Refresh all metrics and write every derived table as CSV",
				Flags: append(sourceFlags(),
					&cli.StringFlag{
						Name:    "dir",
						Usage:   "Export directory",
						EnvVars: []string{"APP_EXPORT_DIR"},
					},
					&cli.BoolFlag{
						Name:  "upload",
						Usage: "Upload the exported files to object storage",
					},
					&cli.StringFlag{
						Name:    "prefix",
						Usage:   "Object key prefix for uploads",
						EnvVars: []string{"STORAGE_PREFIX"},
					},
				),
				Action: runExport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("refresh failed")
	}
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	logger.SetLevel(c.String("log-level"))
	if kind := c.String("source"); kind != "" {
		cfg.Source.Kind = kind
	}
	if path := c.String("workbook"); path != "" {
		cfg.Source.WorkbookPath = path
	}
	if dir := c.String("csv-dir"); dir != "" {
		cfg.Source.CSVDir = dir
	}
	if policy := c.String("policy"); policy != "" {
		cfg.Pipeline.CoercionPolicy = policy
	}
}

func refresh(c *cli.Context, cfg *config.Config, store storage.ObjectStorage) (*domain.Snapshot, error) {
	src, err := source.New(cfg.Source, store)
	if err != nil {
		return nil, err
	}

	pipelineCfg, err := pipeline.PipelineConfigFrom(cfg)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := pipeline.NewOrchestrator(src, pipelineCfg).Run(ctx, cfg.Pipeline.Thresholds())
	if err != nil {
		return nil, fmt.Errorf("refresh from %s: %w", src.Name(), err)
	}
	return snap, nil
}

func runRefresh(c *cli.Context) error {
	cfg := config.Load()
	applyFlags(c, cfg)

	store, err := storage.FromConfig(cfg.Storage)
	if err != nil {
		return err
	}

	snap, err := refresh(c, cfg, store)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	return report.WriteSummary(os.Stdout, snap)
}

func runExport(c *cli.Context) error {
	cfg := config.Load()
	applyFlags(c, cfg)

	store, err := storage.FromConfig(cfg.Storage)
	if err != nil {
		return err
	}

	snap, err := refresh(c, cfg, store)
	if err != nil {
		return err
	}

	dir := c.String("dir")
	if dir == "" {
		dir = cfg.App.ExportDir
	}
	prefix := c.String("prefix")
	if prefix == "" {
		prefix = cfg.Storage.Prefix
	}

	var uploadTo storage.ObjectStorage
	if c.Bool("upload") {
		if store == nil {
			return fmt.Errorf("--upload requires STORAGE_ENDPOINT to be configured")
		}
		uploadTo = store
	}

	paths, err := report.NewExporter(dir, uploadTo, prefix).Export(context.WithoutCancel(c.Context), snap)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
