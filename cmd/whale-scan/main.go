// Package main runs one whale briefing, prints the report and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"whale-tracker/internal/app"
	"whale-tracker/internal/config"
	"whale-tracker/internal/logging"
	"whale-tracker/internal/observability"
	"whale-tracker/internal/reporting"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	outputDir := flag.String("output-dir", "", "Write report.md and CSVs here instead of printing")
	noNotify := flag.Bool("no-notify", false, "Skip Telegram even if enabled")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *noNotify {
		cfg.Telegram.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so the report can be piped.
	logger := logging.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *outputDir); err != nil {
		logger.Error().Err(err).Msg("briefing failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, outputDir string) error {
	a, err := app.New(ctx, cfg, logger, observability.DefaultMetrics)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Runner.Run(ctx)
	if err != nil {
		return err
	}

	if outputDir == "" {
		fmt.Print(res.Markdown)
	} else if err := writeOutputs(outputDir, res.Report, res.Markdown); err != nil {
		return err
	}

	for _, e := range res.Errors {
		logger.Warn().Err(e).Msg("phase failed")
	}
	if res.Report.Summary.Evaluated == 0 && res.Report.Summary.PageErrors > 0 {
		return errors.New("no symbol could be evaluated")
	}
	return nil
}

func writeOutputs(dir string, r *reporting.Report, markdown string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	files := map[string]string{
		"report.md":        markdown,
		"whales.csv":       reporting.RenderWhaleCSV(r.Whales),
		"large_trades.csv": reporting.RenderLargeTradeCSV(r.LargeTrades),
		"insiders.csv":     reporting.RenderInsiderCSV(r.Insiders),
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
