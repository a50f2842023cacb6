// Package main runs the daily whale briefing on a cron schedule and serves
// Prometheus metrics, health and last-run status over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"whale-tracker/internal/app"
	"whale-tracker/internal/briefing"
	"whale-tracker/internal/config"
	"whale-tracker/internal/domain"
	"whale-tracker/internal/logging"
	"whale-tracker/internal/observability"
)

// Server holds the scheduler state.
type Server struct {
	app    *app.App
	logger zerolog.Logger

	// State
	mu          sync.Mutex
	started     time.Time
	running     bool
	runs        int
	lastRun     time.Time
	lastStatus  string
	lastDate    string
	lastErrors  []string
	lastWhales  int
	skipped     int
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	Running     bool      `json:"running"`
	Runs        int       `json:"runs"`
	LastRun     time.Time `json:"last_run,omitempty"`
	LastStatus  string    `json:"last_status,omitempty"`
	LastDate    string    `json:"last_trade_date,omitempty"`
	LastWhales  int       `json:"last_whales"`
	LastErrors  []string  `json:"last_errors,omitempty"`
	RunsSkipped int       `json:"runs_skipped"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	runNow := flag.Bool("run-now", false, "Run one briefing immediately on startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, logger, observability.DefaultMetrics)
	if err != nil {
		logger.Fatal().Err(err).Msg("build app")
	}
	defer a.Close()

	server := &Server{
		app:     a,
		logger:  logging.Component(logger, "server"),
		started: time.Now(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	httpServer := server.startHTTPServer(cfg.Metrics.Addr)

	if err := server.Run(ctx, cfg.Schedule.Cron, *runNow, sigCh); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server error")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("shutdown complete")
}

// Run schedules briefings until a signal arrives, then waits for an
// in-flight briefing to finish.
func (s *Server) Run(ctx context.Context, spec string, runNow bool, sigCh <-chan os.Signal) error {
	loc, err := s.app.Config.Location()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() { s.runBriefing(ctx) }); err != nil {
		return err
	}
	c.Start()
	s.logger.Info().Str("cron", spec).Str("timezone", loc.String()).Msg("scheduler started")

	if runNow {
		go s.runBriefing(ctx)
	}

	select {
	case sig := <-sigCh:
		s.logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
	case <-ctx.Done():
	}

	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case sig := <-sigCh:
		s.logger.Warn().Str("signal", sig.String()).Msg("second signal, cancelling briefing")
		cancel()
		<-stopped.Done()
	case <-time.After(5 * time.Minute):
		s.logger.Warn().Msg("briefing still running after 5m, cancelling")
		cancel()
		<-stopped.Done()
	}

	return ctx.Err()
}

// runBriefing runs one briefing unless one is already in flight.
func (s *Server) runBriefing(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.skipped++
		s.mu.Unlock()
		s.logger.Warn().Msg("previous briefing still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	res, err := s.app.Runner.Run(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("briefing aborted")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.runs++
	s.lastRun = time.Now()
	s.recordResult(res)
}

func (s *Server) recordResult(res *briefing.Result) {
	if res == nil {
		s.lastStatus = briefing.StatusFailed
		return
	}
	s.lastStatus = res.Status
	s.lastDate = res.TradeDate.Format(domain.DateLayout)
	s.lastErrors = s.lastErrors[:0]
	for _, e := range res.Errors {
		s.lastErrors = append(s.lastErrors, e.Error())
	}
	if res.Report != nil {
		s.lastWhales = len(res.Report.Whales)
	}
}

func (s *Server) startHTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		s.logger.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()
	return srv
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Running:     s.running,
		Runs:        s.runs,
		LastRun:     s.lastRun,
		LastStatus:  s.lastStatus,
		LastDate:    s.lastDate,
		LastWhales:  s.lastWhales,
		LastErrors:  s.lastErrors,
		RunsSkipped: s.skipped,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
