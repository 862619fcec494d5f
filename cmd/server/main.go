package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"flight-time-engine/internal/api"
	"flight-time-engine/internal/cache"
	"flight-time-engine/internal/config"
	"flight-time-engine/internal/credit"
	"flight-time-engine/internal/engine"
	"flight-time-engine/internal/frms"
	"flight-time-engine/internal/gazetteer"
	"flight-time-engine/internal/metrics"
	"flight-time-engine/internal/night"
	"flight-time-engine/internal/store"
	"flight-time-engine/internal/window"
	"flight-time-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "flight-time-engine: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logging.Level)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gaz, err := gazetteer.Load(cfg.Gazetteer.Path)
	if err != nil {
		return fmt.Errorf("load gazetteer: %w", err)
	}
	limits, err := frms.LoadLimits(cfg.Limits.Path)
	if err != nil {
		return fmt.Errorf("load fleet limits: %w", err)
	}
	log.Info("reference data loaded", "airports", gaz.Len(), "fleets", len(limits))

	st, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	log.Info("store opened", "driver", cfg.Store.Driver)

	eng, err := buildEngine(cfg.Engine, gaz, limits, log, m)
	if err != nil {
		return err
	}

	opts := []api.Option{
		api.WithLogger(log),
		api.WithMetrics(m),
		api.WithRateLimiter(api.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)),
		api.WithRecentEvaluations(cfg.Server.RecentEvaluations),
	}
	if cfg.Cache.Enabled {
		rc := cache.NewRedisCache(cfg.Cache)
		defer rc.Close()
		if err := rc.Ping(ctx); err != nil {
			// Summaries are recomputed on every request until redis is back.
			log.Warn("redis unreachable, continuing without summary cache", "addr", cfg.Cache.Addr, "error", err)
		}
		opts = append(opts, api.WithSummaryCache(rc))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewServer(eng, st, opts...).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func buildEngine(cfg config.EngineConfig, gaz *gazetteer.Gazetteer, limits frms.LimitsTable, log *slog.Logger, m *metrics.Metrics) (*engine.Engine, error) {
	sampler, err := night.New(
		night.WithSegments(cfg.SampleSegments),
		night.WithLandingOffset(cfg.LandingOffset),
	)
	if err != nil {
		return nil, fmt.Errorf("night sampler: %w", err)
	}
	allocator, err := credit.New(credit.WithInstrumentMinutes(cfg.InstrumentMinutes))
	if err != nil {
		return nil, fmt.Errorf("credit allocator: %w", err)
	}

	specs := make([]window.Spec, 0, len(cfg.FlightWindows)+len(cfg.DutyWindows))
	for _, d := range cfg.FlightWindows {
		specs = append(specs, window.Spec{Kind: window.KindFlight, Days: d})
	}
	for _, d := range cfg.DutyWindows {
		specs = append(specs, window.Spec{Kind: window.KindDuty, Days: d})
	}

	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithMetrics(m),
		engine.WithSampler(sampler),
		engine.WithAllocator(allocator),
		engine.WithWindows(specs),
	}
	if cfg.ContextCache {
		opts = append(opts, engine.WithContextCache())
	}
	return engine.New(gaz, limits, opts...)
}
