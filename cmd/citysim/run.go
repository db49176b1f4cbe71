package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/talgya/cityscape/internal/api"
	"github.com/talgya/cityscape/internal/config"
	"github.com/talgya/cityscape/internal/engine"
	"github.com/talgya/cityscape/internal/metrics"
	"github.com/talgya/cityscape/internal/persistence"
)

func runSim(cfg config.Config) error {
	slog.Info("CityScape grid city simulation")

	// ── Database ──────────────────────────────────────────────────────
	db, err := openDB(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	// ── Load or Generate City ─────────────────────────────────────────
	c, resumed, err := loadOrCreate(cfg, db)
	if err != nil {
		return err
	}
	s := persistence.NewSaver(db, c)

	// Save on fresh generation only (loaded cities are already saved).
	if !resumed {
		if _, err := s.Save(); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Metrics ───────────────────────────────────────────────────────
	var collector *metrics.Collector
	if cfg.API.Metrics {
		if collector, err = metrics.NewCollector(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Tick = c.Tick()
	eng.Interval = time.Duration(cfg.Simulation.Interval)
	eng.SetSpeed(cfg.Simulation.Speed)

	eng.OnTick = func(tick uint64) {
		start := time.Now()
		snap, err := c.Step()
		if err != nil {
			slog.Error("tick failed", "tick", tick, "error", err)
			collector.ObserveError()
			return
		}
		collector.ObserveTick(snap, c.Funds(), time.Since(start))
	}
	// Auto-save monthly.
	eng.OnMonth = func(tick uint64) {
		snap := c.LastSnapshot()
		slog.Info("monthly report",
			"sim_time", engine.SimTime(tick),
			"population", snap.Economics.Population,
			"jobs", snap.Economics.Jobs,
			"happiness", snap.Happiness,
			"funds", c.Funds(),
			"net_income", snap.Economics.NetIncome,
		)
		if _, err := s.Save(); err != nil {
			slog.Error("monthly save failed", "error", err)
		}
	}
	eng.OnYear = func(tick uint64) {
		slog.Info("year complete",
			"sim_time", engine.SimTime(tick),
			"funds", humanize.Comma(int64(c.Funds())),
			"buildings", len(c.Buildings()),
		)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.AdminKey == "" {
		slog.Warn("CITYSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		City:     c,
		Eng:      eng,
		Saver:    s,
		Metrics:  collector,
		Port:     cfg.API.Port,
		AdminKey: cfg.API.AdminKey,
	}
	httpServer := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nCityScape is live: %s buildings on a %dx%d grid, treasury %s.\n",
		humanize.Comma(int64(len(c.Buildings()))), cfg.City.Width, cfg.City.Height, humanize.Comma(int64(c.Funds())))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	if resumed {
		fmt.Printf("Resuming from tick %d (%s)\n", eng.Tick, engine.SimTime(eng.Tick))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if _, err := s.Save(); err != nil {
		slog.Error("final save failed", "error", err)
		return err
	}

	fmt.Fprintln(os.Stdout, "Simulation stopped. City saved.")
	return nil
}
