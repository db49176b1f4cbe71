package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/talgya/cityscape/internal/config"
	"github.com/talgya/cityscape/internal/engine"
	"github.com/talgya/cityscape/internal/persistence"
	"github.com/talgya/cityscape/internal/scenario"
	"github.com/talgya/cityscape/internal/store"
)

// openDB opens the configured database, creating its directory.
func openDB(path string) (*persistence.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
	}
	db, err := persistence.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", path)
	return db, nil
}

func genConfig(c config.CityConfig) scenario.GenConfig {
	gc := scenario.DefaultGenConfig()
	gc.Width = c.Width
	gc.Height = c.Height
	gc.Seed = c.Seed
	gc.Funds = c.Funds
	gc.Density = c.Density
	return gc
}

// loadOrCreate restores the saved city, or builds a fresh one when the
// database is empty. It reports whether the city was restored.
func loadOrCreate(cfg config.Config, db *persistence.DB) (*store.City, bool, error) {
	if db.HasCityState() {
		slog.Info("found saved city, loading...")
		st, err := db.LoadCityState()
		if err != nil {
			return nil, false, fmt.Errorf("load city: %w", err)
		}
		c, err := store.Restore(st)
		if err != nil {
			return nil, false, fmt.Errorf("restore city: %w", err)
		}
		slog.Info("city restored",
			"buildings", len(st.Buildings),
			"tiles", len(st.Infrastructure),
			"tick", st.Tick,
			"sim_time", engine.SimTime(st.Tick),
		)
		return c, true, nil
	}

	if !cfg.City.Generate {
		slog.Info("no saved city, starting with an empty grid", "width", cfg.City.Width, "height", cfg.City.Height)
		c, err := store.New(cfg.City.Width, cfg.City.Height, cfg.City.Funds)
		return c, false, err
	}

	slog.Info("no saved city, generating...", "seed", cfg.City.Seed)
	st, err := scenario.Generate(genConfig(cfg.City))
	if err != nil {
		return nil, false, fmt.Errorf("generate city: %w", err)
	}
	c, err := store.Restore(st)
	if err != nil {
		return nil, false, fmt.Errorf("restore generated city: %w", err)
	}
	return c, false, nil
}

func runGenerate(cfg config.Config, out string, save, force bool) error {
	st, err := scenario.Generate(genConfig(cfg.City))
	if err != nil {
		return err
	}
	c, err := store.Restore(st)
	if err != nil {
		return err
	}

	if out != "" {
		w := os.Stdout
		if out != "-" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			w = f
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(st); err != nil {
			return fmt.Errorf("write city: %w", err)
		}
	}

	if save {
		db, err := openDB(cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		if db.HasCityState() && !force {
			return fmt.Errorf("%s already holds a city (use --force to overwrite)", cfg.Storage.Path)
		}
		if err := db.SaveCityState(st); err != nil {
			return err
		}
	}

	if out != "-" {
		snap, err := c.Step()
		if err != nil {
			return err
		}
		printReport(os.Stdout, c, snap)
	}
	return nil
}

func runInspect(cfg config.Config, listBuildings bool) error {
	if _, err := os.Stat(cfg.Storage.Path); err != nil {
		return fmt.Errorf("inspect %s: %w", cfg.Storage.Path, err)
	}
	db, err := persistence.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if !db.HasCityState() {
		return fmt.Errorf("%s holds no saved city", cfg.Storage.Path)
	}

	st, err := db.LoadCityState()
	if err != nil {
		return err
	}
	c, err := store.Restore(st)
	if err != nil {
		return err
	}
	// Evaluate without persisting; the tick counter advances only in memory.
	snap, err := c.Step()
	if err != nil {
		return err
	}

	printReport(os.Stdout, c, snap)
	if info, err := os.Stat(cfg.Storage.Path); err == nil {
		printDBSize(os.Stdout, info.Size())
	}
	if listBuildings {
		printBuildings(os.Stdout, c, snap)
	}

	events, err := db.RecentEvents(10)
	if err == nil && len(events) > 0 {
		printEvents(os.Stdout, events)
	}
	return nil
}

func runStep(cfg config.Config, ticks int, save bool) error {
	db, err := openDB(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	c, _, err := loadOrCreate(cfg, db)
	if err != nil {
		return err
	}

	var snap engine.Snapshot
	for i := 0; i < ticks; i++ {
		if snap, err = c.Step(); err != nil {
			return err
		}
	}
	printReport(os.Stdout, c, snap)

	if save {
		_, err := persistence.NewSaver(db, c).Save()
		return err
	}
	return nil
}

func parseTicks(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("ticks must be a positive integer, got %q", arg)
	}
	return n, nil
}
