// Command raidsim runs a raid campaign: a seeded region of settlements, a
// daily clock that moves raids through their phases, and the HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/raid-campaign/internal/api"
	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/config"
	"github.com/talgya/raid-campaign/internal/engine"
	"github.com/talgya/raid-campaign/internal/persistence"
	"github.com/talgya/raid-campaign/internal/world"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	setupLogging(level)

	slog.Info("Raid Campaign simulator", "seed", cfg.Seed, "day_interval", cfg.DayInterval)

	// ── Balance tables ───────────────────────────────────────────────
	tables := balance.Default()
	if cfg.BalanceFile != "" {
		tables, err = balance.Load(cfg.BalanceFile)
		if err != nil {
			slog.Error("failed to load balance file", "path", cfg.BalanceFile, "error", err)
			os.Exit(1)
		}
		slog.Info("balance overrides loaded", "path", cfg.BalanceFile, "classes", len(tables.Classes()))
	}

	// ── Database ─────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or seed the campaign ────────────────────────────────────
	var sim *engine.Simulation
	if db.HasWorldState() {
		slog.Info("found saved campaign, loading...")
		sim, err = db.LoadWorldState(tables)
		if err != nil {
			slog.Error("failed to load campaign", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("no saved campaign, seeding a new region...")
		setup, m := engine.SeedWorld(engine.SeedConfig{
			Seed:           cfg.Seed,
			Settlements:    cfg.Settlements,
			PlayerWarriors: cfg.PlayerWarriors,
			PlayerFood:     cfg.PlayerFood,
			Leaders:        cfg.Leaders,
		})
		for t, c := range world.TerrainCounts(m) {
			slog.Debug("terrain", "type", t, "count", c)
		}
		setup.Tables = tables
		sim = engine.NewSimulation(setup)
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
		if err := db.SaveSeed(cfg.Seed); err != nil {
			slog.Error("failed to record seed", "error", err)
		}
	}

	home, ok := sim.Home()
	if !ok {
		slog.Error("campaign has no home settlement", "home_id", sim.HomeID)
		os.Exit(1)
	}
	slog.Info("campaign ready",
		"home", home.Name,
		"settlements", len(sim.Registry.Settlements()),
		"warriors", humanize.Comma(int64(sim.Pool.GetAvailableWarriors())),
		"active_raids", len(sim.Raids.ActiveRaids()),
		"day", sim.Raids.Day(),
	)

	// ── Clock ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Day = sim.Raids.Day()
	eng.Interval = cfg.DayInterval
	eng.OnDay = func(day int) {
		sim.TickDay(day)
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("daily save failed", "error", err)
		}
	}
	eng.OnWeek = sim.TickWeek

	// ── HTTP API ─────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("RAIDSIM_ADMIN_KEY not set, admin endpoints will be disabled")
	}
	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
	}
	if cfg.OrdersPerMinute > 0 {
		apiServer.Orders = api.NewRateLimiter(cfg.OrdersPerMinute, time.Minute)
	}
	srv := apiServer.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nThe longships are ready at %s: %d warriors, %d settlements within reach.\n",
		home.Name, sim.Pool.GetAvailableWarriors(), len(sim.Registry.Settlements())-1)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	if day := sim.Raids.Day(); day > 0 {
		fmt.Printf("Resuming from day %d (%s)\n", day, engine.SimTime(day))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}

	slog.Info("final save...")
	if err := db.SaveWorldState(sim); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Simulation stopped. Campaign saved.")
}

// setupLogging writes readable text to a terminal and JSON otherwise.
func setupLogging(level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
