package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/plume/config"
	"github.com/pthm-cable/plume/engine"
	"github.com/pthm-cable/plume/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = use config; -1 = time-based)")
	maxFrames := flag.Int("max-frames", 0, "Stop after N frames (0 = unlimited)")
	watch := flag.Bool("watch", false, "Reload config file on change")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := cfg.Simulation.Seed
	if *seed > 0 {
		rngSeed = *seed
	} else if *seed == -1 {
		rngSeed = time.Now().UnixNano()
	}

	eng := engine.New(engine.Options{
		Capacity:      cfg.Simulation.Capacity,
		Seed:          rngSeed,
		CellSize:      float32(cfg.Simulation.GridCellSize),
		CacheInterval: cfg.Cache.Interval,
		CacheCapacity: cfg.Cache.Capacity,
	})
	if err := applyScene(eng, cfg, nil); err != nil {
		slog.Error("failed to apply scene", "error", err)
		os.Exit(1)
	}

	collector := telemetry.NewCollector(cfg.Telemetry.StatsWindow)
	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	eng.SetTelemetry(collector, perf)

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		slog.Warn("failed to write config snapshot", "error", err)
	}

	// Config hot reload: the watcher goroutine hands fresh configs to the
	// simulation loop through a channel so scene mutation stays
	// single-threaded.
	reload := make(chan *config.Config, 1)
	if *watch && *configPath != "" {
		stop, err := config.Watch(*configPath, func(c *config.Config) {
			select {
			case reload <- c:
			default:
			}
		})
		if err != nil {
			slog.Error("failed to watch config", "error", err)
			os.Exit(1)
		}
		defer stop()
	}

	slog.Info("starting simulation",
		"seed", rngSeed,
		"capacity", eng.Capacity(),
		"headless", *headless,
		"max_frames", *maxFrames,
	)

	if *headless {
		runHeadless(eng, cfg, collector, perf, out, *logStats, *maxFrames, reload)
		return
	}
	runViewer(eng, cfg, collector, perf, out, *logStats, *maxFrames, reload)
}

// applyScene reconciles the engine's registries against the config's scene
// description. prev is the previously applied config, nil on first apply.
func applyScene(eng *engine.Engine, cfg, prev *config.Config) error {
	known := make(map[string]bool)
	if prev != nil {
		for _, e := range prev.Emitters {
			known[e.ID] = true
		}
	}
	for _, e := range cfg.Emitters {
		var err error
		if known[e.ID] {
			err = eng.UpdateEmitter(e)
		} else {
			err = eng.AddEmitter(e)
		}
		if err != nil {
			return err
		}
		delete(known, e.ID)
	}
	for id := range known {
		if err := eng.RemoveEmitter(id); err != nil {
			return err
		}
	}

	knownFields := make(map[string]bool)
	if prev != nil {
		for _, f := range prev.Fields {
			knownFields[f.ID] = true
		}
	}
	for _, f := range cfg.Fields {
		var err error
		if knownFields[f.ID] {
			err = eng.UpdateField(f)
		} else {
			err = eng.AddField(f)
		}
		if err != nil {
			return err
		}
		delete(knownFields, f.ID)
	}
	for id := range knownFields {
		if err := eng.RemoveField(id); err != nil {
			return err
		}
	}

	// Sub-emitters and bindings have no in-place update; replace them.
	if prev != nil {
		for _, s := range prev.SubEmitters {
			if err := eng.RemoveSubEmitter(s.ID); err != nil {
				return err
			}
		}
		for _, b := range prev.Bindings {
			if err := eng.RemoveBinding(b); err != nil {
				return err
			}
		}
	}
	for _, s := range cfg.SubEmitters {
		if err := eng.AddSubEmitter(s); err != nil {
			return err
		}
	}
	for _, b := range cfg.Bindings {
		if err := eng.AddBinding(b); err != nil {
			return err
		}
	}

	eng.SetFlocking(cfg.Flocking)
	eng.SetCollision(cfg.Collision)
	return nil
}

// flushTelemetry closes a stats window if one is ready.
func flushTelemetry(eng *engine.Engine, collector *telemetry.Collector, perf *telemetry.PerfCollector, out *telemetry.OutputManager, logStats bool) {
	if !collector.Ready() {
		return
	}
	ws := collector.Flush(eng.Particles(), eng.Capacity())
	if logStats {
		ws.LogStats()
	}
	if err := out.WriteWindow(ws); err != nil {
		slog.Warn("failed to write window stats", "error", err)
	}
	ps := perf.Stats()
	if logStats {
		ps.LogStats()
	}
	if err := out.WritePerf(ps, ws.WindowEnd); err != nil {
		slog.Warn("failed to write perf stats", "error", err)
	}
}

func runHeadless(eng *engine.Engine, cfg *config.Config, collector *telemetry.Collector, perf *telemetry.PerfCollector, out *telemetry.OutputManager, logStats bool, maxFrames int, reload <-chan *config.Config) {
	dt := cfg.Derived.DT32
	for {
		select {
		case next := <-reload:
			if err := applyScene(eng, next, cfg); err != nil {
				slog.Warn("scene reload failed", "error", err)
			} else {
				cfg = next
				dt = cfg.Derived.DT32
			}
		default:
		}

		eng.Step(dt)
		flushTelemetry(eng, collector, perf, out, logStats)

		if maxFrames > 0 && eng.Frame() >= maxFrames {
			slog.Info("max frames reached", "frame", eng.Frame(), "live", eng.Live())
			return
		}
	}
}

func runViewer(eng *engine.Engine, cfg *config.Config, collector *telemetry.Collector, perf *telemetry.PerfCollector, out *telemetry.OutputManager, logStats bool, maxFrames int, reload <-chan *config.Config) {
	rl.InitWindow(cfg.Derived.ScreenW, cfg.Derived.ScreenH, "plume")
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	v := newViewer(eng, cfg)

	for !rl.WindowShouldClose() {
		select {
		case next := <-reload:
			if err := applyScene(eng, next, cfg); err != nil {
				slog.Warn("scene reload failed", "error", err)
			} else {
				cfg = next
			}
		default:
		}

		v.update(cfg)
		flushTelemetry(eng, collector, perf, out, logStats)
		perf.RecordFrame()
		v.draw(cfg)

		if maxFrames > 0 && eng.Frame() >= maxFrames {
			break
		}
	}
}
