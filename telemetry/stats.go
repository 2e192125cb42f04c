package telemetry

import (
	"log/slog"
)

// WindowStats holds aggregated statistics for one telemetry window.
type WindowStats struct {
	WindowStart int     `csv:"-"`
	WindowEnd   int     `csv:"window_end"`
	SimTime     float64 `csv:"sim_time"`

	// Counts at window end
	Live            int     `csv:"live"`
	PoolUtilization float64 `csv:"pool_util"`

	// Events during the window
	Spawned      int `csv:"spawned"`
	SubSpawned   int `csv:"sub_spawned"`
	Died         int `csv:"died"`
	Recycled     int `csv:"recycled"`
	GridRebuilds int `csv:"grid_rebuilds"`

	// Distributions sampled at window end
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`
	AgeMean   float64 `csv:"age_mean"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStart),
		slog.Int("window_end", s.WindowEnd),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("live", s.Live),
		slog.Float64("pool_util", s.PoolUtilization),
		slog.Int("spawned", s.Spawned),
		slog.Int("sub_spawned", s.SubSpawned),
		slog.Int("died", s.Died),
		slog.Int("recycled", s.Recycled),
		slog.Int("grid_rebuilds", s.GridRebuilds),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("age_mean", s.AgeMean),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEnd,
		"sim_time", s.SimTime,
		"live", s.Live,
		"pool_util", s.PoolUtilization,
		"spawned", s.Spawned,
		"sub_spawned", s.SubSpawned,
		"died", s.Died,
		"recycled", s.Recycled,
		"grid_rebuilds", s.GridRebuilds,
		"speed_mean", s.SpeedMean,
		"speed_p50", s.SpeedP50,
		"speed_p90", s.SpeedP90,
		"age_mean", s.AgeMean,
	)
}
