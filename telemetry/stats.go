package telemetry

import (
	"fmt"
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Running score at window end
	ScoreHome int `csv:"score_home"`
	ScoreAway int `csv:"score_away"`

	// Possession changes
	Pickups    int `csv:"pickups"`
	Steals     int `csv:"steals"`
	KnockLoose int `csv:"knock_loose"`
	Slips      int `csv:"slips"`
	Drops      int `csv:"drops"`

	// Shooting
	Shots         int     `csv:"shots"`
	OneTimers     int     `csv:"one_timers"`
	ShotPowerMean float64 `csv:"shot_power_mean"`
	ShotPowerP50  float64 `csv:"shot_power_p50"`
	ShotPowerP90  float64 `csv:"shot_power_p90"`

	// Passing
	Passes          int     `csv:"passes"`
	SaucerPasses    int     `csv:"saucer_passes"`
	Clears          int     `csv:"clears"`
	CompletedPasses int     `csv:"completed_passes"`
	Interceptions   int     `csv:"interceptions"`
	PassCompletion  float64 `csv:"pass_completion"`

	// Goals during window
	GoalsHome int `csv:"goals_home"`
	GoalsAway int `csv:"goals_away"`
	Faceoffs  int `csv:"faceoffs"`

	// Board impacts
	Impacts    int     `csv:"impacts"`
	ImpactMean float64 `csv:"impact_mean"`

	// Share of window ticks each team carried the puck
	HomePossession float64 `csv:"home_possession"`
	AwayPossession float64 `csv:"away_possession"`
}

// Distribution summarizes a sample by its mean and empirical quantiles.
// Quantiles are sample values, never interpolated.
type Distribution struct {
	Mean, P50, P90 float64
}

// Distribute summarizes values without reordering them. An empty sample
// yields the zero Distribution.
func Distribute(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return Distribution{
		Mean: stat.Mean(sorted, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:  stat.Quantile(0.9, stat.Empirical, sorted, nil),
	}
}

// LogValue implements slog.LogValuer with the headline numbers of the
// window. The CSV row carries the rest.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.String("score", fmt.Sprintf("%d-%d", s.ScoreHome, s.ScoreAway)),
		slog.Int("shots", s.Shots),
		slog.Int("one_timers", s.OneTimers),
		slog.Float64("shot_power_p50", s.ShotPowerP50),
		slog.Int("passes", s.Passes),
		slog.Float64("pass_completion", s.PassCompletion),
		slog.Int("steals", s.Steals),
		slog.Int("knock_loose", s.KnockLoose),
		slog.Int("goals", s.GoalsHome+s.GoalsAway),
		slog.Float64("home_possession", s.HomePossession),
		slog.Float64("away_possession", s.AwayPossession),
	)
}
