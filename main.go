package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/config"
	"github.com/pthm-cable/faceoff/match"
	"github.com/pthm-cable/faceoff/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = one period)")
	perTeam := flag.Int("skaters", 3, "Skaters per team")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Use config stats window if not overridden by CLI
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger, runOptions{
		seed:        rngSeed,
		maxTicks:    *maxTicks,
		perTeam:     *perTeam,
		outputDir:   *outputDir,
		snapshotDir: *snapshotDir,
		logStats:    *logStats,
	}); err != nil {
		slog.Error("scrimmage failed", "error", err)
		os.Exit(1)
	}
}

type runOptions struct {
	seed        int64
	maxTicks    int
	perTeam     int
	outputDir   string
	snapshotDir string
	logStats    bool
}

// run plays one headless scrimmage between two teams of rush controllers.
func run(cfg *config.Config, logger *slog.Logger, opts runOptions) error {
	output, err := telemetry.NewOutputManager(opts.outputDir)
	if err != nil {
		return err
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		return err
	}

	m, err := match.New(cfg, match.Options{
		Seed:        opts.seed,
		Logger:      logger,
		Output:      output,
		SnapshotDir: opts.snapshotDir,
		LogStats:    opts.logStats,
	})
	if err != nil {
		return fmt.Errorf("creating match: %w", err)
	}
	defer m.Close()

	rng := rand.New(rand.NewSource(opts.seed))
	for _, team := range []actor.TeamID{m.HomeTeam(), m.AwayTeam()} {
		for i, home := range lineup(m, team, opts.perTeam) {
			_, err := m.AddSkater(match.SkaterSpec{
				Name: fmt.Sprintf("%s-%d", team, i+1),
				Team: team,
				Attributes: actor.Attributes{
					ShotPower: rng.Float64()*100 - 50,
					Accuracy:  rng.Float64()*100 - 50,
				},
				Home:       home,
				Controller: match.NewRushController(),
			})
			if err != nil {
				return err
			}
		}
	}

	maxTicks := opts.maxTicks
	if maxTicks <= 0 {
		maxTicks = 20 * 60 * cfg.Derived.TickRate
	}

	slog.Info("starting scrimmage",
		"match_id", m.ID(),
		"seed", opts.seed,
		"skaters_per_team", opts.perTeam,
		"max_ticks", maxTicks,
	)

	start := time.Now()
	for int(m.Tick()) < maxTicks {
		m.Update(cfg.Physics.DT)
	}

	summary := m.Summary()
	slog.Info("scrimmage finished",
		"ticks", summary.Ticks,
		"score_home", summary.ScoreHome,
		"score_away", summary.ScoreAway,
		"bookmarks", len(summary.Bookmarks),
		"wall_time", time.Since(start).String(),
	)
	return output.WriteSummary(summary)
}

// lineup spreads n faceoff spots across a team's half of the rink.
func lineup(m *match.Match, team actor.TeamID, n int) []r3.Vec {
	back := -float64(m.Rink().AttackedEnd(team))
	width := m.Config().Rink.Width
	spots := make([]r3.Vec, n)
	for i := range spots {
		z := 0.0
		if n > 1 {
			z = (float64(i)/float64(n-1) - 0.5) * width * 0.5
		}
		spots[i] = r3.Vec{X: back * (2 + float64(i%2)*4), Z: z}
	}
	return spots
}
