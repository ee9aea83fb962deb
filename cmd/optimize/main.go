// Command optimize tunes the pass-power curve with CMA-ES so that passes at
// every drill distance reach the receiver near a catchable speed.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/faceoff/config"
)

type options struct {
	configPath  string
	seeds       int
	maxEvals    int
	population  int
	targetSpeed float64
	outputDir   string
}

// evalRow is one line of optimize_log.csv.
type evalRow struct {
	Eval             int     `csv:"eval"`
	Fitness          float64 `csv:"fitness"`
	Received         float64 `csv:"received"`
	MinPower         float64 `csv:"min_power"`
	PowerPerDistance float64 `csv:"power_per_distance"`
	MaxPower         float64 `csv:"max_power"`
}

// progress logs every evaluation to optimize_log.csv and the console and
// remembers the best point seen, which CMA-ES may not end on.
type progress struct {
	f       *os.File
	headed  bool
	budget  int
	started time.Time

	evals    int
	best     float64
	bestVals []float64
}

func (p *progress) record(fitness, received float64, vals []float64) {
	p.evals++
	if p.bestVals == nil || fitness < p.best {
		p.best = fitness
		p.bestVals = vals
	}

	rows := []evalRow{{
		Eval:             p.evals,
		Fitness:          fitness,
		Received:         received,
		MinPower:         vals[0],
		PowerPerDistance: vals[1],
		MaxPower:         vals[2],
	}}
	var err error
	if p.headed {
		err = gocsv.MarshalWithoutHeaders(rows, p.f)
	} else {
		err = gocsv.Marshal(rows, p.f)
	}
	if err != nil {
		slog.Warn("writing optimize log", "error", err)
	}
	p.headed = true

	elapsed := time.Since(p.started)
	eta := time.Duration(p.budget-p.evals) * (elapsed / time.Duration(p.evals))
	slog.Info("eval",
		"n", fmt.Sprintf("%d/%d", p.evals, p.budget),
		"fitness", fitness,
		"received_pct", int(received*100),
		"best", p.best,
		"elapsed", elapsed.Round(time.Second),
		"eta", eta.Round(time.Second),
	)
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Base config YAML file (empty = defaults)")
	flag.IntVar(&opts.seeds, "seeds", 3, "Seeds per evaluation")
	flag.IntVar(&opts.maxEvals, "max-evals", 200, "Evaluation budget")
	flag.IntVar(&opts.population, "population", 0, "CMA-ES population (0 = 4 + 3n/2)")
	flag.Float64Var(&opts.targetSpeed, "target-speed", 6, "Arrival speed (m/s) a receiver handles best")
	flag.StringVar(&opts.outputDir, "output", "", "Output directory for results")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := run(opts); err != nil {
		slog.Error("optimize failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.outputDir == "" {
		return errors.New("--output is required")
	}
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := config.Init(opts.configPath); err != nil {
		return err
	}
	base := config.Cfg()
	params := NewParamVector(base)

	seeds := make([]int64, opts.seeds)
	for i := range seeds {
		seeds[i] = 42 + 1000*int64(i)
	}
	evaluator := NewFitnessEvaluator(params, seeds, base, opts.targetSpeed)

	logFile, err := os.Create(filepath.Join(opts.outputDir, "optimize_log.csv"))
	if err != nil {
		return fmt.Errorf("creating optimize log: %w", err)
	}
	defer logFile.Close()
	prog := &progress{f: logFile, budget: opts.maxEvals, started: time.Now()}

	pop := opts.population
	if pop == 0 {
		pop = 4 + 3*params.Dim()/2
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			vals := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(vals)
			prog.record(fitness, evaluator.LastReceived(), vals)
			return fitness
		},
	}
	slog.Info("starting CMA-ES",
		"params", params.Dim(), "population", pop, "max_evals", opts.maxEvals,
		"seeds", opts.seeds, "distances", len(passDistances))

	result, err := optimize.Minimize(problem, params.Normalize(params.DefaultVector()),
		&optimize.Settings{FuncEvaluations: opts.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: pop})
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}
	best := prog.bestVals
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return errors.New("no evaluations completed")
	}

	slog.Info("optimization complete",
		"evals", prog.evals, "took", time.Since(prog.started).Round(time.Second), "best_fitness", prog.best)
	for i, spec := range params.Specs {
		slog.Info("best", "param", spec.Path, "value", best[i])
	}
	return writeResults(opts, params, best, evaluator.BestTrials())
}

// writeResults saves best_config.yaml and, when any evaluation recorded
// trials, best_passes.yaml.
func writeResults(opts options, params *ParamVector, best []float64, trials []PassTrial) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	params.ApplyToConfig(cfg, best)
	cfgPath := filepath.Join(opts.outputDir, "best_config.yaml")
	if err := cfg.WriteYAML(cfgPath); err != nil {
		return err
	}
	slog.Info("wrote best config", "path", cfgPath)

	if trials == nil {
		return nil
	}
	data, err := yaml.Marshal(trials)
	if err != nil {
		return fmt.Errorf("marshaling passes: %w", err)
	}
	passPath := filepath.Join(opts.outputDir, "best_passes.yaml")
	if err := os.WriteFile(passPath, data, 0644); err != nil {
		return fmt.Errorf("writing passes: %w", err)
	}
	slog.Info("wrote best passes", "path", passPath)
	return nil
}
