package main

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/components"
	"github.com/pthm-cable/faceoff/config"
	"github.com/pthm-cable/faceoff/match"
)

// Distances in meters at which every parameter vector is tested.
var passDistances = []float64{4, 8, 12, 16, 20, 24, 28}

const (
	settleSec     = 0.5  // carrier holds the puck before passing
	flightSec     = 4.0  // pass must be received within this
	missPenalty   = 25.0 // added per pass that never arrives
	lateralJitter = 0.5  // receiver offset across the pass lane
	rangeJitter   = 1.0  // receiver offset along the pass lane
)

// PassTrial is the outcome of one simulated pass.
type PassTrial struct {
	Distance     float64 `yaml:"distance"`
	Power        float64 `yaml:"power"`
	Received     bool    `yaml:"received"`
	ArrivalSpeed float64 `yaml:"arrival_speed"`
	FlightSec    float64 `yaml:"flight_sec"`
}

// FitnessEvaluator runs headless passing drills and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	seeds       []int64
	baseConfig  *config.Config
	targetSpeed float64
	logger      *slog.Logger

	// Best run tracking
	mu           sync.Mutex
	bestFitness  float64
	bestTrials   []PassTrial
	lastReceived float64 // fraction of passes received in the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. targetSpeed is the arrival
// speed a receiver handles best.
func NewFitnessEvaluator(params *ParamVector, seeds []int64, baseCfg *config.Config, targetSpeed float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		seeds:       seeds,
		baseConfig:  baseCfg,
		targetSpeed: targetSpeed,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		bestFitness: math.Inf(1),
	}
}

// BestTrials returns the passes from the best evaluation.
func (fe *FitnessEvaluator) BestTrials() []PassTrial {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestTrials
}

// LastReceived returns the fraction of passes received in the most recent evaluation.
func (fe *FitnessEvaluator) LastReceived() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastReceived
}

// Evaluate computes fitness for a parameter vector (lower = better): the mean
// squared error between arrival and target speed, with a penalty per miss.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	// Run all seeds in parallel
	results := make([][]PassTrial, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runDrill(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var trials []PassTrial
	for _, r := range results {
		trials = append(trials, r...)
	}
	fitness, received := fe.computeFitness(trials)

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
		fe.bestTrials = trials
	}
	fe.lastReceived = received
	fe.mu.Unlock()

	return fitness
}

// runDrill passes once at every test distance with receivers jittered by seed.
func (fe *FitnessEvaluator) runDrill(cfg *config.Config, seed int64) []PassTrial {
	rng := rand.New(rand.NewSource(seed))
	trials := make([]PassTrial, 0, len(passDistances))
	for _, d := range passDistances {
		at := r3.Vec{
			X: d + (rng.Float64()*2-1)*rangeJitter,
			Z: (rng.Float64()*2 - 1) * lateralJitter,
		}
		trials = append(trials, fe.runPass(cfg, seed, at))
	}
	return trials
}

// runPass simulates a single pass from center ice to a stationary receiver
// at receiverPos who faces the passer.
func (fe *FitnessEvaluator) runPass(cfg *config.Config, seed int64, receiverPos r3.Vec) PassTrial {
	trial := PassTrial{Distance: math.Hypot(receiverPos.X, receiverPos.Z)}

	m, err := match.New(cfg, match.Options{Seed: seed, Logger: fe.logger})
	if err != nil {
		return trial
	}
	defer m.Close()

	team := m.HomeTeam()
	passer, err := m.AddSkater(match.SkaterSpec{
		Name: "passer",
		Team: team,
		Home: r3.Vec{X: -cfg.Stick.Reach, Z: -cfg.Stick.Side},
	})
	if err != nil {
		return trial
	}
	receiver, err := m.AddSkater(match.SkaterSpec{Name: "receiver", Team: team, Home: receiverPos})
	if err != nil {
		return trial
	}
	m.SetControl(receiver.ID(), components.Control{Intent: actor.Intent{Aim: r3.Vec{X: -1}}})

	dt := cfg.Physics.DT
	for i := 0; i < int(settleSec/dt); i++ {
		m.Step()
	}
	if !m.Stick(passer.ID()).HasPuck() {
		return trial
	}
	if t := m.PassEvaluator(passer.ID()).Target(); t != nil {
		trial.Power = m.PassEvaluator(passer.ID()).CalculatePassPower(t.Distance)
	}

	m.SetControl(passer.ID(), components.Control{Actions: components.ActionPass})
	speed := 0.0
	for i := 0; i < int(flightSec/dt); i++ {
		speed = m.Puck().Speed()
		m.Step()
		if owner := m.Puck().Owner(); owner != nil {
			trial.Received = owner.ID() == receiver.ID()
			trial.ArrivalSpeed = speed
			trial.FlightSec = float64(i+1) * dt
			break
		}
	}
	return trial
}

// copyConfig creates a copy of the base config. Maps and derived tables are
// shared read-only.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness returns the fitness of a set of trials and the fraction received.
func (fe *FitnessEvaluator) computeFitness(trials []PassTrial) (float64, float64) {
	if len(trials) == 0 {
		return math.Inf(1), 0
	}
	var sum float64
	received := 0
	for _, t := range trials {
		if !t.Received {
			sum += missPenalty
			continue
		}
		received++
		diff := t.ArrivalSpeed - fe.targetSpeed
		sum += diff * diff
	}
	n := float64(len(trials))
	return sum / n, float64(received) / n
}
