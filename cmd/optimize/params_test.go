package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/config"
)

func TestParamVectorRoundTrip(t *testing.T) {
	cfg := config.Default()
	pv := NewParamVector(cfg)

	def := pv.DefaultVector()
	assert.Equal(t, pv.ExtractFromConfig(cfg), def)
	assert.InDeltaSlice(t, def, pv.Denormalize(pv.Normalize(def)), 1e-9)
}

func TestApplyToConfigClamps(t *testing.T) {
	cfg := config.Default()
	pv := NewParamVector(cfg)

	pv.ApplyToConfig(cfg, []float64{100, -1, 0})
	assert.Equal(t, 20.0, cfg.Pass.MinPower)
	assert.Equal(t, 0.1, cfg.Pass.PowerPerDistance)
	assert.Equal(t, 20.0, cfg.Pass.MaxPower, "max power never below min power")
}

func TestComputeFitness(t *testing.T) {
	fe := NewFitnessEvaluator(NewParamVector(config.Default()), nil, config.Default(), 6)

	fitness, received := fe.computeFitness([]PassTrial{
		{Received: true, ArrivalSpeed: 8},
		{Received: false},
	})
	assert.InDelta(t, (4+missPenalty)/2, fitness, 1e-9)
	assert.InDelta(t, 0.5, received, 1e-9)
}

func TestRunPassReachesReceiver(t *testing.T) {
	cfg := config.Default()
	fe := NewFitnessEvaluator(NewParamVector(cfg), []int64{1}, cfg, 6)

	trial := fe.runPass(cfg, 1, r3.Vec{X: 8})
	require.True(t, trial.Received)
	assert.Greater(t, trial.ArrivalSpeed, 0.0)
	assert.Greater(t, trial.Power, cfg.Pass.MinPower)
}
