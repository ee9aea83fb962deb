package main

import (
	"github.com/pthm-cable/faceoff/config"
	"github.com/pthm-cable/faceoff/geom"
)

// ParamSpec is one tunable config field and the box CMA-ES searches it in.
type ParamSpec struct {
	Path     string
	Min, Max float64
	Default  float64

	get func(*config.Config) float64
	set func(*config.Config, float64)
}

func (s ParamSpec) span() float64 { return s.Max - s.Min }

// ParamVector maps between search space, where every parameter lives in
// [0,1], and config values.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector describes the pass-power curve. Defaults are read from base.
func NewParamVector(base *config.Config) *ParamVector {
	pv := &ParamVector{Specs: []ParamSpec{
		{
			Path: "pass.min_power", Min: 2, Max: 20,
			get: func(c *config.Config) float64 { return c.Pass.MinPower },
			set: func(c *config.Config, v float64) { c.Pass.MinPower = v },
		},
		{
			Path: "pass.power_per_distance", Min: 0.1, Max: 2,
			get: func(c *config.Config) float64 { return c.Pass.PowerPerDistance },
			set: func(c *config.Config, v float64) { c.Pass.PowerPerDistance = v },
		},
		{
			Path: "pass.max_power", Min: 15, Max: 45,
			get: func(c *config.Config) float64 { return c.Pass.MaxPower },
			set: func(c *config.Config, v float64) { c.Pass.MaxPower = max(v, c.Pass.MinPower) },
		},
	}}
	for i := range pv.Specs {
		pv.Specs[i].Default = pv.Specs[i].get(base)
	}
	return pv
}

// Dim is the search-space dimension.
func (pv *ParamVector) Dim() int { return len(pv.Specs) }

// DefaultVector returns the base config's values.
func (pv *ParamVector) DefaultVector() []float64 {
	return pv.each(func(_ int, s ParamSpec) float64 { return s.Default })
}

// Normalize maps config values into the unit box.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	return pv.each(func(i int, s ParamSpec) float64 { return (raw[i] - s.Min) / s.span() })
}

// Denormalize maps unit-box coordinates back to config values. The result
// is not clamped.
func (pv *ParamVector) Denormalize(unit []float64) []float64 {
	return pv.each(func(i int, s ParamSpec) float64 { return s.Min + unit[i]*s.span() })
}

// Clamp bounds each value to its spec's range.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	return pv.each(func(i int, s ParamSpec) float64 { return geom.Clamp(v[i], s.Min, s.Max) })
}

// ApplyToConfig writes clamped values into cfg in spec order, so max_power
// is compared against the min_power just written.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		pv.Specs[i].set(cfg, v)
	}
}

// ExtractFromConfig reads cfg's current values.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return pv.each(func(_ int, s ParamSpec) float64 { return s.get(cfg) })
}

func (pv *ParamVector) each(f func(int, ParamSpec) float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, s := range pv.Specs {
		out[i] = f(i, s)
	}
	return out
}
