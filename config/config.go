// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Shot type names as they appear under shot.types.
const (
	ShotWrist    = "wrist"
	ShotSnap     = "snap"
	ShotSlap     = "slap"
	ShotBackhand = "backhand"
)

// ShotTypeNames lists the shot types in their canonical order.
var ShotTypeNames = []string{ShotWrist, ShotSnap, ShotSlap, ShotBackhand}

// Config holds all simulation configuration parameters.
type Config struct {
	Physics   PhysicsConfig   `yaml:"physics"`
	Rink      RinkConfig      `yaml:"rink"`
	Puck      PuckConfig      `yaml:"puck"`
	Stick     StickConfig     `yaml:"stick"`
	Pass      PassConfig      `yaml:"pass"`
	Shot      ShotConfig      `yaml:"shot"`
	Skater    SkaterConfig    `yaml:"skater"`
	Match     MatchConfig     `yaml:"match"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PhysicsConfig holds fixed-step parameters.
type PhysicsConfig struct {
	DT      float64 `yaml:"dt"`      // seconds per fixed tick
	Gravity float64 `yaml:"gravity"` // downward acceleration for airborne pucks
}

// RinkConfig describes the playing surface. The rink is centred on the origin,
// length along X and width along Z.
type RinkConfig struct {
	Length           float64 `yaml:"length"`
	Width            float64 `yaml:"width"`
	GoalLineOffset   float64 `yaml:"goal_line_offset"` // distance from end boards to goal line
	GoalWidth        float64 `yaml:"goal_width"`
	GoalHeight       float64 `yaml:"goal_height"`
	BoardRestitution float64 `yaml:"board_restitution"`
	ImpactScale      float64 `yaml:"impact_scale"` // impact intensity per unit speed
	HomeTeam         int     `yaml:"home_team"`    // team defending the -X goal
	AwayTeam         int     `yaml:"away_team"`    // team defending the +X goal
}

// PuckConfig holds puck physics and possession parameters.
type PuckConfig struct {
	Mass             float64 `yaml:"mass"`
	Radius           float64 `yaml:"radius"`
	MaxSpeed         float64 `yaml:"max_speed"`
	PossessionRange  float64 `yaml:"possession_range"`
	StealFactor      float64 `yaml:"steal_factor"`       // challenger must be closer than owner distance * this
	ShotImmunityTime float64 `yaml:"shot_immunity_time"` // seconds no one may gain possession after a shot
	Friction         float64 `yaml:"friction"`           // per-tick horizontal factor while drifting
	ShotFriction     float64 `yaml:"shot_friction"`      // per-tick horizontal factor while shot-immune
	MinSpeed         float64 `yaml:"min_speed"`          // horizontal speed below this snaps to zero
	SpringConstant   float64 `yaml:"spring_constant"`
	DampingConstant  float64 `yaml:"damping_constant"`
	CarryBlend       float64 `yaml:"carry_blend"` // per-tick blend of puck velocity toward carrier velocity
	ShotLift         float64 `yaml:"shot_lift"`   // upward lift per unit of power/max_speed
}

// StickConfig holds per-skater stick geometry and contact parameters.
type StickConfig struct {
	Reach           float64 `yaml:"reach"`  // forward offset of the blade from the body
	Side            float64 `yaml:"side"`   // lateral offset (positive = right of facing)
	Length          float64 `yaml:"length"` // stick length, used for poke probes
	FollowRate      float64 `yaml:"follow_rate"`
	PickupCooldown  float64 `yaml:"pickup_cooldown"` // seconds after losing the puck before auto-pickup
	PokeImpulse     float64 `yaml:"poke_impulse"`
	PokeReachFactor float64 `yaml:"poke_reach_factor"` // probe length = length * this
	AutoPickup      bool    `yaml:"auto_pickup"`
}

// PassConfig holds pass-target evaluation parameters.
type PassConfig struct {
	MinDistance      float64 `yaml:"min_distance"`
	MaxDistance      float64 `yaml:"max_distance"`
	MinPower         float64 `yaml:"min_power"`
	MaxPower         float64 `yaml:"max_power"`
	PowerPerDistance float64 `yaml:"power_per_distance"`
	AimAssistAngle   float64 `yaml:"aim_assist_angle"` // degrees, half-angle of the cone
	LeadFactor       float64 `yaml:"lead_factor"`
	MaxLeadOffset    float64 `yaml:"max_lead_offset"`
	MinLeadSpeed     float64 `yaml:"min_lead_speed"`
	BlockRadius      float64 `yaml:"block_radius"`
	BlockedFactor    float64 `yaml:"blocked_factor"`
	ForwardBonus     float64 `yaml:"forward_bonus"`
	ForwardThreshold float64 `yaml:"forward_threshold"`
	PeakFraction     float64 `yaml:"peak_fraction"` // distance factor peaks at max_distance * this
	EdgeFactor       float64 `yaml:"edge_factor"`   // distance factor at the range ends
	RecheckInterval  float64 `yaml:"recheck_interval"`
	ClearDistance    float64 `yaml:"clear_distance"`
	SaucerHeight     float64 `yaml:"saucer_height"`
}

// ShotTypeConfig holds the tuning for a single shot type.
type ShotTypeConfig struct {
	MinPower      float64 `yaml:"min_power"`
	MaxPower      float64 `yaml:"max_power"`
	MaxChargeTime float64 `yaml:"max_charge_time"`
	MinWindup     float64 `yaml:"min_windup"`     // release before this cancels the shot
	AccuracyBonus float64 `yaml:"accuracy_bonus"` // spread is scaled by (1 - bonus)
}

// ShotConfig holds shot computation parameters.
type ShotConfig struct {
	Types             map[string]ShotTypeConfig `yaml:"types"`
	BaseSpread        float64                   `yaml:"base_spread"` // degrees
	MaxSpread         float64                   `yaml:"max_spread"`  // degrees
	SpeedPenalty      float64                   `yaml:"speed_penalty"`
	AssistRange       float64                   `yaml:"assist_range"`
	AssistStrength    float64                   `yaml:"assist_strength"`
	OneTimerWindow    float64                   `yaml:"one_timer_window"`
	OneTimerBonus     float64                   `yaml:"one_timer_bonus"`
	OneTimerReference string                    `yaml:"one_timer_reference"`
}

// SkaterConfig holds movement parameters used by the match driver.
type SkaterConfig struct {
	MaxSpeed   float64 `yaml:"max_speed"`
	Accel      float64 `yaml:"accel"`       // per-second blend toward desired velocity
	Glide      float64 `yaml:"glide"`       // per-tick velocity factor with no input
	BodyRadius float64 `yaml:"body_radius"` // used for obstruction probes
}

// MatchConfig holds match driver parameters.
type MatchConfig struct {
	MaxStepsPerFrame int     `yaml:"max_steps_per_frame"`
	GoalPause        float64 `yaml:"goal_pause"` // seconds between a goal and the next faceoff
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	TickRate         int     // fixed ticks per second
	AimAssistRad     float64 // Pass.AimAssistAngle in radians
	BaseSpreadRad    float64 // Shot.BaseSpread in radians
	MaxSpreadRad     float64 // Shot.MaxSpread in radians
	ShotTypes        []ShotTypeConfig
	OneTimerRefIndex int
}

var global *Config

// Init loads path, or the embedded defaults when path is empty, and installs
// the result as the process-wide config returned by Cfg.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the config installed by Init and panics before it.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg called before Init")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load decodes the embedded defaults, then overlays path on top of them so a
// file only names the fields it changes. The result is validated and its
// derived values filled in.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// validate rejects settings the simulation cannot run with.
func (c *Config) validate() error {
	if c.Physics.DT <= 0 {
		return fmt.Errorf("physics.dt must be positive, got %v", c.Physics.DT)
	}
	if c.Puck.MaxSpeed <= 0 {
		return fmt.Errorf("puck.max_speed must be positive, got %v", c.Puck.MaxSpeed)
	}
	if c.Pass.MinPower > c.Pass.MaxPower {
		return fmt.Errorf("pass.min_power (%v) exceeds pass.max_power (%v)", c.Pass.MinPower, c.Pass.MaxPower)
	}
	if c.Pass.AimAssistAngle <= 0 {
		return fmt.Errorf("pass.aim_assist_angle must be positive, got %v", c.Pass.AimAssistAngle)
	}
	if _, ok := c.Shot.Types[ShotWrist]; !ok {
		return fmt.Errorf("shot.types.%s is required", ShotWrist)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.TickRate = int(math.Round(1 / c.Physics.DT))
	c.Derived.AimAssistRad = c.Pass.AimAssistAngle * math.Pi / 180
	c.Derived.BaseSpreadRad = c.Shot.BaseSpread * math.Pi / 180
	c.Derived.MaxSpreadRad = c.Shot.MaxSpread * math.Pi / 180

	// Missing shot types inherit the wrist shot tuning
	wrist := c.Shot.Types[ShotWrist]
	c.Derived.ShotTypes = make([]ShotTypeConfig, len(ShotTypeNames))
	for i, name := range ShotTypeNames {
		st, ok := c.Shot.Types[name]
		if !ok {
			st = wrist
		}
		c.Derived.ShotTypes[i] = st
	}

	c.Derived.OneTimerRefIndex = 0
	for i, name := range ShotTypeNames {
		if name == c.Shot.OneTimerReference {
			c.Derived.OneTimerRefIndex = i
		}
	}
}

// WriteYAML saves c to path. Derived values are not written; Load
// recomputes them.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
