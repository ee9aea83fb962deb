// Package shot turns a skater's charge and intent into a shot power and
// direction and submits it through the skater's stick.
package shot

import (
	"errors"
	"log/slog"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/config"
	"github.com/pthm-cable/faceoff/geom"
	"github.com/pthm-cable/faceoff/stick"
)

var (
	// ErrWindupTooShort is returned when a shot is released before its minimum wind-up.
	ErrWindupTooShort = errors.New("shot: released before minimum wind-up")
	// ErrNotCharging is returned by ReleaseShot with no charge in progress.
	ErrNotCharging = errors.New("shot: not charging")
	// ErrWindowClosed is returned by ExecuteOneTimer outside the one-timer window.
	ErrWindowClosed = errors.New("shot: one-timer window closed")
	// ErrNoStick is returned by New without a stick resolver.
	ErrNoStick = errors.New("shot: stick required")
	// ErrNoShotTypes is returned by New when the config has no derived shot table.
	ErrNoShotTypes = errors.New("shot: shot type table missing")
)

const (
	// attributeWeight is how much a 100-rated attribute moves power or spread.
	attributeWeight = 0.5
	// oneTimerProgress is the charge a one-timer is treated as having.
	oneTimerProgress = 0.8
	// oneTimerCarry is the fraction of the incoming pass speed added to a one-timer.
	oneTimerCarry = 0.3
)

// Type is a shot type.
type Type int

const (
	Wrist Type = iota
	Snap
	Slap
	Backhand
)

func (t Type) String() string {
	if t < 0 || int(t) >= len(config.ShotTypeNames) {
		return "unknown"
	}
	return config.ShotTypeNames[t]
}

// ParseType returns the shot type with the given config name.
func ParseType(name string) (Type, bool) {
	for i, n := range config.ShotTypeNames {
		if n == name {
			return Type(i), true
		}
	}
	return Wrist, false
}

// Result is a computed shot.
type Result struct {
	Type      Type
	Power     float64
	Direction r3.Vec  // unit, horizontal
	Spread    float64 // radians, the deviation bound
	Deviation float64 // radians actually applied
	Progress  float64
	Assisted  bool
	OneTimer  bool
}

// Engine computes and releases shots for one skater.
type Engine struct {
	cfg        config.ShotConfig
	types      []config.ShotTypeConfig
	refIndex   int
	baseSpread float64
	maxSpread  float64

	stick   *stick.Resolver
	self    actor.Actor
	attrs   actor.Attributes
	assists []r3.Vec
	rng     *rand.Rand
	log     *slog.Logger

	charging bool
	kind     Type
	charge   float64

	window   float64 // seconds left to one-time an incoming pass
	incoming float64
}

// New creates a shot engine for the skater owning st. A nil rng gets a
// fixed-seed source.
func New(cfg *config.Config, st *stick.Resolver, attrs actor.Attributes, rng *rand.Rand, log *slog.Logger) (*Engine, error) {
	if st == nil {
		return nil, ErrNoStick
	}
	if len(cfg.Derived.ShotTypes) != len(config.ShotTypeNames) {
		return nil, ErrNoShotTypes
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:        cfg.Shot,
		types:      cfg.Derived.ShotTypes,
		refIndex:   cfg.Derived.OneTimerRefIndex,
		baseSpread: cfg.Derived.BaseSpreadRad,
		maxSpread:  cfg.Derived.MaxSpreadRad,
		stick:      st,
		self:       st.Actor(),
		attrs:      attrs,
		rng:        rng,
		log:        log.With("component", "shot", "actor", st.Actor().ID()),
	}, nil
}

// SetAssistTargets sets the points shots are pulled toward, typically the
// centre of the goal being attacked.
func (e *Engine) SetAssistTargets(targets ...r3.Vec) {
	e.assists = append(e.assists[:0], targets...)
}

// StartCharge begins charging a shot of type t, restarting any charge in progress.
func (e *Engine) StartCharge(t Type) {
	if t < 0 || int(t) >= len(e.types) {
		t = Wrist
	}
	e.charging = true
	e.kind = t
	e.charge = 0
}

// Charging reports whether a shot is being charged and of which type.
func (e *Engine) Charging() (bool, Type) { return e.charging, e.kind }

// Update advances the charge and the one-timer window by dt.
func (e *Engine) Update(dt float64) {
	if e.charging {
		e.charge = math.Min(e.charge+dt, e.types[e.kind].MaxChargeTime)
	}
	if e.window > 0 {
		e.window -= dt
		if e.window <= 0 {
			e.window = 0
			e.incoming = 0
		}
	}
}

// Progress returns the charge as a fraction of the type's max charge time.
func (e *Engine) Progress() float64 {
	if !e.charging {
		return 0
	}
	max := e.types[e.kind].MaxChargeTime
	if max <= 0 {
		return 1
	}
	return geom.Clamp(e.charge/max, 0, 1)
}

// CancelShot drops any charge in progress.
func (e *Engine) CancelShot() {
	e.charging = false
	e.charge = 0
}

// ReleaseShot fires the charged shot. A release before the type's minimum
// wind-up cancels the shot and leaves the puck untouched.
func (e *Engine) ReleaseShot(intent actor.Intent) (Result, error) {
	if !e.charging {
		return Result{}, ErrNotCharging
	}
	if e.charge < e.types[e.kind].MinWindup {
		e.log.Debug("shot cancelled", "type", e.kind.String(), "charge", e.charge)
		e.CancelShot()
		return Result{}, ErrWindupTooShort
	}

	res := e.Compute(intent)
	e.CancelShot()
	if err := e.stick.Shoot(res.Direction, res.Power); err != nil {
		return res, err
	}
	e.log.Debug("shot released", "type", res.Type.String(), "power", res.Power, "deviation", res.Deviation)
	return res, nil
}

// Compute returns the shot the current charge would produce without
// releasing it. The random deviation is drawn from the engine's source.
func (e *Engine) Compute(intent actor.Intent) Result {
	return e.compute(intent, e.kind, e.Progress())
}

func (e *Engine) compute(intent actor.Intent, kind Type, progress float64) Result {
	st := e.types[kind]
	power := geom.Lerp(st.MinPower, st.MaxPower, progress) * (1 + e.attrs.ShotPower/100*attributeWeight)

	dir, assisted := e.direction(intent)

	speed := geom.HorizontalSpeed(e.self.Velocity())
	spread := e.baseSpread *
		(1 - st.AccuracyBonus) *
		(1 + speed*e.cfg.SpeedPenalty) *
		geom.Lerp(1.5, 1.0, progress) *
		(1 - e.attrs.Accuracy/100*attributeWeight)
	spread = geom.Clamp(spread, 0, e.maxSpread)

	deviation := (e.rng.Float64()*2 - 1) * spread
	return Result{
		Type:      kind,
		Power:     power,
		Direction: geom.SafeUnit(geom.RotateY(dir, deviation)),
		Spread:    spread,
		Deviation: deviation,
		Progress:  progress,
		Assisted:  assisted,
	}
}

// direction resolves the aim: explicit aim, then target position, then
// facing, blended toward the nearest assist target in range.
func (e *Engine) direction(intent actor.Intent) (r3.Vec, bool) {
	pos := geom.Flatten(e.self.Position())

	dir := geom.SafeUnit(geom.Flatten(intent.Aim))
	if geom.IsZero(dir) && intent.HasTarget {
		dir = geom.SafeUnit(geom.Flatten(r3.Sub(intent.Target, pos)))
	}
	if geom.IsZero(dir) {
		dir = geom.SafeUnit(geom.Flatten(e.self.Facing()))
	}
	if geom.IsZero(dir) {
		dir = r3.Vec{X: 1}
	}

	best, bestDist := r3.Vec{}, math.Inf(1)
	for _, t := range e.assists {
		if d := geom.HorizontalDistance(pos, t); d < bestDist {
			best, bestDist = t, d
		}
	}
	if e.cfg.AssistRange <= 0 || bestDist > e.cfg.AssistRange {
		return dir, false
	}

	strength := e.cfg.AssistStrength * (1 - bestDist/e.cfg.AssistRange)
	toward := geom.SafeUnit(geom.Flatten(r3.Sub(best, pos)))
	blended := geom.SafeUnit(geom.LerpVec(dir, toward, strength))
	if geom.IsZero(blended) || geom.IsZero(toward) {
		return dir, false
	}
	return blended, true
}

// NotifyIncomingPass opens the one-timer window for a pass arriving at speed.
func (e *Engine) NotifyIncomingPass(speed float64) {
	e.window = e.cfg.OneTimerWindow
	e.incoming = speed
	e.log.Debug("one-timer window open", "incoming", speed, "window", e.window)
}

// OneTimerReady reports whether the one-timer window is open.
func (e *Engine) OneTimerReady() bool { return e.window > 0 }

// ExecuteOneTimer shoots the arriving pass without settling it. The window
// is consumed whether or not the puck could be reached.
func (e *Engine) ExecuteOneTimer(intent actor.Intent) (Result, error) {
	if e.window <= 0 {
		return Result{}, ErrWindowClosed
	}
	incoming := e.incoming
	e.window = 0
	e.incoming = 0
	e.CancelShot()

	kind := Type(e.refIndex)
	res := e.compute(intent, kind, oneTimerProgress)
	ref := e.types[kind]
	res.Power = geom.Lerp(ref.MinPower, ref.MaxPower, oneTimerProgress)*e.cfg.OneTimerBonus + incoming*oneTimerCarry
	res.OneTimer = true

	if err := e.stick.OneTimer(res.Direction, res.Power); err != nil {
		e.log.Debug("one-timer missed", "err", err)
		return res, err
	}
	e.log.Debug("one-timer", "power", res.Power, "incoming", incoming)
	return res, nil
}
