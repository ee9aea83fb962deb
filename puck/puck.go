// Package puck owns the puck's possession state machine and physics.
//
// The puck is either Free or Possessed by exactly one actor. All other
// components read its state and change it only through the operations here.
package puck

import (
	"errors"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/config"
	"github.com/pthm-cable/faceoff/event"
	"github.com/pthm-cable/faceoff/geom"
)

var (
	// ErrNoBody is returned by New when no physics body is supplied.
	ErrNoBody = errors.New("puck: physics body required")
	// ErrNotOwner is returned when a release operation has no qualifying owner.
	ErrNotOwner = errors.New("puck: no qualifying owner")
	// ErrOutOfReach is returned by OneTimer when a free puck is beyond the shooter's stick.
	ErrOutOfReach = errors.New("puck: out of reach")
	// ErrImmune is returned by OneTimer while the puck is shot-immune.
	ErrImmune = errors.New("puck: shot-immune")
	// ErrDeferred is returned when a mutation was requested during event
	// delivery and has been queued for the next Step.
	ErrDeferred = errors.New("puck: mutation deferred to next tick")
)

// FallbackTeam is credited for goals reported by a sensor without a team id.
const FallbackTeam actor.TeamID = -1

// slipFactor scales possession range into the distance at which a carried puck is lost.
const slipFactor = 1.5

// oneTimerCarry is the fraction of incoming speed added to a one-timer.
const oneTimerCarry = 0.5

// settleEpsilon is the remaining immunity treated as expired (float drift from dt sums).
const settleEpsilon = 1e-9

// State is the puck's possession state.
type State uint8

const (
	Free State = iota
	Possessed
)

func (s State) String() string {
	if s == Possessed {
		return "possessed"
	}
	return "free"
}

// Body is the puck's physical body.
type Body struct {
	Position r3.Vec
	Velocity r3.Vec
}

// Anchor is the point a carried puck is sprung toward: a stick contact point.
type Anchor interface {
	ContactPoint() r3.Vec
}

// Puck is the single shared puck of a match.
type Puck struct {
	cfg     config.PuckConfig
	gravity float64
	body    *Body
	bus     *event.Bus
	log     *slog.Logger

	owner  actor.Actor
	anchor Anchor

	shotImmune bool
	immunity   float64 // seconds remaining

	passInFlight bool
	passTarget   actor.Actor
}

// New creates a free, stationary puck around body.
// A nil bus gets a private bus; a nil logger uses slog.Default().
func New(cfg config.PuckConfig, gravity float64, body *Body, bus *event.Bus, log *slog.Logger) (*Puck, error) {
	if body == nil {
		return nil, ErrNoBody
	}
	if log == nil {
		log = slog.Default()
	}
	if bus == nil {
		bus = event.NewBus(log)
	}
	return &Puck{
		cfg:     cfg,
		gravity: gravity,
		body:    body,
		bus:     bus,
		log:     log.With("component", "puck"),
	}, nil
}

// Position returns the puck's position.
func (p *Puck) Position() r3.Vec { return p.body.Position }

// Velocity returns the puck's velocity.
func (p *Puck) Velocity() r3.Vec { return p.body.Velocity }

// Speed returns the magnitude of the puck's velocity.
func (p *Puck) Speed() float64 { return r3.Norm(p.body.Velocity) }

// Owner returns the current owner, or nil when free.
func (p *Puck) Owner() actor.Actor { return p.owner }

// Anchor returns the stored contact-point reference of the owner.
func (p *Puck) Anchor() Anchor { return p.anchor }

// State returns Free or Possessed.
func (p *Puck) State() State {
	if p.owner != nil {
		return Possessed
	}
	return Free
}

// IsShotImmune reports whether possession is currently blocked after a shot.
func (p *Puck) IsShotImmune() bool { return p.shotImmune }

// ImmunityRemaining returns seconds left in the shot-immunity window.
func (p *Puck) ImmunityRemaining() float64 { return p.immunity }

// PassInFlight reports whether a pass is travelling and to whom.
func (p *Puck) PassInFlight() (bool, actor.Actor) { return p.passInFlight, p.passTarget }

// Radius returns the puck radius.
func (p *Puck) Radius() float64 { return p.cfg.Radius }

// Config returns the puck configuration.
func (p *Puck) Config() config.PuckConfig { return p.cfg }

// Bus returns the bus notifications are published on.
func (p *Puck) Bus() *event.Bus { return p.bus }

// Snapshot returns the current position and velocity.
func (p *Puck) Snapshot() event.Snapshot {
	return event.Snapshot{Position: p.body.Position, Velocity: p.body.Velocity}
}

// deferred queues fn if a notification is being delivered.
func (p *Puck) deferred(op string, fn func()) bool {
	if !p.bus.Dispatching() {
		return false
	}
	p.log.Debug("deferring puck operation raised during notification", "op", op)
	p.bus.Defer(fn)
	return true
}

// TryGainPossession attempts to give the puck to a. The anchor's contact point
// must be within possession range and the puck must not be shot-immune. When
// another actor owns the puck, a must be strictly closer than the owner's
// distance times the steal factor. If a already owns the puck only the stored
// anchor is replaced.
func (p *Puck) TryGainPossession(a actor.Actor, anchor Anchor) bool {
	if a == nil || anchor == nil {
		return false
	}
	if p.deferred("try_gain_possession", func() { p.TryGainPossession(a, anchor) }) {
		return false
	}

	if p.owner != nil && actor.Same(p.owner, a) {
		p.anchor = anchor
		return true
	}
	if p.shotImmune {
		return false
	}

	dist := geom.Distance(anchor.ContactPoint(), p.body.Position)
	if dist > p.cfg.PossessionRange {
		return false
	}

	cause := event.CausePickup
	if p.owner != nil {
		ownerDist := geom.Distance(p.anchor.ContactPoint(), p.body.Position)
		if !(dist < ownerDist*p.cfg.StealFactor) {
			return false
		}
		cause = event.CauseSteal
	}

	prev := p.owner
	p.owner = a
	p.anchor = anchor
	p.passInFlight = false
	p.passTarget = nil
	p.body.Position.Y = 0
	p.body.Velocity.Y = 0

	p.log.Debug("possession gained", "actor", a.ID(), "team", a.Team(), "cause", cause.String(), "distance", dist)
	p.bus.PublishPossessionChanged(event.PossessionChanged{
		Puck:     p.Snapshot(),
		Previous: prev,
		Owner:    a,
		Cause:    cause,
	})
	return true
}

// release clears the owner and publishes the change.
func (p *Puck) release(cause event.Cause) actor.Actor {
	prev := p.owner
	p.owner = nil
	p.anchor = nil
	if prev != nil {
		p.bus.PublishPossessionChanged(event.PossessionChanged{
			Puck:     p.Snapshot(),
			Previous: prev,
			Cause:    cause,
		})
	}
	return prev
}

// LosePossession drops the puck where it is. No-op when free.
func (p *Puck) LosePossession() {
	if p.deferred("lose_possession", p.LosePossession) {
		return
	}
	if p.owner == nil {
		return
	}
	prev := p.release(event.CauseDrop)
	p.log.Debug("possession dropped", "actor", prev.ID())
}

// KnockLoose forces the owner off the puck and adds an impulse along the
// horizontal component of direction. Returns false when the puck is free.
func (p *Puck) KnockLoose(direction r3.Vec, impulse float64) bool {
	if p.deferred("knock_loose", func() { p.KnockLoose(direction, impulse) }) {
		return false
	}
	if p.owner == nil {
		return false
	}
	dir := geom.SafeUnit(geom.Flatten(direction))
	p.body.Velocity = r3.Add(p.body.Velocity, r3.Scale(impulse, dir))
	prev := p.release(event.CauseKnockLoose)
	p.log.Debug("puck knocked loose", "actor", prev.ID(), "impulse", impulse)
	return true
}

// launchDirection flattens direction, lifts it in proportion to power and
// re-normalizes. A zero direction falls back to the owner's facing.
func (p *Puck) launchDirection(direction r3.Vec, power float64, fallback actor.Actor) r3.Vec {
	flat := geom.SafeUnit(geom.Flatten(direction))
	if geom.IsZero(flat) && fallback != nil {
		flat = geom.SafeUnit(geom.Flatten(fallback.Facing()))
	}
	if geom.IsZero(flat) {
		flat = r3.Vec{X: 1}
	}
	lift := p.cfg.ShotLift * power / p.cfg.MaxSpeed
	return geom.SafeUnit(r3.Add(flat, r3.Scale(lift, geom.Up)))
}

// Shoot releases the puck from its owner at power along direction and makes
// it shot-immune.
func (p *Puck) Shoot(direction r3.Vec, power float64) error {
	if p.deferred("shoot", func() { p.Shoot(direction, power) }) {
		return ErrDeferred
	}
	if p.owner == nil {
		p.log.Debug("shoot ignored", "reason", "no owner")
		return ErrNotOwner
	}
	shooter := p.owner
	p.launch(shooter, direction, power, false)
	return nil
}

// OneTimer redirects the puck without settling it. The shooter must own the
// puck, or the puck must be free, not immune and within reach of the anchor.
// The incoming speed is blended into the result.
func (p *Puck) OneTimer(shooter actor.Actor, anchor Anchor, direction r3.Vec, power float64) error {
	if shooter == nil {
		return ErrNotOwner
	}
	if p.deferred("one_timer", func() { p.OneTimer(shooter, anchor, direction, power) }) {
		return ErrDeferred
	}

	switch {
	case p.owner != nil && !actor.Same(p.owner, shooter):
		p.log.Debug("one-timer ignored", "reason", "owned by another actor", "actor", shooter.ID())
		return ErrNotOwner
	case p.owner == nil && p.shotImmune:
		p.log.Debug("one-timer ignored", "reason", "shot-immune", "actor", shooter.ID())
		return ErrImmune
	case p.owner == nil:
		if anchor == nil || geom.Distance(anchor.ContactPoint(), p.body.Position) > p.cfg.PossessionRange {
			p.log.Debug("one-timer ignored", "reason", "out of reach", "actor", shooter.ID())
			return ErrOutOfReach
		}
	}

	power = math.Min(power+p.Speed()*oneTimerCarry, p.cfg.MaxSpeed)
	p.launch(shooter, direction, power, true)
	return nil
}

// launch caps power at the puck's max speed, so the reported power is the
// speed the puck actually leaves with.
func (p *Puck) launch(shooter actor.Actor, direction r3.Vec, power float64, oneTimer bool) {
	power = math.Min(power, p.cfg.MaxSpeed)
	dir := p.launchDirection(direction, power, shooter)
	p.body.Velocity = r3.Scale(power, dir)
	p.shotImmune = true
	p.immunity = p.cfg.ShotImmunityTime
	p.passInFlight = false
	p.passTarget = nil
	p.release(event.CauseShot)

	p.log.Debug("puck shot", "actor", shooter.ID(), "power", power, "one_timer", oneTimer)
	p.bus.PublishPuckShot(event.PuckShot{
		Puck:      p.Snapshot(),
		Shooter:   shooter,
		Direction: dir,
		Power:     power,
		OneTimer:  oneTimer,
	})
}

// Pass sends the puck along the ice toward lead at power. A nil target is a
// clear attempt: the puck travels but no pass is marked in flight.
func (p *Puck) Pass(target actor.Actor, lead r3.Vec, power float64) error {
	if p.deferred("pass", func() { p.Pass(target, lead, power) }) {
		return ErrDeferred
	}
	return p.pass(target, lead, power, 0, false)
}

// SaucerPass is Pass with an added vertical launch velocity vy.
func (p *Puck) SaucerPass(target actor.Actor, lead r3.Vec, power, vy float64) error {
	if p.deferred("saucer_pass", func() { p.SaucerPass(target, lead, power, vy) }) {
		return ErrDeferred
	}
	return p.pass(target, lead, power, vy, true)
}

func (p *Puck) pass(target actor.Actor, lead r3.Vec, power, vy float64, saucer bool) error {
	if p.owner == nil {
		p.log.Debug("pass ignored", "reason", "no owner")
		return ErrNotOwner
	}
	from := p.owner

	dir := geom.SafeUnit(geom.Flatten(r3.Sub(lead, p.body.Position)))
	if geom.IsZero(dir) {
		dir = geom.SafeUnit(geom.Flatten(from.Facing()))
	}
	vel := r3.Scale(power, dir)
	vel.Y = vy
	p.body.Velocity = vel
	p.passInFlight = target != nil
	p.passTarget = target
	p.release(event.CausePass)

	toID := uint32(0)
	if target != nil {
		toID = target.ID()
	}
	p.log.Debug("puck passed", "from", from.ID(), "to", toID, "power", power, "saucer", saucer)
	p.bus.PublishPuckPassed(event.PuckPassed{
		Puck:   p.Snapshot(),
		From:   from,
		To:     target,
		Lead:   lead,
		Power:  power,
		Saucer: saucer,
	})
	return nil
}

// Reset places the puck at position for a faceoff: stationary, free, no flags.
func (p *Puck) Reset(position r3.Vec) {
	if p.deferred("reset", func() { p.Reset(position) }) {
		return
	}
	p.body.Position = position
	p.body.Velocity = r3.Vec{}
	p.shotImmune = false
	p.immunity = 0
	p.passInFlight = false
	p.passTarget = nil
	p.release(event.CauseReset)
}

// Step advances the puck by one fixed tick. Operations deferred during the
// previous tick's notifications run first.
func (p *Puck) Step(dt float64) {
	p.bus.Flush()

	if p.owner != nil {
		p.stepPossessed(dt)
		return
	}
	p.stepFree(dt)
}

func (p *Puck) stepFree(dt float64) {
	if p.shotImmune {
		p.immunity -= dt
		if p.immunity <= settleEpsilon {
			p.shotImmune = false
			p.immunity = 0
		}
	}

	friction := p.cfg.Friction
	if p.shotImmune {
		friction = p.cfg.ShotFriction
	}

	v := p.body.Velocity
	v.X *= friction
	v.Z *= friction
	if geom.HorizontalSpeed(v) < p.cfg.MinSpeed {
		v.X, v.Z = 0, 0
	}
	v = geom.ClampHorizontal(v, p.cfg.MaxSpeed)

	pos := p.body.Position
	pos.X += v.X * dt
	pos.Z += v.Z * dt

	// Exact ballistic step for airborne pucks
	if pos.Y > 0 || v.Y > 0 {
		pos.Y += v.Y*dt - 0.5*p.gravity*dt*dt
		v.Y -= p.gravity * dt
	}
	if pos.Y <= 0 {
		pos.Y = 0
		if v.Y < 0 {
			v.Y = 0
		}
	}

	p.body.Velocity = v
	p.body.Position = pos

	if p.passInFlight && geom.HorizontalSpeed(v) == 0 {
		p.passInFlight = false
		p.passTarget = nil
	}
}

func (p *Puck) stepPossessed(dt float64) {
	contact := p.anchor.ContactPoint()
	d := geom.Flatten(r3.Sub(contact, p.body.Position))
	dist := r3.Norm(d)
	if dist > p.cfg.PossessionRange*slipFactor {
		prev := p.release(event.CauseSlip)
		p.log.Debug("puck slipped off stick", "actor", prev.ID(), "distance", dist)
		p.stepFree(dt)
		return
	}

	ownerVel := geom.Flatten(p.owner.Velocity())
	vel := geom.Flatten(p.body.Velocity)

	// Damped spring toward the contact point
	spring := r3.Scale(p.cfg.SpringConstant*dist, geom.SafeUnit(d))
	damping := r3.Scale(-p.cfg.DampingConstant, r3.Sub(vel, ownerVel))
	accel := r3.Scale(1/p.cfg.Mass, r3.Add(spring, damping))
	vel = r3.Add(vel, r3.Scale(dt, accel))

	// Lag behind the carrier rather than attaching rigidly
	vel = geom.LerpVec(vel, ownerVel, p.cfg.CarryBlend)
	vel = geom.ClampHorizontal(vel, p.cfg.MaxSpeed)

	p.body.Velocity = vel
	p.body.Position = r3.Add(r3.Vec{X: p.body.Position.X, Z: p.body.Position.Z}, r3.Scale(dt, vel))
}
