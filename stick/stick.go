// Package stick is the skater-side adapter to the puck: pickups, pickup
// cooldown, poke checks and thin release delegations.
package stick

import (
	"errors"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/config"
	"github.com/pthm-cable/faceoff/event"
	"github.com/pthm-cable/faceoff/geom"
	"github.com/pthm-cable/faceoff/puck"
)

var (
	// ErrNoContact is returned by New when the stick has no contact point.
	ErrNoContact = errors.New("stick: contact point required")
	// ErrNoPuckRef is returned by New without a puck.
	ErrNoPuckRef = errors.New("stick: puck required")
	// ErrNoActor is returned by New without an owning actor.
	ErrNoActor = errors.New("stick: actor required")
	// ErrNoPuck is returned by release operations when this stick is not carrying.
	ErrNoPuck = errors.New("stick: not carrying the puck")
)

// Resolver is one skater's stick.
type Resolver struct {
	cfg  config.StickConfig
	puck *puck.Puck
	self actor.Actor
	log  *slog.Logger
	sub  *event.Subscription

	contact    r3.Vec
	hasPuck    bool
	cooldown   float64
	autoPickup bool
}

// New creates a stick for self and subscribes it to possession changes.
func New(p *puck.Puck, self actor.Actor, cfg config.StickConfig, log *slog.Logger) (*Resolver, error) {
	if p == nil {
		return nil, ErrNoPuckRef
	}
	if self == nil {
		return nil, ErrNoActor
	}
	if cfg.Length <= 0 || cfg.Reach <= 0 {
		return nil, ErrNoContact
	}
	if log == nil {
		log = slog.Default()
	}

	r := &Resolver{
		cfg:        cfg,
		puck:       p,
		self:       self,
		log:        log.With("component", "stick", "actor", self.ID()),
		autoPickup: cfg.AutoPickup,
	}
	r.contact = r.target()
	r.sub = p.Bus().OnPossessionChanged(r.onPossessionChanged)
	return r, nil
}

// Close stops listening for possession changes.
func (r *Resolver) Close() {
	r.sub.Cancel()
}

// Actor returns the skater this stick belongs to.
func (r *Resolver) Actor() actor.Actor { return r.self }

// ContactPoint returns where the puck attaches. Implements puck.Anchor.
func (r *Resolver) ContactPoint() r3.Vec { return r.contact }

// HasPuck reports whether this skater owns the puck.
func (r *Resolver) HasPuck() bool { return r.hasPuck }

// Cooldown returns seconds until auto-pickup is allowed again.
func (r *Resolver) Cooldown() float64 { return r.cooldown }

// SetAutoPickup enables or disables automatic pickup attempts.
func (r *Resolver) SetAutoPickup(on bool) { r.autoPickup = on }

// target is where the blade wants to be: ahead of and beside the body.
func (r *Resolver) target() r3.Vec {
	facing := geom.SafeUnit(geom.Flatten(r.self.Facing()))
	if geom.IsZero(facing) {
		facing = r3.Vec{X: 1}
	}
	pos := geom.Flatten(r.self.Position())
	pos = r3.Add(pos, r3.Scale(r.cfg.Reach, facing))
	return r3.Add(pos, r3.Scale(r.cfg.Side, geom.Right(facing)))
}

// Follow moves the contact point toward its target so it trails body turns.
func (r *Resolver) Follow(dt float64) {
	t := 1 - math.Exp(-r.cfg.FollowRate*dt)
	r.contact = geom.LerpVec(r.contact, r.target(), t)
}

// Snap places the contact point on its target immediately.
func (r *Resolver) Snap() {
	r.contact = r.target()
}

// Update runs the fixed-tick cooldown and, when allowed, an auto-pickup attempt.
func (r *Resolver) Update(dt float64) {
	if r.cooldown > 0 {
		r.cooldown = math.Max(0, r.cooldown-dt)
	}
	if r.hasPuck || !r.autoPickup || r.cooldown > 0 {
		return
	}
	if geom.Distance(r.contact, r.puck.Position()) > r.puck.Config().PossessionRange {
		return
	}
	if r.puck.TryGainPossession(r.self, r) {
		r.hasPuck = true
	}
}

func (r *Resolver) onPossessionChanged(e event.PossessionChanged) {
	owns := e.Owner != nil && actor.Same(e.Owner, r.self)
	if r.hasPuck && !owns {
		r.cooldown = r.cfg.PickupCooldown
		r.log.Debug("lost puck", "cause", e.Cause.String())
	}
	r.hasPuck = owns
}

// PokeCheck probes forward from the body out to the poke reach. If the probe
// crosses the puck while another skater owns it, the puck is knocked loose
// along the probe. Returns true on a successful poke.
func (r *Resolver) PokeCheck(forward r3.Vec) bool {
	if r.hasPuck {
		return false
	}
	dir := geom.SafeUnit(geom.Flatten(forward))
	if geom.IsZero(dir) {
		dir = geom.SafeUnit(geom.Flatten(r.self.Facing()))
	}
	if geom.IsZero(dir) {
		return false
	}

	origin := geom.Flatten(r.self.Position())
	end := r3.Add(origin, r3.Scale(r.cfg.Length*r.cfg.PokeReachFactor, dir))
	if geom.SegmentDistance(geom.Flatten(r.puck.Position()), origin, end) > r.puck.Radius() {
		return false
	}

	owner := r.puck.Owner()
	if owner == nil || actor.Same(owner, r.self) {
		return false
	}
	if !r.puck.KnockLoose(dir, r.cfg.PokeImpulse) {
		return false
	}
	r.log.Debug("poke check", "victim", owner.ID())
	return true
}

// Shoot releases a shot from this stick.
func (r *Resolver) Shoot(direction r3.Vec, power float64) error {
	if !r.hasPuck {
		return ErrNoPuck
	}
	if err := r.puck.Shoot(direction, power); err != nil {
		return err
	}
	r.hasPuck = false
	return nil
}

// OneTimer redirects a puck arriving at this stick. Unlike Shoot it does not
// require carrying the puck.
func (r *Resolver) OneTimer(direction r3.Vec, power float64) error {
	if err := r.puck.OneTimer(r.self, r, direction, power); err != nil {
		return err
	}
	r.hasPuck = false
	return nil
}

// Pass sends the puck toward lead for target.
func (r *Resolver) Pass(target actor.Actor, lead r3.Vec, power float64) error {
	if !r.hasPuck {
		return ErrNoPuck
	}
	if err := r.puck.Pass(target, lead, power); err != nil {
		return err
	}
	r.hasPuck = false
	return nil
}

// SaucerPass sends an airborne pass toward lead for target.
func (r *Resolver) SaucerPass(target actor.Actor, lead r3.Vec, power, vy float64) error {
	if !r.hasPuck {
		return ErrNoPuck
	}
	if err := r.puck.SaucerPass(target, lead, power, vy); err != nil {
		return err
	}
	r.hasPuck = false
	return nil
}

// DropPuck lets go of the puck where it is.
func (r *Resolver) DropPuck() error {
	if !r.hasPuck {
		return ErrNoPuck
	}
	r.puck.LosePossession()
	r.hasPuck = false
	return nil
}
