// Package pass ranks teammates as pass targets for the puck carrier and
// executes passes to the selected one.
package pass

import (
	"errors"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/config"
	"github.com/pthm-cable/faceoff/geom"
	"github.com/pthm-cable/faceoff/puck"
	"github.com/pthm-cable/faceoff/stick"
)

var (
	// ErrNoStick is returned by New without a stick resolver.
	ErrNoStick = errors.New("pass: stick required")
	// ErrNoRoster is returned by New without a roster.
	ErrNoRoster = errors.New("pass: roster required")
)

// Candidate is one evaluated teammate.
type Candidate struct {
	Actor      actor.Actor
	Distance   float64 // from the puck to the receiver
	Lead       r3.Vec  // where the pass is aimed
	Angle      float64 // radians off the aim
	Score      float64
	InCone     bool
	Obstructed bool
}

// Valid reports whether the candidate can be selected as a target.
func (c Candidate) Valid() bool { return c.InCone && !c.Obstructed }

// Evaluator scores pass targets for one skater.
type Evaluator struct {
	cfg     config.PassConfig
	cone    float64
	gravity float64

	stick  *stick.Resolver
	puck   *puck.Puck
	roster actor.Roster
	self   actor.Actor
	log    *slog.Logger

	candidates []Candidate
	target     int
	pinned     uint32
	hasPin     bool
	aim        r3.Vec
	sinceCheck float64
	evaluated  bool
	announced  uint32
}

// New creates an evaluator for the skater that owns st.
func New(cfg config.PassConfig, gravity float64, st *stick.Resolver, p *puck.Puck, roster actor.Roster, log *slog.Logger) (*Evaluator, error) {
	if st == nil {
		return nil, ErrNoStick
	}
	if p == nil {
		return nil, stick.ErrNoPuckRef
	}
	if roster == nil {
		return nil, ErrNoRoster
	}
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{
		cfg:     cfg,
		cone:    cfg.AimAssistAngle * math.Pi / 180,
		gravity: gravity,
		stick:   st,
		puck:    p,
		roster:  roster,
		self:    st.Actor(),
		log:     log.With("component", "pass", "actor", st.Actor().ID()),
		target:  -1,
	}, nil
}

// CalculatePassPower returns the launch speed for a pass of distance d.
func (e *Evaluator) CalculatePassPower(d float64) float64 {
	return geom.Clamp(e.cfg.MinPower+d*e.cfg.PowerPerDistance, e.cfg.MinPower, e.cfg.MaxPower)
}

// SaucerVelocity returns the vertical launch velocity for a saucer pass that
// peaks at height and is in the air for flight seconds.
func (e *Evaluator) SaucerVelocity(height, flight float64) float64 {
	if flight <= 0 {
		return 0
	}
	half := flight / 2
	return height/half + 0.5*e.gravity*half
}

// owns reports whether this skater currently carries the puck.
func (e *Evaluator) owns() bool {
	return e.puck.Owner() != nil && actor.Same(e.puck.Owner(), e.self)
}

// Update refreshes the candidate list while this skater owns the puck.
// Re-evaluation runs every call when the recheck interval is zero.
func (e *Evaluator) Update(dt float64, intent actor.Intent) {
	if !e.owns() {
		e.clear()
		return
	}

	e.aim = geom.SafeUnit(geom.Flatten(intent.Aim))
	if geom.IsZero(e.aim) {
		e.aim = geom.SafeUnit(geom.Flatten(e.self.Facing()))
	}

	e.sinceCheck += dt
	if e.evaluated && e.cfg.RecheckInterval > 0 && e.sinceCheck < e.cfg.RecheckInterval {
		return
	}
	e.sinceCheck = 0
	e.evaluate()
}

func (e *Evaluator) clear() {
	e.candidates = e.candidates[:0]
	e.target = -1
	e.hasPin = false
	e.evaluated = false
	e.sinceCheck = 0
	e.announced = 0
}

func (e *Evaluator) evaluate() {
	origin := geom.Flatten(e.puck.Position())
	actors := e.roster.Actors()

	e.candidates = e.candidates[:0]
	for _, a := range actors {
		if actor.Same(a, e.self) || !actor.SameTeam(a, e.self) {
			continue
		}
		pos := geom.Flatten(a.Position())
		d := geom.HorizontalDistance(origin, pos)
		if d < e.cfg.MinDistance || d > e.cfg.MaxDistance {
			continue
		}

		c := Candidate{Actor: a, Distance: d, Lead: e.lead(a, d)}
		c.Obstructed = e.blocked(origin, c.Lead, actors)

		to := r3.Sub(pos, origin)
		c.Angle = geom.AngleBetween(e.aim, to)
		c.InCone = c.Angle < e.cone
		if c.InCone {
			c.Score = e.score(c, to)
		}
		e.candidates = append(e.candidates, c)
	}

	sort.SliceStable(e.candidates, func(i, j int) bool {
		return e.candidates[i].Score > e.candidates[j].Score
	})
	e.evaluated = true
	e.pick()
}

// lead predicts where the receiver will be when the pass arrives.
func (e *Evaluator) lead(a actor.Actor, d float64) r3.Vec {
	pos := geom.Flatten(a.Position())
	vel := geom.Flatten(a.Velocity())
	if r3.Norm(vel) < e.cfg.MinLeadSpeed {
		return pos
	}
	travel := d / e.CalculatePassPower(d)
	offset := r3.Scale(travel*e.cfg.LeadFactor, vel)
	return r3.Add(pos, geom.ClampLength(offset, e.cfg.MaxLeadOffset))
}

// blocked reports whether an opponent stands in the passing lane.
func (e *Evaluator) blocked(from, to r3.Vec, actors []actor.Actor) bool {
	for _, o := range actors {
		if !actor.Opponents(o, e.self) {
			continue
		}
		if geom.SegmentDistance(geom.Flatten(o.Position()), from, to) <= e.cfg.BlockRadius {
			return true
		}
	}
	return false
}

func (e *Evaluator) score(c Candidate, to r3.Vec) float64 {
	angleFactor := 1 - c.Angle/e.cone
	obstruction := 1.0
	if c.Obstructed {
		obstruction = e.cfg.BlockedFactor
	}
	forward := 1.0
	if r3.Dot(geom.SafeUnit(to), e.aim) > e.cfg.ForwardThreshold {
		forward = e.cfg.ForwardBonus
	}
	return 100 * angleFactor * e.distanceFactor(c.Distance) * obstruction * forward
}

// distanceFactor peaks at the preferred distance and falls linearly to the
// edge factor at both ends of the range.
func (e *Evaluator) distanceFactor(d float64) float64 {
	lo, hi := e.cfg.MinDistance, e.cfg.MaxDistance
	peak := e.cfg.PeakFraction * hi
	switch {
	case d <= peak:
		if peak <= lo {
			return 1
		}
		return geom.Lerp(e.cfg.EdgeFactor, 1, geom.Clamp((d-lo)/(peak-lo), 0, 1))
	default:
		if hi <= peak {
			return 1
		}
		return geom.Lerp(1, e.cfg.EdgeFactor, geom.Clamp((d-peak)/(hi-peak), 0, 1))
	}
}

// pick selects the pinned candidate if it is still valid, otherwise the best.
func (e *Evaluator) pick() {
	e.target = -1
	if e.hasPin {
		for i, c := range e.candidates {
			if c.Actor.ID() == e.pinned && c.Valid() {
				e.target = i
				break
			}
		}
		if e.target < 0 {
			e.hasPin = false
		}
	}
	if e.target < 0 {
		for i, c := range e.candidates {
			if c.Valid() {
				e.target = i
				break
			}
		}
	}

	if cur := e.Target(); cur != nil && cur.Actor.ID() != e.announced {
		e.announced = cur.Actor.ID()
		e.log.Debug("pass target", "target", cur.Actor.ID(), "score", cur.Score)
	}
}

// Candidates returns the evaluated teammates in descending score order.
func (e *Evaluator) Candidates() []Candidate { return e.candidates }

// Target returns the selected candidate, or nil.
func (e *Evaluator) Target() *Candidate {
	if e.target < 0 || e.target >= len(e.candidates) {
		return nil
	}
	return &e.candidates[e.target]
}

// Cycle moves the selection step entries through the list, wrapping and
// skipping invalid entries. The choice sticks across re-evaluations while
// it stays valid.
func (e *Evaluator) Cycle(step int) *Candidate {
	n := len(e.candidates)
	if n == 0 || step == 0 {
		return e.Target()
	}
	dir := 1
	if step < 0 {
		dir, step = -1, -step
	}

	i := e.target
	if i < 0 {
		i = 0
		if dir > 0 {
			i = n - 1
		}
	}
	for moved := 0; moved < step; {
		found := false
		for k := 1; k <= n; k++ {
			j := ((i+dir*k)%n + n) % n
			if e.candidates[j].Valid() {
				i = j
				found = true
				break
			}
		}
		if !found {
			return nil
		}
		moved++
	}

	e.target = i
	e.pinned = e.candidates[i].Actor.ID()
	e.hasPin = true
	return &e.candidates[i]
}

// ExecutePass passes to the current target's lead point. Without a target
// the puck is cleared along the aim.
func (e *Evaluator) ExecutePass() error {
	target, lead, d := e.resolve()
	err := e.stick.Pass(target, lead, e.CalculatePassPower(d))
	if err == nil {
		e.clear()
	}
	return err
}

// ExecuteSaucerPass is ExecutePass lifted over sticks to peak at height.
// A non-positive height uses the configured default.
func (e *Evaluator) ExecuteSaucerPass(height float64) error {
	if height <= 0 {
		height = e.cfg.SaucerHeight
	}
	target, lead, d := e.resolve()
	power := e.CalculatePassPower(d)
	vy := e.SaucerVelocity(height, d/power)
	err := e.stick.SaucerPass(target, lead, power, vy)
	if err == nil {
		e.clear()
	}
	return err
}

// resolve returns the receiver, lead point and pass distance.
func (e *Evaluator) resolve() (actor.Actor, r3.Vec, float64) {
	if !e.evaluated && e.owns() {
		if geom.IsZero(e.aim) {
			e.aim = geom.SafeUnit(geom.Flatten(e.self.Facing()))
		}
		e.evaluate()
	}
	origin := geom.Flatten(e.puck.Position())
	if t := e.Target(); t != nil {
		return t.Actor, t.Lead, geom.HorizontalDistance(origin, t.Lead)
	}

	aim := e.aim
	if geom.IsZero(aim) {
		aim = geom.SafeUnit(geom.Flatten(e.self.Facing()))
	}
	if geom.IsZero(aim) {
		aim = r3.Vec{X: 1}
	}
	d := e.cfg.ClearDistance
	e.log.Debug("no pass target, clearing", "distance", d)
	return nil, r3.Add(origin, r3.Scale(d, aim)), d
}
