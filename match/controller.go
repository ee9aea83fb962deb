package match

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/components"
	"github.com/pthm-cable/faceoff/geom"
	"github.com/pthm-cable/faceoff/shot"
)

// Controller decides what a skater does. It is called once per frame and
// its Control is applied on the next fixed step.
type Controller interface {
	Control(m *Match, self actor.Actor) components.Control
}

// ControllerFunc adapts a function to the Controller interface.
type ControllerFunc func(m *Match, self actor.Actor) components.Control

func (f ControllerFunc) Control(m *Match, self actor.Actor) components.Control {
	return f(m, self)
}

// RushController is a simple built-in controller: carriers skate at the goal
// and shoot, teammates support wide, and defenders chase and poke the carrier.
type RushController struct {
	ShootRange    float64 // distance to the goal at which carriers wind up
	PressureRange float64 // opponent distance that makes a carrier pass
	SupportLead   float64 // how far ahead of the carrier supporters skate
	SupportWidth  float64 // lateral offset of supporters
	PokeRange     float64 // distance to the puck at which defenders poke
}

// NewRushController returns a RushController with workable defaults.
func NewRushController() *RushController {
	return &RushController{
		ShootRange:    12,
		PressureRange: 2.5,
		SupportLead:   6,
		SupportWidth:  5,
		PokeRange:     1.6,
	}
}

func (c *RushController) Control(m *Match, self actor.Actor) components.Control {
	st := m.Stick(self.ID())
	eng := m.ShotEngine(self.ID())
	if st == nil || eng == nil {
		return components.Control{}
	}

	pos := geom.Flatten(self.Position())
	goal := m.Rink().GoalCenter(m.Rink().AttackedEnd(self.Team()))
	toGoal := geom.Flatten(r3.Sub(goal, pos))
	puckPos := geom.Flatten(m.Puck().Position())
	owner := m.Puck().Owner()

	var ctl components.Control
	switch {
	case eng.OneTimerReady() && owner == nil && geom.Distance(pos, goal) <= c.ShootRange*1.5:
		ctl.Intent.Aim = toGoal
		ctl.Actions |= components.ActionOneTimer

	case st.HasPuck():
		ctl.Intent.Move = toGoal
		ctl.Intent.Aim = toGoal
		charging, _ := eng.Charging()
		switch {
		case charging && eng.Progress() >= 1:
			ctl.Actions |= components.ActionReleaseShot
		case charging:
			// keep winding up
		case geom.Distance(pos, goal) <= c.ShootRange:
			ctl.Actions |= components.ActionChargeShot
			ctl.ShotType = shot.Wrist
		case c.pressured(m, self) && m.PassEvaluator(self.ID()).Target() != nil:
			ctl.Actions |= components.ActionPass
		}

	case owner == nil:
		ctl.Intent.Move = r3.Sub(puckPos, pos)

	case actor.SameTeam(owner, self):
		lane := c.SupportWidth
		if self.ID()%2 == 0 {
			lane = -lane
		}
		dir := r3.Vec{X: float64(m.Rink().AttackedEnd(self.Team()))}
		spot := r3.Add(geom.Flatten(owner.Position()), r3.Vec{X: dir.X * c.SupportLead, Z: lane})
		spot = m.Rink().Clamp(spot, 1)
		ctl.Intent.Move = r3.Sub(spot, pos)
		ctl.Intent.Aim = toGoal

	default:
		toPuck := r3.Sub(puckPos, pos)
		ctl.Intent.Move = toPuck
		ctl.Intent.Aim = toPuck
		if r3.Norm(toPuck) <= c.PokeRange {
			ctl.Actions |= components.ActionPokeCheck
		}
	}
	return ctl
}

// pressured reports whether an opponent is within PressureRange of self.
func (c *RushController) pressured(m *Match, self actor.Actor) bool {
	for _, a := range m.Actors() {
		if !actor.Opponents(a, self) {
			continue
		}
		if geom.HorizontalDistance(a.Position(), self.Position()) <= c.PressureRange {
			return true
		}
	}
	return false
}
