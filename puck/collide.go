package puck

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/event"
	"github.com/pthm-cable/faceoff/geom"
)

// Contact is a classified contact between the puck and the scene.
type Contact struct {
	Surface event.Surface

	// Team credited when Surface is SurfaceGoal. NoTeam falls back to FallbackTeam.
	Team actor.TeamID

	// Boards only: outward-facing wall normal, corrected position and bounce.
	Normal         r3.Vec
	Point          r3.Vec
	HasPoint       bool
	Restitution    float64
	IntensityScale float64
}

// Collide applies a classified contact. Goal contacts report a goal, board
// contacts bounce the puck and report an impact. Neither changes possession.
// Actor contacts are left to the stick resolvers.
func (p *Puck) Collide(c Contact) {
	switch c.Surface {
	case event.SurfaceGoal:
		p.goal(c)
	case event.SurfaceBoards:
		p.boards(c)
	case event.SurfaceActor:
		// pickup is resolved by the stick, not by body contact
	default:
		p.log.Debug("unclassified contact ignored", "surface", c.Surface.String())
	}
}

func (p *Puck) goal(c Contact) {
	team := c.Team
	fallback := false
	if team == actor.NoTeam {
		team = FallbackTeam
		fallback = true
		p.log.Warn("goal sensor has no team id, using fallback", "team", int(team))
	}
	p.log.Info("goal scored", "team", int(team))
	p.bus.PublishGoalScored(event.GoalScored{
		Puck:     p.Snapshot(),
		Team:     team,
		Fallback: fallback,
	})
}

func (p *Puck) boards(c Contact) {
	n := geom.SafeUnit(geom.Flatten(c.Normal))
	v := p.body.Velocity

	// Speed into the wall; n points back into the rink
	into := -r3.Dot(v, n)
	if c.HasPoint {
		p.body.Position = c.Point
	}
	if into <= 0 || geom.IsZero(n) {
		return
	}

	restitution := c.Restitution
	if restitution <= 0 {
		restitution = 1
	}
	p.body.Velocity = r3.Add(v, r3.Scale(into*(1+restitution), n))

	scale := c.IntensityScale
	if scale <= 0 {
		scale = 1
	}
	intensity := math.Min(into*scale, 1)
	p.bus.PublishImpact(event.Impact{
		Puck:      p.Snapshot(),
		Surface:   event.SurfaceBoards,
		Intensity: intensity,
	})
}
