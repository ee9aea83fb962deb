// Package rink describes the playing surface and classifies puck movement
// into board and goal contacts.
//
// The rink is centred on the origin with its length along X and its width
// along Z. The home team defends the goal on the -X end.
package rink

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/config"
	"github.com/pthm-cable/faceoff/event"
	"github.com/pthm-cable/faceoff/puck"
)

// End is one end of the rink.
type End int

const (
	West End = -1 // the -X end
	East End = 1  // the +X end
)

// Rink is a rectangular rink with a goal at each end.
type Rink struct {
	cfg    config.RinkConfig
	radius float64
	halfL  float64
	halfW  float64
}

// New creates a rink. radius is the puck radius used to keep the puck off the boards.
func New(cfg config.RinkConfig, radius float64) *Rink {
	return &Rink{
		cfg:    cfg,
		radius: radius,
		halfL:  cfg.Length / 2,
		halfW:  cfg.Width / 2,
	}
}

// Config returns the rink configuration.
func (r *Rink) Config() config.RinkConfig { return r.cfg }

// CenterIce is the faceoff spot.
func (r *Rink) CenterIce() r3.Vec { return r3.Vec{} }

// GoalLine returns the X coordinate of the goal line at end.
func (r *Rink) GoalLine(end End) float64 {
	return float64(end) * (r.halfL - r.cfg.GoalLineOffset)
}

// GoalCenter returns the centre of the goal mouth at end, on the ice.
func (r *Rink) GoalCenter(end End) r3.Vec {
	return r3.Vec{X: r.GoalLine(end)}
}

// DefendedEnd returns the end team defends.
func (r *Rink) DefendedEnd(team actor.TeamID) End {
	if team == actor.TeamID(r.cfg.AwayTeam) {
		return East
	}
	return West
}

// AttackedEnd returns the end team shoots at.
func (r *Rink) AttackedEnd(team actor.TeamID) End {
	return -r.DefendedEnd(team)
}

// Scorer returns the team credited for a goal in the net at end.
func (r *Rink) Scorer(end End) actor.TeamID {
	if end == West {
		return actor.TeamID(r.cfg.AwayTeam)
	}
	return actor.TeamID(r.cfg.HomeTeam)
}

// Contains reports whether p is inside the boards.
func (r *Rink) Contains(p r3.Vec) bool {
	return math.Abs(p.X) <= r.halfL && math.Abs(p.Z) <= r.halfW
}

// Clamp keeps p inside the boards, inset by margin.
func (r *Rink) Clamp(p r3.Vec, margin float64) r3.Vec {
	lx, lz := r.halfL-margin, r.halfW-margin
	p.X = math.Max(-lx, math.Min(lx, p.X))
	p.Z = math.Max(-lz, math.Min(lz, p.Z))
	return p
}

// Classify returns the contacts the puck made moving from prev to next
// during one step. Goal contacts come before board contacts.
func (r *Rink) Classify(prev, next r3.Vec) []puck.Contact {
	var contacts []puck.Contact

	for _, end := range []End{West, East} {
		if c, ok := r.goal(end, prev, next); ok {
			contacts = append(contacts, c)
		}
	}

	lx, lz := r.halfL-r.radius, r.halfW-r.radius
	point := next
	var walls []r3.Vec
	if next.X > lx {
		point.X = lx
		walls = append(walls, r3.Vec{X: -1})
	} else if next.X < -lx {
		point.X = -lx
		walls = append(walls, r3.Vec{X: 1})
	}
	if next.Z > lz {
		point.Z = lz
		walls = append(walls, r3.Vec{Z: -1})
	} else if next.Z < -lz {
		point.Z = -lz
		walls = append(walls, r3.Vec{Z: 1})
	}
	for _, n := range walls {
		contacts = append(contacts, puck.Contact{
			Surface:        event.SurfaceBoards,
			Normal:         n,
			Point:          point,
			HasPoint:       true,
			Restitution:    r.cfg.BoardRestitution,
			IntensityScale: r.cfg.ImpactScale,
		})
	}
	return contacts
}

// goal reports whether the puck crossed the goal line at end through the
// mouth, travelling into the net.
func (r *Rink) goal(end End, prev, next r3.Vec) (puck.Contact, bool) {
	line := r.GoalLine(end)
	dir := float64(end)

	// Both sides of the line, measured toward the end boards
	before := (prev.X - line) * dir
	after := (next.X - line) * dir
	if before >= 0 || after < 0 {
		return puck.Contact{}, false
	}

	t := before / (before - after)
	z := prev.Z + (next.Z-prev.Z)*t
	y := prev.Y + (next.Y-prev.Y)*t
	if math.Abs(z) > r.cfg.GoalWidth/2 || y > r.cfg.GoalHeight {
		return puck.Contact{}, false
	}

	return puck.Contact{
		Surface: event.SurfaceGoal,
		Team:    r.Scorer(end),
	}, true
}
