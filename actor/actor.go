// Package actor defines the view of a skater that the puck core works with.
package actor

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// TeamID identifies a team. Zero means no team.
type TeamID int

// NoTeam is the zero team id.
const NoTeam TeamID = 0

func (t TeamID) String() string {
	if t == NoTeam {
		return "none"
	}
	return fmt.Sprintf("team-%d", int(t))
}

// Actor is a skater as seen by the puck, stick, pass and shot components.
// Implementations read live state; values may change every tick.
type Actor interface {
	ID() uint32
	Team() TeamID
	Position() r3.Vec
	Velocity() r3.Vec
	Facing() r3.Vec
}

// Attributes are the per-skater ratings used by shot computation, as 0-100 scalars.
type Attributes struct {
	ShotPower float64 `yaml:"shot_power"`
	Accuracy  float64 `yaml:"accuracy"`
}

// Roster exposes the skaters on the ice for team classification.
type Roster interface {
	Actors() []Actor
}

// SameTeam reports whether a and b are on the same (non-zero) team.
func SameTeam(a, b Actor) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Team() != NoTeam && a.Team() == b.Team()
}

// Opponents reports whether a and b are different skaters on different
// teams. A skater without a team is nobody's opponent.
func Opponents(a, b Actor) bool {
	if a == nil || b == nil || Same(a, b) {
		return false
	}
	return a.Team() != NoTeam && b.Team() != NoTeam && a.Team() != b.Team()
}

// Same reports whether a and b refer to the same skater.
func Same(a, b Actor) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID() == b.ID()
}

// Intent is what a controller wants a skater to do this frame.
// It is written on the variable-rate frame and consumed by the next fixed step.
type Intent struct {
	Move      r3.Vec // desired skating direction; zero to glide
	Aim       r3.Vec // aim vector shared by pass evaluation and shooting; zero = none
	Target    r3.Vec // explicit target position for shots
	HasTarget bool
}

// Static is a fixed Actor, handy for tests and tools.
type Static struct {
	IDValue   uint32
	TeamValue TeamID
	Pos       r3.Vec
	Vel       r3.Vec
	Face      r3.Vec
}

func (s *Static) ID() uint32       { return s.IDValue }
func (s *Static) Team() TeamID     { return s.TeamValue }
func (s *Static) Position() r3.Vec { return s.Pos }
func (s *Static) Velocity() r3.Vec { return s.Vel }
func (s *Static) Facing() r3.Vec   { return s.Face }
