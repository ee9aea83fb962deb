// Package event provides the per-match notification bus for puck events.
package event

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
)

// Surface classifies what the puck touched.
type Surface uint8

const (
	SurfaceUnknown Surface = iota
	SurfaceBoards
	SurfaceGoal
	SurfaceActor
)

func (s Surface) String() string {
	switch s {
	case SurfaceBoards:
		return "boards"
	case SurfaceGoal:
		return "goal"
	case SurfaceActor:
		return "actor"
	default:
		return "unknown"
	}
}

// Cause explains why possession changed.
type Cause uint8

const (
	CausePickup Cause = iota
	CauseSteal
	CauseShot
	CausePass
	CauseDrop
	CauseKnockLoose
	CauseSlip
	CauseReset
)

func (c Cause) String() string {
	return [...]string{"pickup", "steal", "shot", "pass", "drop", "knock_loose", "slip", "reset"}[c]
}

// Snapshot is the puck state at the moment an event fired.
type Snapshot struct {
	Position r3.Vec
	Velocity r3.Vec
}

// PossessionChanged fires whenever the owner changes. Owner is nil when the puck is free.
type PossessionChanged struct {
	Puck     Snapshot
	Previous actor.Actor
	Owner    actor.Actor
	Cause    Cause
}

// PuckShot fires when a shot or one-timer leaves the stick.
type PuckShot struct {
	Puck      Snapshot
	Shooter   actor.Actor
	Direction r3.Vec
	Power     float64
	OneTimer  bool
}

// PuckPassed fires when a pass leaves the stick. To is nil for a clear attempt.
type PuckPassed struct {
	Puck   Snapshot
	From   actor.Actor
	To     actor.Actor
	Lead   r3.Vec
	Power  float64
	Saucer bool
}

// GoalScored fires when the puck enters a goal sensor.
type GoalScored struct {
	Puck     Snapshot
	Team     actor.TeamID
	Fallback bool // sensor carried no team id
}

// Impact fires on boundary contact. Intensity scales with impact speed.
type Impact struct {
	Puck      Snapshot
	Surface   Surface
	Intensity float64
}
