// Package components defines ECS components for skaters.
package components

import (
	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/shot"
)

// Skater holds a skater's identity and ratings.
type Skater struct {
	ID         uint32
	Name       string
	Team       actor.TeamID
	Attributes actor.Attributes
	Home       Spot // faceoff lineup position
}

// Action is a set of one-shot commands from a controller.
type Action uint16

const (
	ActionPass Action = 1 << iota
	ActionSaucerPass
	ActionChargeShot // start charging Control.ShotType
	ActionReleaseShot
	ActionCancelShot
	ActionOneTimer
	ActionPokeCheck
	ActionDropPuck
	ActionCycleNext // select the next pass candidate
	ActionCyclePrev
)

// Has reports whether all of flags are set.
func (a Action) Has(flags Action) bool { return a&flags == flags }

// Control is what a controller asked a skater to do. Intent is replaced every
// frame; Actions accumulate until the next fixed step consumes them.
type Control struct {
	Intent   actor.Intent
	Actions  Action
	ShotType shot.Type
}
