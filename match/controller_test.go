package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/components"
	"github.com/pthm-cable/faceoff/shot"
)

func TestControllerFunc(t *testing.T) {
	m := newMatch(t, Options{})
	called := 0
	ctl := ControllerFunc(func(_ *Match, self actor.Actor) components.Control {
		called++
		return components.Control{Intent: actor.Intent{Move: r3.Vec{X: 1}}}
	})
	a, err := m.AddSkater(SkaterSpec{Name: "bot", Team: m.HomeTeam(), Home: r3.Vec{X: -10}, Controller: ctl})
	require.NoError(t, err)

	dt := m.Config().Physics.DT
	m.Update(2.5 * dt)
	assert.Equal(t, 1, called)
	assert.Greater(t, a.Velocity().X, 0.0)
}

func TestRushControllerCarrierShootsInRange(t *testing.T) {
	m := newMatch(t, Options{})
	a := addSkater(t, m, "sniper", m.HomeTeam(), bladeAt(m, r3.Vec{X: 18}))
	m.puckBody.Position = r3.Vec{X: 18}
	m.Step()
	require.True(t, m.Stick(a.ID()).HasPuck())

	rc := NewRushController()
	ctl := rc.Control(m, a)
	assert.True(t, ctl.Actions.Has(components.ActionChargeShot))
	assert.Equal(t, shot.Wrist, ctl.ShotType)
	assert.Greater(t, ctl.Intent.Move.X, 0.0)

	// Once charged the carrier lets it go
	m.SetControl(a.ID(), components.Control{Actions: ctl.Actions, ShotType: ctl.ShotType})
	for i := 0; i < 60; i++ {
		m.Step()
	}
	ctl = rc.Control(m, a)
	assert.True(t, ctl.Actions.Has(components.ActionReleaseShot))
}

func TestRushControllerChasesFreePuck(t *testing.T) {
	m := newMatch(t, Options{})
	a := addSkater(t, m, "chaser", m.HomeTeam(), r3.Vec{X: -10, Z: 4})

	ctl := NewRushController().Control(m, a)
	assert.Equal(t, components.Action(0), ctl.Actions)
	assert.Greater(t, ctl.Intent.Move.X, 0.0)
	assert.Less(t, ctl.Intent.Move.Z, 0.0)
}

func TestRushControllerPokesCarrier(t *testing.T) {
	m := newMatch(t, Options{})
	carrier := addSkater(t, m, "carrier", m.HomeTeam(), bladeAt(m, r3.Vec{}))
	m.Step()
	require.True(t, m.Stick(carrier.ID()).HasPuck())

	defender := addSkater(t, m, "defender", m.AwayTeam(), r3.Vec{X: 1})
	ctl := NewRushController().Control(m, defender)
	assert.True(t, ctl.Actions.Has(components.ActionPokeCheck))
	assert.Less(t, ctl.Intent.Aim.X, 0.0)
}

func TestRushControllerSupportsCarrier(t *testing.T) {
	m := newMatch(t, Options{})
	carrier := addSkater(t, m, "carrier", m.HomeTeam(), bladeAt(m, r3.Vec{}))
	m.Step()
	require.True(t, m.Stick(carrier.ID()).HasPuck())

	mate := addSkater(t, m, "mate", m.HomeTeam(), r3.Vec{X: -8})
	ctl := NewRushController().Control(m, mate)
	assert.Equal(t, components.Action(0), ctl.Actions)
	assert.Greater(t, ctl.Intent.Move.X, 0.0)
}

func TestRushScrimmage(t *testing.T) {
	m := newMatch(t, Options{Seed: 11})
	lineup := []struct {
		name string
		team actor.TeamID
		home r3.Vec
	}{
		{"h1", m.HomeTeam(), r3.Vec{X: -3, Z: 3}},
		{"h2", m.HomeTeam(), r3.Vec{X: -3, Z: -3}},
		{"a1", m.AwayTeam(), r3.Vec{X: 3, Z: 3}},
		{"a2", m.AwayTeam(), r3.Vec{X: 3, Z: -3}},
	}
	for _, l := range lineup {
		_, err := m.AddSkater(SkaterSpec{Name: l.name, Team: l.team, Home: l.home, Controller: NewRushController()})
		require.NoError(t, err)
	}

	dt := m.Config().Physics.DT
	for i := 0; i < 60*60; i++ {
		m.Update(dt)
	}

	s := m.Summary()
	assert.Greater(t, s.Ticks, int32(3000))
	touches := 0
	for _, ls := range s.Skaters {
		touches += ls.Pickups + ls.Steals
		assert.True(t, m.Rink().Contains(m.byID[ls.ID].skater.Position()))
	}
	assert.Positive(t, touches)
}
