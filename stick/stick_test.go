package stick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/config"
	"github.com/pthm-cable/faceoff/event"
	"github.com/pthm-cable/faceoff/geom"
	"github.com/pthm-cable/faceoff/puck"
)

const dt = 1.0 / 60.0

type point r3.Vec

func (p point) ContactPoint() r3.Vec { return r3.Vec(p) }

func newPuck(t *testing.T) *puck.Puck {
	t.Helper()
	cfg := config.Default()
	p, err := puck.New(cfg.Puck, cfg.Physics.Gravity, &puck.Body{}, event.NewBus(nil), nil)
	require.NoError(t, err)
	return p
}

// skaterAt places a skater so that its stick target lands on blade.
func skaterAt(id uint32, team actor.TeamID, blade r3.Vec) *actor.Static {
	cfg := config.Default().Stick
	return &actor.Static{
		IDValue:   id,
		TeamValue: team,
		Pos:       r3.Vec{X: blade.X - cfg.Reach, Z: blade.Z - cfg.Side},
		Face:      r3.Vec{X: 1},
	}
}

func newStick(t *testing.T, p *puck.Puck, a actor.Actor) *Resolver {
	t.Helper()
	r, err := New(p, a, config.Default().Stick, nil)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestNewValidation(t *testing.T) {
	p := newPuck(t)
	a := skaterAt(1, 1, r3.Vec{})
	cfg := config.Default().Stick

	_, err := New(nil, a, cfg, nil)
	assert.ErrorIs(t, err, ErrNoPuckRef)

	_, err = New(p, nil, cfg, nil)
	assert.ErrorIs(t, err, ErrNoActor)

	noReach := cfg
	noReach.Reach = 0
	_, err = New(p, a, noReach, nil)
	assert.ErrorIs(t, err, ErrNoContact)

	noLength := cfg
	noLength.Length = 0
	_, err = New(p, a, noLength, nil)
	assert.ErrorIs(t, err, ErrNoContact)
}

func TestContactPointPlacement(t *testing.T) {
	p := newPuck(t)
	a := &actor.Static{IDValue: 1, TeamValue: 1, Face: r3.Vec{X: 1}}
	r := newStick(t, p, a)

	c := r.ContactPoint()
	assert.InDelta(t, 0.9, c.X, 1e-9)
	assert.InDelta(t, 0.25, c.Z, 1e-9)
	assert.Zero(t, c.Y)
}

func TestFollowTrailsTurn(t *testing.T) {
	p := newPuck(t)
	a := &actor.Static{IDValue: 1, TeamValue: 1, Face: r3.Vec{X: 1}}
	r := newStick(t, p, a)
	start := r.ContactPoint()

	a.Face = r3.Vec{Z: 1}
	want := r3.Vec{X: -0.25, Z: 0.9}

	r.Follow(dt)
	mid := r.ContactPoint()
	assert.Greater(t, geom.Distance(mid, want), 0.1, "one tick should not reach the new target")
	assert.Less(t, geom.Distance(mid, want), geom.Distance(start, want))

	for i := 0; i < 120; i++ {
		r.Follow(dt)
	}
	assert.InDelta(t, 0, geom.Distance(r.ContactPoint(), want), 1e-6)

	a.Face = r3.Vec{X: -1}
	r.Snap()
	assert.InDelta(t, 0, geom.Distance(r.ContactPoint(), r3.Vec{X: -0.9, Z: -0.25}), 1e-9)
}

func TestAutoPickup(t *testing.T) {
	p := newPuck(t)
	a := skaterAt(1, 1, r3.Vec{})
	r := newStick(t, p, a)

	r.Update(dt)
	assert.True(t, r.HasPuck())
	assert.Equal(t, puck.Possessed, p.State())
	assert.True(t, actor.Same(a, p.Owner()))
	assert.Same(t, r, p.Anchor())
}

func TestAutoPickupOutOfRange(t *testing.T) {
	p := newPuck(t)
	r := newStick(t, p, skaterAt(1, 1, r3.Vec{X: 0.7}))

	r.Update(dt)
	assert.False(t, r.HasPuck())
	assert.Equal(t, puck.Free, p.State())
}

func TestAutoPickupDisabled(t *testing.T) {
	p := newPuck(t)
	r := newStick(t, p, skaterAt(1, 1, r3.Vec{}))
	r.SetAutoPickup(false)

	r.Update(dt)
	assert.False(t, r.HasPuck())

	r.SetAutoPickup(true)
	r.Update(dt)
	assert.True(t, r.HasPuck())
}

func TestCooldownAfterShot(t *testing.T) {
	p := newPuck(t)
	r := newStick(t, p, skaterAt(1, 1, r3.Vec{}))
	r.Update(dt)
	require.True(t, r.HasPuck())

	require.NoError(t, r.Shoot(r3.Vec{X: 1}, 20))
	assert.False(t, r.HasPuck())
	assert.InDelta(t, 0.5, r.Cooldown(), 1e-9)

	// Put the puck back on the blade; the cooldown must still hold it off
	p.Reset(r.ContactPoint())
	for i := 0; i < 10; i++ {
		r.Update(dt)
	}
	assert.False(t, r.HasPuck())
	assert.Greater(t, r.Cooldown(), 0.0)

	for i := 0; i < 30; i++ {
		r.Update(dt)
	}
	assert.Zero(t, r.Cooldown())
	assert.True(t, r.HasPuck())
}

func TestLossFromStealResyncs(t *testing.T) {
	p := newPuck(t)
	a := skaterAt(1, 1, r3.Vec{X: 0.5})
	r := newStick(t, p, a)
	r.Update(dt)
	require.True(t, r.HasPuck())

	thief := skaterAt(2, 2, r3.Vec{})
	require.True(t, p.TryGainPossession(thief, point{}))

	assert.False(t, r.HasPuck())
	assert.InDelta(t, 0.5, r.Cooldown(), 1e-9)
}

func TestReleaseWithoutPuck(t *testing.T) {
	p := newPuck(t)
	r := newStick(t, p, skaterAt(1, 1, r3.Vec{X: 5}))
	mate := skaterAt(2, 1, r3.Vec{X: 10})

	assert.ErrorIs(t, r.Shoot(r3.Vec{X: 1}, 20), ErrNoPuck)
	assert.ErrorIs(t, r.Pass(mate, mate.Position(), 10), ErrNoPuck)
	assert.ErrorIs(t, r.SaucerPass(mate, mate.Position(), 10, 2), ErrNoPuck)
	assert.ErrorIs(t, r.DropPuck(), ErrNoPuck)
	assert.Equal(t, r3.Vec{}, p.Velocity())
}

func TestPassAndDrop(t *testing.T) {
	p := newPuck(t)
	r := newStick(t, p, skaterAt(1, 1, r3.Vec{}))
	mate := skaterAt(2, 1, r3.Vec{X: 10})

	r.Update(dt)
	require.True(t, r.HasPuck())
	require.NoError(t, r.Pass(mate, r3.Vec{X: 10}, 12))
	assert.False(t, r.HasPuck())
	assert.InDelta(t, 12, p.Velocity().X, 1e-9)
	inFlight, to := p.PassInFlight()
	assert.True(t, inFlight)
	assert.True(t, actor.Same(mate, to))

	p.Reset(r.ContactPoint())
	r.SetAutoPickup(false)
	require.True(t, p.TryGainPossession(r.Actor(), r))
	assert.True(t, r.HasPuck())
	require.NoError(t, r.DropPuck())
	assert.False(t, r.HasPuck())
	assert.Equal(t, puck.Free, p.State())
}

func TestPokeCheck(t *testing.T) {
	tests := []struct {
		name    string
		poker   r3.Vec
		forward r3.Vec
		want    bool
	}{
		{name: "probe through puck", poker: r3.Vec{X: -1}, forward: r3.Vec{X: 1}, want: true},
		{name: "at full poke reach", poker: r3.Vec{X: -2.2}, forward: r3.Vec{X: 1}, want: true},
		{name: "beyond poke reach", poker: r3.Vec{X: -2.3}, forward: r3.Vec{X: 1}, want: false},
		{name: "probe misses to the side", poker: r3.Vec{X: -1, Z: 0.5}, forward: r3.Vec{X: 1}, want: false},
		{name: "probe pointing away", poker: r3.Vec{X: -1}, forward: r3.Vec{X: -1}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPuck(t)
			victim := skaterAt(2, 2, r3.Vec{})
			require.True(t, p.TryGainPossession(victim, point{}))

			poker := &actor.Static{IDValue: 1, TeamValue: 1, Pos: tt.poker, Face: tt.forward}
			r := newStick(t, p, poker)

			got := r.PokeCheck(tt.forward)
			assert.Equal(t, tt.want, got)
			if tt.want {
				assert.Equal(t, puck.Free, p.State())
				assert.InDelta(t, 6, p.Velocity().X, 1e-9)
			} else {
				assert.Equal(t, puck.Possessed, p.State())
			}
		})
	}
}

func TestPokeCheckRequiresOpponentOwner(t *testing.T) {
	p := newPuck(t)
	r := newStick(t, p, &actor.Static{IDValue: 1, TeamValue: 1, Pos: r3.Vec{X: -1}, Face: r3.Vec{X: 1}})

	// Free puck
	assert.False(t, r.PokeCheck(r3.Vec{X: 1}))

	// Own puck
	require.True(t, p.TryGainPossession(r.Actor(), point{}))
	assert.False(t, r.PokeCheck(r3.Vec{X: 1}))
	assert.Equal(t, puck.Possessed, p.State())
}

func TestOneTimerOnFreePuck(t *testing.T) {
	p := newPuck(t)
	r := newStick(t, p, skaterAt(1, 1, r3.Vec{}))
	r.SetAutoPickup(false)

	require.NoError(t, r.OneTimer(r3.Vec{Z: 1}, 20))
	assert.False(t, r.HasPuck())
	assert.True(t, p.IsShotImmune())
	assert.InDelta(t, 20, p.Speed(), 1e-9)
}
