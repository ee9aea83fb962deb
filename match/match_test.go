package match

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/components"
	"github.com/pthm-cable/faceoff/config"
	"github.com/pthm-cable/faceoff/event"
	"github.com/pthm-cable/faceoff/rink"
	"github.com/pthm-cable/faceoff/shot"
	"github.com/pthm-cable/faceoff/telemetry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMatch(t *testing.T, opts Options) *Match {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	m, err := New(config.Default(), opts)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m
}

// bladeAt returns the home position that puts a home skater's blade on p.
func bladeAt(m *Match, p r3.Vec) r3.Vec {
	cfg := m.Config().Stick
	return r3.Vec{X: p.X - cfg.Reach, Z: p.Z - cfg.Side}
}

func addSkater(t *testing.T, m *Match, name string, team actor.TeamID, home r3.Vec) actor.Actor {
	t.Helper()
	a, err := m.AddSkater(SkaterSpec{Name: name, Team: team, Home: home})
	require.NoError(t, err)
	return a
}

func TestNew(t *testing.T) {
	m := newMatch(t, Options{Seed: 7})

	assert.NotEmpty(t, m.ID())
	assert.Equal(t, int64(7), m.Seed())
	assert.Equal(t, int32(0), m.Tick())
	assert.Nil(t, m.Puck().Owner())
	assert.Equal(t, m.Rink().CenterIce(), m.Puck().Position())
	assert.Empty(t, m.Actors())
	assert.Equal(t, 0, m.Score(m.HomeTeam()))
	assert.False(t, m.Paused())
}

func TestAddSkaterValidation(t *testing.T) {
	m := newMatch(t, Options{})

	_, err := m.AddSkater(SkaterSpec{Team: m.HomeTeam()})
	assert.ErrorIs(t, err, ErrNoName)

	addSkater(t, m, "ovi", m.HomeTeam(), r3.Vec{X: -5})
	_, err = m.AddSkater(SkaterSpec{Name: "ovi", Team: m.AwayTeam()})
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = m.AddSkater(SkaterSpec{Name: "ref", Team: 9})
	assert.ErrorIs(t, err, ErrUnknownTeam)

	assert.Len(t, m.Actors(), 1)
}

func TestAddSkaterHomeSpot(t *testing.T) {
	m := newMatch(t, Options{})

	home := addSkater(t, m, "home", m.HomeTeam(), r3.Vec{X: -5, Z: 2})
	away := addSkater(t, m, "away", m.AwayTeam(), r3.Vec{X: 100, Z: -100})

	assert.Equal(t, uint32(1), home.ID())
	assert.Equal(t, uint32(2), away.ID())

	assert.Equal(t, r3.Vec{X: -5, Z: 2}, home.Position())
	assert.Equal(t, r3.Vec{X: 1}, home.Facing())
	assert.Equal(t, r3.Vec{X: -1}, away.Facing())

	// Out-of-bounds lineups are pulled inside the boards
	rc := m.Config().Rink
	radius := m.Config().Skater.BodyRadius
	assert.InDelta(t, rc.Length/2-radius, away.Position().X, 1e-9)
	assert.InDelta(t, -(rc.Width/2 - radius), away.Position().Z, 1e-9)

	for _, a := range []actor.Actor{home, away} {
		assert.NotNil(t, m.Stick(a.ID()))
		assert.NotNil(t, m.PassEvaluator(a.ID()))
		assert.NotNil(t, m.ShotEngine(a.ID()))
		require.NotNil(t, m.Lifetime(a.ID()))
	}
	assert.Equal(t, "away", m.Lifetime(away.ID()).Name)
	assert.Nil(t, m.Stick(99))
}

func TestSkaterRNG(t *testing.T) {
	a := newMatch(t, Options{Seed: 42})
	b := newMatch(t, Options{Seed: 42})
	c := newMatch(t, Options{Seed: 43})

	assert.Equal(t, a.skaterRNG("ovi").Int63(), b.skaterRNG("ovi").Int63())
	assert.NotEqual(t, a.skaterRNG("ovi").Int63(), a.skaterRNG("geno").Int63())
	assert.NotEqual(t, a.skaterRNG("ovi").Int63(), c.skaterRNG("ovi").Int63())
}

func TestUpdateFixedSteps(t *testing.T) {
	m := newMatch(t, Options{})
	dt := m.Config().Physics.DT

	assert.Equal(t, 3, m.Update(3.5*dt))
	assert.Equal(t, int32(3), m.Tick())

	// A long frame runs at most MaxStepsPerFrame and drops the rest
	assert.Equal(t, m.Config().Match.MaxStepsPerFrame, m.Update(1.0))
	assert.Less(t, m.accumulator, dt)
}

func TestSkaterMovement(t *testing.T) {
	m := newMatch(t, Options{})
	a := addSkater(t, m, "skater", m.HomeTeam(), r3.Vec{X: -10})
	maxSpeed := m.Config().Skater.MaxSpeed

	m.SetControl(a.ID(), components.Control{Intent: actor.Intent{Move: r3.Vec{Z: 1}}})
	for i := 0; i < 60; i++ {
		m.Step()
		assert.LessOrEqual(t, r3.Norm(a.Velocity()), maxSpeed+1e-9)
	}
	assert.Greater(t, a.Position().Z, 0.0)
	assert.Greater(t, a.Velocity().Z, 0.0)
	assert.InDelta(t, 1.0, a.Facing().Z, 1e-9, "facing follows velocity without an aim")

	t.Run("glides without input", func(t *testing.T) {
		m.SetControl(a.ID(), components.Control{})
		before := a.Velocity().Z
		m.Step()
		assert.Less(t, a.Velocity().Z, before)
		assert.Greater(t, a.Velocity().Z, 0.0)
	})

	t.Run("stops at the boards", func(t *testing.T) {
		m.SetControl(a.ID(), components.Control{Intent: actor.Intent{Move: r3.Vec{Z: 1}}})
		for i := 0; i < 600; i++ {
			m.Step()
		}
		limit := m.Config().Rink.Width/2 - m.Config().Skater.BodyRadius
		assert.InDelta(t, limit, a.Position().Z, 1e-9)
		assert.Equal(t, 0.0, a.Velocity().Z)
	})

	t.Run("aim overrides facing", func(t *testing.T) {
		m.SetControl(a.ID(), components.Control{Intent: actor.Intent{Aim: r3.Vec{X: -3}}})
		m.Step()
		assert.Equal(t, r3.Vec{X: -1}, a.Facing())
	})
}

func TestAutoPickup(t *testing.T) {
	m := newMatch(t, Options{})
	a := addSkater(t, m, "carrier", m.HomeTeam(), bladeAt(m, r3.Vec{}))

	m.Step()

	require.NotNil(t, m.Puck().Owner())
	assert.Equal(t, a.ID(), m.Puck().Owner().ID())
	assert.True(t, m.Stick(a.ID()).HasPuck())
	assert.Equal(t, 1, m.Lifetime(a.ID()).Pickups)
	assert.Equal(t, 1, m.Lifetime(a.ID()).PossessionTicks)

	events := m.collector.DrainEvents()
	require.NotEmpty(t, events)
	assert.Equal(t, a.ID(), events[len(events)-1].Actor)
}

func TestShotFromCarrier(t *testing.T) {
	m := newMatch(t, Options{Seed: 1})
	a := addSkater(t, m, "shooter", m.HomeTeam(), bladeAt(m, r3.Vec{}))
	m.Step()
	require.True(t, m.Stick(a.ID()).HasPuck())

	m.SetControl(a.ID(), components.Control{Actions: components.ActionChargeShot, ShotType: shot.Wrist})
	for i := 0; i < 60; i++ {
		m.Step()
	}
	assert.Equal(t, 1.0, m.ShotEngine(a.ID()).Progress())

	m.SetControl(a.ID(), components.Control{
		Intent:  actor.Intent{Aim: r3.Vec{X: 1}},
		Actions: components.ActionReleaseShot,
	})
	m.Step()

	assert.Nil(t, m.Puck().Owner())
	assert.True(t, m.Puck().IsShotImmune())
	assert.Greater(t, m.Puck().Velocity().X, 20.0)

	ls := m.Lifetime(a.ID())
	assert.Equal(t, 1, ls.Shots)
	assert.Greater(t, ls.PeakShotPower, 20.0)
}

func TestPassOpensOneTimerWindow(t *testing.T) {
	m := newMatch(t, Options{})
	carrier := addSkater(t, m, "carrier", m.HomeTeam(), bladeAt(m, r3.Vec{}))
	receiver := addSkater(t, m, "receiver", m.HomeTeam(), r3.Vec{X: 10, Z: -0.25})

	m.Step()
	require.True(t, m.Stick(carrier.ID()).HasPuck())
	target := m.PassEvaluator(carrier.ID()).Target()
	require.NotNil(t, target)
	assert.Equal(t, receiver.ID(), target.Actor.ID())

	m.SetControl(carrier.ID(), components.Control{Actions: components.ActionPass})
	m.Step()

	assert.Nil(t, m.Puck().Owner())
	inFlight, to := m.Puck().PassInFlight()
	assert.True(t, inFlight)
	require.NotNil(t, to)
	assert.Equal(t, receiver.ID(), to.ID())
	assert.True(t, m.ShotEngine(receiver.ID()).OneTimerReady())
	assert.Equal(t, 1, m.Lifetime(carrier.ID()).Passes)
}

func TestSetAimDirection(t *testing.T) {
	m := newMatch(t, Options{})
	carrier := addSkater(t, m, "carrier", m.HomeTeam(), bladeAt(m, r3.Vec{}))
	ahead := addSkater(t, m, "ahead", m.HomeTeam(), r3.Vec{X: 10})
	wide := addSkater(t, m, "wide", m.HomeTeam(), r3.Vec{Z: 10})

	m.Step()
	require.NotNil(t, m.PassEvaluator(carrier.ID()).Target())
	assert.Equal(t, ahead.ID(), m.PassEvaluator(carrier.ID()).Target().Actor.ID())

	m.SetAimDirection(carrier.ID(), r3.Vec{Z: 1})
	m.Step()
	require.NotNil(t, m.PassEvaluator(carrier.ID()).Target())
	assert.Equal(t, wide.ID(), m.PassEvaluator(carrier.ID()).Target().Actor.ID())
	assert.Equal(t, r3.Vec{Z: 1}, carrier.Facing())
}

func TestActionsIgnoredWithoutPuck(t *testing.T) {
	m := newMatch(t, Options{})
	a := addSkater(t, m, "idle", m.HomeTeam(), r3.Vec{X: -10})

	m.SetControl(a.ID(), components.Control{Actions: components.ActionPass | components.ActionDropPuck | components.ActionOneTimer})
	assert.NotPanics(t, m.Step)
	assert.Nil(t, m.Puck().Owner())

	// Actions are consumed by the step that ran them
	assert.Equal(t, components.Action(0), m.controlMap.Get(m.byID[a.ID()].skater.entity).Actions)
}

// shootAtEastNet sends the free puck across the East goal line.
func shootAtEastNet(m *Match) {
	line := m.Rink().GoalLine(rink.East)
	m.puckBody.Position = r3.Vec{X: line - 0.5}
	m.puckBody.Velocity = r3.Vec{X: 20}
}

func TestGoalPauseAndFaceoff(t *testing.T) {
	m := newMatch(t, Options{})
	a := addSkater(t, m, "wing", m.HomeTeam(), r3.Vec{X: -5})
	m.SetControl(a.ID(), components.Control{Intent: actor.Intent{Move: r3.Vec{X: 1}}})

	shootAtEastNet(m)
	for i := 0; i < 5 && !m.Paused(); i++ {
		m.Step()
	}
	require.True(t, m.Paused())
	assert.Equal(t, 1, m.Score(m.HomeTeam()))
	assert.Equal(t, 0, m.Score(m.AwayTeam()))

	// No credit without a last touch
	assert.Equal(t, 0, m.Lifetime(a.ID()).Goals)

	// Skaters hold still while play is stopped
	pos := a.Position()
	m.Step()
	assert.InDelta(t, pos.X, a.Position().X, 0.2)

	for i := 0; i < 1000 && m.Paused(); i++ {
		m.Step()
	}
	require.False(t, m.Paused())
	assert.Equal(t, 1, m.Score(m.HomeTeam()), "no goals while paused")
	assert.Equal(t, m.Rink().CenterIce(), m.Puck().Position())
	assert.Nil(t, m.Puck().Owner())
	assert.Equal(t, r3.Vec{X: -5}, a.Position())
	assert.Equal(t, r3.Vec{}, a.Velocity())
}

func TestGoalCredit(t *testing.T) {
	m := newMatch(t, Options{})
	home := addSkater(t, m, "home", m.HomeTeam(), r3.Vec{X: -5})
	away := addSkater(t, m, "away", m.AwayTeam(), r3.Vec{X: 5})

	m.lastTouch = home
	m.bus.PublishGoalScored(event.GoalScored{Team: m.HomeTeam()})
	assert.Equal(t, 1, m.Lifetime(home.ID()).Goals)

	// Own goal
	m.lastTouch = away
	m.bus.PublishGoalScored(event.GoalScored{Team: m.HomeTeam()})
	assert.Equal(t, 0, m.Lifetime(away.ID()).Goals)
	assert.Equal(t, 2, m.Score(m.HomeTeam()))
}

func TestStatsCallback(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.StatsWindow = 0.5

	var windows []telemetry.WindowStats
	m, err := New(cfg, Options{
		Logger:        quietLogger(),
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})
	require.NoError(t, err)
	defer m.Close()

	perWindow := int(m.collector.WindowDurationTicks())
	for i := 0; i < 2*perWindow; i++ {
		m.Step()
	}
	require.Len(t, windows, 2)
	assert.Equal(t, int32(perWindow), windows[0].WindowEndTick)
	assert.Equal(t, int32(2*perWindow), windows[1].WindowEndTick)
}

func TestSnapshotOnGoal(t *testing.T) {
	dir := t.TempDir()
	m := newMatch(t, Options{SnapshotDir: dir})
	a := addSkater(t, m, "wing", m.HomeTeam(), r3.Vec{X: -5})

	shootAtEastNet(m)
	for i := 0; i < 5 && !m.Paused(); i++ {
		m.Step()
	}
	require.True(t, m.Paused())

	files, err := filepath.Glob(filepath.Join(dir, "snapshot_*_goal.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	snap, err := telemetry.LoadSnapshot(files[0])
	require.NoError(t, err)
	assert.Equal(t, m.ID(), snap.MatchID)
	assert.Equal(t, "goal", snap.Reason)
	assert.Equal(t, 1, snap.ScoreHome)
	require.Len(t, snap.Skaters, 1)
	assert.Equal(t, a.ID(), snap.Skaters[0].ID)
	require.NotNil(t, snap.Skaters[0].Lifetime)
}

func TestSummary(t *testing.T) {
	m := newMatch(t, Options{Seed: 3})
	addSkater(t, m, "a", m.HomeTeam(), r3.Vec{X: -5})
	addSkater(t, m, "b", m.AwayTeam(), r3.Vec{X: 5})

	for i := 0; i < 60; i++ {
		m.Step()
	}
	s := m.Summary()
	assert.Equal(t, m.ID(), s.MatchID)
	assert.Equal(t, int64(3), s.Seed)
	assert.Equal(t, int32(60), s.Ticks)
	assert.InDelta(t, 1.0, s.SimTimeSec, 1e-6)
	require.Len(t, s.Skaters, 2)
	assert.InDelta(t, 1.0, s.Skaters[0].TimeOnIceSec, 1e-6)
}

func TestOutputFiles(t *testing.T) {
	dir := t.TempDir()
	out, err := telemetry.NewOutputManager(dir)
	require.NoError(t, err)
	defer out.Close()

	cfg := config.Default()
	cfg.Telemetry.StatsWindow = 0.5
	m, err := New(cfg, Options{Logger: quietLogger(), Output: out})
	require.NoError(t, err)
	addSkater(t, m, "carrier", m.HomeTeam(), bladeAt(m, r3.Vec{}))

	for i := 0; i < int(m.collector.WindowDurationTicks()); i++ {
		m.Step()
	}
	m.Close()

	for _, name := range []string{"telemetry.csv", "perf.csv", "events.csv"} {
		assert.FileExists(t, filepath.Join(out.Dir(), name))
	}
}
