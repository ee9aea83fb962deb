package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/event"
)

const (
	home actor.TeamID = 1
	away actor.TeamID = 2
)

var (
	homeC = &actor.Static{IDValue: 1, TeamValue: home}
	homeW = &actor.Static{IDValue: 2, TeamValue: home}
	awayC = &actor.Static{IDValue: 3, TeamValue: away}
)

func newTestCollector() *Collector {
	return NewCollector(1, 1.0/60.0, home, away)
}

func TestCollectorWindowTicks(t *testing.T) {
	c := newTestCollector()
	assert.Equal(t, int32(60), c.WindowDurationTicks())
	assert.False(t, c.ShouldFlush(59))
	assert.True(t, c.ShouldFlush(60))

	c.Flush(60, 0, 0)
	assert.False(t, c.ShouldFlush(100))
	assert.True(t, c.ShouldFlush(120))

	// Degenerate window still flushes every tick
	assert.Equal(t, int32(1), NewCollector(0, 1.0/60.0, home, away).WindowDurationTicks())
}

func TestCollectorPassOutcomes(t *testing.T) {
	tests := []struct {
		name     string
		receiver actor.Actor
		cause    event.Cause
		want     PassOutcome
	}{
		{"teammate", homeW, event.CausePickup, PassCompleted},
		{"opponent", awayC, event.CausePickup, PassIntercepted},
		{"opponent steal", awayC, event.CauseSteal, PassIntercepted},
		{"passer", homeC, event.CausePickup, PassRecovered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCollector()
			c.RecordPass(1, event.PuckPassed{From: homeC, To: homeW, Power: 12})
			outcome, passer := c.RecordPossession(5, event.PossessionChanged{Owner: tt.receiver, Cause: tt.cause})
			assert.Equal(t, tt.want, outcome)
			assert.Equal(t, uint32(1), passer)

			// Resolved once
			outcome, _ = c.RecordPossession(6, event.PossessionChanged{Owner: tt.receiver})
			assert.Equal(t, PassNone, outcome)
		})
	}
}

func TestCollectorClearIsNotAPendingPass(t *testing.T) {
	c := newTestCollector()
	c.RecordPass(1, event.PuckPassed{From: homeC, Power: 20})
	outcome, _ := c.RecordPossession(2, event.PossessionChanged{Owner: awayC})
	assert.Equal(t, PassNone, outcome)

	stats := c.Flush(60, 0, 0)
	assert.Equal(t, 1, stats.Clears)
	assert.Equal(t, 0, stats.Passes)
	assert.Equal(t, 0, stats.Interceptions)
}

func TestCollectorShotCancelsPendingPass(t *testing.T) {
	c := newTestCollector()
	c.RecordPass(1, event.PuckPassed{From: homeC, To: homeW})
	c.RecordShot(2, event.PuckShot{Shooter: homeW, Power: 40, OneTimer: true})
	outcome, _ := c.RecordPossession(3, event.PossessionChanged{Owner: homeW})
	assert.Equal(t, PassNone, outcome)
}

func TestCollectorFlush(t *testing.T) {
	c := newTestCollector()

	c.RecordFaceoff(0, event.Snapshot{})
	c.RecordPossession(1, event.PossessionChanged{Owner: homeC, Cause: event.CausePickup})
	c.RecordPossession(2, event.PossessionChanged{Previous: homeC, Owner: awayC, Cause: event.CauseSteal})
	c.RecordPossession(3, event.PossessionChanged{Previous: awayC, Cause: event.CauseKnockLoose})
	c.RecordPossession(4, event.PossessionChanged{Previous: homeC, Cause: event.CauseSlip})
	c.RecordPass(5, event.PuckPassed{From: homeC, To: homeW, Saucer: true})
	c.RecordPossession(6, event.PossessionChanged{Owner: homeW})
	c.RecordShot(7, event.PuckShot{Shooter: homeW, Power: 30})
	c.RecordShot(8, event.PuckShot{Shooter: homeW, Power: 40, OneTimer: true})
	c.RecordGoal(9, event.GoalScored{Team: home}, homeW.ID())
	c.RecordImpact(10, event.Impact{Surface: event.SurfaceBoards, Intensity: 0.5})
	c.RecordImpact(11, event.Impact{Surface: event.SurfaceBoards, Intensity: 1})
	for i := 0; i < 6; i++ {
		c.RecordPossessionTick(home)
	}
	for i := 0; i < 3; i++ {
		c.RecordPossessionTick(away)
	}
	c.RecordPossessionTick(actor.NoTeam)

	stats := c.Flush(60, 1, 0)

	assert.Equal(t, 1, stats.ScoreHome)
	assert.Equal(t, 2, stats.Pickups)
	assert.Equal(t, 1, stats.Steals)
	assert.Equal(t, 1, stats.KnockLoose)
	assert.Equal(t, 1, stats.Slips)
	assert.Equal(t, 2, stats.Shots)
	assert.Equal(t, 1, stats.OneTimers)
	assert.InDelta(t, 35, stats.ShotPowerMean, 1e-9)
	assert.Equal(t, 1, stats.Passes)
	assert.Equal(t, 1, stats.SaucerPasses)
	assert.Equal(t, 1, stats.CompletedPasses)
	assert.InDelta(t, 1, stats.PassCompletion, 1e-9)
	assert.Equal(t, 1, stats.GoalsHome)
	assert.Equal(t, 0, stats.GoalsAway)
	assert.Equal(t, 1, stats.Faceoffs)
	assert.Equal(t, 2, stats.Impacts)
	assert.InDelta(t, 0.75, stats.ImpactMean, 1e-9)
	assert.InDelta(t, 0.6, stats.HomePossession, 1e-9)
	assert.InDelta(t, 0.3, stats.AwayPossession, 1e-9)

	// Counters reset
	next := c.Flush(120, 1, 0)
	assert.Zero(t, next.Shots)
	assert.Zero(t, next.Pickups)
	assert.Zero(t, next.HomePossession)
	assert.Equal(t, int32(60), next.WindowStartTick)
}

func TestCollectorEventLog(t *testing.T) {
	c := newTestCollector()
	at := event.Snapshot{Position: r3.Vec{X: 26.1, Z: 0.2}}

	c.RecordPossession(1, event.PossessionChanged{Puck: at, Previous: homeC, Owner: awayC, Cause: event.CauseSteal})
	c.RecordPass(2, event.PuckPassed{Puck: at, From: awayC, Power: 18})
	c.RecordGoal(3, event.GoalScored{Puck: at, Team: actor.TeamID(-1), Fallback: true}, 0)

	records := c.DrainEvents()
	require.Len(t, records, 3)

	assert.Equal(t, "steal", records[0].Type)
	assert.Equal(t, uint32(3), records[0].Actor)
	assert.Equal(t, uint32(1), records[0].Target)
	assert.InDelta(t, 26.1, records[0].X, 1e-9)

	assert.Equal(t, "pass", records[1].Type)
	assert.Equal(t, "clear", records[1].Detail)
	assert.InDelta(t, 18, records[1].Value, 1e-9)

	assert.Equal(t, "goal", records[2].Type)
	assert.Equal(t, -1, records[2].Team)
	assert.Equal(t, "fallback_team", records[2].Detail)

	assert.Empty(t, c.DrainEvents())
}
