package telemetry

import (
	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/event"
)

// PassOutcome is how a pass in flight ended.
type PassOutcome uint8

const (
	PassNone        PassOutcome = iota // no pass was in flight
	PassCompleted                      // a teammate received it
	PassIntercepted                    // an opponent received it
	PassRecovered                      // the passer got it back
)

// Collector accumulates match events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64
	home, away          actor.TeamID

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	pickups         int
	steals          int
	knockLoose      int
	slips           int
	drops           int
	shots           int
	oneTimers       int
	passes          int
	saucerPasses    int
	clears          int
	completedPasses int
	interceptions   int
	goalsHome       int
	goalsAway       int
	impacts         int
	faceoffs        int
	shotPowers      []float64
	impactSum       float64

	// Possession ticks for current window
	homeTicks int
	awayTicks int
	freeTicks int

	// Pass awaiting a receiver
	pending *event.PuckPassed

	// Event log since the last drain
	events []EventRecord
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64, home, away actor.TeamID) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		home:                home,
		away:                away,
	}
}

// RecordPossession records a possession change and resolves a pending pass.
// It returns how the pending pass ended and who threw it.
func (c *Collector) RecordPossession(tick int32, e event.PossessionChanged) (PassOutcome, uint32) {
	c.events = append(c.events, NewPossessionRecord(tick, e))

	if e.Owner == nil {
		switch e.Cause {
		case event.CauseKnockLoose:
			c.knockLoose++
		case event.CauseSlip:
			c.slips++
		case event.CauseDrop:
			c.drops++
		}
		return PassNone, 0
	}

	if e.Cause == event.CauseSteal {
		c.steals++
	} else {
		c.pickups++
	}

	if c.pending == nil {
		return PassNone, 0
	}
	from := c.pending.From
	c.pending = nil
	switch {
	case actor.Same(e.Owner, from):
		return PassRecovered, actorID(from)
	case actor.SameTeam(e.Owner, from):
		c.completedPasses++
		return PassCompleted, actorID(from)
	default:
		c.interceptions++
		return PassIntercepted, actorID(from)
	}
}

// RecordShot records a shot or one-timer.
func (c *Collector) RecordShot(tick int32, e event.PuckShot) {
	c.events = append(c.events, NewShotRecord(tick, e))
	c.shots++
	if e.OneTimer {
		c.oneTimers++
	}
	c.shotPowers = append(c.shotPowers, e.Power)
	c.pending = nil
}

// RecordPass records a pass, saucer pass or clear.
func (c *Collector) RecordPass(tick int32, e event.PuckPassed) {
	c.events = append(c.events, NewPassRecord(tick, e))
	if e.To == nil {
		c.clears++
		c.pending = nil
		return
	}
	c.passes++
	if e.Saucer {
		c.saucerPasses++
	}
	p := e
	c.pending = &p
}

// RecordGoal records a goal. scorer is the last shooter's id, or zero.
func (c *Collector) RecordGoal(tick int32, e event.GoalScored, scorer uint32) {
	c.events = append(c.events, NewGoalRecord(tick, e, scorer))
	switch e.Team {
	case c.home:
		c.goalsHome++
	case c.away:
		c.goalsAway++
	}
	c.pending = nil
}

// RecordImpact records a board impact.
func (c *Collector) RecordImpact(tick int32, e event.Impact) {
	c.events = append(c.events, NewImpactRecord(tick, e))
	c.impacts++
	c.impactSum += e.Intensity
}

// RecordFaceoff records a faceoff.
func (c *Collector) RecordFaceoff(tick int32, snap event.Snapshot) {
	c.events = append(c.events, NewFaceoffRecord(tick, snap))
	c.faceoffs++
	c.pending = nil
}

// RecordPossessionTick attributes one tick of possession to team.
func (c *Collector) RecordPossessionTick(team actor.TeamID) {
	switch team {
	case c.home:
		c.homeTicks++
	case c.away:
		c.awayTicks++
	default:
		c.freeTicks++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// scoreHome and scoreAway are the running match score.
func (c *Collector) Flush(currentTick int32, scoreHome, scoreAway int) WindowStats {
	var completion float64
	if c.completedPasses+c.interceptions > 0 {
		completion = float64(c.completedPasses) / float64(c.completedPasses+c.interceptions)
	}
	var homePct, awayPct float64
	if total := c.homeTicks + c.awayTicks + c.freeTicks; total > 0 {
		homePct = float64(c.homeTicks) / float64(total)
		awayPct = float64(c.awayTicks) / float64(total)
	}
	var impactMean float64
	if c.impacts > 0 {
		impactMean = c.impactSum / float64(c.impacts)
	}

	power := Distribute(c.shotPowers)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		ScoreHome: scoreHome,
		ScoreAway: scoreAway,

		Pickups:    c.pickups,
		Steals:     c.steals,
		KnockLoose: c.knockLoose,
		Slips:      c.slips,
		Drops:      c.drops,

		Shots:         c.shots,
		OneTimers:     c.oneTimers,
		ShotPowerMean: power.Mean,
		ShotPowerP50:  power.P50,
		ShotPowerP90:  power.P90,

		Passes:          c.passes,
		SaucerPasses:    c.saucerPasses,
		Clears:          c.clears,
		CompletedPasses: c.completedPasses,
		Interceptions:   c.interceptions,
		PassCompletion:  completion,

		GoalsHome: c.goalsHome,
		GoalsAway: c.goalsAway,
		Faceoffs:  c.faceoffs,

		Impacts:    c.impacts,
		ImpactMean: impactMean,

		HomePossession: homePct,
		AwayPossession: awayPct,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.pickups = 0
	c.steals = 0
	c.knockLoose = 0
	c.slips = 0
	c.drops = 0
	c.shots = 0
	c.oneTimers = 0
	c.passes = 0
	c.saucerPasses = 0
	c.clears = 0
	c.completedPasses = 0
	c.interceptions = 0
	c.goalsHome = 0
	c.goalsAway = 0
	c.impacts = 0
	c.faceoffs = 0
	c.shotPowers = c.shotPowers[:0]
	c.impactSum = 0
	c.homeTicks = 0
	c.awayTicks = 0
	c.freeTicks = 0

	return stats
}

// DrainEvents returns the event log since the last drain and clears it.
func (c *Collector) DrainEvents() []EventRecord {
	out := c.events
	c.events = nil
	return out
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
