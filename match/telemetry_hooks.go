package match

import (
	"math"

	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/event"
	"github.com/pthm-cable/faceoff/telemetry"
)

// subscribe wires the match's own handlers to the bus. They only record and
// schedule; none of them touch the puck.
func (m *Match) subscribe() {
	m.subs = append(m.subs,
		m.bus.OnPossessionChanged(m.onPossessionChanged),
		m.bus.OnPuckShot(m.onPuckShot),
		m.bus.OnPuckPassed(m.onPuckPassed),
		m.bus.OnGoalScored(m.onGoalScored),
		m.bus.OnImpact(m.onImpact),
	)
}

func (m *Match) onPossessionChanged(e event.PossessionChanged) {
	outcome, passer := m.collector.RecordPossession(m.tick, e)

	if e.Owner == nil {
		if e.Cause == event.CauseKnockLoose && e.Previous != nil {
			m.lifetimeTracker.RecordPuckLost(e.Previous.ID())
		}
		return
	}

	m.lastTouch = e.Owner
	if e.Cause == event.CauseSteal && e.Previous != nil {
		m.lifetimeTracker.RecordSteal(e.Owner.ID(), e.Previous.ID())
	} else {
		m.lifetimeTracker.RecordPickup(e.Owner.ID())
	}
	m.lifetimeTracker.RecordPassOutcome(outcome, passer, e.Owner.ID())
}

func (m *Match) onPuckShot(e event.PuckShot) {
	m.collector.RecordShot(m.tick, e)
	if e.Shooter != nil {
		m.lastTouch = e.Shooter
		m.lifetimeTracker.RecordShot(e.Shooter.ID(), e.Power, e.OneTimer)
	}
}

func (m *Match) onPuckPassed(e event.PuckPassed) {
	m.collector.RecordPass(m.tick, e)
	if e.From != nil {
		m.lastTouch = e.From
	}
	if e.To == nil {
		return
	}
	if e.From != nil {
		m.lifetimeTracker.RecordPass(e.From.ID())
	}
	if pl := m.byID[e.To.ID()]; pl != nil {
		pl.shot.NotifyIncomingPass(e.Power)
	}
}

func (m *Match) onGoalScored(e event.GoalScored) {
	m.score[e.Team]++

	// Own goals go uncredited
	var scorer uint32
	if m.lastTouch != nil && m.lastTouch.Team() == e.Team {
		scorer = m.lastTouch.ID()
		m.lifetimeTracker.RecordGoal(scorer)
	}
	m.collector.RecordGoal(m.tick, e, scorer)

	m.log.Info("goal",
		"tick", m.tick,
		"team", int(e.Team),
		"scorer", scorer,
		"score_home", m.Score(m.HomeTeam()),
		"score_away", m.Score(m.AwayTeam()),
	)

	m.pause = math.Max(m.cfg.Match.GoalPause, m.cfg.Physics.DT)
	if m.snapshotDir != "" {
		m.saveSnapshot(nil, "goal")
	}
}

func (m *Match) onImpact(e event.Impact) {
	m.collector.RecordImpact(m.tick, e)
}

// recordPossession attributes the current tick to the carrier's team.
func (m *Match) recordPossession() {
	team := actor.NoTeam
	if owner := m.puck.Owner(); owner != nil {
		team = owner.Team()
		m.lifetimeTracker.RecordPossessionTick(owner.ID())
	}
	m.collector.RecordPossessionTick(team)
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (m *Match) flushTelemetry() {
	if !m.collector.ShouldFlush(m.tick) {
		return
	}

	stats := m.collector.Flush(m.tick, m.Score(m.HomeTeam()), m.Score(m.AwayTeam()))
	perfStats := m.perfCollector.Stats()
	m.updateTimeOnIce()

	// Call stats callback if provided
	if m.statsCallback != nil {
		m.statsCallback(stats)
	}

	if m.logStats {
		m.log.Info("window", "stats", stats, "perf", perfStats)
	}

	// Write to CSV if output manager is enabled
	if m.outputManager != nil {
		if err := m.outputManager.WriteTelemetry(stats); err != nil {
			m.log.Error("failed to write telemetry", "error", err)
		}
		if err := m.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			m.log.Error("failed to write perf", "error", err)
		}
	}
	m.writeEvents()

	// Check for bookmarks
	bookmarks := m.bookmarkDetector.Check(stats)
	for _, bm := range bookmarks {
		m.bookmarks = append(m.bookmarks, bm)
		if m.logStats {
			m.log.Info("bookmark", "bookmark", bm)
		}

		if m.outputManager != nil {
			if err := m.outputManager.WriteBookmark(bm); err != nil {
				m.log.Error("failed to write bookmark", "error", err)
			}
		}

		// Save snapshot on bookmark
		if m.snapshotDir != "" {
			m.saveSnapshot(&bm, "")
		}
	}
}

// writeEvents drains the event log into events.csv.
func (m *Match) writeEvents() {
	records := m.collector.DrainEvents()
	if err := m.outputManager.WriteEvents(records); err != nil {
		m.log.Error("failed to write events", "error", err)
	}
}

func (m *Match) updateTimeOnIce() {
	for _, pl := range m.players {
		m.lifetimeTracker.UpdateTimeOnIce(pl.skater.id, m.tick, m.cfg.Physics.DT)
	}
}

// Bookmarks returns the bookmarks triggered so far.
func (m *Match) Bookmarks() []telemetry.Bookmark {
	return m.bookmarks
}

// Summary builds the end-of-match report.
func (m *Match) Summary() telemetry.Summary {
	m.updateTimeOnIce()
	return telemetry.Summary{
		MatchID:    m.id,
		Seed:       m.seed,
		Ticks:      m.tick,
		SimTimeSec: float64(m.tick) * m.cfg.Physics.DT,
		ScoreHome:  m.Score(m.HomeTeam()),
		ScoreAway:  m.Score(m.AwayTeam()),
		Bookmarks:  m.bookmarks,
		Skaters:    m.lifetimeTracker.All(),
	}
}

// saveSnapshot creates and saves a snapshot to disk.
func (m *Match) saveSnapshot(bookmark *telemetry.Bookmark, reason string) {
	snapshot := m.Snapshot()
	snapshot.Bookmark = bookmark
	snapshot.Reason = reason

	path, err := telemetry.SaveSnapshot(snapshot, m.snapshotDir)
	if err != nil {
		m.log.Error("failed to save snapshot", "error", err)
		return
	}

	m.log.Info("snapshot saved", "path", path, "tick", m.tick)
}

// Snapshot builds a snapshot from the current state.
func (m *Match) Snapshot() *telemetry.Snapshot {
	pos, vel := m.puck.Position(), m.puck.Velocity()
	snapshot := &telemetry.Snapshot{
		Version:   telemetry.SnapshotVersion,
		MatchID:   m.id,
		Seed:      m.seed,
		Tick:      m.tick,
		ScoreHome: m.Score(m.HomeTeam()),
		ScoreAway: m.Score(m.AwayTeam()),
		Puck: telemetry.PuckState{
			X: pos.X, Y: pos.Y, Z: pos.Z,
			VelX: vel.X, VelY: vel.Y, VelZ: vel.Z,
			Airborne: pos.Y > 0,
		},
	}
	if owner := m.puck.Owner(); owner != nil {
		snapshot.Puck.Owner = owner.ID()
	}

	query := m.skaterFilter.Query()
	for query.Next() {
		body, _, sk := query.Get()

		var lifetime *telemetry.LifetimeStats
		if ls := m.lifetimeTracker.Get(sk.ID); ls != nil {
			cp := *ls
			lifetime = &cp
		}

		state := telemetry.SkaterState{
			ID:        sk.ID,
			Name:      sk.Name,
			Team:      int(sk.Team),
			X:         body.Position.X,
			Z:         body.Position.Z,
			VelX:      body.Velocity.X,
			VelZ:      body.Velocity.Z,
			FacingX:   body.Facing.X,
			FacingZ:   body.Facing.Z,
			ShotPower: sk.Attributes.ShotPower,
			Accuracy:  sk.Attributes.Accuracy,
			HasPuck:   snapshot.Puck.Owner == sk.ID,
			Lifetime:  lifetime,
		}

		snapshot.Skaters = append(snapshot.Skaters, state)
	}

	return snapshot
}
