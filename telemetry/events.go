// Package telemetry provides match statistics windows, an event log,
// bookmarks, per-skater lifetime stats and snapshots.
package telemetry

import (
	"github.com/pthm-cable/faceoff/actor"
	"github.com/pthm-cable/faceoff/event"
)

// EventType identifies telemetry events.
type EventType uint8

const (
	EventPickup EventType = iota
	EventSteal
	EventLoose
	EventShot
	EventPass
	EventGoal
	EventImpact
	EventFaceoff
)

var eventTypeNames = [...]string{
	EventPickup:  "pickup",
	EventSteal:   "steal",
	EventLoose:   "loose",
	EventShot:    "shot",
	EventPass:    "pass",
	EventGoal:    "goal",
	EventImpact:  "impact",
	EventFaceoff: "faceoff",
}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "unknown"
}

// EventRecord is one row of the match event log.
type EventRecord struct {
	Tick   int32   `csv:"tick"`
	Type   string  `csv:"type"`
	Actor  uint32  `csv:"actor"`
	Team   int     `csv:"team"`
	Target uint32  `csv:"target"`
	Detail string  `csv:"detail"`
	X      float64 `csv:"x"`
	Y      float64 `csv:"y"`
	Z      float64 `csv:"z"`
	Value  float64 `csv:"value"` // power, intensity or distance depending on type
}

func record(tick int32, t EventType, snap event.Snapshot) EventRecord {
	return EventRecord{
		Tick: tick,
		Type: t.String(),
		X:    snap.Position.X,
		Y:    snap.Position.Y,
		Z:    snap.Position.Z,
	}
}

func actorID(a actor.Actor) uint32 {
	if a == nil {
		return 0
	}
	return a.ID()
}

func teamOf(a actor.Actor) int {
	if a == nil {
		return int(actor.NoTeam)
	}
	return int(a.Team())
}

// NewPossessionRecord converts a possession change. Gains are recorded as
// pickups or steals, losses as loose pucks with the cause as detail.
func NewPossessionRecord(tick int32, e event.PossessionChanged) EventRecord {
	switch {
	case e.Owner != nil && e.Cause == event.CauseSteal:
		r := record(tick, EventSteal, e.Puck)
		r.Actor, r.Team, r.Target = e.Owner.ID(), teamOf(e.Owner), actorID(e.Previous)
		return r
	case e.Owner != nil:
		r := record(tick, EventPickup, e.Puck)
		r.Actor, r.Team = e.Owner.ID(), teamOf(e.Owner)
		return r
	default:
		r := record(tick, EventLoose, e.Puck)
		r.Actor, r.Team = actorID(e.Previous), teamOf(e.Previous)
		r.Detail = e.Cause.String()
		return r
	}
}

// NewShotRecord converts a shot.
func NewShotRecord(tick int32, e event.PuckShot) EventRecord {
	r := record(tick, EventShot, e.Puck)
	r.Actor, r.Team = actorID(e.Shooter), teamOf(e.Shooter)
	r.Value = e.Power
	if e.OneTimer {
		r.Detail = "one_timer"
	}
	return r
}

// NewPassRecord converts a pass. A pass without a receiver is a clear.
func NewPassRecord(tick int32, e event.PuckPassed) EventRecord {
	r := record(tick, EventPass, e.Puck)
	r.Actor, r.Team, r.Target = actorID(e.From), teamOf(e.From), actorID(e.To)
	r.Value = e.Power
	switch {
	case e.To == nil:
		r.Detail = "clear"
	case e.Saucer:
		r.Detail = "saucer"
	}
	return r
}

// NewGoalRecord converts a goal. scorer is the last shooter, or zero.
func NewGoalRecord(tick int32, e event.GoalScored, scorer uint32) EventRecord {
	r := record(tick, EventGoal, e.Puck)
	r.Actor, r.Team = scorer, int(e.Team)
	if e.Fallback {
		r.Detail = "fallback_team"
	}
	return r
}

// NewImpactRecord converts an impact.
func NewImpactRecord(tick int32, e event.Impact) EventRecord {
	r := record(tick, EventImpact, e.Puck)
	r.Detail = e.Surface.String()
	r.Value = e.Intensity
	return r
}

// NewFaceoffRecord records a faceoff at center ice.
func NewFaceoffRecord(tick int32, snap event.Snapshot) EventRecord {
	return record(tick, EventFaceoff, snap)
}
