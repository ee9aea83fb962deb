package match

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/components"
	"github.com/pthm-cable/faceoff/event"
	"github.com/pthm-cable/faceoff/geom"
	"github.com/pthm-cable/faceoff/telemetry"
)

// turnSpeed is the skating speed above which a skater without an aim faces
// along its velocity.
const turnSpeed = 0.5

// Update runs one variable-rate frame: controllers write their intents, then
// as many fixed steps run as the accumulated time allows, up to the
// configured cap. Returns the number of steps run.
func (m *Match) Update(frameDT float64) int {
	m.runControllers()

	dt := m.cfg.Physics.DT
	m.accumulator += frameDT
	steps := 0
	for m.accumulator >= dt && steps < m.cfg.Match.MaxStepsPerFrame {
		m.Step()
		m.accumulator -= dt
		steps++
	}
	if m.accumulator >= dt {
		m.log.Debug("dropping simulation backlog", "seconds", m.accumulator)
		m.accumulator = math.Mod(m.accumulator, dt)
	}
	m.perfCollector.RecordFrame(steps)
	return steps
}

// runControllers asks each controller for its skater's control. Intents are
// replaced; actions accumulate until a step consumes them.
func (m *Match) runControllers() {
	for _, pl := range m.players {
		if pl.controller == nil {
			continue
		}
		next := pl.controller.Control(m, pl.skater)
		ctl := m.controlMap.Get(pl.skater.entity)
		ctl.Intent = next.Intent
		ctl.Actions |= next.Actions
		if next.Actions.Has(components.ActionChargeShot) {
			ctl.ShotType = next.ShotType
		}
	}
}

// SetControl writes a skater's control directly, for callers driving skaters
// without a Controller.
func (m *Match) SetControl(id uint32, c components.Control) {
	pl := m.byID[id]
	if pl == nil {
		return
	}
	*m.controlMap.Get(pl.skater.entity) = c
}

// SetAimDirection sets the aim of skater id's intent. Pass evaluation and
// shooting both read it on the next fixed step.
func (m *Match) SetAimDirection(id uint32, aim r3.Vec) {
	if pl := m.byID[id]; pl != nil {
		m.controlMap.Get(pl.skater.entity).Intent.Aim = aim
	}
}

// Step runs a single fixed tick.
func (m *Match) Step() {
	dt := m.cfg.Physics.DT
	m.perfCollector.StartTick()

	// 1. Skate
	m.perfCollector.StartPhase(telemetry.PhaseSkaters)
	m.updateSkaters(dt)

	// 2. Sticks follow their skaters and run commands
	m.perfCollector.StartPhase(telemetry.PhaseSticks)
	m.updateSticks(dt)

	// 3. Shot charges and one-timer windows
	m.perfCollector.StartPhase(telemetry.PhaseCharges)
	for _, pl := range m.players {
		pl.shot.Update(dt)
	}

	// 4. Puck
	m.perfCollector.StartPhase(telemetry.PhasePuck)
	prev := m.puck.Position()
	m.puck.Step(dt)

	// 5. Boards and goals
	m.perfCollector.StartPhase(telemetry.PhaseRink)
	m.updateContacts(prev)

	// 6. Pass candidates
	m.perfCollector.StartPhase(telemetry.PhaseEvaluators)
	m.updateEvaluators(dt)

	// 7. Telemetry
	m.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	m.recordPossession()
	m.tick++
	m.flushTelemetry()

	m.perfCollector.EndTick()

	if m.pause > 0 {
		m.pause -= dt
		if m.pause <= 0 {
			m.pause = 0
			m.Faceoff()
		}
	}
}

// updateSkaters integrates skater movement and facing.
func (m *Match) updateSkaters(dt float64) {
	cfg := m.cfg.Skater
	blend := 1 - math.Exp(-cfg.Accel*dt)

	query := m.skaterFilter.Query()
	for query.Next() {
		body, ctl, _ := query.Get()

		move := geom.SafeUnit(geom.Flatten(ctl.Intent.Move))
		if m.pause > 0 {
			move = r3.Vec{}
		}
		if geom.IsZero(move) {
			body.Velocity = r3.Scale(cfg.Glide, body.Velocity)
		} else {
			body.Velocity = geom.LerpVec(body.Velocity, r3.Scale(cfg.MaxSpeed, move), blend)
		}
		body.Velocity = geom.ClampHorizontal(geom.Flatten(body.Velocity), cfg.MaxSpeed)

		next := r3.Add(body.Position, r3.Scale(dt, body.Velocity))
		clamped := m.rink.Clamp(next, body.Radius)
		if clamped.X != next.X {
			body.Velocity.X = 0
		}
		if clamped.Z != next.Z {
			body.Velocity.Z = 0
		}
		body.Position = clamped

		aim := geom.SafeUnit(geom.Flatten(ctl.Intent.Aim))
		switch {
		case !geom.IsZero(aim):
			body.Facing = aim
		case geom.HorizontalSpeed(body.Velocity) > turnSpeed:
			body.Facing = geom.SafeUnit(body.Velocity)
		}
	}
}

// updateSticks moves each contact point, applies queued commands and runs
// pickup attempts.
func (m *Match) updateSticks(dt float64) {
	for _, pl := range m.players {
		pl.stick.Follow(dt)

		ctl := m.controlMap.Get(pl.skater.entity)
		actions := ctl.Actions
		ctl.Actions = 0
		if m.pause > 0 {
			actions = 0
		}
		m.applyActions(pl, actions, ctl)

		pl.stick.Update(dt)
	}
}

// applyActions runs one skater's queued commands. Refused commands are
// logged at debug and otherwise ignored.
func (m *Match) applyActions(pl *player, actions components.Action, ctl *components.Control) {
	if actions == 0 {
		return
	}
	id := pl.skater.id
	intent := ctl.Intent

	if actions.Has(components.ActionCancelShot) {
		pl.shot.CancelShot()
	}
	if actions.Has(components.ActionChargeShot) {
		pl.shot.StartCharge(ctl.ShotType)
	}
	if actions.Has(components.ActionReleaseShot) {
		if _, err := pl.shot.ReleaseShot(intent); err != nil {
			m.log.Debug("shot refused", "actor", id, "error", err)
		}
	}
	if actions.Has(components.ActionOneTimer) {
		if _, err := pl.shot.ExecuteOneTimer(intent); err != nil {
			m.log.Debug("one-timer refused", "actor", id, "error", err)
		}
	}
	if actions.Has(components.ActionCycleNext) {
		pl.pass.Cycle(1)
	}
	if actions.Has(components.ActionCyclePrev) {
		pl.pass.Cycle(-1)
	}
	if actions.Has(components.ActionPass) {
		if err := pl.pass.ExecutePass(); err != nil {
			m.log.Debug("pass refused", "actor", id, "error", err)
		}
	}
	if actions.Has(components.ActionSaucerPass) {
		if err := pl.pass.ExecuteSaucerPass(0); err != nil {
			m.log.Debug("saucer pass refused", "actor", id, "error", err)
		}
	}
	if actions.Has(components.ActionPokeCheck) {
		if pl.stick.PokeCheck(intent.Aim) {
			m.lifetimeTracker.RecordPokeCheck(id)
		}
	}
	if actions.Has(components.ActionDropPuck) {
		if err := pl.stick.DropPuck(); err != nil {
			m.log.Debug("drop refused", "actor", id, "error", err)
		}
	}
}

// updateContacts classifies the puck's movement this tick and applies the
// contacts. Goals are ignored while play is stopped.
func (m *Match) updateContacts(prev r3.Vec) {
	for _, c := range m.rink.Classify(prev, m.puck.Position()) {
		if c.Surface == event.SurfaceGoal && m.pause > 0 {
			continue
		}
		m.puck.Collide(c)
	}
}

// updateEvaluators refreshes pass candidates for the carrier.
func (m *Match) updateEvaluators(dt float64) {
	for _, pl := range m.players {
		ctl := m.controlMap.Get(pl.skater.entity)
		pl.pass.Update(dt, ctl.Intent)
	}
}
