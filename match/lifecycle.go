package match

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Faceoff restarts play. Skaters return to their home spots with no charge
// and the puck is reset at center ice.
func (m *Match) Faceoff() {
	query := m.skaterFilter.Query()
	for query.Next() {
		body, ctl, sk := query.Get()
		body.Position = sk.Home.Position
		body.Facing = sk.Home.Facing
		body.Velocity = r3.Vec{}
		ctl.Actions = 0
	}

	for _, pl := range m.players {
		pl.shot.CancelShot()
		pl.stick.Snap()
	}

	m.puck.Reset(m.rink.CenterIce())
	m.pause = 0
	m.lastTouch = nil

	m.collector.RecordFaceoff(m.tick, m.puck.Snapshot())
	m.log.Info("faceoff",
		"tick", m.tick,
		"score_home", m.Score(m.HomeTeam()),
		"score_away", m.Score(m.AwayTeam()),
	)
}
