package match

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/faceoff/actor"
)

// skater is the actor view of a skater entity. It reads live ECS state.
type skater struct {
	m      *Match
	entity ecs.Entity
	id     uint32
	team   actor.TeamID
}

func (s *skater) ID() uint32         { return s.id }
func (s *skater) Team() actor.TeamID { return s.team }

func (s *skater) Position() r3.Vec {
	if b := s.m.bodyMap.Get(s.entity); b != nil {
		return b.Position
	}
	return r3.Vec{}
}

func (s *skater) Velocity() r3.Vec {
	if b := s.m.bodyMap.Get(s.entity); b != nil {
		return b.Velocity
	}
	return r3.Vec{}
}

func (s *skater) Facing() r3.Vec {
	if b := s.m.bodyMap.Get(s.entity); b != nil {
		return b.Facing
	}
	return r3.Vec{}
}
