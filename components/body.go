package components

import "gonum.org/v1/gonum/spatial/r3"

// Body holds a skater's kinematic state on the ice plane.
type Body struct {
	Position r3.Vec
	Velocity r3.Vec
	Facing   r3.Vec // unit, horizontal
	Radius   float64
}

// Spot is a position and facing on the ice.
type Spot struct {
	Position r3.Vec
	Facing   r3.Vec
}
