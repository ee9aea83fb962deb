// Package geom provides vector helpers for the ice plane.
// The ice is the XZ plane; Y is up.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Up is the world up axis.
var Up = r3.Vec{Y: 1}

// epsilon below which a vector is treated as zero length.
const epsilon = 1e-9

// Flatten drops the vertical component.
func Flatten(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Z: v.Z}
}

// HorizontalSpeed returns the magnitude of the XZ component.
func HorizontalSpeed(v r3.Vec) float64 {
	return math.Hypot(v.X, v.Z)
}

// SafeUnit returns the unit vector of v, or the zero vector if v is (near) zero.
// r3.Unit yields NaN for the zero vector.
func SafeUnit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < epsilon {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// IsZero reports whether v has (near) zero length.
func IsZero(v r3.Vec) bool {
	return r3.Norm2(v) < epsilon*epsilon
}

// ClampHorizontal limits the XZ speed of v to max, leaving Y untouched.
func ClampHorizontal(v r3.Vec, max float64) r3.Vec {
	s := HorizontalSpeed(v)
	if s <= max || s < epsilon {
		return v
	}
	k := max / s
	return r3.Vec{X: v.X * k, Y: v.Y, Z: v.Z * k}
}

// ClampLength limits the length of v to max.
func ClampLength(v r3.Vec, max float64) r3.Vec {
	n := r3.Norm(v)
	if n <= max || n < epsilon {
		return v
	}
	return r3.Scale(max/n, v)
}

// Distance returns |a-b|.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// HorizontalDistance returns the XZ distance between a and b.
func HorizontalDistance(a, b r3.Vec) float64 {
	return math.Hypot(a.X-b.X, a.Z-b.Z)
}

// AngleBetween returns the unsigned angle between a and b in radians.
// Returns 0 when either vector is zero.
func AngleBetween(a, b r3.Vec) float64 {
	ua, ub := SafeUnit(a), SafeUnit(b)
	if IsZero(ua) || IsZero(ub) {
		return 0
	}
	return math.Acos(Clamp(r3.Dot(ua, ub), -1, 1))
}

// RotateY rotates v about the up axis by angle radians.
func RotateY(v r3.Vec, angle float64) r3.Vec {
	if angle == 0 {
		return v
	}
	return r3.NewRotation(angle, Up).Rotate(v)
}

// Right returns the horizontal right-hand perpendicular of a facing vector.
func Right(facing r3.Vec) r3.Vec {
	f := SafeUnit(Flatten(facing))
	return r3.Vec{X: -f.Z, Z: f.X}
}

// SegmentDistance returns the distance from p to the segment [a, b].
func SegmentDistance(p, a, b r3.Vec) float64 {
	ab := r3.Sub(b, a)
	l2 := r3.Norm2(ab)
	if l2 < epsilon {
		return Distance(p, a)
	}
	t := Clamp(r3.Dot(r3.Sub(p, a), ab)/l2, 0, 1)
	closest := r3.Add(a, r3.Scale(t, ab))
	return Distance(p, closest)
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// LerpVec linearly interpolates between vectors a and b.
func LerpVec(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// Clamp clamps x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
