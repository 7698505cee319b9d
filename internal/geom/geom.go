// Package geom provides the float32 vector primitives the simulation
// engine runs on: point arithmetic, signed angle between two vectors, and
// rotation. Every computation here stays in float32 to match the
// precision the rest of the engine (and the wire protocol) commits to.
package geom

import "math"

// Point is a position or a displacement vector in arena space.
type Point struct {
	X, Y float32
}

// Add returns p+o.
func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y} }

// Sub returns p-o.
func (p Point) Sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y} }

// Scale returns p scaled by k.
func (p Point) Scale(k float32) Point { return Point{p.X * k, p.Y * k} }

// Dist2 returns the squared length of p.
func (p Point) Dist2() float32 { return p.X*p.X + p.Y*p.Y }

// Dist returns the length of p.
func (p Point) Dist() float32 { return sqrt32(p.Dist2()) }

// Norm returns p scaled to unit length, or the zero vector if p is zero.
func (p Point) Norm() Point {
	d := p.Dist()
	if d == 0 {
		return Point{}
	}
	return p.Scale(1 / d)
}

// Rotate returns p rotated counterclockwise by angle radians.
func (p Point) Rotate(angle float32) Point {
	s, c := sincos32(angle)
	return Point{p.X*c - p.Y*s, p.X*s + p.Y*c}
}

// Dot returns the dot product of a and b.
func Dot(a, b Point) float32 { return a.X*b.X + a.Y*b.Y }

// Cross returns the z-component of the 2D cross product of a and b.
func Cross(a, b Point) float32 { return a.X*b.Y - a.Y*b.X }

// Angle returns the signed angle from a to b in (-pi, pi].
func Angle(a, b Point) float32 {
	return atan2_32(Cross(a, b), Dot(a, b))
}

// Sqr returns x*x.
func Sqr(x float32) float32 { return x * x }

func sqrt32(x float32) float32 { return float32(math.Sqrt(float64(x))) }

func sincos32(x float32) (float32, float32) {
	s, c := math.Sincos(float64(x))
	return float32(s), float32(c)
}

func atan2_32(y, x float32) float32 {
	return float32(math.Atan2(float64(y), float64(x)))
}
