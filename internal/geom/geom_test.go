package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormUnitLength(t *testing.T) {
	p := Point{3, 4}
	n := p.Norm()
	assert.InDelta(t, 1.0, float64(n.Dist()), 1e-5)
}

func TestNormZero(t *testing.T) {
	assert.Equal(t, Point{}, Point{}.Norm())
}

func TestAngleParallel(t *testing.T) {
	a := Point{1, 0}
	b := Point{2, 0}
	assert.InDelta(t, 0, float64(Angle(a, b)), 1e-5)
}

func TestAngleQuarterTurn(t *testing.T) {
	a := Point{1, 0}
	b := Point{0, 1}
	assert.InDelta(t, math.Pi/2, float64(Angle(a, b)), 1e-5)
}

func TestRotateRoundTrip(t *testing.T) {
	p := Point{1, 0}
	r := p.Rotate(math.Pi / 2).Rotate(-math.Pi / 2)
	assert.InDelta(t, float64(p.X), float64(r.X), 1e-4)
	assert.InDelta(t, float64(p.Y), float64(r.Y), 1e-4)
}

func TestSqr(t *testing.T) {
	assert.Equal(t, float32(9), Sqr(3))
}
