package game

import "math"

// Config holds the bootstrap constants that parameterize the simulation.
// These are deliberately hard-coded defaults, not a config-file surface:
// the server is meant to be started with one fixed ruleset per process.
type Config struct {
	TickMS int // tick period in milliseconds

	DefaultW    float32 // starting mass for a snake with no requested weight
	K10         float32 // split cost / minimum mass to split
	MaxSnakeLen int     // hard cap on skeleton length regardless of formula

	// radius(w) = RK1 * log(RK2*w + RK3)
	RK1 float32
	RK2 float32
	RK3 float32

	// length(w) = LK4*w/r^2 + LK5
	LK4 float32
	LK5 float32

	MaxDirectionAngle float32 // max heading change per tick, radians

	BaseSpeed          float32 // cruising speed floor
	BaseBoostSpeed     float32 // boosting speed floor
	MaxSpeedMultiplier float32
	MinSpeedMultiplier float32

	BoostAccelerationPerTick float32
	BoostSpendPer8Ticks      float32 // mass drained every 8th tick while boosting

	FoodTargetCount   int
	FoodDefaultWeight float32
	FoodStddev        float32 // stddev of the normal distribution food spawns are drawn from

	FoodCoalesceEveryTicks int
	FoodCoalesceGridUnit   float32
	FoodCoalesceHalfExtent float32 // foods further than this from origin on either axis never coalesce

	MaxConnectionsPerPlayer int
}

// DefaultConfig returns the stock ruleset, matching the values the
// original server bootstrapped with.
func DefaultConfig() Config {
	return Config{
		TickMS: 75,

		DefaultW:    20,
		K10:         1000,
		MaxSnakeLen: 4096,

		RK1: float32(1.0 / math.Log(20)),
		RK2: 1,
		RK3: 10,

		LK4: 0.5,
		LK5: 0,

		MaxDirectionAngle: float32(math.Pi / 8),

		BaseSpeed:          0.6,
		BaseBoostSpeed:     1.3,
		MaxSpeedMultiplier: 0.3,
		MinSpeedMultiplier: 0.2,

		BoostAccelerationPerTick: 0.1,
		BoostSpendPer8Ticks:      0.01,

		FoodTargetCount:   150,
		FoodDefaultWeight: 5,
		FoodStddev:        100,

		FoodCoalesceEveryTicks: 64,
		FoodCoalesceGridUnit:   2,
		FoodCoalesceHalfExtent: 400,

		MaxConnectionsPerPlayer: 5,
	}
}

// SnakeRadius implements radius(w) = RK1 * log(RK2*w + RK3).
func (c Config) SnakeRadius(w float32) float32 {
	return c.RK1 * float32(math.Log(float64(c.RK2*w+c.RK3)))
}

// SnakeLen implements length(w) = LK4*w/r^2 + LK5, capped at MaxSnakeLen.
func (c Config) SnakeLen(w, r float32) int {
	if r == 0 {
		return 1
	}
	n := int(c.LK4*w/(r*r) + c.LK5)
	if n < 1 {
		n = 1
	}
	if n > c.MaxSnakeLen {
		n = c.MaxSnakeLen
	}
	return n
}
