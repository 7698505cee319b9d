package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-server/internal/geom"
)

func newTestGame(t *testing.T) *Game {
	t.Helper()
	cfg := DefaultConfig()
	cfg.FoodTargetCount = 10
	g := NewGame(cfg, 42, nil)
	g.Start()
	return g
}

func TestTickMonotonic(t *testing.T) {
	g := newTestGame(t)
	p := g.GetPlayer("alice", 1)
	g.CreateSnake(p, 0, nil)

	last := 0
	lastTime := float32(0)
	for i := 0; i < 5; i++ {
		n, err := g.Tick()
		require.NoError(t, err)
		assert.Greater(t, n, last)
		f := g.CurrentField()
		assert.Greater(t, f.Time, lastTime)
		last = n
		lastTime = f.Time
	}
}

func TestTickBeforeStartErrors(t *testing.T) {
	g := NewGame(DefaultConfig(), 1, nil)
	_, err := g.Tick()
	assert.ErrorIs(t, err, ErrGameNotStarted)
}

func TestSpawnProducesBoundedSkeleton(t *testing.T) {
	g := newTestGame(t)
	p := g.GetPlayer("bob", 1) // the game is started, so this queues bob's spawn
	_, err := g.Tick()
	require.NoError(t, err)

	f := g.CurrentField()
	require.Len(t, f.Snakes, 1)
	s := f.Snakes[0]
	assert.Equal(t, p.ID(), s.PlayerID)
	assert.NotEmpty(t, s.Skeleton)
	for i := 1; i < len(s.Skeleton); i++ {
		assert.LessOrEqual(t, s.Skeleton[i].Sub(s.Skeleton[i-1]).Dist(), s.R+1e-3)
	}
}

func TestRadiusFormulaMatchesConfig(t *testing.T) {
	g := NewGame(DefaultConfig(), 42, nil)
	p := g.GetPlayer("carol", 1) // registered in the lobby: no automatic spawn
	g.Start()
	g.CreateSnake(p, 40, nil)
	_, err := g.Tick()
	require.NoError(t, err)

	f := g.CurrentField()
	require.Len(t, f.Snakes, 1)
	want := g.cfg.SnakeRadius(40)
	assert.InDelta(t, float64(want), float64(f.Snakes[0].R), 1e-5)
}

func TestLobbyLevel10StartsGameAndSpawnsLevelOnes(t *testing.T) {
	g := NewGame(DefaultConfig(), 7, nil)
	assert.False(t, g.Started())

	g.GetPlayer("waiting", 1) // registers but no game yet, no spawn
	assert.False(t, g.Started())

	g.GetPlayer("admin", 10) // starts the game and spawns "waiting"
	assert.True(t, g.Started())

	_, err := g.Tick()
	require.NoError(t, err)
	f := g.CurrentField()
	assert.Len(t, f.Snakes, 1)
}

func TestFoodPopulationReachesTarget(t *testing.T) {
	g := newTestGame(t)
	_, err := g.Tick()
	require.NoError(t, err)
	assert.Len(t, g.CurrentField().Foods, g.cfg.FoodTargetCount)
}

func TestSplitConservesMassApproximately(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FoodTargetCount = 10
	g := NewGame(cfg, 42, nil)
	p := g.GetPlayer("dave", 1) // registered in the lobby: no automatic spawn
	g.Start()
	g.CreateSnake(p, 3000, nil)
	_, err := g.Tick()
	require.NoError(t, err)

	g.SetDirection(p, g.CurrentField().Snakes[0].ID, Direction{P: geom.Point{X: 10, Y: 10}, Split: true})
	_, err = g.Tick()
	require.NoError(t, err)

	var total float32
	for _, s := range g.CurrentField().Snakes {
		total += s.W
	}
	assert.InDelta(t, 3000, float64(total), 1)
}
