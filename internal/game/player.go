package game

import "sync"

// Player is one logged-in account. Directions, Snakes, WSum and WMax are
// only ever touched from the tick goroutine; Connections is touched by
// connection accept/close, which can race with each other (not with the
// tick goroutine), so it gets its own lock.
type Player struct {
	id    int
	level int

	connMu      sync.Mutex
	Connections int

	Directions map[int]Direction // snake id -> latest steering intent
	Snakes     int                // live snake count owned by this player
	WSum       float32            // total mass across all owned snakes, all time high-water mark excluded
	WMax       float32            // largest single-snake mass ever reached

	snakeIDSeq int
}

// NewPlayer creates a player with the given id and access level.
func NewPlayer(id, level int) *Player {
	return &Player{
		id:         id,
		level:      level,
		Directions: make(map[int]Direction),
	}
}

// ID returns the player's stable identifier.
func (p *Player) ID() int { return p.id }

// Level returns the level requested by the login that registered this
// player.
func (p *Player) Level() int { return p.level }

// NextSnakeID hands out a monotonically increasing per-player snake id.
func (p *Player) NextSnakeID() int {
	id := p.snakeIDSeq
	p.snakeIDSeq++
	return id
}

// AddConnection increments the connection count if it is below the
// configured cap, returning false (without incrementing) if the player
// is already at the limit.
func (p *Player) AddConnection(max int) bool {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	if p.Connections >= max {
		return false
	}
	p.Connections++
	return true
}

// RemoveConnection decrements the connection count when a connection
// closes.
func (p *Player) RemoveConnection() {
	p.connMu.Lock()
	defer p.connMu.Unlock()
	if p.Connections > 0 {
		p.Connections--
	}
}
