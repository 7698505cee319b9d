package game

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"arena-server/internal/arena"
	"arena-server/internal/geom"
)

// ErrGameNotStarted is returned by Tick when called on a game still
// waiting in its lobby (see GetPlayer).
var ErrGameNotStarted = errors.New("game: not started")

// ErrFieldExists is returned when a duplicate field id is registered
// with a Server (see internal/netio).
var ErrFieldExists = errors.New("game: field already exists")

// Game owns one arena's worth of players, the current published Field,
// and the queues that feed the next tick. A Game's public methods are
// safe for concurrent use; Tick itself must only ever be called from one
// goroutine at a time (the scheduler in internal/netio guarantees this).
type Game struct {
	cfg Config
	log *logrus.Entry

	mu          sync.RWMutex
	players     map[string]*Player
	playersByID map[int]*Player
	playerIDSeq int

	fieldMu sync.Mutex
	current *Field

	queueMu     sync.Mutex
	directions  []directionCmd
	createQueue []snakeRequest

	rng     *rand.Rand
	started atomic.Bool
}

// NewGame creates a game in its lobby state: registered players may log
// in, but Tick is a no-op until Start is called (directly, or
// indirectly through a level-10 login — see GetPlayer).
func NewGame(cfg Config, seed int64, log *logrus.Entry) *Game {
	return &Game{
		cfg:         cfg,
		log:         log,
		players:     make(map[string]*Player),
		playersByID: make(map[int]*Player),
		current:     &Field{},
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Start forces the game out of its lobby state without waiting for a
// level-10 login. Used by the bootstrap to pre-seed the default field.
func (g *Game) Start() { g.started.Store(true) }

// Started reports whether the game is accepting ticks.
func (g *Game) Started() bool { return g.started.Load() }

// Config returns the ruleset this game was constructed with.
func (g *Game) Config() Config { return g.cfg }

// CurrentField returns the most recently published snapshot. The
// returned Field (and everything reachable from it) must be treated as
// read-only by the caller.
func (g *Game) CurrentField() *Field {
	g.fieldMu.Lock()
	defer g.fieldMu.Unlock()
	return g.current
}

func (g *Game) setCurrentField(f *Field) {
	g.fieldMu.Lock()
	g.current = f
	g.fieldMu.Unlock()
}

// SetDirection queues a steering intent to be applied at the start of
// the next tick.
func (g *Game) SetDirection(p *Player, snakeID int, d Direction) {
	g.queueMu.Lock()
	g.directions = append(g.directions, directionCmd{player: p, snakeID: snakeID, dir: d})
	g.queueMu.Unlock()
}

// CreateSnake queues a spawn request for p, to be materialized on the
// next tick. w of zero means "use the configured default mass".
func (g *Game) CreateSnake(p *Player, w float32, skeleton []geom.Point) {
	g.queueMu.Lock()
	g.createQueue = append(g.createQueue, snakeRequest{player: p, w: w, skeleton: skeleton})
	g.queueMu.Unlock()
}

// GetPlayer looks up (or registers) the player for login, applying the
// lobby rule: once the game has started, a level-1 login spawns
// immediately; before that, a level-10 login starts the game and spawns
// every level-1 player registered so far.
func (g *Game) GetPlayer(login string, level int) *Player {
	g.mu.Lock()
	p, ok := g.players[login]
	if !ok {
		id := g.playerIDSeq
		g.playerIDSeq++
		p = NewPlayer(id, level)
		g.players[login] = p
		g.playersByID[id] = p
	}

	started := g.started.Load()
	var toSpawn []*Player
	switch {
	case started && level == 1:
		toSpawn = append(toSpawn, p)
	case level == 10 && !started:
		for _, other := range g.players {
			if other.Level() == 1 {
				toSpawn = append(toSpawn, other)
			}
		}
		g.started.Store(true)
	}
	g.mu.Unlock()

	for _, sp := range toSpawn {
		g.CreateSnake(sp, 0, nil)
	}
	return p
}

func (g *Game) playerByID(id int) *Player {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.playersByID[id]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Tick advances the simulation by exactly one step: it drains the
// direction and create-snake queues, applies movement, collisions and
// feeding, regenerates and periodically coalesces food, and publishes a
// brand new Field built from a fresh Arena. It returns the tick number
// just published.
func (g *Game) Tick() (int, error) {
	if !g.started.Load() {
		return 0, ErrGameNotStarted
	}

	old := g.CurrentField()

	g.queueMu.Lock()
	directions := g.directions
	g.directions = nil
	createQueue := g.createQueue
	g.createQueue = nil
	g.queueMu.Unlock()

	// step 1: apply queued steering intents onto the owning player's map.
	for _, cmd := range directions {
		if cmd.player == nil {
			continue
		}
		cmd.player.Directions[cmd.snakeID] = cmd.dir
	}

	advise := uintptr(len(old.Snakes)+len(createQueue)+8)*192 + uintptr(len(old.Foods)+g.cfg.FoodTargetCount)*12
	a := arena.New(advise)

	newTick := old.Tick + 1
	newTime := old.Time + float32(g.cfg.TickMS)/1000

	// Snakes accumulate into a plain slice first because the final count
	// (old survivors minus deaths, plus spawns, plus splits discovered
	// while walking the survivors) isn't known up front; the arena array
	// that actually backs the published Field is allocated once that
	// count is final, so it never needs to grow.
	var newSnakes []Snake

	var pendingRespawns []snakeRequest
	var newFoods []Food
	wSumByPlayer := make(map[int]float32)

	// step 2: carry over (or retire) every previously-living snake.
	for _, os := range old.Snakes {
		if os.W == 0 {
			if p := g.playerByID(os.PlayerID); p != nil {
				p.Snakes--
				if p.Snakes == 0 {
					pendingRespawns = append(pendingRespawns, snakeRequest{player: p})
				}
			}
			continue
		}

		p := g.playerByID(os.PlayerID)
		if p == nil {
			continue
		}
		d, ok := p.Directions[os.ID]
		if !ok {
			d = DefaultDirection()
		}

		cur := Snake{PlayerID: os.PlayerID, ID: os.ID}

		if d.Split && os.W > g.cfg.K10 {
			d.Split = false
			p.Directions[os.ID] = d
			cur.W = os.W - g.cfg.K10
			reversed := make([]geom.Point, len(os.Skeleton))
			for i, pt := range os.Skeleton {
				reversed[len(os.Skeleton)-1-i] = pt
			}
			pendingRespawns = append(pendingRespawns, snakeRequest{player: p, w: g.cfg.K10, skeleton: reversed})
		} else {
			cur.W = os.W
		}
		cur.R = g.cfg.SnakeRadius(cur.W)

		var prevDirVec geom.Point
		if len(os.Skeleton) >= 2 {
			prevDirVec = os.Skeleton[0].Sub(os.Skeleton[1])
		} else {
			prevDirVec = geom.Point{X: 1}
		}
		curDirVec := d.P.Sub(os.Skeleton[0])
		if curDirVec.Dist2() < 1e-2 {
			curDirVec = prevDirVec
		}
		angle := geom.Angle(prevDirVec, curDirVec)
		if angle > g.cfg.MaxDirectionAngle {
			angle = g.cfg.MaxDirectionAngle
		} else if angle < -g.cfg.MaxDirectionAngle {
			angle = -g.cfg.MaxDirectionAngle
		}
		headingVec := prevDirVec.Rotate(angle)

		logw := float32(math.Log(float64(cur.W)))
		cur.Boost = d.Boost
		capHigh := g.cfg.BaseBoostSpeed + g.cfg.MaxSpeedMultiplier*logw
		capLow := g.cfg.MinSpeedMultiplier*logw + g.cfg.BaseSpeed
		speed := os.Speed
		if cur.Boost {
			speed += g.cfg.BoostAccelerationPerTick
			if speed > capHigh {
				speed = capHigh
			}
		} else {
			speed -= g.cfg.BoostAccelerationPerTick
			if speed < capLow {
				speed = capLow
			}
		}
		cur.Speed = speed

		// head position intentionally uses the PREVIOUS tick's speed.
		headPos := headingVec.Norm().Scale(os.Speed).Add(os.Skeleton[0])

		length := g.cfg.SnakeLen(cur.W, cur.R)
		skArr := arena.Alloc[geom.Point](a, length)
		sk := skArr.Slice()
		sk[0] = headPos
		r2 := cur.R * cur.R
		limit := minInt(len(os.Skeleton), length)
		for i := 1; i < limit; i++ {
			diff := os.Skeleton[i].Sub(sk[i-1])
			if diff.Dist2() <= r2 {
				sk[i] = os.Skeleton[i]
			} else {
				sk[i] = sk[i-1].Add(diff.Norm().Scale(cur.R))
			}
		}
		for i := limit; i < length; i++ {
			if i == 0 {
				sk[i] = headPos
			} else {
				sk[i] = sk[i-1]
			}
		}
		cur.Skeleton = sk

		if newTick&7 == 0 && cur.Boost && len(cur.Skeleton) > 0 {
			drain := g.cfg.BoostSpendPer8Ticks * cur.W
			if drain > cur.W {
				drain = cur.W
			}
			newFoods = append(newFoods, Food{P: cur.Skeleton[len(cur.Skeleton)-1], W: drain})
			cur.W -= drain
			cur.R = g.cfg.SnakeRadius(cur.W)
		}

		newSnakes = append(newSnakes, cur)
	}

	// step 3: materialize queued spawns (fresh logins and splits alike).
	for _, req := range append(createQueue, pendingRespawns...) {
		p := req.player
		if p == nil {
			continue
		}
		w := req.w
		if w == 0 {
			w = g.cfg.DefaultW
			if p.ID() == 0 {
				w = 100
			}
		}
		cur := Snake{PlayerID: p.ID(), ID: p.NextSnakeID(), W: w}
		cur.R = g.cfg.SnakeRadius(w)
		cur.Speed = g.cfg.MinSpeedMultiplier*float32(math.Log(float64(w))) + g.cfg.BaseSpeed

		length := g.cfg.SnakeLen(w, cur.R)
		skArr := arena.Alloc[geom.Point](a, length)
		sk := skArr.Slice()
		if len(req.skeleton) > 0 {
			for i := range sk {
				if i < len(req.skeleton) {
					sk[i] = req.skeleton[i]
				} else {
					sk[i] = req.skeleton[len(req.skeleton)-1]
				}
			}
		} else {
			head := geom.Point{
				X: float32(g.rng.NormFloat64()) * g.cfg.FoodStddev,
				Y: float32(g.rng.NormFloat64()) * g.cfg.FoodStddev,
			}
			theta := float32(g.rng.Float64() * 2 * math.Pi)
			second := head.Add(geom.Point{X: 1}.Rotate(theta).Scale(cur.R))
			sk[0] = head
			if len(sk) > 1 {
				sk[1] = second
			}
			for i := 2; i < len(sk); i++ {
				sk[i] = sk[1]
			}
		}
		cur.Skeleton = sk

		p.Snakes++
		newSnakes = append(newSnakes, cur)
	}

	// step 4: collisions, in input order. A snake dies when its head
	// overlaps a faster snake's head, or when its head is within reach of
	// any skeleton point of another live snake; that second check includes
	// the other snake's head and ignores speed. A snake killed earlier in
	// the pass no longer counts as an obstacle. A NaN coordinate anywhere
	// along the skeleton (a degenerate direction vector) always kills its
	// own snake.
	for i := range newSnakes {
		if newSnakes[i].W == 0 || len(newSnakes[i].Skeleton) == 0 {
			continue
		}
		head := newSnakes[i].Skeleton[0]
		hasNaN := false
		for _, pt := range newSnakes[i].Skeleton {
			if math.IsNaN(float64(pt.X)) || math.IsNaN(float64(pt.Y)) {
				hasNaN = true
				break
			}
		}
		if hasNaN {
			newFoods = append(newFoods, deathFoods(newSnakes[i])...)
			newSnakes[i].W = 0
			continue
		}
		dead := false
		for j := range newSnakes {
			if i == j || newSnakes[j].W == 0 {
				continue
			}
			if newSnakes[i].PlayerID == newSnakes[j].PlayerID && newSnakes[i].ID == newSnakes[j].ID {
				continue
			}
			rsum := newSnakes[i].R + newSnakes[j].R
			if len(newSnakes[j].Skeleton) > 0 {
				if head.Sub(newSnakes[j].Skeleton[0]).Dist2() <= geom.Sqr(rsum) && newSnakes[i].Speed < newSnakes[j].Speed {
					dead = true
					break
				}
			}
			for _, pt := range newSnakes[j].Skeleton {
				if head.Sub(pt).Dist2() <= geom.Sqr(rsum) {
					dead = true
					break
				}
			}
			if dead {
				break
			}
		}
		if dead {
			newFoods = append(newFoods, deathFoods(newSnakes[i])...)
			newSnakes[i].W = 0
		}
	}

	wMaxByPlayer := make(map[int]float32)
	for i := range newSnakes {
		if newSnakes[i].W == 0 {
			continue
		}
		wSumByPlayer[newSnakes[i].PlayerID] += newSnakes[i].W
		if newSnakes[i].W > wMaxByPlayer[newSnakes[i].PlayerID] {
			wMaxByPlayer[newSnakes[i].PlayerID] = newSnakes[i].W
		}
	}
	for id, sum := range wSumByPlayer {
		if p := g.playerByID(id); p != nil {
			p.WSum = sum
			if m := wMaxByPlayer[id]; m > p.WMax {
				p.WMax = m
			}
		}
	}

	// step 5: carry over old food, with eating.
	for _, f := range old.Foods {
		eaten := false
		for i := range newSnakes {
			if newSnakes[i].W == 0 || len(newSnakes[i].Skeleton) == 0 {
				continue
			}
			if f.P.Sub(newSnakes[i].Skeleton[0]).Dist2() <= geom.Sqr(newSnakes[i].R) {
				newSnakes[i].W += f.W
				eaten = true
				break
			}
		}
		if !eaten {
			newFoods = append(newFoods, f)
		}
	}

	// step 6: regenerate food up to the target population.
	for len(newFoods) < g.cfg.FoodTargetCount {
		p := geom.Point{
			X: float32(g.rng.NormFloat64()) * g.cfg.FoodStddev,
			Y: float32(g.rng.NormFloat64()) * g.cfg.FoodStddev,
		}
		newFoods = append(newFoods, Food{P: p, W: g.cfg.FoodDefaultWeight})
	}

	// step 7: periodic spatial coalescing.
	if newTick%g.cfg.FoodCoalesceEveryTicks == 0 {
		coalesceFoods(newFoods, g.cfg.FoodCoalesceGridUnit, g.cfg.FoodCoalesceHalfExtent)
		compacted := newFoods[:0]
		for _, f := range newFoods {
			if f.W > 0 {
				compacted = append(compacted, f)
			}
		}
		newFoods = compacted
	}

	snakesArr := arena.Alloc[Snake](a, len(newSnakes))
	copy(snakesArr.Slice(), newSnakes)

	foodsArr := arena.Alloc[Food](a, len(newFoods))
	copy(foodsArr.Slice(), newFoods)

	field := &Field{
		Time:   newTime,
		Tick:   newTick,
		Snakes: snakesArr.Slice(),
		Foods:  foodsArr.Slice(),
	}
	g.setCurrentField(field)

	if g.log != nil {
		g.log.WithFields(logrus.Fields{
			"tick":   newTick,
			"snakes": len(newSnakes),
			"foods":  len(newFoods),
		}).Trace("tick published")
	}

	return newTick, nil
}

func deathFoods(s Snake) []Food {
	if len(s.Skeleton) == 0 || s.W == 0 {
		return nil
	}
	per := s.W / float32(len(s.Skeleton))
	foods := make([]Food, len(s.Skeleton))
	for i, p := range s.Skeleton {
		foods[i] = Food{P: p, W: per}
	}
	return foods
}
