package netio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"arena-server/internal/game"
	"arena-server/internal/geom"
	"arena-server/internal/metrics"
	"arena-server/internal/protocol"
)

// pacingInterval is how often a logged-in connection is offered a fresh
// Field snapshot for each of its owned snakes.
const pacingInterval = 100 * time.Millisecond

// sendBufferSize bounds how many outgoing frames may queue before the
// pacing loop starts dropping them instead of piling up unboundedly.
const sendBufferSize = 8

var errExitRequested = errors.New("netio: client requested exit")

// connection drives one accepted TCP socket through
// HEADER_READ -> BODY_READ -> DISPATCH -> (HEADER_READ | CLOSED). Field
// frames go out through a dedicated write goroutine fed by a bounded
// queue, so pacing never waits on a slow reader; Welcome and Error
// replies are written directly from the read loop and wait for the
// socket.
type connection struct {
	id   uuid.UUID
	conn net.Conn
	in   *bufio.Reader
	srv  *Server
	log  *logrus.Entry

	game   *game.Game
	player *game.Player
	k10    float32

	writeMu sync.Mutex
	sendCh  chan []byte
	done    chan struct{}
	once    sync.Once

	pacing *time.Timer
}

func newConnection(conn net.Conn, srv *Server, log *logrus.Entry) *connection {
	id := uuid.New()
	return &connection{
		id:     id,
		conn:   conn,
		in:     bufio.NewReader(conn),
		srv:    srv,
		log:    log.WithField("conn", id.String()),
		sendCh: make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// run reads frames until the peer disconnects, a transport error occurs,
// or the client sends Exit. Everything else a frame can fail on — a
// malformed or oversized frame, a bad login, a direction sent before
// login — is reported back as an Error message, and the connection stays
// open for the next frame; only Exit and a genuine read failure end it.
func (c *connection) run() {
	defer c.close()
	go c.writeLoop()

	for {
		body, err := protocol.ReadFrame(c.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if errors.Is(err, protocol.ErrFrameTooLarge) {
				c.sendError(err.Error())
				continue
			}
			c.log.WithError(err).Debug("frame read failed")
			return
		}
		msg, err := protocol.Decode(body)
		if err != nil {
			c.sendError(err.Error())
			continue
		}
		if err := c.dispatch(msg); err != nil {
			if errors.Is(err, errExitRequested) {
				return
			}
			c.sendError(err.Error())
			continue
		}
	}
}

func (c *connection) dispatch(msg any) error {
	switch m := msg.(type) {
	case protocol.Login:
		return c.handleLogin(m)
	case protocol.Direction:
		return c.handleDirection(m)
	case protocol.Exit:
		return errExitRequested
	default:
		return fmt.Errorf("unexpected message type %T", msg)
	}
}

func (c *connection) handleLogin(m protocol.Login) error {
	if c.player != nil {
		metrics.LoginsRejected.WithLabelValues("already_logged_in").Inc()
		return errors.New("already logged in")
	}
	if !c.srv.users.Authenticate(m.Login, m.Password, int(m.Level)) {
		metrics.LoginsRejected.WithLabelValues("bad_credentials").Inc()
		return errors.New("authentication failed")
	}
	g, ok := c.srv.GetGame(int(m.Field))
	if !ok {
		metrics.LoginsRejected.WithLabelValues("no_such_field").Inc()
		return fmt.Errorf("no such field: %d", m.Field)
	}
	player := g.GetPlayer(m.Login, int(m.Level))
	if !player.AddConnection(g.Config().MaxConnectionsPerPlayer) {
		metrics.LoginsRejected.WithLabelValues("connection_cap").Inc()
		return errors.New("too many connections for this player")
	}

	c.game = g
	c.player = player
	c.k10 = g.Config().K10
	return c.sendWelcome()
}

func (c *connection) handleDirection(m protocol.Direction) error {
	if c.player == nil {
		return errors.New("direction received before login")
	}
	c.game.SetDirection(c.player, int(m.SnakeID), game.Direction{
		P:     geom.Point{X: m.X, Y: m.Y},
		Boost: m.Boost,
		Split: m.Split,
	})
	return nil
}

func (c *connection) sendWelcome() error {
	body, err := protocol.Encode(protocol.Welcome{PlayerID: int32(c.player.ID()), K10: c.k10})
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	err = protocol.WriteFrame(c.conn, body)
	c.writeMu.Unlock()
	if err != nil {
		return err
	}
	c.armPacing()
	return nil
}

func (c *connection) sendError(desc string) {
	body, err := protocol.Encode(protocol.Error{Description: desc})
	if err != nil {
		return
	}
	c.writeMu.Lock()
	_ = protocol.WriteFrame(c.conn, body)
	c.writeMu.Unlock()
}

func (c *connection) armPacing() {
	c.pacing = time.AfterFunc(pacingInterval, c.onPacingFire)
}

// onPacingFire only enqueues a fresh round of Field frames once the
// previous round has fully drained — the pacing timer re-arms itself
// unconditionally, but it only sends when outstanding writes are back
// to zero, so a slow client naturally falls back to a lower frame rate
// instead of an unbounded backlog.
func (c *connection) onPacingFire() {
	select {
	case <-c.done:
		return
	default:
	}
	if len(c.sendCh) == 0 {
		c.enqueueFields()
	}
	c.pacing.Reset(pacingInterval)
}

func (c *connection) enqueueFields() {
	f := c.game.CurrentField()
	for _, s := range f.Snakes {
		if s.PlayerID != c.player.ID() || s.W == 0 {
			continue
		}
		msg := visibleFieldFor(f, s)
		body, err := protocol.Encode(msg)
		if err != nil {
			c.log.WithError(err).Warn("failed to encode field message")
			continue
		}
		select {
		case c.sendCh <- body:
		default:
			c.log.Warn("send buffer full, dropping field frame")
		}
	}
}

// visibleFieldFor builds the Field message sent for one owned snake,
// filtering every other snake's skeleton down to points within
// 100*owner.R of the owner's head, and dropping snakes and foods that
// contribute nothing visible.
func visibleFieldFor(f *game.Field, owner game.Snake) protocol.Field {
	head := owner.Skeleton[0]
	visR2 := geom.Sqr(100 * owner.R)

	var snakes []protocol.SnakeView
	for _, s := range f.Snakes {
		if s.W == 0 || len(s.Skeleton) == 0 {
			continue
		}
		var visible []geom.Point
		for _, p := range s.Skeleton {
			if p.Sub(head).Dist2() <= visR2 {
				visible = append(visible, p)
			}
		}
		if len(visible) == 0 {
			continue
		}
		snakes = append(snakes, protocol.SnakeView{
			PlayerID:    int32(s.PlayerID),
			SnakeID:     int32(s.ID),
			R:           s.R,
			Skeleton:    visible,
			HeadVisible: s.Skeleton[0].Sub(head).Dist2() <= visR2,
			Boost:       s.Boost,
		})
	}

	var foods []protocol.FoodView
	for _, fo := range f.Foods {
		if fo.P.Sub(head).Dist2() <= visR2 {
			foods = append(foods, protocol.FoodView{P: fo.P, W: fo.W})
		}
	}

	return protocol.Field{
		SnakeID: int32(owner.ID),
		W:       owner.W,
		Time:    f.Time,
		Snakes:  snakes,
		Foods:   foods,
	}
}

func (c *connection) writeLoop() {
	for {
		select {
		case body, ok := <-c.sendCh:
			if !ok {
				return
			}
			c.writeMu.Lock()
			err := protocol.WriteFrame(c.conn, body)
			c.writeMu.Unlock()
			if err != nil {
				c.closeOnce()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *connection) closeOnce() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *connection) close() {
	if c.pacing != nil {
		c.pacing.Stop()
	}
	c.closeOnce()
	if c.player != nil {
		c.player.RemoveConnection()
	}
	metrics.ActiveConnections.Dec()
}
