// Package spectate serves a read-only browser dashboard that mirrors
// the current field as JSON over a WebSocket. It is not part of the
// authoritative protocol in internal/protocol — a spectator can watch,
// never play.
package spectate

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"arena-server/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const mirrorInterval = 200 * time.Millisecond

type snapshot struct {
	Tick   int        `json:"tick"`
	Time   float32    `json:"time"`
	Snakes []snakeDTO `json:"snakes"`
	Foods  int        `json:"food_count"`
}

type snakeDTO struct {
	PlayerID int     `json:"player_id"`
	SnakeID  int     `json:"snake_id"`
	W        float32 `json:"w"`
	R        float32 `json:"r"`
	HeadX    float32 `json:"head_x"`
	HeadY    float32 `json:"head_y"`
}

// Mux builds an http.ServeMux serving the dashboard page at "/" and the
// live mirror at "/ws".
func Mux(g *game.Game, log *logrus.Entry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", serveDashboard)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveMirror(w, r, g, log)
	})
	return mux
}

func serveDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(dashboardHTML))
}

func serveMirror(w http.ResponseWriter, r *http.Request, g *game.Game, log *logrus.Entry) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(mirrorInterval)
	defer ticker.Stop()

	for range ticker.C {
		f := g.CurrentField()
		snap := snapshot{Tick: f.Tick, Time: f.Time, Foods: len(f.Foods)}
		for _, s := range f.Snakes {
			if s.W == 0 || len(s.Skeleton) == 0 {
				continue
			}
			snap.Snakes = append(snap.Snakes, snakeDTO{
				PlayerID: s.PlayerID,
				SnakeID:  s.ID,
				W:        s.W,
				R:        s.R,
				HeadX:    s.Skeleton[0].X,
				HeadY:    s.Skeleton[0].Y,
			})
		}
		body, err := json.Marshal(snap)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			if log != nil {
				log.WithError(err).Debug("spectator mirror write failed")
			}
			return
		}
	}
}

const dashboardHTML = `<!doctype html>
<html>
<head><title>arena spectator</title></head>
<body>
<pre id="out">connecting...</pre>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (ev) => { document.getElementById("out").textContent = ev.data; };
</script>
</body>
</html>`
