package netio

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"arena-server/internal/game"
	"arena-server/internal/metrics"
)

// RunScheduler drives g's ticks at a fixed interval until ctx is
// canceled. Non-overlap and "catch up by at most one tick" both fall
// out of time.Ticker: its channel holds a single pending tick, so a slow
// iteration drops any extra fires instead of queuing them.
func RunScheduler(ctx context.Context, g *game.Game, interval time.Duration, log *logrus.Entry) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			_, err := g.Tick()
			metrics.TickDuration.Observe(time.Since(start).Seconds())
			if err != nil {
				if !errors.Is(err, game.ErrGameNotStarted) {
					log.WithError(err).Warn("tick failed")
				}
				continue
			}
			f := g.CurrentField()
			alive := 0
			for _, s := range f.Snakes {
				if s.W > 0 {
					alive++
				}
			}
			metrics.SnakesAlive.Set(float64(alive))
			metrics.FoodsAlive.Set(float64(len(f.Foods)))
		}
	}
}
