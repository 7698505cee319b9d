// Command arena-server bootstraps the user directory, the default
// field, the TCP acceptor, the tick scheduler, and (optionally) the
// metrics and spectator HTTP endpoints.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"arena-server/internal/game"
	"arena-server/internal/netio"
	"arena-server/internal/ratelimit"
	"arena-server/internal/spectate"
	"arena-server/internal/userdb"
)

type options struct {
	port         int
	usersFile    string
	fieldID      int
	gameLogPath  string
	metricsAddr  string
	spectateAddr string
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "arena-server",
		Short: "Runs a real-time snake-arena game server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := root.Flags()
	flags.IntVar(&opts.port, "port", 2000, "TCP port to listen on")
	flags.StringVar(&opts.usersFile, "users-file", "users.txt", "path to the flat-file user directory")
	flags.IntVar(&opts.fieldID, "field", 0, "field id of the default pre-seeded game")
	flags.StringVar(&opts.gameLogPath, "game-log", "", "optional path to append a per-16-tick player mass log (one JSON object per line, each followed by a comma)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "optional address to serve Prometheus /metrics on, e.g. :9090")
	flags.StringVar(&opts.spectateAddr, "spectate-addr", "", "optional address to serve the spectator dashboard on, e.g. :8080")

	if err := root.ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Fatal("arena-server exited with error")
	}
}

func run(ctx context.Context, opts *options) error {
	log := logrus.NewEntry(logrus.StandardLogger())

	db, err := userdb.Load(opts.usersFile)
	if err != nil {
		return fmt.Errorf("loading user directory: %w", err)
	}

	cfg := game.DefaultConfig()
	g := game.NewGame(cfg, time.Now().UnixNano(), log)
	g.Start() // the default field is live from the moment the process starts

	limiter := ratelimit.New(ratelimit.DefaultConfig)
	defer limiter.Stop()

	srv := netio.NewServer(db, limiter, log)
	if err := srv.AddGame(opts.fieldID, g); err != nil {
		return fmt.Errorf("registering default field: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go netio.RunScheduler(ctx, g, time.Duration(cfg.TickMS)*time.Millisecond, log)

	if opts.gameLogPath != "" {
		go runGameLog(ctx, g, opts.gameLogPath, log)
	}

	if opts.metricsAddr != "" {
		go serveMetrics(ctx, opts.metricsAddr, log)
	}

	if opts.spectateAddr != "" {
		go serveSpectate(ctx, opts.spectateAddr, g, log)
	}

	addr := fmt.Sprintf(":%d", opts.port)
	log.WithField("addr", addr).Info("starting arena-server")
	return srv.Serve(ctx, addr)
}

// runGameLog appends a JSON object mapping player id to total mass
// every 16 ticks, matching the original server's lightweight telemetry.
func runGameLog(ctx context.Context, g *game.Game, path string, log *logrus.Entry) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.WithError(err).Warn("could not open game log")
		return
	}
	defer f.Close()

	ticker := time.NewTicker(16 * time.Duration(g.Config().TickMS) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			field := g.CurrentField()
			totals := make(map[string]float32)
			for _, s := range field.Snakes {
				if s.W == 0 {
					continue
				}
				totals[fmt.Sprint(s.PlayerID)] += s.W
			}
			line, err := json.Marshal(totals)
			if err != nil {
				continue
			}
			if _, err := f.Write(append(line, ',', '\n')); err != nil {
				log.WithError(err).Warn("game log write failed")
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string, log *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serveUntilCanceled(ctx, addr, mux, log, "metrics")
}

func serveSpectate(ctx context.Context, addr string, g *game.Game, log *logrus.Entry) {
	serveUntilCanceled(ctx, addr, spectate.Mux(g, log), log, "spectate")
}

func serveUntilCanceled(ctx context.Context, addr string, handler http.Handler, log *logrus.Entry, name string) {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	log.WithField("addr", addr).Infof("serving %s endpoint", name)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Warnf("%s server stopped", name)
	}
}
