package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasklet/internal/core/logging"
	"github.com/colonyops/tasklet/internal/server"
	"github.com/colonyops/tasklet/internal/tasklet"
	"github.com/colonyops/tasklet/internal/web"
	"github.com/colonyops/tasklet/internal/worker"
)

type ServeCmd struct {
	flags *Flags
	app   *tasklet.App

	// flags
	addr       string
	originAddr string
	upstream   bool
	pprof      bool
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags, app *tasklet.App) *ServeCmd {
	return &ServeCmd{flags: flags, app: app}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Serve the task page shell behind the offline cache worker",
		UsageText: "tasklet serve [--addr <addr>] [--origin-addr <addr>] [--upstream]",
		Description: `Starts the embedded shell origin, registers the worker against it, and
serves a proxy whose requests go through the worker. Prometheus metrics are
exposed on /metrics of the proxy listener.

With --upstream the embedded origin is not started and the proxy forwards to
the configured worker.origin instead.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address for the worker proxy and /metrics",
				Sources:     cli.EnvVars("TASKLET_SERVE_ADDR"),
				Destination: &cmd.addr,
			},
			&cli.StringFlag{
				Name:        "origin-addr",
				Usage:       "listen address for the embedded shell origin",
				Destination: &cmd.originAddr,
			},
			&cli.BoolFlag{
				Name:        "upstream",
				Usage:       "proxy the configured worker.origin instead of the embedded shell",
				Destination: &cmd.upstream,
			},
			&cli.BoolFlag{
				Name:        "pprof",
				Usage:       "mount pprof handlers under /debug/pprof/ on the proxy listener",
				Destination: &cmd.pprof,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.app.Config
	if cmd.addr == "" {
		cmd.addr = cfg.Serve.Addr
	}
	if cmd.originAddr == "" {
		cmd.originAddr = cfg.Serve.OriginAddr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var servers []*server.Server
	defer func() { cmd.shutdown(servers) }()

	if !cmd.upstream {
		if cmd.app.Origin.Host != cmd.originAddr {
			log.Warn().
				Str("origin", cmd.app.Origin.String()).
				Str("origin_addr", cmd.originAddr).
				Msg("embedded origin does not listen on worker.origin; install will fail")
		}

		origin := server.New("origin", cmd.originAddr, web.Handler(), logging.Component("server"))
		if err := origin.Start(ctx); err != nil {
			return err
		}
		servers = append(servers, origin)
	}

	if err := cmd.app.Host.Register(ctx); err != nil {
		return fmt.Errorf("register worker: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", cmd.app.Metrics.Handler())
	if cmd.pprof {
		server.MountPprof(mux)
	}
	mux.Handle("/", worker.NewProxy(cmd.app.Host, cmd.app.Origin, logging.Component("proxy")))

	proxy := server.New("worker", cmd.addr, mux, logging.Component("server"))
	if err := proxy.Start(ctx); err != nil {
		return err
	}
	servers = append(servers, proxy)

	_, _ = fmt.Fprintf(c.Root().Writer, "Serving http://%s/ (worker %s, origin %s)\n",
		proxy.Addr(), cfg.Worker.Version, cmd.app.Origin)

	<-ctx.Done()
	return nil
}

func (cmd *ServeCmd) shutdown(servers []*server.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(servers) - 1; i >= 0; i-- {
		errs = append(errs, servers[i].Shutdown(shutdownCtx))
	}
	errs = append(errs, cmd.app.Close(shutdownCtx))

	if err := errors.Join(errs...); err != nil {
		log.Error().Err(err).Msg("failed to shut down cleanly")
	}
}
