package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/tasklet/internal/core/logging"
	"github.com/colonyops/tasklet/internal/status"
	"github.com/colonyops/tasklet/internal/tasklet"
	"github.com/colonyops/tasklet/internal/tui"
)

type TuiCmd struct {
	flags *Flags
	app   *tasklet.App

	noWorker bool
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags, app *tasklet.App) *TuiCmd {
	return &TuiCmd{
		flags: flags,
		app:   app,
	}
}

// Flags returns the TUI-specific flags for registration on the root command
func (cmd *TuiCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "no-worker",
			Usage:       "load the page without registering the offline cache worker",
			Sources:     cli.EnvVars("TASKLET_NO_WORKER"),
			Destination: &cmd.noWorker,
		},
	}
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("tui requires a TTY; use 'tasklet ls' instead")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Registering the worker is the page's first load. Failures leave the
	// page usable without the cache.
	if !cmd.noWorker {
		if err := cmd.app.Host.Register(ctx); err != nil {
			log.Warn().Err(err).Msg("worker registration failed")
		}
	}

	statuses := make(chan bool, 1)
	prober := status.NewProber(cmd.app.Config.ProbeURL(), cmd.app.Config.Status.Interval, nil, logging.Component("status"))
	go prober.Run(ctx, func(online bool) {
		select {
		case statuses <- online:
		case <-ctx.Done():
		}
	})

	return tui.Run(ctx, tui.Deps{
		Manager:  cmd.app.Tasks,
		View:     cmd.app.View,
		Client:   cmd.app.Client(),
		Origin:   cmd.app.Origin,
		Statuses: statuses,
		Log:      logging.Component("tui"),
	})
}
