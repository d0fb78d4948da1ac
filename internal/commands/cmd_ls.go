package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasklet/internal/render"
	"github.com/colonyops/tasklet/internal/tasklet"
	"github.com/colonyops/tasklet/pkg/iojson"
)

type LsCmd struct {
	flags *Flags
	app   *tasklet.App

	// flags
	jsonOutput bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags, app *tasklet.App) *LsCmd {
	return &LsCmd{flags: flags, app: app}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List all tasks",
		UsageText: "tasklet ls [--json]",
		Description: `Lists tasks in insertion order as "[x] <id> <text>" lines.

Use --json to print the stored task array.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the task array as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(_ context.Context, c *cli.Command) error {
	out := c.Root().Writer

	if cmd.jsonOutput {
		return iojson.WriteWith(out, c.Root().ErrWriter, cmd.app.Tasks.Tasks())
	}

	rows := cmd.app.View.Rows()
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "No tasks found")
		return nil
	}

	if err := render.Plain(out, rows); err != nil {
		return fmt.Errorf("render tasks: %w", err)
	}
	return nil
}
