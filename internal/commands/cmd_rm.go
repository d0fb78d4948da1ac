package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasklet/internal/tasklet"
)

type RmCmd struct {
	flags *Flags
	app   *tasklet.App
}

// NewRmCmd creates a new rm command
func NewRmCmd(flags *Flags, app *tasklet.App) *RmCmd {
	return &RmCmd{flags: flags, app: app}
}

// Register adds the rm command to the application
func (cmd *RmCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:          "rm",
		Aliases:       []string{"delete"},
		Usage:         "Delete a task",
		UsageText:     "tasklet rm <id>",
		Action:        cmd.run,
		ShellComplete: TaskIDCompleter(cmd.app),
	})

	return app
}

func (cmd *RmCmd) run(ctx context.Context, c *cli.Command) error {
	id, err := taskIDArg(c)
	if err != nil {
		return err
	}

	if err := cmd.app.Tasks.Delete(ctx, id); err != nil {
		return taskError(id, err)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "%d deleted\n", id)
	return nil
}
