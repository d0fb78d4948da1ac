package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasklet/internal/core/task"
	"github.com/colonyops/tasklet/internal/tasklet"
)

type ToggleCmd struct {
	flags *Flags
	app   *tasklet.App
}

// NewToggleCmd creates a new toggle command
func NewToggleCmd(flags *Flags, app *tasklet.App) *ToggleCmd {
	return &ToggleCmd{flags: flags, app: app}
}

// Register adds the toggle command to the application
func (cmd *ToggleCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:          "toggle",
		Aliases:       []string{"done"},
		Usage:         "Flip a task between open and completed",
		UsageText:     "tasklet toggle <id>",
		Action:        cmd.run,
		ShellComplete: TaskIDCompleter(cmd.app),
	})

	return app
}

func (cmd *ToggleCmd) run(ctx context.Context, c *cli.Command) error {
	id, err := taskIDArg(c)
	if err != nil {
		return err
	}

	if err := cmd.app.Tasks.Toggle(ctx, id); err != nil {
		return taskError(id, err)
	}

	t, err := findTask(cmd.app, id)
	if err != nil {
		return err
	}

	state := "open"
	if t.Completed {
		state = "completed"
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "%d %s\n", id, state)
	return nil
}

// taskIDArg parses the single positional task ID.
func taskIDArg(c *cli.Command) (int64, error) {
	if c.Args().Len() != 1 {
		return 0, fmt.Errorf("expected exactly one task id")
	}

	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", c.Args().First())
	}
	return id, nil
}

func taskError(id int64, err error) error {
	if errors.Is(err, task.ErrNotFound) {
		return cli.Exit(fmt.Sprintf("task %d not found", id), 1)
	}
	return err
}

func findTask(app *tasklet.App, id int64) (task.Task, error) {
	for _, t := range app.Tasks.Tasks() {
		if t.ID == id {
			return t, nil
		}
	}
	return task.Task{}, taskError(id, task.ErrNotFound)
}
