package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/tasklet/internal/core/task"
	"github.com/colonyops/tasklet/internal/tasklet"
)

type AddCmd struct {
	flags *Flags
	app   *tasklet.App

	// prompt reads task text when no arguments are given; replaced in tests.
	prompt func() (string, error)
}

// NewAddCmd creates a new add command
func NewAddCmd(flags *Flags, app *tasklet.App) *AddCmd {
	return &AddCmd{flags: flags, app: app, prompt: promptTaskText}
}

// Register adds the add command to the application
func (cmd *AddCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "add",
		Usage:     "Add a task",
		UsageText: "tasklet add [text...]",
		Description: `Appends a task to the end of the list.

Arguments are joined with spaces. Without arguments an input prompt is shown
when running in a terminal. Text that is empty after trimming adds nothing.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *AddCmd) run(ctx context.Context, c *cli.Command) error {
	text := strings.Join(c.Args().Slice(), " ")
	if c.Args().Len() == 0 {
		var err error
		text, err = cmd.prompt()
		if err != nil {
			return err
		}
	}

	t, ok, err := cmd.app.Tasks.Add(ctx, text)
	if err != nil {
		return fmt.Errorf("add task: %w", err)
	}
	if !ok {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "Nothing added: task text is empty")
		return nil
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "%d\n", t.ID)
	return nil
}

func promptTaskText() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no task text provided (stdin is not a terminal)")
	}

	var text string
	err := huh.NewInput().
		Title("New task").
		Placeholder("할 일을 입력하세요").
		Value(&text).
		Validate(func(s string) error {
			if _, ok := task.NormalizeText(s); !ok {
				return fmt.Errorf("task text cannot be empty")
			}
			return nil
		}).
		Run()
	if err != nil {
		return "", fmt.Errorf("prompt: %w", err)
	}
	return text, nil
}
