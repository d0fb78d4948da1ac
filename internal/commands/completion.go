package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasklet/internal/tasklet"
)

// TaskIDCompleter returns a ShellCompleteFunc that suggests task IDs as
// positional completions, annotated with the task text for shells that show
// descriptions.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func TaskIDCompleter(app *tasklet.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		w := cmd.Root().Writer
		for _, t := range app.Tasks.Tasks() {
			_, _ = fmt.Fprintf(w, "%d:%s\n", t.ID, t.Text)
		}
	}
}
