package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasklet/internal/core/cache"
	"github.com/colonyops/tasklet/internal/tasklet"
	"github.com/colonyops/tasklet/pkg/iojson"
)

// CacheCmd implements the tasklet cache command group.
type CacheCmd struct {
	flags *Flags
	app   *tasklet.App

	// show flags
	showBody bool

	// ls flags
	jsonOutput bool
}

// NewCacheCmd creates a new cache command.
func NewCacheCmd(flags *Flags, app *tasklet.App) *CacheCmd {
	return &CacheCmd{flags: flags, app: app}
}

// Register adds the cache command to the application.
func (cmd *CacheCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "cache",
		Usage: "Inspect and drive the offline cache worker",
		Description: `Cache commands run the worker's lifecycle phases by hand and inspect
what it has stored.

Examples:
  tasklet cache install              # precache the shell assets
  tasklet cache activate             # delete stale cache generations
  tasklet cache ls                   # list cache buckets and records
  tasklet cache show ./manifest.json # print a cached response
  tasklet cache fetch ./app.js       # fetch through the worker`,
		Commands: []*cli.Command{
			{
				Name:   "install",
				Usage:  "Precache the configured assets into the current bucket",
				Action: cmd.runInstall,
			},
			{
				Name:   "activate",
				Usage:  "Delete every bucket except the current version",
				Action: cmd.runActivate,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List cache buckets and stored records",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "show",
				Usage:     "Print the cached response for a URL",
				UsageText: "tasklet cache show [--body] <url>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "body",
						Usage:       "print the response body",
						Value:       true,
						Destination: &cmd.showBody,
					},
				},
				Action: cmd.runShow,
			},
			{
				Name:      "fetch",
				Usage:     "Fetch a URL through the activated worker",
				UsageText: "tasklet cache fetch <url>",
				Action:    cmd.runFetch,
			},
		},
	})

	return app
}

func (cmd *CacheCmd) runInstall(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Worker.OnInstall(ctx); err != nil {
		return err
	}

	n, err := cmd.app.Buckets.Count(ctx, cmd.app.Config.Worker.Version)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "%s: %d of %d assets cached\n",
		cmd.app.Config.Worker.Version, n, len(cmd.app.Config.Worker.Assets))
	return nil
}

func (cmd *CacheCmd) runActivate(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Worker.OnActivate(ctx); err != nil {
		return err
	}

	keys, err := cmd.app.Buckets.Keys(ctx)
	if err != nil {
		return err
	}

	for _, k := range keys {
		_, _ = fmt.Fprintln(c.Root().Writer, k)
	}
	return nil
}

type bucketInfo struct {
	Name    string `json:"name"`
	Entries int64  `json:"entries"`
	Current bool   `json:"current"`
}

type recordInfo struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

func (cmd *CacheCmd) runList(ctx context.Context, c *cli.Command) error {
	names, err := cmd.app.Buckets.Keys(ctx)
	if err != nil {
		return err
	}

	buckets := make([]bucketInfo, 0, len(names))
	for _, name := range names {
		n, err := cmd.app.Buckets.Count(ctx, name)
		if err != nil {
			return err
		}
		buckets = append(buckets, bucketInfo{
			Name:    name,
			Entries: n,
			Current: name == cmd.app.Config.Worker.Version,
		})
	}

	entries, err := cmd.app.Records.List(ctx)
	if err != nil {
		return err
	}

	records := make([]recordInfo, 0, len(entries))
	for _, e := range entries {
		records = append(records, recordInfo{URL: e.URL, ContentType: e.ContentType(), Size: len(e.Body)})
	}

	out := c.Root().Writer
	if cmd.jsonOutput {
		return iojson.WriteWith(out, c.Root().ErrWriter, struct {
			Buckets []bucketInfo `json:"buckets"`
			Records []recordInfo `json:"records"`
		}{buckets, records})
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BUCKET\tENTRIES\tCURRENT")
	for _, b := range buckets {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%t\n", b.Name, b.Entries, b.Current)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "RECORD\tTYPE\tSIZE")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", r.URL, r.ContentType, r.Size)
	}
	return w.Flush()
}

func (cmd *CacheCmd) runShow(ctx context.Context, c *cli.Command) error {
	u, err := cmd.urlArg(c)
	if err != nil {
		return err
	}

	source := "cache"
	entry, err := cmd.app.Buckets.Match(ctx, u)
	if errors.Is(err, cache.ErrMiss) {
		source = "record"
		entry, err = cmd.app.Records.Get(ctx, u)
	}
	if errors.Is(err, cache.ErrMiss) {
		return cli.Exit(fmt.Sprintf("%s is not cached", u), 1)
	}
	if err != nil {
		return err
	}

	out := c.Root().Writer
	_, _ = fmt.Fprintf(out, "URL:          %s\n", entry.URL)
	_, _ = fmt.Fprintf(out, "Source:       %s\n", source)
	_, _ = fmt.Fprintf(out, "Status:       %d\n", entry.Status)
	_, _ = fmt.Fprintf(out, "Content-Type: %s\n", entry.ContentType())
	_, _ = fmt.Fprintf(out, "Stored:       %s\n", entry.StoredAt.Format("2006-01-02 15:04:05"))
	if cmd.showBody {
		_, _ = fmt.Fprintf(out, "\n%s\n", entry.Body)
	}
	return nil
}

func (cmd *CacheCmd) runFetch(ctx context.Context, c *cli.Command) error {
	u, err := cmd.urlArg(c)
	if err != nil {
		return err
	}

	if err := cmd.app.Host.Register(ctx); err != nil {
		return fmt.Errorf("register worker: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := cmd.app.Client().Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	out := c.Root().Writer
	_, _ = fmt.Fprintf(out, "%d %s\n\n", resp.StatusCode, resp.Header.Get("Content-Type"))
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	_, _ = fmt.Fprintln(out)

	return cmd.app.Close(ctx)
}

func (cmd *CacheCmd) urlArg(c *cli.Command) (string, error) {
	if c.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one url")
	}
	u, err := cmd.app.Resolve(c.Args().First())
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
