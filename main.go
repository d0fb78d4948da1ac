package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasklet/internal/commands"
	"github.com/colonyops/tasklet/internal/core/config"
	"github.com/colonyops/tasklet/internal/core/logging"
	"github.com/colonyops/tasklet/internal/core/styles"
	"github.com/colonyops/tasklet/internal/data/db"
	"github.com/colonyops/tasklet/internal/tasklet"
	"github.com/colonyops/tasklet/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser  func()
		taskletApp = &tasklet.App{}
		database   *db.DB
		recordsDB  *db.DB
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "tasklet",
		Usage:     "Offline-capable task list",
		UsageText: "tasklet [global options] command [command options]",
		Description: `Tasklet keeps a small ordered task list in a local store and ships the
task page with an offline cache worker that serves its shell assets
cache-first.

Run 'tasklet' with no arguments to open the interactive task page.
Run 'tasklet serve' to expose the page through the worker over HTTP.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("TASKLET_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/tasklet.log)",
				Sources:     cli.EnvVars("TASKLET_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file (.yaml or .toml)",
				Sources:     cli.EnvVars("TASKLET_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("TASKLET_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; use explicit path or default to <datadir>/tasklet.log
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "tasklet.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile, logging.ContextHook{})
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.TUI.Theme)
			styles.SetTheme(palette)

			dbOpts := db.OpenOptions{
				MaxOpenConns: cfg.Database.MaxOpenConns,
				MaxIdleConns: cfg.Database.MaxIdleConns,
				BusyTimeout:  cfg.Database.BusyTimeout,
			}
			database, err = db.Open(cfg.DataDir, dbOpts)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			recordsDB, err = db.OpenRecords(cfg.DataDir, dbOpts)
			if err != nil {
				return ctx, fmt.Errorf("open record store: %w", err)
			}

			a, err := tasklet.NewApp(cfg, database, recordsDB)
			if err != nil {
				return ctx, err
			}

			if err := a.Load(ctx); err != nil {
				return ctx, fmt.Errorf("load tasks: %w", err)
			}

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*taskletApp = *a

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			// Wait for pending record writes
			if taskletApp.Host != nil {
				drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				if err := taskletApp.Close(drainCtx); err != nil {
					log.Warn().Err(err).Msg("pending record writes were not flushed")
				}
				cancel()
			}

			for _, d := range []*db.DB{recordsDB, database} {
				if d == nil {
					continue
				}
				if err := d.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			// Close log file
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	tuiCmd := commands.NewTuiCmd(flags, taskletApp)

	app = commands.NewAddCmd(flags, taskletApp).Register(app)
	app = commands.NewToggleCmd(flags, taskletApp).Register(app)
	app = commands.NewRmCmd(flags, taskletApp).Register(app)
	app = commands.NewLsCmd(flags, taskletApp).Register(app)
	app = commands.NewCacheCmd(flags, taskletApp).Register(app)
	app = commands.NewServeCmd(flags, taskletApp).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)

	// Register TUI flags on root command
	app.Flags = append(app.Flags, tuiCmd.Flags()...)

	// Set TUI as default action when no subcommand is provided
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'tasklet --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
