package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tasklet/internal/core/config"
	"github.com/colonyops/tasklet/internal/core/styles"
	"github.com/colonyops/tasklet/pkg/iojson"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "tasklet config validate [options]",
				Description: "Validates the configuration file, checking asset paths, scope patterns, and listen addresses.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

type validationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type validationReport struct {
	Valid    bool                       `json:"valid"`
	Errors   []validationError          `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

func (cmd *ConfigValidateCmd) run(_ context.Context, c *cli.Command) error {
	report := buildReport(cmd.flags.Config, cmd.flags.ConfigPath)

	if cmd.format == "json" {
		if err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, report); err != nil {
			return err
		}
	} else {
		writeReport(c.Root().Writer, cmd.flags.ConfigPath, report)
	}

	if !report.Valid {
		return cli.Exit("", 1)
	}
	return nil
}

func buildReport(cfg *config.Config, configPath string) validationReport {
	report := validationReport{Valid: true, Warnings: cfg.Warnings()}

	err := cfg.ValidateDeep(configPath)
	if err == nil {
		return report
	}

	report.Valid = false

	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			report.Errors = append(report.Errors, validationError{Field: fe.Field, Message: fe.Err.Error()})
		}
		return report
	}

	report.Errors = append(report.Errors, validationError{Message: err.Error()})
	return report
}

func writeReport(w io.Writer, configPath string, report validationReport) {
	for _, warn := range report.Warnings {
		_, _ = fmt.Fprintf(w, "%s %s: %s\n", styles.WarningStyle.Render("warn"), warn.Category, warn.Message)
		if warn.Item != "" {
			_, _ = fmt.Fprintf(w, "  Item: %s\n", warn.Item)
		}
	}

	for _, e := range report.Errors {
		if e.Field != "" {
			_, _ = fmt.Fprintf(w, "%s %s: %s\n", styles.ErrorStyle.Render("error"), e.Field, e.Message)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", styles.ErrorStyle.Render("error"), e.Message)
	}

	if report.Valid {
		_, _ = fmt.Fprintf(w, "%s %s\n", styles.SuccessStyle.Render("ok"), "Configuration is valid")
		return
	}

	_, _ = fmt.Fprintf(w, "%d error(s) found in %s\n", len(report.Errors), configPath)
}
