package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/hay-kot/msgscope/internal/commands/doctor"
	"github.com/hay-kot/msgscope/internal/printer"
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
				UsageText:   "msgscope config validate [options]",
				Description: "Validates the configuration file, checking the API URL, durations, the default view, and file paths.",
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
			{
				Name:        "show",
				Usage:       "Print the effective configuration",
				UsageText:   "msgscope config show",
				Description: "Prints the configuration after defaults are applied, as YAML.",
				Action:      cmd.runShow,
			},
		},
	})

	return app
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.flags.Config == nil {
		return fmt.Errorf("configuration not loaded")
	}

	result := doctor.NewConfigCheck(cmd.flags.Config, cmd.flags.ConfigPath).Run(ctx)
	report := doctor.NewReport([]doctor.Result{result})

	if cmd.format == "json" {
		if err := cmd.outputJSON(c, result, report); err != nil {
			return err
		}
	} else {
		cmd.outputText(printer.Ctx(ctx), result, report)
	}

	if !report.Healthy {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *ConfigValidateCmd) outputJSON(c *cli.Command, result doctor.Result, report doctor.Report) error {
	out := struct {
		Valid    bool          `json:"valid"`
		Path     string        `json:"path"`
		Errors   []doctor.Item `json:"errors,omitempty"`
		Warnings []doctor.Item `json:"warnings,omitempty"`
	}{
		Valid: report.Healthy,
		Path:  cmd.flags.ConfigPath,
	}

	for _, item := range result.Items {
		switch item.Status {
		case doctor.StatusFail:
			out.Errors = append(out.Errors, item)
		case doctor.StatusWarn:
			out.Warnings = append(out.Warnings, item)
		}
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (cmd *ConfigValidateCmd) outputText(p *printer.Printer, result doctor.Result, report doctor.Report) {
	p.Section(cmd.flags.ConfigPath)

	for _, item := range result.Items {
		switch item.Status {
		case doctor.StatusFail:
			p.FailItem(item.Label, item.Detail)
		case doctor.StatusWarn:
			p.WarnItem(item.Label, item.Detail)
		}
	}

	p.Printf("")
	switch {
	case !report.Healthy:
		p.Errorf("%d error(s), %d warning(s)", report.Failed, report.Warned)
	case report.Warned > 0:
		p.Successf("Configuration is valid (%d warning(s))", report.Warned)
	default:
		p.Successf("Configuration is valid")
	}
}

func (cmd *ConfigValidateCmd) runShow(_ context.Context, c *cli.Command) error {
	if cmd.flags.Config == nil {
		return fmt.Errorf("configuration not loaded")
	}

	enc := yaml.NewEncoder(c.Root().Writer)
	enc.SetIndent(2)
	if err := enc.Encode(cmd.flags.Config); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
