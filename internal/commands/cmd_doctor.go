package commands

import (
	"context"
	"encoding/json"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/msgscope/internal/commands/doctor"
	"github.com/hay-kot/msgscope/internal/printer"
)

type DoctorCmd struct {
	flags  *Flags
	format string
	fix    bool
}

func NewDoctorCmd(flags *Flags) *DoctorCmd {
	return &DoctorCmd{flags: flags}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your msgscope setup",
		UsageText:   "msgscope doctor [options]",
		Description: "Runs diagnostic checks on configuration, API reachability, and the history slot.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "fix",
				Usage:       "rewrite a malformed or unnormalized history slot",
				Destination: &cmd.fix,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	checks := []doctor.Check{
		doctor.NewConfigCheck(cmd.flags.Config, cmd.flags.ConfigPath),
	}
	if cmd.flags.Client != nil {
		checks = append(checks, doctor.NewAPICheck(cmd.flags.Client))
	}
	if cmd.flags.Slot != nil && cmd.flags.Config != nil {
		checks = append(checks, doctor.NewHistoryCheck(cmd.flags.Slot, cmd.flags.Config.Storage.Key, cmd.fix))
	}

	report := doctor.Run(ctx, checks...)

	if cmd.format == "json" {
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		cmd.outputText(ctx, report)
	}

	if !report.Healthy {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *DoctorCmd) outputText(ctx context.Context, report doctor.Report) {
	p := printer.Ctx(ctx)

	for _, result := range report.Checks {
		p.Section(result.Name)

		for _, item := range result.Items {
			switch item.Status {
			case doctor.StatusPass:
				p.CheckItem(item.Label, item.Detail)
			case doctor.StatusWarn:
				p.WarnItem(item.Label, item.Detail)
			case doctor.StatusFail:
				p.FailItem(item.Label, item.Detail)
			}
		}

		p.Printf("")
	}

	p.Printf("Summary: %d passed, %d warnings, %d failed", report.Passed, report.Warned, report.Failed)

	if report.Fixable > 0 {
		p.Printf("Run 'msgscope doctor --fix' to repair %d issue(s)", report.Fixable)
	}
}
