package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/msgscope/internal/core/validate"
	"github.com/hay-kot/msgscope/internal/printer"
)

type HistoryCmd struct {
	flags *Flags

	// Command-specific flags
	match string
	json  bool
}

// NewHistoryCmd creates a new history command
func NewHistoryCmd(flags *Flags) *HistoryCmd {
	return &HistoryCmd{flags: flags}
}

// Register adds the history command to the application
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "View or add remembered SIM numbers",
		UsageText: "msgscope history [options]",
		Description: `Lists the SIM numbers entered in earlier queries, oldest first.

Use --match to filter with a glob pattern (e.g. '138*').
Use 'msgscope history add <sim>' to remember a number without querying.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "match",
				Aliases:     []string{"m"},
				Usage:       "glob pattern to filter entries",
				Destination: &cmd.match,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print entries as a JSON array",
				Destination: &cmd.json,
			},
		},
		Action: cmd.runList,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Remember a SIM number",
				UsageText: "msgscope history add <sim>",
				Action:    cmd.runAdd,
			},
		},
	})

	return app
}

func (cmd *HistoryCmd) runList(ctx context.Context, c *cli.Command) error {
	entries, err := cmd.flags.Service.MatchHistory(ctx, cmd.match)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	out := c.Root().Writer

	if cmd.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		printer.Ctx(ctx).Infof("No SIM numbers in history")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tSIM")
	for i, e := range entries {
		_, _ = fmt.Fprintf(w, "%d\t%s\n", i+1, e)
	}

	return w.Flush()
}

func (cmd *HistoryCmd) runAdd(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	simNo := strings.TrimSpace(c.Args().First())
	if err := validate.SimNo(simNo); err != nil {
		return err
	}

	before, err := cmd.flags.Service.History(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	st, err := cmd.flags.Service.Remember(ctx, simNo)
	if err != nil {
		return fmt.Errorf("remember %s: %w", simNo, err)
	}

	if len(st.SimNoHistory) == len(before) {
		p.Infof("%s is already in history", simNo)
		return nil
	}

	p.Successf("Added %s to history", simNo)
	return nil
}
