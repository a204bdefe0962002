package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/msgscope/internal/apiclient"
	"github.com/hay-kot/msgscope/internal/core/query"
	"github.com/hay-kot/msgscope/internal/form"
	"github.com/hay-kot/msgscope/internal/msgscope"
	"github.com/hay-kot/msgscope/internal/printer"
	"github.com/hay-kot/msgscope/internal/router"
	"github.com/hay-kot/msgscope/pkg/tmpl"
)

type QueryCmd struct {
	flags *Flags

	// Command-specific flags
	input  query.Form
	json   bool
	format string
}

// NewQueryCmd creates a new query command
func NewQueryCmd(flags *Flags) *QueryCmd {
	return &QueryCmd{flags: flags}
}

// Register adds the query command to the application
func (cmd *QueryCmd) Register(app *cli.Command) *cli.Command {
	subs := make([]*cli.Command, 0, len(router.Routes()))
	for _, route := range router.Routes() {
		subs = append(subs, cmd.routeCmd(route))
	}

	app.Commands = append(app.Commands, &cli.Command{
		Name:  "query",
		Usage: "Query logged messages for a terminal",
		Description: `Runs one query against the loghub API and prints the result.

Each subcommand corresponds to a view of the interactive UI. The SIM number
is recorded in history. When --sim is omitted on a terminal you are prompted
for it, with history as suggestions.

Times use the format "2006-01-02 15:04:05" in the local time zone. Without
--since the query covers query.lookback (default 1h) before --until, which
defaults to now.`,
		Commands: subs,
	})

	return app
}

func (cmd *QueryCmd) routeCmd(route router.Route) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "sim",
			Aliases:     []string{"s"},
			Usage:       "terminal SIM number",
			Destination: &cmd.input.SimNo,
		},
		&cli.StringFlag{
			Name:        "since",
			Usage:       "window start (" + query.TimeLayout + ")",
			Destination: &cmd.input.Since,
		},
		&cli.StringFlag{
			Name:        "until",
			Usage:       "window end (" + query.TimeLayout + "), defaults to now",
			Destination: &cmd.input.Until,
		},
	}

	switch {
	case route.Kind == query.KindRaw:
		flags = append(flags,
			&cli.StringFlag{
				Name:        "msg-ids",
				Usage:       "comma separated message ids to keep (decimal or 0x hex)",
				Destination: &cmd.input.MsgIDs,
			},
			&cli.StringFlag{
				Name:        "xfer",
				Usage:       "direction filter (tx, rx, all)",
				Destination: &cmd.input.Xfer,
			},
		)
	case !route.Fixed():
		flags = append(flags, &cli.StringFlag{
			Name:        "msg-id",
			Aliases:     []string{"m"},
			Usage:       "message id to decode (decimal or 0x hex)",
			Destination: &cmd.input.MsgID,
		})
	}

	if route.Kind == query.KindBody {
		flags = append(flags, &cli.StringFlag{
			Name:        "ext-ids",
			Usage:       "comma separated 0x0200 extra info ids to require",
			Destination: &cmd.input.ExtIDs,
		})
	}

	flags = append(flags,
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print the API result as JSON",
			Destination: &cmd.json,
		},
		&cli.StringFlag{
			Name:        "format",
			Usage:       "Go template rendered once per row (functions: hex, ts, msgid)",
			Destination: &cmd.format,
		},
	)

	return &cli.Command{
		Name:      route.Name,
		Usage:     "Query the " + route.Title + " view",
		UsageText: fmt.Sprintf("msgscope query %s --sim <sim> [options]", route.Name),
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			return cmd.run(ctx, c, route)
		},
	}
}

func (cmd *QueryCmd) run(ctx context.Context, c *cli.Command, route router.Route) error {
	p := printer.Ctx(ctx)

	var tpl *tmpl.Template
	if cmd.format != "" {
		var err error
		if tpl, err = tmpl.Parse(cmd.format); err != nil {
			return err
		}
	}

	if strings.TrimSpace(cmd.input.SimNo) == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		entries, err := cmd.flags.Service.History(ctx)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		if cmd.input.SimNo, err = form.SimNo(ctx, entries); err != nil {
			return err
		}
	}

	params, err := cmd.input.Parse(time.Now(), cmd.flags.Config.Query.Lookback)
	if err != nil {
		return err
	}

	res, err := cmd.flags.Service.Run(ctx, route, params)
	if err != nil {
		if isAPIError(err) {
			// Already reported through the notifier.
			return cli.Exit("", 1)
		}
		return err
	}

	if err := msgscope.Write(c.Root().Writer, res, msgscope.OutputOptions{JSON: cmd.json, Template: tpl}); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if !cmd.json && tpl == nil {
		p.Infof("%d row(s) in %s", res.Len(), res.Elapsed.Round(time.Millisecond))
		if res.Raw != nil && len(res.Raw.MsgIDs) > 0 {
			ids := res.Raw.SeenIDs()
			names := make([]string, len(ids))
			for i, id := range ids {
				names[i] = tmpl.MsgID(id)
			}
			p.Infof("message ids in window: %s", strings.Join(names, ", "))
		}
	}

	return nil
}

func isAPIError(err error) bool {
	var appErr *apiclient.ApplicationError
	var tErr *apiclient.TransportError
	return errors.As(err, &appErr) || errors.As(err, &tErr)
}
