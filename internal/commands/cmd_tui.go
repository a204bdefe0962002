package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/msgscope/internal/apiclient"
	"github.com/hay-kot/msgscope/internal/router"
	"github.com/hay-kot/msgscope/internal/tui"
)

type TuiCmd struct {
	flags *Flags
	view  string
}

// NewTuiCmd creates a new tui command
func NewTuiCmd(flags *Flags) *TuiCmd {
	return &TuiCmd{
		flags: flags,
	}
}

// Flags returns the TUI-specific flags for registration on the root command
func (cmd *TuiCmd) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "view",
			Usage:       "view to open (name or path, e.g. location or /query/can)",
			Sources:     cli.EnvVars("MSGSCOPE_VIEW"),
			Destination: &cmd.view,
		},
	}
}

// Run executes the TUI. Exported for use as default command.
func (cmd *TuiCmd) Run(ctx context.Context, c *cli.Command) error {
	return cmd.run(ctx, c)
}

func (cmd *TuiCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config

	route := startRoute(cmd.view, cmd.flags.Service.LastView(), cfg.DefaultRoute())
	log.Debug().Str("view", route.Path).Msg("starting tui")

	m := tui.New(cmd.flags.Service, tui.Options{
		Route:         route,
		Lookback:      cfg.Query.Lookback,
		ToastDuration: cfg.TUI.ToastDuration,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// API failures become toasts while the TUI owns the terminal.
	prev := cmd.flags.Notifier.Set(apiclient.NotifierFunc(func(message string) {
		p.Send(tui.NotifyMsg{Text: message})
	}))
	defer cmd.flags.Notifier.Set(prev)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}

	return nil
}

// startRoute picks the first view: an explicit --view wins, then the view
// shown last, then the configured default. An unknown --view falls back to
// the default route.
func startRoute(view, lastView string, fallback router.Route) router.Route {
	if view != "" {
		if r, ok := router.ByName(view); ok {
			return r
		}
		r, _ := router.Resolve(view)
		log.Warn().Str("view", view).Str("using", r.Path).Msg("unknown view")
		return r
	}

	if lastView != "" {
		if r, ok := router.Resolve(lastView); ok {
			return r
		}
	}

	return fallback
}
