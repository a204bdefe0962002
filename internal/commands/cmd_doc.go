package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/msgscope/internal/core/query"
	"github.com/hay-kot/msgscope/internal/router"
)

const docWrapWidth = 100

type DocCmd struct {
	flags *Flags
	plain bool
}

func NewDocCmd(flags *Flags) *DocCmd {
	return &DocCmd{flags: flags}
}

func (cmd *DocCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "doc",
		Usage: "Reference documentation",
		Description: `Access reference documentation for msgscope.

Use 'msgscope doc views' to see the query views, their filters and keys.`,
		Commands: []*cli.Command{
			{
				Name:  "views",
				Usage: "Describe the query views",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "plain",
						Usage:       "print raw markdown",
						Destination: &cmd.plain,
					},
				},
				Action: cmd.runViews,
			},
		},
	})
	return app
}

func (cmd *DocCmd) runViews(_ context.Context, c *cli.Command) error {
	w := c.Root().Writer
	md := viewsMarkdown()

	if cmd.plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		_, err := fmt.Fprint(w, md)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("tokyo-night"),
		glamour.WithWordWrap(docWrapWidth),
	)
	if err != nil {
		_, err = fmt.Fprint(w, md)
		return err
	}

	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}

	_, err = fmt.Fprint(w, out)
	return err
}

func viewsMarkdown() string {
	var b strings.Builder

	b.WriteString("# Query views\n\n")
	b.WriteString("Every view queries one SIM number over a time window. ")
	b.WriteString("Times use `" + query.TimeLayout + "` in the local time zone.\n\n")

	b.WriteString("| View | Path | Endpoint | Message id |\n")
	b.WriteString("|------|------|----------|------------|\n")
	for _, r := range router.Routes() {
		id := "from form"
		switch {
		case r.Kind == query.KindRaw:
			id = "any"
		case r.Fixed():
			id = fmt.Sprintf("`0x%04X`", r.MsgID)
		}
		fmt.Fprintf(&b, "| %s | `%s` | `%s` | %s |\n", r.Title, r.Path, r.Kind.Path(), id)
	}

	b.WriteString(`
## Filters

- **raw**: ` + "`--msg-ids`" + ` keeps only the listed message ids, ` + "`--xfer`" + ` keeps one direction (tx is platform to terminal).
- **body views**: ` + "`--ext-ids`" + ` keeps location reports carrying at least one of the listed extra info ids.

Unknown view paths open the raw view.

## TUI keys

| Key | Action |
|-----|--------|
| tab / shift+tab | next / previous view |
| ctrl+n / ctrl+p | next / previous form field |
| up / down (SIM field) | recall history |
| enter | run query |
| esc | focus form / results |
| ctrl+c | quit |
`)

	return b.String()
}
