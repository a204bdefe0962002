// Package printer writes user-facing CLI output: status lines, check items
// and error boxes. Colors are dropped when the writer is not a terminal.
package printer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/hay-kot/criterio"

	"github.com/hay-kot/msgscope/internal/styles"
)

// Symbols
const (
	Check = "✔"
	Cross = "✘"
	Dot   = "•"
)

type ctxKey struct{}

type palette struct {
	red     lipgloss.Style
	green   lipgloss.Style
	yellow  lipgloss.Style
	gray    lipgloss.Style
	section lipgloss.Style
}

func newPalette(r *lipgloss.Renderer) palette {
	return palette{
		red:     r.NewStyle().Foreground(styles.ColorRed),
		green:   r.NewStyle().Foreground(styles.ColorGreen),
		yellow:  r.NewStyle().Foreground(styles.ColorYellow),
		gray:    r.NewStyle().Foreground(styles.ColorGray),
		section: r.NewStyle().Bold(true).Underline(true),
	}
}

// Printer handles formatted output. It is safe for concurrent use; each
// message is written in a single call.
type Printer struct {
	mu     sync.Mutex
	writer io.Writer
	style  palette
}

// New creates a new Printer that writes to the given writer. The color
// profile is detected from w.
func New(w io.Writer) *Printer {
	return &Printer{
		writer: w,
		style:  newPalette(lipgloss.NewRenderer(w)),
	}
}

// NewContext returns a context with the printer attached
func NewContext(ctx context.Context, p *Printer) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// Ctx retrieves the printer from context, or creates a default one
func Ctx(ctx context.Context) *Printer {
	if p, ok := ctx.Value(ctxKey{}).(*Printer); ok {
		return p
	}
	return New(os.Stderr)
}

// FatalError prints a formatted error box and does NOT exit.
// Caller should handle exit code
func (p *Printer) FatalError(err error) {
	if err == nil {
		return
	}

	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) {
		p.printValidationErrors(err, fieldErrs)
		return
	}

	p.write(p.box("Error", []string{p.style.gray.Render(err.Error())}))
}

// printValidationErrors lists each field error, prefixed by whatever context
// the error was wrapped in (e.g. "load config: invalid config").
func (p *Printer) printValidationErrors(wrappedErr error, fieldErrs criterio.FieldErrors) {
	errStr := wrappedErr.Error()
	fieldErrStr := fieldErrs.Error()

	var lines []string
	if idx := strings.Index(errStr, fieldErrStr); idx > 0 {
		lines = append(lines, p.style.gray.Render(strings.TrimSuffix(errStr[:idx], ": ")), "")
	}

	for _, fe := range fieldErrs {
		line := p.style.red.Render(Cross) + " "
		if fe.Field != "" {
			line += p.style.gray.Render(fe.Field + ": ")
		}
		lines = append(lines, line+fe.Err.Error())
	}

	p.write(p.box("Validation Error", lines))
}

// box renders a titled block with a left rule.
func (p *Printer) box(title string, lines []string) string {
	rule := p.style.red.Render("│")

	var b strings.Builder
	b.WriteString(p.style.red.Render("╭ "+title) + "\n")
	for _, l := range lines {
		if l == "" {
			b.WriteString(rule + "\n")
			continue
		}
		b.WriteString(rule + " " + l + "\n")
	}
	b.WriteString(p.style.red.Render("╵") + "\n")
	return b.String()
}

// Errorf prints an error message in red
func (p *Printer) Errorf(format string, args ...any) {
	p.line(p.style.red, Cross, fmt.Sprintf(format, args...))
}

// Successf prints a success message in green
func (p *Printer) Successf(format string, args ...any) {
	p.line(p.style.green, Check, fmt.Sprintf(format, args...))
}

// Infof prints an info message in gray
func (p *Printer) Infof(format string, args ...any) {
	p.line(p.style.gray, Dot, fmt.Sprintf(format, args...))
}

// Warnf prints a warning message in yellow
func (p *Printer) Warnf(format string, args ...any) {
	p.line(p.style.yellow, Dot, fmt.Sprintf(format, args...))
}

// Printf prints a plain message without colors
func (p *Printer) Printf(format string, args ...any) {
	p.write(fmt.Sprintf(format, args...) + "\n")
}

// Notify prints an API failure. It satisfies apiclient.Notifier.
func (p *Printer) Notify(message string) {
	p.Errorf("%s", message)
}

// Section prints a section header (bold + underlined)
func (p *Printer) Section(title string) {
	p.write(p.style.section.Render(title) + "\n")
}

// CheckItem prints a success item with green checkmark
func (p *Printer) CheckItem(label, detail string) {
	p.item(p.style.green, Check, label, detail)
}

// WarnItem prints a warning item with yellow dot
func (p *Printer) WarnItem(label, detail string) {
	p.item(p.style.yellow, Dot, label, detail)
}

// FailItem prints a failure item with red cross
func (p *Printer) FailItem(label, detail string) {
	p.item(p.style.red, Cross, label, detail)
}

func (p *Printer) line(style lipgloss.Style, symbol, msg string) {
	p.write(style.Render(symbol+" "+msg) + "\n")
}

func (p *Printer) item(style lipgloss.Style, symbol, label, detail string) {
	out := "  " + style.Render(symbol) + " " + label
	if detail != "" {
		out += ": " + detail
	}
	p.write(out + "\n")
}

func (p *Printer) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.writer, s)
}
