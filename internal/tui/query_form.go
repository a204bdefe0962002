package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/msgscope/internal/core/query"
	"github.com/hay-kot/msgscope/internal/router"
	"github.com/hay-kot/msgscope/internal/styles"
)

// Field keys. They double as query.Form field names.
const (
	fieldSim    = "sim"
	fieldSince  = "since"
	fieldUntil  = "until"
	fieldMsgIDs = "msg_ids"
	fieldXfer   = "xfer"
	fieldMsgID  = "msg_id"
	fieldExtIDs = "ext_ids"
)

type formField struct {
	key   string
	label string
	input textinput.Model
}

// QueryForm is the set of inputs for one view. Which fields exist depends on
// the route kind: raw views filter by message ids and direction, body views
// by message id (unless fixed) and extension ids.
type QueryForm struct {
	route  router.Route
	fields []formField
	focus  int
}

// NewQueryForm builds the form for route with values taken from f.
func NewQueryForm(route router.Route, f query.Form) QueryForm {
	fields := []formField{
		newField(fieldSim, "SIM", "13800000000", f.SimNo),
		newField(fieldSince, "Since", query.TimeLayout, f.Since),
		newField(fieldUntil, "Until", query.TimeLayout, f.Until),
	}

	switch route.Kind {
	case query.KindRaw:
		fields = append(fields,
			newField(fieldMsgIDs, "Msg IDs", "0x0200,0x0705", f.MsgIDs),
			newField(fieldXfer, "Xfer", "all | tx | rx", f.Xfer),
		)
	case query.KindBody:
		if !route.Fixed() {
			fields = append(fields, newField(fieldMsgID, "Msg ID", "0x0200", f.MsgID))
		}
		fields = append(fields, newField(fieldExtIDs, "Ext IDs", "1,48", f.ExtIDs))
	}

	qf := QueryForm{route: route, fields: fields}
	qf.setFocus(0)
	return qf
}

func newField(key, label, placeholder, value string) formField {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.CharLimit = 256
	in.Width = 40
	in.TextStyle = lipgloss.NewStyle().Foreground(styles.ColorWhite)
	in.SetValue(value)
	return formField{key: key, label: label, input: in}
}

// Route returns the view the form belongs to.
func (f QueryForm) Route() router.Route {
	return f.route
}

// Keys returns the field keys in display order.
func (f QueryForm) Keys() []string {
	keys := make([]string, len(f.fields))
	for i, fld := range f.fields {
		keys[i] = fld.key
	}
	return keys
}

// Focused returns the key of the focused field.
func (f QueryForm) Focused() string {
	return f.fields[f.focus].key
}

// Value returns the text of the field with key, or "" if the view has no such
// field.
func (f QueryForm) Value(key string) string {
	for _, fld := range f.fields {
		if fld.key == key {
			return fld.input.Value()
		}
	}
	return ""
}

// SetValue replaces the text of the field with key.
func (f *QueryForm) SetValue(key, value string) {
	for i := range f.fields {
		if f.fields[i].key == key {
			f.fields[i].input.SetValue(value)
			f.fields[i].input.CursorEnd()
			return
		}
	}
}

// Form collects the current inputs. Fields the view does not show keep
// their values from base, so switching views does not lose them.
func (f QueryForm) Form(base query.Form) query.Form {
	out := base
	for _, fld := range f.fields {
		v := strings.TrimSpace(fld.input.Value())
		switch fld.key {
		case fieldSim:
			out.SimNo = v
		case fieldSince:
			out.Since = v
		case fieldUntil:
			out.Until = v
		case fieldMsgIDs:
			out.MsgIDs = v
		case fieldXfer:
			out.Xfer = v
		case fieldMsgID:
			out.MsgID = v
		case fieldExtIDs:
			out.ExtIDs = v
		}
	}
	return out
}

// NextField moves focus down, wrapping around.
func (f *QueryForm) NextField() {
	f.setFocus((f.focus + 1) % len(f.fields))
}

// PrevField moves focus up, wrapping around.
func (f *QueryForm) PrevField() {
	f.setFocus((f.focus - 1 + len(f.fields)) % len(f.fields))
}

// Blur removes the cursor from every field.
func (f *QueryForm) Blur() {
	for i := range f.fields {
		f.fields[i].input.Blur()
	}
}

// Focus restores the cursor on the focused field.
func (f *QueryForm) Focus() tea.Cmd {
	return f.fields[f.focus].input.Focus()
}

func (f *QueryForm) setFocus(i int) {
	f.focus = i
	for j := range f.fields {
		if j == i {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
}

// Update forwards msg to the focused field.
func (f QueryForm) Update(msg tea.Msg) (QueryForm, tea.Cmd) {
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return f, cmd
}

func (f QueryForm) View() string {
	lines := make([]string, 0, len(f.fields))
	for i, fld := range f.fields {
		label := styles.LabelStyle.Render(fld.label)
		if i == f.focus && fld.input.Focused() {
			label = styles.FocusedLabelStyle.Render(fld.label)
		}
		lines = append(lines, label+" "+fld.input.View())
	}
	return formStyle.Render(strings.Join(lines, "\n"))
}
