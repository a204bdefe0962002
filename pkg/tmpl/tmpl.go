// Package tmpl renders user supplied output templates.
package tmpl

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// TimeLayout is the layout the ts function formats with.
const TimeLayout = "2006-01-02 15:04:05"

// Hex renders bytes as upper case hex pairs separated by spaces.
func Hex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	s := strings.ToUpper(hex.EncodeToString(b))
	var sb strings.Builder
	sb.Grow(len(s) + len(s)/2)
	for i := 0; i < len(s); i += 2 {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(s[i : i+2])
	}
	return sb.String()
}

// Timestamp formats t in the local zone.
func Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(TimeLayout)
}

// MsgID formats a message id as 0x-prefixed hex.
func MsgID(id uint16) string {
	return fmt.Sprintf("0x%04X", id)
}

var funcs = template.FuncMap{
	"hex":   Hex,
	"ts":    Timestamp,
	"msgid": MsgID,
}

// Template is a parsed output template.
type Template struct {
	t *template.Template
}

// Parse parses a template string. Undefined keys are errors at render time.
//
// Available template functions:
//   - hex: bytes as spaced upper case hex ("7E 02 00")
//   - ts: time as "2006-01-02 15:04:05" in the local zone
//   - msgid: message id as 0x-prefixed hex ("0x0200")
func Parse(text string) (*Template, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Template{t: t}, nil
}

// Render executes the template with data.
func (t *Template) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// Render parses and executes a template string in one step.
func Render(text string, data any) (string, error) {
	t, err := Parse(text)
	if err != nil {
		return "", err
	}
	return t.Render(data)
}
