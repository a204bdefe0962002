package msgscope

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/hay-kot/msgscope/internal/core/query"
	"github.com/hay-kot/msgscope/pkg/tmpl"
)

// OutputOptions selects how a Result is written. Template wins over JSON.
type OutputOptions struct {
	JSON     bool
	Template *tmpl.Template
}

// Write renders res to w as a table, JSON or one template line per row.
func Write(w io.Writer, res Result, opts OutputOptions) error {
	switch {
	case opts.Template != nil:
		return writeTemplate(w, res, opts.Template)
	case opts.JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if res.Route.Kind == query.KindRaw {
			return enc.Encode(res.Raw)
		}
		return enc.Encode(res.Bodies)
	default:
		return writeTable(w, res)
	}
}

func writeTemplate(w io.Writer, res Result, t *tmpl.Template) error {
	for _, row := range rows(res) {
		line, err := t.Render(row)
		if err != nil {
			return err
		}
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

func rows(res Result) []any {
	if res.Route.Kind == query.KindRaw {
		if res.Raw == nil {
			return nil
		}
		out := make([]any, len(res.Raw.Msgs))
		for i, m := range res.Raw.Msgs {
			out[i] = m
		}
		return out
	}
	out := make([]any, len(res.Bodies))
	for i, b := range res.Bodies {
		out[i] = b
	}
	return out
}

// Table is a result rendered as columns and string cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Tabulate converts res into a Table. The column set depends on the view.
func Tabulate(res Result) Table {
	if res.Route.Kind == query.KindRaw {
		return rawTable(res.Raw)
	}

	switch res.Params.MsgID {
	case query.MsgLocation:
		return locationTable(res.Bodies)
	case query.MsgCANData:
		return canTable(res.Bodies)
	default:
		return unknownTable(res.Bodies)
	}
}

func rawTable(raw *query.RawResult) Table {
	t := Table{Columns: []string{"TIME", "DIR", "MSG", "SN", "PART", "RAW", "WARNINGS"}}
	if raw == nil {
		return t
	}
	for _, m := range raw.Msgs {
		part := ""
		if m.PartTotal > 1 {
			part = fmt.Sprintf("%d/%d", m.PartIndex+1, m.PartTotal)
		}
		t.Rows = append(t.Rows, []string{
			tmpl.Timestamp(m.Timestamp),
			m.Direction(),
			tmpl.MsgID(m.MsgID),
			strconv.Itoa(int(m.MsgSN)),
			part,
			tmpl.Hex(m.Raw),
			strings.Join(m.Warnings, "; "),
		})
	}
	return t
}

func locationTable(bodies []query.Body) Table {
	t := Table{Columns: []string{"TIME", "LAT", "LNG", "ALT", "SPEED", "DIR", "ALARM", "STATUS", "EXT", "WARNINGS"}}
	for _, b := range bodies {
		loc, ok := b.(query.LocationBody)
		if !ok {
			continue
		}
		ext := make([]string, 0, len(loc.ExtInfo))
		for _, e := range loc.ExtInfo {
			ext = append(ext, fmt.Sprintf("%02X:%s", e.ID, strings.ReplaceAll(tmpl.Hex(e.Data), " ", "")))
		}
		t.Rows = append(t.Rows, []string{
			tmpl.Timestamp(loc.Time),
			strconv.FormatFloat(loc.Latitude, 'f', 6, 64),
			strconv.FormatFloat(loc.Longitude, 'f', 6, 64),
			strconv.Itoa(int(loc.Altitude)),
			strconv.FormatFloat(loc.Speed, 'f', 1, 64),
			strconv.Itoa(int(loc.Direction)),
			fmt.Sprintf("%08X", loc.Alarm),
			fmt.Sprintf("%08X", loc.Status),
			strings.Join(ext, " "),
			strings.Join(loc.Warnings, "; "),
		})
	}
	return t
}

func canTable(bodies []query.Body) Table {
	t := Table{Columns: []string{"TIME", "CAN ID", "FLAGS", "DATA", "WARNINGS"}}
	for _, b := range bodies {
		can, ok := b.(query.CANBody)
		if !ok {
			continue
		}
		for _, item := range can.Items {
			t.Rows = append(t.Rows, []string{
				tmpl.Timestamp(can.Time),
				fmt.Sprintf("%08X", item.ID),
				fmt.Sprintf("%02X", item.Flags),
				tmpl.Hex(item.Data),
				strings.Join(can.Warnings, "; "),
			})
		}
	}
	return t
}

func unknownTable(bodies []query.Body) Table {
	t := Table{Columns: []string{"TIME", "DATA", "WARNINGS"}}
	for _, b := range bodies {
		h := b.Header()
		data := ""
		if u, ok := b.(query.UnknownBody); ok {
			data = tmpl.Hex(u.Data)
		}
		t.Rows = append(t.Rows, []string{tmpl.Timestamp(h.Timestamp), data, strings.Join(h.Warnings, "; ")})
	}
	return t
}

func writeTable(w io.Writer, res Result) error {
	t := Tabulate(res)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
