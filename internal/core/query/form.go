package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
)

// Form holds query inputs as typed by a user, before parsing.
type Form struct {
	SimNo  string `json:"sim"`
	Since  string `json:"since,omitempty"`
	Until  string `json:"until,omitempty"`
	MsgIDs string `json:"msg_ids,omitempty"`
	Xfer   string `json:"xfer,omitempty"`
	MsgID  string `json:"msg_id,omitempty"`
	ExtIDs string `json:"ext_ids,omitempty"`
}

// Parse converts the form into Params. An empty until means now and an empty
// since means lookback before until. All field errors are reported together
// as criterio.FieldErrors.
func (f Form) Parse(now time.Time, lookback time.Duration) (Params, error) {
	var errs criterio.FieldErrorsBuilder

	p := Params{SimNo: strings.TrimSpace(f.SimNo)}

	p.Until = now.Truncate(time.Second)
	if strings.TrimSpace(f.Until) != "" {
		t, err := ParseTime(f.Until)
		if err != nil {
			errs = errs.Append("until", err)
		}
		p.Until = t
	}

	p.Since = p.Until.Add(-lookback)
	if strings.TrimSpace(f.Since) != "" {
		t, err := ParseTime(f.Since)
		if err != nil {
			errs = errs.Append("since", err)
		}
		p.Since = t
	}

	if ids, err := ParseIDs(f.MsgIDs); err != nil {
		errs = errs.Append("msgIds", err)
	} else {
		p.MsgIDs = ids
	}

	if x, err := ParseXfer(f.Xfer); err != nil {
		errs = errs.Append("xfer", err)
	} else {
		p.Xfer = x
	}

	if strings.TrimSpace(f.MsgID) != "" {
		id, err := ParseMsgID(f.MsgID)
		if err != nil {
			errs = errs.Append("msgId", err)
		}
		p.MsgID = id
	}

	if ids, err := ParseExtIDs(f.ExtIDs); err != nil {
		errs = errs.Append("extIds", err)
	} else {
		p.ExtIDs = ids
	}

	return p, errs.ToError()
}

// FormOf renders p back into form inputs.
func FormOf(p Params) Form {
	f := Form{
		SimNo:  p.SimNo,
		MsgIDs: FormatIDs(p.MsgIDs),
		Xfer:   string(p.Xfer),
		ExtIDs: FormatIDs(p.ExtIDs),
	}
	if !p.Since.IsZero() {
		f.Since = p.Since.Format(TimeLayout)
	}
	if !p.Until.IsZero() {
		f.Until = p.Until.Format(TimeLayout)
	}
	if p.MsgID != 0 {
		f.MsgID = fmt.Sprintf("0x%04X", p.MsgID)
	}
	return f
}
