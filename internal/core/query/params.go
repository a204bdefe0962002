// Package query defines the loghub query parameters and result shapes.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hay-kot/criterio"

	"github.com/hay-kot/msgscope/internal/core/validate"
)

// TimeLayout is the time format the API accepts for since/until.
const TimeLayout = "2006-01-02 15:04:05"

// Kind selects the API endpoint a view queries.
type Kind string

const (
	KindRaw  Kind = "raw"
	KindBody Kind = "body"
)

// Path returns the API path for the kind, relative to the API base path.
func (k Kind) Path() string {
	return "/query/" + string(k)
}

// Xfer filters raw messages by direction.
type Xfer string

const (
	XferAll Xfer = ""
	XferTx  Xfer = "tx"
	XferRx  Xfer = "rx"
)

// ParseXfer parses a direction filter. "", "all" and "tx,rx" mean both.
func ParseXfer(s string) (Xfer, error) {
	tx, rx := false, false
	for _, part := range strings.Split(strings.ToLower(s), ",") {
		switch strings.TrimSpace(part) {
		case "":
		case "all":
			tx, rx = true, true
		case "tx":
			tx = true
		case "rx":
			rx = true
		default:
			return XferAll, fmt.Errorf("invalid direction %q (want tx, rx or all)", part)
		}
	}

	switch {
	case tx && !rx:
		return XferTx, nil
	case rx && !tx:
		return XferRx, nil
	default:
		return XferAll, nil
	}
}

// Params are the inputs of a query form.
type Params struct {
	SimNo string
	Since time.Time
	Until time.Time

	// Raw view filters.
	MsgIDs mapset.Set[uint16]
	Xfer   Xfer

	// Body view filters.
	MsgID  uint16
	ExtIDs mapset.Set[uint8]
}

// Window returns params for simNo covering the lookback period ending at now.
func Window(simNo string, now time.Time, lookback time.Duration) Params {
	return Params{
		SimNo: strings.TrimSpace(simNo),
		Since: now.Add(-lookback).Truncate(time.Second),
		Until: now.Truncate(time.Second),
	}
}

// Validate checks the params for a query of the given kind.
func (p Params) Validate(kind Kind) error {
	var errs criterio.FieldErrorsBuilder

	if err := validate.SimNo(p.SimNo); err != nil {
		errs = errs.Append("simNo", err)
	}

	switch {
	case p.Since.IsZero():
		errs = errs.Append("since", errors.New("is required"))
	case p.Until.IsZero():
		errs = errs.Append("until", errors.New("is required"))
	case !p.Since.Before(p.Until):
		errs = errs.Append("until", fmt.Errorf("must be after since (%s)", p.Since.Format(TimeLayout)))
	}

	if kind == KindBody && p.MsgID == 0 {
		errs = errs.Append("msgId", errors.New("is required for body queries"))
	}

	return errs.ToError()
}

// Values encodes the params as API query parameters for the given kind.
func (p Params) Values(kind Kind) url.Values {
	v := url.Values{}
	v.Set("simNo", strings.TrimSpace(p.SimNo))
	v.Set("since", p.Since.Format(TimeLayout))
	v.Set("until", p.Until.Format(TimeLayout))

	switch kind {
	case KindRaw:
		if ids := FormatIDs(p.MsgIDs); ids != "" {
			v.Set("msgIds", ids)
		}
		if p.Xfer != XferAll {
			v.Set("msgXfer", string(p.Xfer))
		}
	case KindBody:
		v.Set("msgId", strconv.Itoa(int(p.MsgID)))
		if ids := FormatIDs(p.ExtIDs); ids != "" {
			v.Set("extIds", ids)
		}
	}

	return v
}

// ParseTime parses a form time in the local time zone.
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q (want %s)", s, TimeLayout)
	}
	return t, nil
}

// ParseMsgID parses a single message id, decimal or 0x-prefixed hex.
func ParseMsgID(s string) (uint16, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid message id %q", s)
	}
	return uint16(n), nil
}

// ParseIDs parses a comma separated list of message ids. Duplicates collapse.
func ParseIDs(s string) (mapset.Set[uint16], error) {
	return parseSet[uint16](s, 16, "message id")
}

// ParseExtIDs parses a comma separated list of 0x0200 extra info ids.
func ParseExtIDs(s string) (mapset.Set[uint8], error) {
	return parseSet[uint8](s, 8, "extra info id")
}

type id interface {
	~uint8 | ~uint16
}

func parseSet[T id](s string, bits int, what string) (mapset.Set[T], error) {
	out := mapset.NewThreadUnsafeSet[T]()
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseUint(part, 0, bits)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", what, part)
		}
		out.Add(T(n))
	}
	return out, nil
}

// FormatIDs renders a set as a sorted, comma separated decimal list.
func FormatIDs[T id](set mapset.Set[T]) string {
	if set == nil || set.Cardinality() == 0 {
		return ""
	}
	ids := set.ToSlice()
	slices.Sort(ids)
	parts := make([]string, len(ids))
	for i, n := range ids {
		parts[i] = strconv.FormatUint(uint64(n), 10)
	}
	return strings.Join(parts, ",")
}
