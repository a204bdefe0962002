package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/hay-kot/msgscope/internal/core/history"
)

// HistoryCheck inspects the durable history slot. Malformed or
// non-normalized contents are reported and, with fix, rewritten.
type HistoryCheck struct {
	slot history.Slot
	key  string
	fix  bool
}

// NewHistoryCheck creates a new history slot check.
// If fix is true, malformed or non-normalized slots are rewritten.
func NewHistoryCheck(slot history.Slot, key string, fix bool) *HistoryCheck {
	return &HistoryCheck{
		slot: slot,
		key:  key,
		fix:  fix,
	}
}

func (c *HistoryCheck) Name() string {
	return "History Slot"
}

func (c *HistoryCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	data, err := c.slot.Read(ctx, c.key)
	switch {
	case errors.Is(err, history.ErrSlotNotFound):
		result.Items = append(result.Items, Pass(c.label(), "no history yet"))
		return result
	case errors.Is(err, history.ErrSlotCorrupt):
		return c.repair(ctx, result, history.DefaultState(), "storage file does not parse, resets to empty history")
	case err != nil:
		result.Items = append(result.Items, Fail("Read slot", err.Error()))
		return result
	}

	var stored history.State
	if err := json.Unmarshal(data, &stored); err != nil {
		return c.repair(ctx, result, history.DefaultState(), fmt.Sprintf("malformed (%v), resets to empty history", err))
	}

	normalized := history.Normalize(stored)
	if !slices.Equal(stored.SimNoHistory, normalized.SimNoHistory) {
		return c.repair(ctx, result, normalized, fmt.Sprintf("not normalized (%d of %d entries kept)",
			len(normalized.SimNoHistory), len(stored.SimNoHistory)))
	}

	result.Items = append(result.Items, Pass(c.label(), fmt.Sprintf("%d sim number(s)", len(normalized.SimNoHistory))))
	return result
}

func (c *HistoryCheck) repair(ctx context.Context, result Result, st history.State, problem string) Result {
	if !c.fix {
		result.Items = append(result.Items, Fixable(c.label(), problem))
		return result
	}

	data, err := json.Marshal(st)
	if err == nil {
		err = c.slot.Write(ctx, c.key, data)
	}
	if err != nil {
		result.Items = append(result.Items, Fail(c.label(), fmt.Sprintf("failed to rewrite: %v", err)))
		return result
	}

	result.Items = append(result.Items, Pass(c.label(), fmt.Sprintf("rewritten with %d sim number(s)", len(st.SimNoHistory))))
	return result
}

func (c *HistoryCheck) label() string {
	return "Slot " + c.key
}
