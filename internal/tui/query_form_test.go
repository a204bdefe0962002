package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/msgscope/internal/core/query"
	"github.com/hay-kot/msgscope/internal/router"
)

func route(t *testing.T, name string) router.Route {
	t.Helper()
	r, ok := router.ByName(name)
	if !ok {
		t.Fatalf("unknown route %q", name)
	}
	return r
}

func TestNewQueryForm_FieldsPerView(t *testing.T) {
	tests := []struct {
		view string
		want []string
	}{
		{"raw", []string{fieldSim, fieldSince, fieldUntil, fieldMsgIDs, fieldXfer}},
		{"body", []string{fieldSim, fieldSince, fieldUntil, fieldMsgID, fieldExtIDs}},
		{"location", []string{fieldSim, fieldSince, fieldUntil, fieldExtIDs}},
		{"can", []string{fieldSim, fieldSince, fieldUntil, fieldExtIDs}},
	}

	for _, tt := range tests {
		t.Run(tt.view, func(t *testing.T) {
			f := NewQueryForm(route(t, tt.view), query.Form{})
			assert.Equal(t, tt.want, f.Keys())
			assert.Equal(t, fieldSim, f.Focused())
		})
	}
}

func TestQueryForm_FormKeepsHiddenValues(t *testing.T) {
	base := query.Form{SimNo: "13800000001", Xfer: "rx", MsgIDs: "0x0200"}
	f := NewQueryForm(route(t, "location"), base)

	assert.Equal(t, "13800000001", f.Value(fieldSim))
	assert.Empty(t, f.Value(fieldXfer), "location view has no xfer field")

	f.SetValue(fieldSim, " 13800000002 ")
	f.SetValue(fieldExtIDs, "1,48")

	got := f.Form(base)
	assert.Equal(t, "13800000002", got.SimNo)
	assert.Equal(t, "1,48", got.ExtIDs)
	assert.Equal(t, "rx", got.Xfer)
	assert.Equal(t, "0x0200", got.MsgIDs)
}

func TestQueryForm_FieldFocusWraps(t *testing.T) {
	f := NewQueryForm(route(t, "can"), query.Form{})

	f.PrevField()
	assert.Equal(t, fieldExtIDs, f.Focused())

	f.NextField()
	assert.Equal(t, fieldSim, f.Focused())

	f.NextField()
	assert.Equal(t, fieldSince, f.Focused())
}
