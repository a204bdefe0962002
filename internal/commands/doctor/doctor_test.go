package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/msgscope/internal/core/config"
	"github.com/hay-kot/msgscope/internal/core/history"
	"github.com/hay-kot/msgscope/internal/store/jsonfile"
)

type stubPinger struct {
	status int
	err    error
}

func (s stubPinger) Ping(context.Context) (int, error) { return s.status, s.err }

func (s stubPinger) URL(string, url.Values) string { return "http://127.0.0.1:6001/api" }

func TestAPICheck(t *testing.T) {
	result := NewAPICheck(stubPinger{}).Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Contains(t, result.Items[0].Detail, "127.0.0.1:6001")

	result = NewAPICheck(stubPinger{err: errors.New("connection refused")}).Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusFail, result.Items[0].Status)
	assert.Equal(t, "connection refused", result.Items[0].Detail)

	result = NewAPICheck(stubPinger{status: 404}).Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)

	result = NewAPICheck(stubPinger{status: 503}).Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusWarn, result.Items[0].Status)
	assert.Contains(t, result.Items[0].Detail, "503 Service Unavailable")

	result = NewAPICheck(nil).Run(context.Background())
	assert.Equal(t, StatusFail, result.Items[0].Status)
}

func TestConfigCheck(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	result := NewConfigCheck(&cfg, "").Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)

	cfg.Storage.Key = ""
	result = NewConfigCheck(&cfg, "").Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusFail, result.Items[0].Status)
	assert.Equal(t, "storage.key", result.Items[0].Label)

	result = NewConfigCheck(nil, "").Run(context.Background())
	assert.Equal(t, StatusFail, result.Items[0].Status)
}

func newSlot(t *testing.T) *jsonfile.SlotStore {
	t.Helper()
	return jsonfile.NewSlotStore(filepath.Join(t.TempDir(), "storage.json"))
}

func TestHistoryCheck_Empty(t *testing.T) {
	result := NewHistoryCheck(newSlot(t), "store", false).Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Equal(t, "no history yet", result.Items[0].Detail)
}

func TestHistoryCheck_Healthy(t *testing.T) {
	ctx := context.Background()
	slot := newSlot(t)
	require.NoError(t, slot.Write(ctx, "store", []byte(`{"simNoHistory":["A1","B2"]}`)))

	result := NewHistoryCheck(slot, "store", false).Run(ctx)
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Equal(t, "2 sim number(s)", result.Items[0].Detail)
}

func TestHistoryCheck_NotNormalized(t *testing.T) {
	ctx := context.Background()
	slot := newSlot(t)
	require.NoError(t, slot.Write(ctx, "store", []byte(`{"simNoHistory":["A1"," A1","","B2"],"lastView":"/query/can"}`)))

	result := NewHistoryCheck(slot, "store", false).Run(ctx)
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusWarn, result.Items[0].Status)
	assert.True(t, result.Items[0].Fixable)
	assert.Equal(t, 1, NewReport([]Result{result}).Fixable)

	result = NewHistoryCheck(slot, "store", true).Run(ctx)
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)

	data, err := slot.Read(ctx, "store")
	require.NoError(t, err)
	var st history.State
	require.NoError(t, json.Unmarshal(data, &st))
	assert.Equal(t, []string{"A1", "B2"}, st.SimNoHistory)
	assert.Equal(t, "/query/can", st.LastView)
}

func TestHistoryCheck_Malformed(t *testing.T) {
	ctx := context.Background()
	slot := newSlot(t)
	require.NoError(t, slot.Write(ctx, "store", []byte(`["not","an","object"]`)))

	result := NewHistoryCheck(slot, "store", false).Run(ctx)
	assert.Equal(t, StatusWarn, result.Items[0].Status)

	result = NewHistoryCheck(slot, "store", true).Run(ctx)
	assert.Equal(t, StatusPass, result.Items[0].Status)

	data, err := slot.Read(ctx, "store")
	require.NoError(t, err)
	assert.JSONEq(t, `{"simNoHistory":[]}`, string(data))
}

func TestHistoryCheck_CorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"slots": {"store": {"simNoHistory": [`), 0o644))
	slot := jsonfile.NewSlotStore(path)

	result := NewHistoryCheck(slot, "store", false).Run(ctx)
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusWarn, result.Items[0].Status)
	assert.True(t, result.Items[0].Fixable)

	result = NewHistoryCheck(slot, "store", true).Run(ctx)
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)

	data, err := slot.Read(ctx, "store")
	require.NoError(t, err)
	assert.JSONEq(t, `{"simNoHistory":[]}`, string(data))
}

func TestRunReport(t *testing.T) {
	report := Run(context.Background(),
		NewAPICheck(stubPinger{}),
		NewAPICheck(stubPinger{err: errors.New("down")}),
		NewHistoryCheck(newSlot(t), "store", false),
	)

	require.Len(t, report.Checks, 3)
	assert.Equal(t, StatusPass, report.Checks[0].Items[0].Status)
	assert.Equal(t, StatusFail, report.Checks[1].Items[0].Status)
	assert.Equal(t, "History Slot", report.Checks[2].Name)

	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 0, report.Warned)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.Healthy)
}

func TestReportJSON(t *testing.T) {
	report := NewReport([]Result{{
		Name:  "History Slot",
		Items: []Item{Fixable("Slot store", "not normalized")},
	}})

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"healthy": true,
		"passed": 0,
		"warned": 1,
		"failed": 0,
		"fixable": 1,
		"checks": [{
			"name": "History Slot",
			"items": [{"label": "Slot store", "status": "warn", "detail": "not normalized", "fixable": true}]
		}]
	}`, string(data))
}
