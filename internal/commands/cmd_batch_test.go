package commands

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"

	"github.com/hay-kot/msgscope/internal/core/query"
	"github.com/hay-kot/msgscope/internal/msgscope"
	"github.com/hay-kot/msgscope/internal/router"
)

func batchFields(err error) []string {
	var fe criterio.FieldErrors
	if !errors.As(err, &fe) {
		return nil
	}
	out := make([]string, 0, len(fe))
	for _, f := range fe {
		out = append(out, f.Field)
	}
	return out
}

func TestBatchInput_Validate(t *testing.T) {
	tests := []struct {
		name      string
		input     BatchInput
		wantField string
	}{
		{
			name:      "empty queries",
			input:     BatchInput{Queries: []BatchQuery{}},
			wantField: "queries",
		},
		{
			name: "missing sim",
			input: BatchInput{Queries: []BatchQuery{
				{View: "raw"},
			}},
			wantField: "queries[0].sim",
		},
		{
			name: "whitespace sim",
			input: BatchInput{Queries: []BatchQuery{
				{View: "raw", Form: query.Form{SimNo: "13800000001"}},
				{Form: query.Form{SimNo: "   "}},
			}},
			wantField: "queries[1].sim",
		},
		{
			name: "unknown view",
			input: BatchInput{Queries: []BatchQuery{
				{View: "gps", Form: query.Form{SimNo: "13800000001"}},
			}},
			wantField: "queries[0].view",
		},
		{
			name: "valid input",
			input: BatchInput{Queries: []BatchQuery{
				{View: "location", Form: query.Form{SimNo: "13800000001"}},
				{View: "/query/can", Form: query.Form{SimNo: "13800000002"}},
				{Form: query.Form{SimNo: "13800000003"}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Errorf("expected error for field %q, got nil", tt.wantField)
				return
			}
			if fields := batchFields(err); !slices.Contains(fields, tt.wantField) {
				t.Errorf("expected error for field %q, got fields %v (%v)", tt.wantField, fields, err)
			}
		})
	}
}

func TestBatchInput_JSON(t *testing.T) {
	jsonInput := `{
		"queries": [
			{"view": "raw", "sim": "13800000001", "msg_ids": "0x0200", "xfer": "rx"},
			{"view": "location", "sim": "13800000002", "since": "2024-03-01 11:00:00", "ext_ids": "1,48"}
		]
	}`

	input, err := decodeBatchInput(strings.NewReader(jsonInput))
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	if len(input.Queries) != 2 {
		t.Fatalf("expected 2 queries, got %d", len(input.Queries))
	}

	if input.Queries[0].SimNo != "13800000001" {
		t.Errorf("expected sim '13800000001', got %q", input.Queries[0].SimNo)
	}

	if input.Queries[0].Xfer != "rx" {
		t.Errorf("expected xfer 'rx', got %q", input.Queries[0].Xfer)
	}

	if input.Queries[1].Route().Path != "/query/location" {
		t.Errorf("expected location route, got %q", input.Queries[1].Route().Path)
	}

	if input.Queries[1].ExtIDs != "1,48" {
		t.Errorf("expected ext ids, got %q", input.Queries[1].ExtIDs)
	}
}

func TestBatchQuery_RouteDefault(t *testing.T) {
	q := BatchQuery{Form: query.Form{SimNo: "13800000001"}}
	if got := q.Route(); got.Path != router.DefaultPath {
		t.Errorf("expected default route, got %q", got.Path)
	}
}

func TestBatchOutput_JSON(t *testing.T) {
	output := BatchOutput{
		BatchID: "abc123",
		Results: []BatchResult{
			{View: "raw", SimNo: "13800000001", Status: StatusOK, Rows: 4},
			{View: "location", SimNo: "13800000002", Status: StatusFailed, Error: "device offline"},
			{View: "can", SimNo: "13800000003", Status: StatusSkipped},
		},
	}

	data, err := json.Marshal(output)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded BatchOutput
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.BatchID != "abc123" {
		t.Errorf("expected batch_id 'abc123', got %q", decoded.BatchID)
	}

	if len(decoded.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(decoded.Results))
	}

	if decoded.Results[0].Rows != 4 {
		t.Errorf("expected 4 rows, got %d", decoded.Results[0].Rows)
	}

	if decoded.Results[1].Error != "device offline" {
		t.Errorf("expected error message, got %q", decoded.Results[1].Error)
	}

	if decoded.Results[2].Status != StatusSkipped {
		t.Errorf("expected status 'skipped', got %q", decoded.Results[2].Status)
	}
}

func TestBatchErrorOutput_JSON(t *testing.T) {
	var sb strings.Builder
	err := writeBatchError(&sb, errors.New("something went wrong"))
	if err == nil || err.Error() != "something went wrong" {
		t.Errorf("expected original error back, got %v", err)
	}

	var decoded BatchErrorOutput
	if err := json.Unmarshal([]byte(sb.String()), &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.Error != "something went wrong" {
		t.Errorf("expected error message, got %q", decoded.Error)
	}
}

func TestCountByStatus(t *testing.T) {
	results := []BatchResult{
		{Status: StatusOK},
		{Status: StatusOK},
		{Status: StatusFailed},
		{Status: StatusSkipped},
		{Status: StatusSkipped},
		{Status: StatusSkipped},
	}

	if got := countByStatus(results, StatusOK); got != 2 {
		t.Errorf("countByStatus(ok) = %d, want 2", got)
	}
	if got := countByStatus(results, StatusFailed); got != 1 {
		t.Errorf("countByStatus(failed) = %d, want 1", got)
	}
	if got := countByStatus(results, StatusSkipped); got != 3 {
		t.Errorf("countByStatus(skipped) = %d, want 3", got)
	}
}

// fakeRunner fails for SIM numbers listed in fail and records every call.
type fakeRunner struct {
	fail  map[string]bool
	calls []query.Params
}

func (f *fakeRunner) Run(_ context.Context, route router.Route, p query.Params) (msgscope.Result, error) {
	f.calls = append(f.calls, p)
	if f.fail[p.SimNo] {
		return msgscope.Result{}, errors.New("device offline")
	}
	return msgscope.Result{
		Route:  route,
		Params: p,
		Raw:    &query.RawResult{Msgs: []query.RawMsg{{}, {}}},
	}, nil
}

func TestRunBatch(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local)

	t.Run("runs every query", func(t *testing.T) {
		runner := &fakeRunner{}
		input := BatchInput{Queries: []BatchQuery{
			{View: "raw", Form: query.Form{SimNo: "13800000001"}},
			{View: "raw", Form: query.Form{SimNo: " 13800000002 "}},
		}}

		out := runBatch(context.Background(), runner, input, now, time.Hour, zerolog.Nop())

		if got := countByStatus(out.Results, StatusOK); got != 2 {
			t.Fatalf("expected 2 ok results, got %d", got)
		}
		if out.Results[1].SimNo != "13800000002" {
			t.Errorf("expected trimmed sim, got %q", out.Results[1].SimNo)
		}
		if out.Results[0].Rows != 2 {
			t.Errorf("expected 2 rows, got %d", out.Results[0].Rows)
		}
		if !runner.calls[0].Since.Equal(now.Add(-time.Hour)) {
			t.Errorf("expected since one hour before now, got %v", runner.calls[0].Since)
		}
	})

	t.Run("parse errors fail without calling the service", func(t *testing.T) {
		runner := &fakeRunner{}
		input := BatchInput{Queries: []BatchQuery{
			{View: "raw", Form: query.Form{SimNo: "13800000001", Xfer: "sideways"}},
		}}

		out := runBatch(context.Background(), runner, input, now, time.Hour, zerolog.Nop())

		if out.Results[0].Status != StatusFailed {
			t.Errorf("expected failed status, got %q", out.Results[0].Status)
		}
		if len(runner.calls) != 0 {
			t.Errorf("expected no service calls, got %d", len(runner.calls))
		}
	})

	t.Run("stops after max failures", func(t *testing.T) {
		runner := &fakeRunner{fail: map[string]bool{"1": true, "2": true, "3": true}}
		input := BatchInput{Queries: []BatchQuery{
			{Form: query.Form{SimNo: "1"}},
			{Form: query.Form{SimNo: "ok"}},
			{Form: query.Form{SimNo: "2"}},
			{Form: query.Form{SimNo: "3"}},
			{Form: query.Form{SimNo: "4"}},
			{View: "can", Form: query.Form{SimNo: "5"}},
		}}

		out := runBatch(context.Background(), runner, input, now, time.Hour, zerolog.Nop())

		if len(out.Results) != len(input.Queries) {
			t.Fatalf("expected %d results, got %d", len(input.Queries), len(out.Results))
		}
		if got := countByStatus(out.Results, StatusFailed); got != maxFailures {
			t.Errorf("expected %d failures, got %d", maxFailures, got)
		}
		if got := countByStatus(out.Results, StatusSkipped); got != 2 {
			t.Errorf("expected 2 skipped, got %d", got)
		}
		if out.Results[5].View != "can" {
			t.Errorf("expected skipped result to keep its view, got %q", out.Results[5].View)
		}
		if len(runner.calls) != 4 {
			t.Errorf("expected 4 service calls, got %d", len(runner.calls))
		}
	})
}
