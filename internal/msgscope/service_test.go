package msgscope

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/msgscope/internal/apiclient"
	"github.com/hay-kot/msgscope/internal/core/history"
	"github.com/hay-kot/msgscope/internal/core/query"
	"github.com/hay-kot/msgscope/internal/router"
	"github.com/hay-kot/msgscope/internal/store/jsonfile"
)

// fakeAPI serves canned envelopes and records the query of every request.
type fakeAPI struct {
	mu       sync.Mutex
	requests []*url.URL
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL)
	f.mu.Unlock()
	f.respond(w, r)
}

func (f *fakeAPI) last() *url.URL {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func writeEnvelope(w http.ResponseWriter, status int, env map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

type fixture struct {
	svc      *Service
	api      *fakeAPI
	store    *history.Store
	slot     *jsonfile.SlotStore
	notifier *apiclient.Recorder
}

func newFixture(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) *fixture {
	t.Helper()

	api := &fakeAPI{respond: respond}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	rec := &apiclient.Recorder{}
	client, err := apiclient.New(srv.URL, apiclient.WithHTTPClient(srv.Client()), apiclient.WithNotifier(rec))
	require.NoError(t, err)

	slot := jsonfile.NewSlotStore(filepath.Join(t.TempDir(), "storage.json"))
	store := history.NewStore(slot)
	_, err = store.Initialize(context.Background())
	require.NoError(t, err)

	svc := New(store, client, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local) }

	return &fixture{svc: svc, api: api, store: store, slot: slot, notifier: rec}
}

func TestService_RunRaw(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/query/raw", r.URL.Path)
		writeEnvelope(w, http.StatusOK, map[string]any{"result": map[string]any{
			"msgs":   []map[string]any{{"timestamp": "2024-03-01T11:30:00Z", "raw": "fgIAfg==", "msgId": 512}},
			"msgIds": []int{512, 1797},
		}})
	})

	p := f.svc.Window(" 13800000000 ", time.Hour)
	p.MsgIDs = mapset.NewSet(query.MsgLocation)
	p.Xfer = query.XferRx

	res, err := f.svc.Run(context.Background(), router.Default(), p)
	require.NoError(t, err)
	require.NotNil(t, res.Raw)
	assert.Equal(t, 1, res.Len())
	assert.Equal(t, []uint16{512, 1797}, res.Raw.SeenIDs())

	q := f.api.last().Query()
	assert.Equal(t, "13800000000", q.Get("simNo"))
	assert.Equal(t, "2024-03-01 11:00:00", q.Get("since"))
	assert.Equal(t, "2024-03-01 12:00:00", q.Get("until"))
	assert.Equal(t, "512", q.Get("msgIds"))
	assert.Equal(t, "rx", q.Get("msgXfer"))

	entries, err := f.svc.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"13800000000"}, entries)
}

func TestService_RunFixedRoute(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/query/body", r.URL.Path)
		writeEnvelope(w, http.StatusOK, map[string]any{"result": []map[string]any{
			{"latitude": 31.2, "extInfo": []map[string]any{{"id": 1, "data": ""}}},
			{"latitude": 31.3, "extInfo": []map[string]any{{"id": 48, "data": ""}}},
		}})
	})

	route, ok := router.ByName("location")
	require.True(t, ok)

	p := f.svc.Window("13800000000", time.Hour)
	p.MsgID = 0x0102
	p.ExtIDs = mapset.NewSet[uint8](48)

	res, err := f.svc.Run(context.Background(), route, p)
	require.NoError(t, err)

	assert.Equal(t, "512", f.api.last().Query().Get("msgId"))
	assert.Equal(t, "48", f.api.last().Query().Get("extIds"))
	assert.Equal(t, query.MsgLocation, res.Params.MsgID)

	require.Len(t, res.Bodies, 1)
	loc, ok := res.Bodies[0].(query.LocationBody)
	require.True(t, ok)
	assert.InDelta(t, 31.3, loc.Latitude, 1e-9)
}

func TestService_Body(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"result": []map[string]any{{"data": "AQI="}}})
	})

	p := f.svc.Window("1", time.Hour)
	p.MsgID = 0x0102

	bodies, err := f.svc.Body(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, bodies, 1)
	assert.IsType(t, query.UnknownBody{}, bodies[0])
}

func TestService_ValidationSkipsHistoryAndAPI(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("api must not be called")
	})

	p := f.svc.Window("   ", time.Hour)
	_, err := f.svc.Run(context.Background(), router.Default(), p)
	require.Error(t, err)

	var fe criterio.FieldErrors
	require.ErrorAs(t, err, &fe)

	entries, err := f.svc.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, f.notifier.Messages())
}

func TestService_ApplicationErrorStillRecordsHistory(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, map[string]any{"error": "bad simNo"})
	})

	_, err := f.svc.Raw(context.Background(), f.svc.Window("A1", time.Hour))

	var appErr *apiclient.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "bad simNo", appErr.Message)
	assert.Equal(t, []string{"bad simNo"}, f.notifier.Messages())

	entries, err := f.svc.History(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, entries)
}

func TestService_HistorySkipsDuplicates(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, map[string]any{"result": map[string]any{"msgs": []any{}, "msgIds": []any{}}})
	})
	ctx := context.Background()

	for _, sim := range []string{"A1", "B2", " A1 "} {
		_, err := f.svc.Raw(ctx, f.svc.Window(sim, time.Hour))
		require.NoError(t, err)
	}

	entries, err := f.svc.History(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, entries)

	reloaded := history.NewStore(f.slot)
	st, err := reloaded.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "B2"}, st.SimNoHistory)
}

func TestService_MatchHistory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, sim := range []string{"13800000000", "13900000000", "15000000000"} {
		_, err := f.svc.Remember(ctx, sim)
		require.NoError(t, err)
	}

	got, err := f.svc.MatchHistory(ctx, "13*")
	require.NoError(t, err)
	assert.Equal(t, []string{"13800000000", "13900000000"}, got)

	got, err = f.svc.MatchHistory(ctx, "")
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = f.svc.MatchHistory(ctx, "[")
	require.Error(t, err)
}

func TestService_LastView(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	assert.Empty(t, f.svc.LastView())
	require.NoError(t, f.svc.SetLastView(ctx, "/query/can"))
	assert.Equal(t, "/query/can", f.svc.LastView())

	reloaded := history.NewStore(f.slot)
	st, err := reloaded.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/query/can", st.LastView)
}
