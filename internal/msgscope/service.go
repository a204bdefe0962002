// Package msgscope orchestrates query submissions: it validates the form,
// records the SIM number in history and calls the loghub API.
package msgscope

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/msgscope/internal/apiclient"
	"github.com/hay-kot/msgscope/internal/core/history"
	"github.com/hay-kot/msgscope/internal/core/query"
	"github.com/hay-kot/msgscope/internal/router"
)

// Result is the outcome of one submission.
type Result struct {
	Route   router.Route
	Params  query.Params
	Raw     *query.RawResult
	Bodies  []query.Body
	Elapsed time.Duration
}

// Len returns the number of rows in the result.
func (r Result) Len() int {
	if r.Route.Kind == query.KindRaw {
		if r.Raw == nil {
			return 0
		}
		return len(r.Raw.Msgs)
	}
	return len(r.Bodies)
}

// Service runs queries against the API and keeps the SIM history.
type Service struct {
	history *history.Store
	api     *apiclient.Client
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a new Service. The history store must already be initialized.
func New(h *history.Store, api *apiclient.Client, log zerolog.Logger) *Service {
	return &Service{
		history: h,
		api:     api,
		log:     log,
		now:     time.Now,
	}
}

// Window returns params for simNo covering lookback up to now.
func (s *Service) Window(simNo string, lookback time.Duration) query.Params {
	return query.Window(simNo, s.now(), lookback)
}

// Run validates p for route, commits the SIM number to history and queries
// the route's endpoint. Views with a fixed message id override p.MsgID.
func (s *Service) Run(ctx context.Context, route router.Route, p query.Params) (Result, error) {
	if route.Fixed() {
		p.MsgID = route.MsgID
	}

	res := Result{Route: route, Params: p}

	if err := p.Validate(route.Kind); err != nil {
		return res, err
	}

	s.remember(ctx, p.SimNo)

	start := s.now()
	switch route.Kind {
	case query.KindBody:
		bodies, err := s.fetchBodies(ctx, p)
		if err != nil {
			return res, err
		}
		res.Bodies = bodies
	default:
		raw, err := s.fetchRaw(ctx, p)
		if err != nil {
			return res, err
		}
		res.Raw = raw
	}
	res.Elapsed = s.now().Sub(start)

	s.log.Debug().
		Str("view", route.Name).
		Str("sim", p.SimNo).
		Int("rows", res.Len()).
		Dur("elapsed", res.Elapsed).
		Msg("query complete")

	return res, nil
}

// Raw runs a raw message query.
func (s *Service) Raw(ctx context.Context, p query.Params) (*query.RawResult, error) {
	res, err := s.Run(ctx, router.Default(), p)
	if err != nil {
		return nil, err
	}
	return res.Raw, nil
}

// Body runs a decoded body query for p.MsgID.
func (s *Service) Body(ctx context.Context, p query.Params) ([]query.Body, error) {
	route, _ := router.ByName("body")
	res, err := s.Run(ctx, route, p)
	if err != nil {
		return nil, err
	}
	return res.Bodies, nil
}

// History returns the recorded SIM numbers, oldest first.
func (s *Service) History(_ context.Context) ([]string, error) {
	return s.history.Entries()
}

// MatchHistory returns the recorded SIM numbers matching a glob pattern.
// An empty pattern matches everything.
func (s *Service) MatchHistory(ctx context.Context, pattern string) ([]string, error) {
	entries, err := s.History(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		ok, err := matchSimPattern(pattern, e)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// Remember records simNo in history without running a query.
func (s *Service) Remember(ctx context.Context, simNo string) (history.State, error) {
	return s.history.AddIdentifier(ctx, simNo)
}

// LastView returns the path of the view shown last, or "".
func (s *Service) LastView() string {
	st, err := s.history.State()
	if err != nil {
		return ""
	}
	return st.LastView
}

// SetLastView records the path of the active view.
func (s *Service) SetLastView(ctx context.Context, path string) error {
	_, err := s.history.SetLastView(ctx, path)
	return err
}

// remember commits simNo to history. A failed write keeps the in-memory
// entry and does not fail the query.
func (s *Service) remember(ctx context.Context, simNo string) {
	if _, err := s.history.AddIdentifier(ctx, simNo); err != nil {
		s.log.Warn().Err(err).Str("sim", simNo).Msg("failed to record sim number")
	}
}

func (s *Service) fetchRaw(ctx context.Context, p query.Params) (*query.RawResult, error) {
	raw, err := apiclient.Call[query.RawResult](ctx, s.api, apiclient.Request{
		Path:  query.KindRaw.Path(),
		Query: p.Values(query.KindRaw),
	})
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

func (s *Service) fetchBodies(ctx context.Context, p query.Params) ([]query.Body, error) {
	raws, err := apiclient.Call[[]json.RawMessage](ctx, s.api, apiclient.Request{
		Path:  query.KindBody.Path(),
		Query: p.Values(query.KindBody),
	})
	if err != nil {
		return nil, err
	}

	bodies, err := query.DecodeBodies(p.MsgID, raws)
	if err != nil {
		return nil, err
	}
	return query.FilterExtIDs(bodies, p.ExtIDs), nil
}
