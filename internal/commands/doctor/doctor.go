// Package doctor runs health checks against the local setup: configuration,
// the loghub API and the durable history slot.
package doctor

import (
	"context"
	"sync"
)

// Status represents the result status of a check item.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name in JSON output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Item is a single line within a check result.
type Item struct {
	Label   string `json:"label"`
	Status  Status `json:"status"`
	Detail  string `json:"detail,omitempty"`
	Fixable bool   `json:"fixable,omitempty"`
}

func Pass(label, detail string) Item {
	return Item{Label: label, Status: StatusPass, Detail: detail}
}

func Warn(label, detail string) Item {
	return Item{Label: label, Status: StatusWarn, Detail: detail}
}

func Fail(label, detail string) Item {
	return Item{Label: label, Status: StatusFail, Detail: detail}
}

// Fixable marks a warning that `doctor --fix` can repair.
func Fixable(label, detail string) Item {
	return Item{Label: label, Status: StatusWarn, Detail: detail, Fixable: true}
}

// Result groups the items produced by one check.
type Result struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Check defines the interface for a doctor check.
type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// Report is the outcome of a doctor run.
type Report struct {
	Healthy bool     `json:"healthy"`
	Passed  int      `json:"passed"`
	Warned  int      `json:"warned"`
	Failed  int      `json:"failed"`
	Fixable int      `json:"fixable"`
	Checks  []Result `json:"checks"`
}

// Run executes checks concurrently and reports them in the order given.
func Run(ctx context.Context, checks ...Check) Report {
	results := make([]Result, len(checks))

	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = check.Run(ctx)
		}()
	}
	wg.Wait()

	return NewReport(results)
}

// NewReport tallies results.
func NewReport(results []Result) Report {
	r := Report{Checks: results}
	for _, res := range results {
		for _, item := range res.Items {
			switch item.Status {
			case StatusPass:
				r.Passed++
			case StatusWarn:
				r.Warned++
			case StatusFail:
				r.Failed++
			}
			if item.Fixable && item.Status != StatusPass {
				r.Fixable++
			}
		}
	}
	r.Healthy = r.Failed == 0
	return r
}
