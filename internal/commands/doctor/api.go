package doctor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Pinger reaches the loghub server.
type Pinger interface {
	Ping(ctx context.Context) (int, error)
	URL(path string, query url.Values) string
}

// APICheck verifies the loghub server answers HTTP.
type APICheck struct {
	api Pinger
}

// NewAPICheck creates a new API reachability check.
func NewAPICheck(api Pinger) *APICheck {
	return &APICheck{api: api}
}

func (c *APICheck) Name() string {
	return "Loghub API"
}

func (c *APICheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.api == nil {
		result.Items = append(result.Items, Fail("Client", "api client not configured"))
		return result
	}

	target := c.api.URL("", nil)
	start := time.Now()
	status, err := c.api.Ping(ctx)
	if err != nil {
		result.Items = append(result.Items, Fail("Reachable", err.Error()))
		return result
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	if status >= http.StatusInternalServerError {
		result.Items = append(result.Items, Warn("Reachable", fmt.Sprintf("%s answered %d %s", target, status, http.StatusText(status))))
		return result
	}
	result.Items = append(result.Items, Pass("Reachable", fmt.Sprintf("%s (%s)", target, elapsed)))
	return result
}
