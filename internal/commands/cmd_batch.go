package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/msgscope/internal/core/query"
	"github.com/hay-kot/msgscope/internal/core/validate"
	"github.com/hay-kot/msgscope/internal/msgscope"
	"github.com/hay-kot/msgscope/internal/router"
	"github.com/hay-kot/msgscope/pkg/randid"
)

const (
	// StatusOK indicates the query ran successfully.
	StatusOK = "ok"
	// StatusFailed indicates the query failed.
	StatusFailed = "failed"
	// StatusSkipped indicates the query was not attempted due to failure threshold.
	StatusSkipped = "skipped"

	// maxFailures is the number of failures before stopping batch processing.
	maxFailures = 3
)

// BatchInput is the JSON input schema for batch queries.
type BatchInput struct {
	Queries []BatchQuery `json:"queries"`
}

// BatchQuery is one query of a batch: a view plus its form inputs.
type BatchQuery struct {
	View string `json:"view"`
	query.Form
}

// Validate checks the batch input for errors using criterio.
func (b BatchInput) Validate() error {
	if len(b.Queries) == 0 {
		return criterio.NewFieldErrors("queries", fmt.Errorf("array is empty"))
	}

	var errs criterio.FieldErrorsBuilder

	for i, q := range b.Queries {
		field := fmt.Sprintf("queries[%d]", i)

		if q.View != "" {
			if _, ok := router.ByName(q.View); !ok {
				errs = errs.Append(field+".view", fmt.Errorf("unknown view %q", q.View))
			}
		}

		if err := validate.SimNo(q.SimNo); err != nil {
			errs = errs.Append(field+".sim", err)
		}
	}

	return errs.ToError()
}

// Route returns the query's view, defaulting to raw.
func (q BatchQuery) Route() router.Route {
	if r, ok := router.ByName(q.View); ok {
		return r
	}
	return router.Default()
}

// BatchResult is the output for a single query.
type BatchResult struct {
	View   string `json:"view"`
	SimNo  string `json:"sim"`
	Status string `json:"status"`
	Rows   int    `json:"rows"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchOutput is the JSON output schema.
type BatchOutput struct {
	BatchID string        `json:"batch_id"`
	Results []BatchResult `json:"results"`
}

// BatchErrorOutput is the JSON output for fatal errors.
type BatchErrorOutput struct {
	Error string `json:"error"`
}

// queryRunner runs one query.
type queryRunner interface {
	Run(ctx context.Context, route router.Route, p query.Params) (msgscope.Result, error)
}

type BatchCmd struct {
	flags *Flags
	file  string
}

func NewBatchCmd(flags *Flags) *BatchCmd {
	return &BatchCmd{flags: flags}
}

func (cmd *BatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "batch",
		Usage: "Run multiple queries from JSON input",
		UsageText: `msgscope batch [options]

Read from stdin:
  echo '{"queries":[{"view":"location","sim":"13800000000"}]}' | msgscope batch

Read from file:
  msgscope batch -f queries.json`,
		Description: `Runs multiple queries described by a JSON document.

Queries run sequentially and every SIM number is recorded in history.
Processing stops after 3 failures. Queries not attempted are marked as skipped.

Input JSON schema:
  {
    "queries": [
      {
        "view": "raw|body|location|can",
        "sim": "13800000000",
        "since": "2006-01-02 15:04:05",
        "until": "2006-01-02 15:04:05",
        "msg_ids": "0x0200,0x0705",
        "xfer": "tx|rx|all",
        "msg_id": "0x0200",
        "ext_ids": "1,48"
      }
    ]
  }

Fields:
  view  - Optional. View name or path, defaults to raw.
  sim   - Required. Terminal SIM number.
  since - Optional. Defaults to query.lookback before until.
  until - Optional. Defaults to now.

Output is JSON with a batch ID and the result of each query.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to JSON file (reads from stdin if not provided)",
				Destination: &cmd.file,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *BatchCmd) run(ctx context.Context, c *cli.Command) error {
	batchID := randid.Generate(6)
	logger := log.With().Str("component", "batch").Str("batch_id", batchID).Logger()
	out := c.Root().Writer

	logger.Info().Msg("starting batch processing")

	input, err := cmd.readInput()
	if err != nil {
		logger.Error().Err(err).Msg("failed to read input")
		return writeBatchError(out, fmt.Errorf("read input: %w", err))
	}

	if err := input.Validate(); err != nil {
		logger.Error().Err(err).Msg("input validation failed")
		return writeBatchError(out, fmt.Errorf("invalid input: %w", err))
	}

	output := runBatch(ctx, cmd.flags.Service, input, time.Now(), cmd.flags.Config.Query.Lookback, logger)
	output.BatchID = batchID

	return writeBatchOutput(out, output)
}

func runBatch(ctx context.Context, svc queryRunner, input BatchInput, now time.Time, lookback time.Duration, logger zerolog.Logger) BatchOutput {
	output := BatchOutput{Results: make([]BatchResult, 0, len(input.Queries))}

	failures := 0
	for i, q := range input.Queries {
		route := q.Route()

		if failures >= maxFailures {
			logger.Warn().Int("index", i).Msg("skipping remaining queries due to failure threshold")
			for _, rest := range input.Queries[i:] {
				output.Results = append(output.Results, BatchResult{
					View:   rest.Route().Name,
					SimNo:  strings.TrimSpace(rest.SimNo),
					Status: StatusSkipped,
				})
			}
			break
		}

		logger.Info().Str("view", route.Name).Str("sim", q.SimNo).Int("index", i).Msg("running query")

		result := runBatchQuery(ctx, svc, route, q.Form, now, lookback)
		output.Results = append(output.Results, result)

		if result.Status == StatusFailed {
			failures++
			logger.Error().Str("sim", result.SimNo).Str("error", result.Error).Msg("query failed")
		}
	}

	logger.Info().
		Int("total", len(input.Queries)).
		Int("ok", countByStatus(output.Results, StatusOK)).
		Int("failed", countByStatus(output.Results, StatusFailed)).
		Int("skipped", countByStatus(output.Results, StatusSkipped)).
		Msg("batch processing complete")

	return output
}

func runBatchQuery(ctx context.Context, svc queryRunner, route router.Route, f query.Form, now time.Time, lookback time.Duration) BatchResult {
	result := BatchResult{View: route.Name, SimNo: strings.TrimSpace(f.SimNo)}

	params, err := f.Parse(now, lookback)
	if err == nil {
		var res msgscope.Result
		res, err = svc.Run(ctx, route, params)
		if err == nil {
			result.Status = StatusOK
			result.Rows = res.Len()
			if res.Raw != nil {
				result.Data = res.Raw
			} else {
				result.Data = res.Bodies
			}
			return result
		}
	}

	result.Status = StatusFailed
	result.Error = err.Error()
	return result
}

func (cmd *BatchCmd) readInput() (BatchInput, error) {
	var reader io.Reader

	if cmd.file != "" {
		f, err := os.Open(cmd.file)
		if err != nil {
			return BatchInput{}, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		reader = f
	} else {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return BatchInput{}, fmt.Errorf("no input provided (stdin is a terminal); use -f flag or pipe JSON input")
		}
		reader = os.Stdin
	}

	return decodeBatchInput(reader)
}

func decodeBatchInput(r io.Reader) (BatchInput, error) {
	var input BatchInput
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return BatchInput{}, fmt.Errorf("decode JSON: %w", err)
	}
	return input, nil
}

func writeBatchOutput(w io.Writer, output BatchOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to write JSON output: %v\n", err)
		fmt.Fprintf(os.Stderr, "batch_id: %s\n", output.BatchID)
		fmt.Fprintf(os.Stderr, "results: %d ok, %d failed, %d skipped\n",
			countByStatus(output.Results, StatusOK),
			countByStatus(output.Results, StatusFailed),
			countByStatus(output.Results, StatusSkipped))
		return err
	}
	return nil
}

func writeBatchError(w io.Writer, err error) error {
	output := BatchErrorOutput{Error: err.Error()}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(output); encErr != nil {
		fmt.Fprintf(os.Stderr, "error: %s (failed to write JSON: %v)\n", err, encErr)
	}
	return err
}

func countByStatus(results []BatchResult, status string) int {
	count := 0
	for _, r := range results {
		if r.Status == status {
			count++
		}
	}
	return count
}
