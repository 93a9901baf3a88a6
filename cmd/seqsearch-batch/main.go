// Command seqsearch-batch submits a file of queries to a seqsearch server
// and writes one result per line, in input order, as NDJSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/seqbase/seqsearch/config"
	"github.com/seqbase/seqsearch/internal/adapters/oidc"
	"github.com/seqbase/seqsearch/internal/client"
	"github.com/seqbase/seqsearch/internal/domain/model"
	"github.com/seqbase/seqsearch/internal/stream"
)

type options struct {
	input        string
	output       string
	server       string
	index        string
	pool         int
	pollInterval time.Duration
	timeout      int
}

// outputLine is one NDJSON record. Either payload or error is set.
type outputLine struct {
	Query   string          `json:"query"`
	JobID   string          `json:"job_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *string         `json:"error,omitempty"`
}

func main() {
	opts := parseFlags()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("batch run failed", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.input, "input", "-", "query file, one query per line (- for stdin)")
	flag.StringVar(&opts.output, "output", "-", "NDJSON output file (- for stdout)")
	flag.StringVar(&opts.server, "server", "http://localhost:8080", "seqsearch server URL")
	flag.StringVar(&opts.index, "index", "", "target index for all queries")
	flag.IntVar(&opts.pool, "pool", 4, "number of searches in flight at once")
	flag.DurationVar(&opts.pollInterval, "poll-interval", 2*time.Second, "result poll interval")
	flag.IntVar(&opts.timeout, "timeout", 0, "per-search timeout in seconds (0 uses the server default)")
	flag.Parse()
	return opts
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	api, err := buildClient(ctx, opts)
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(opts.input)
	if err != nil {
		return err
	}
	defer closeIn()

	out, closeOut, err := openOutput(opts.output)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)

	source := func(context.Context) (string, bool, error) {
		for scanner.Scan() {
			query := strings.TrimSpace(scanner.Text())
			if query == "" {
				continue
			}
			return query, true, nil
		}
		return "", false, scanner.Err()
	}

	proc := func(ctx context.Context, query string) (outputLine, error) {
		return runSearch(ctx, api, opts, query)
	}

	enc := json.NewEncoder(out)
	sink := func(line outputLine) error {
		return enc.Encode(line)
	}

	start := time.Now()
	runErr := stream.Run(ctx, stream.Options{Workers: opts.pool}, source, proc, sink)
	if closeErr := closeOut(); runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		return runErr
	}

	logger.Info("batch complete", "duration", time.Since(start))
	return nil
}

// runSearch drives one query through its full lifecycle: submit, poll,
// consume. A search that finishes with a stored failure is reported as an
// output line, not a run-stopping error.
func runSearch(ctx context.Context, api *client.Client, opts options, query string) (outputLine, error) {
	req := &model.SearchRequest{
		Query:          query,
		Index:          opts.index,
		TimeoutSeconds: opts.timeout,
	}

	submitted, err := api.Submit(ctx, req)
	if err != nil {
		return outputLine{}, fmt.Errorf("submit %q: %w", truncateQuery(query), err)
	}

	line := outputLine{Query: query, JobID: submitted.JobID}

	ticker := time.NewTicker(opts.pollInterval)
	defer ticker.Stop()

	for {
		res, resErr := api.Result(ctx, submitted.JobID, 0)
		if resErr != nil {
			return outputLine{}, fmt.Errorf("fetch result for %s: %w", submitted.JobID, resErr)
		}
		if res != nil {
			line.Payload = res.Payload
			line.Error = res.Error
			return line, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			// Best effort: free the server slot before giving up.
			cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			_ = api.Cancel(cancelCtx, submitted.JobID)
			cancel()
			return outputLine{}, ctx.Err()
		}
	}
}

func buildClient(ctx context.Context, opts options) (*client.Client, error) {
	clientOpts := client.Options{BaseURL: opts.server}

	var oidcCfg config.OIDCConfig
	if err := env.ParseWithOptions(&oidcCfg, env.Options{Prefix: "OIDC_"}); err != nil {
		return nil, fmt.Errorf("parse oidc env: %w", err)
	}
	if oidcCfg.ClientID != "" {
		ts, err := oidc.ClientCredentialsTokenSource(ctx, oidcCfg)
		if err != nil {
			return nil, fmt.Errorf("configure token source: %w", err)
		}
		clientOpts.TokenSource = ts
	}

	return client.New(clientOpts)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

func truncateQuery(q string) string {
	const max = 32
	if len(q) <= max {
		return q
	}
	return q[:max] + "..."
}
