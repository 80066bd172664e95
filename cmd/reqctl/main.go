// Command reqctl sends one JSON request through a resilient client and
// prints the payload.
//
//	reqctl [flags] <endpoint>
//
// The client is configured from REQCLIENT_* environment variables; flags
// override them for the call. On failure the structured error is written
// to stderr as JSON and the exit status is 1.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/reqclient/client"
	"github.com/jonwraymond/reqclient/config"
	"github.com/jonwraymond/reqclient/health"
	"github.com/jonwraymond/reqclient/observe"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// headerFlags collects repeated -H "Name: value" flags.
type headerFlags http.Header

func (h headerFlags) String() string {
	return fmt.Sprint(http.Header(h))
}

func (h headerFlags) Set(v string) error {
	name, value, ok := strings.Cut(v, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("header %q is not in Name: value form", v)
	}
	http.Header(h).Add(strings.TrimSpace(name), strings.TrimSpace(value))
	return nil
}

type options struct {
	method   string
	data     string
	headers  headerFlags
	timeout  time.Duration
	retries  int
	noCache  bool
	opsAddr  string
	probe    string
	watch    time.Duration
	endpoint string
	set      map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{headers: headerFlags{}, set: map[string]bool{}}

	fs := flag.NewFlagSet("reqctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: reqctl [flags] <endpoint>")
		fs.PrintDefaults()
	}
	fs.StringVar(&o.method, "X", http.MethodGet, "HTTP method")
	fs.StringVar(&o.data, "d", "", "JSON request body")
	fs.Var(o.headers, "H", "request header as 'Name: value' (repeatable)")
	fs.DurationVar(&o.timeout, "timeout", client.DefaultTimeout, "per-attempt timeout (default from REQCLIENT_TIMEOUT)")
	fs.IntVar(&o.retries, "retries", client.DefaultRetries, "retries after the first attempt (default from REQCLIENT_RETRIES)")
	fs.BoolVar(&o.noCache, "no-cache", false, "bypass the response cache")
	fs.StringVar(&o.opsAddr, "ops-addr", "", "serve /metrics and health probes on this address")
	fs.StringVar(&o.probe, "probe", "", "endpoint the readiness probe GETs (requires -ops-addr)")
	fs.DurationVar(&o.watch, "watch", 0, "repeat the request at this interval until interrupted")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("exactly one endpoint is required")
	}
	o.endpoint = fs.Arg(0)

	if o.data != "" && !json.Valid([]byte(o.data)) {
		return nil, errors.New("-d is not valid JSON")
	}
	if o.watch < 0 {
		return nil, errors.New("-watch must not be negative")
	}
	return o, nil
}

// requestOptions turns flags into per-call options. Unset flags keep the
// configured defaults.
func (o *options) requestOptions() []client.RequestOption {
	opts := []client.RequestOption{client.WithMethod(o.method)}
	if len(o.headers) > 0 {
		opts = append(opts, client.WithRequestHeaders(http.Header(o.headers)))
	}
	if o.data != "" {
		opts = append(opts, client.WithBody(json.RawMessage(o.data)))
	}
	if o.set["timeout"] {
		opts = append(opts, client.WithRequestTimeout(o.timeout))
	}
	if o.set["retries"] {
		opts = append(opts, client.WithRequestRetries(o.retries))
	}
	if o.noCache {
		opts = append(opts, client.NoCache())
	}
	return opts
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "reqctl:", err)
		}
		return exitUsage
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "reqctl:", err)
		return exitUsage
	}

	obs, err := observe.NewObserver(ctx, cfg.ObserveConfig(stderr))
	if err != nil {
		fmt.Fprintln(stderr, "reqctl:", err)
		return exitUsage
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	clientOpts, closer, err := cfg.ClientOptions()
	if err != nil {
		fmt.Fprintln(stderr, "reqctl:", err)
		return exitUsage
	}
	defer closer.Close()

	c, err := client.New(append(clientOpts, client.WithObserver(obs))...)
	if err != nil {
		writeError(stderr, err)
		return exitUsage
	}

	if o.opsAddr != "" {
		srv := &http.Server{
			Addr:              o.opsAddr,
			Handler:           opsRouter(c, o.probe),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				obs.Logger().Error(ctx, "ops listener failed", observe.Field{Key: "error", Value: err})
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if o.watch == 0 {
		return once(ctx, c, o, stdout, stderr)
	}
	return watch(ctx, c, o, stdout, stderr)
}

func once(ctx context.Context, c *client.Client, o *options, stdout, stderr io.Writer) int {
	payload, err := c.Request(ctx, o.endpoint, o.requestOptions()...)
	if err != nil {
		writeError(stderr, err)
		return exitFailure
	}
	writePayload(stdout, payload)
	return exitOK
}

// watch repeats the request every interval and reports on stderr whether
// each answer came from the cache.
func watch(ctx context.Context, c *client.Client, o *options, stdout, stderr io.Writer) int {
	ticker := time.NewTicker(o.watch)
	defer ticker.Stop()

	opts := o.requestOptions()
	for {
		source := "network"
		if key, err := c.CacheKey(o.endpoint, opts...); err == nil {
			if _, hit := c.CacheStore().Get(ctx, key); hit && !o.noCache {
				source = "cache"
			}
		}

		start := time.Now()
		payload, err := c.Request(ctx, o.endpoint, opts...)
		if ctx.Err() != nil {
			return exitOK
		}
		fmt.Fprintf(stderr, "# %s source=%s elapsed=%s\n", start.UTC().Format(time.RFC3339), source, time.Since(start).Round(time.Millisecond))
		if err != nil {
			writeError(stderr, err)
		} else {
			writePayload(stdout, payload)
		}

		select {
		case <-ctx.Done():
			return exitOK
		case <-ticker.C:
		}
	}
}

// opsRouter serves Prometheus metrics and health probes for c.
func opsRouter(c *client.Client, probe string) http.Handler {
	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 5 * time.Second})
	agg.Register("cache", health.NewStoreChecker("cache", c.CacheStore()))
	if probe != "" {
		agg.Register("upstream", health.NewEndpointChecker("upstream", c, probe))
	}

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	health.Mount(r, agg)
	return r
}

func writePayload(w io.Writer, payload json.RawMessage) {
	if len(payload) == 0 {
		return
	}
	_, _ = w.Write(payload)
	_, _ = io.WriteString(w, "\n")
}

func writeError(w io.Writer, err error) {
	var v any = map[string]any{
		"message":   err.Error(),
		"timestamp": time.Now().UTC(),
	}
	if e, ok := client.AsError(err); ok {
		v = e
	}
	_ = json.NewEncoder(w).Encode(v)
}
