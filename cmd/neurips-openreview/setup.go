package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/JasonGross/openreview-exploration/config"
	"github.com/JasonGross/openreview-exploration/memo"
	"github.com/JasonGross/openreview-exploration/neurips"
	"github.com/JasonGross/openreview-exploration/observe"
	"github.com/JasonGross/openreview-exploration/openreview"
	"github.com/JasonGross/openreview-exploration/resilience"
	"github.com/JasonGross/openreview-exploration/secret"
)

// notesNamespace names the cache of GET /notes responses.
const notesNamespace = "openreview.get_notes"

const shutdownTimeout = 5 * time.Second

// loadConfig builds the configuration from defaults, the optional config
// file and finally any flag or environment variable that was set.
func loadConfig(cctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := cctx.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFile(path); err != nil {
			return cfg, err
		}
	}

	if cctx.IsSet("year") {
		cfg.Year = cctx.Int("year")
	}
	if cctx.IsSet("output") {
		cfg.Output = cctx.String("output")
	}
	if cctx.IsSet("page-size") {
		cfg.PageSize = cctx.Int("page-size")
	}
	if cctx.IsSet("progress-every") {
		cfg.ProgressEvery = cctx.Int("progress-every")
	}
	if cctx.IsSet("cache-dir") {
		cfg.CacheDir = cctx.String("cache-dir")
	}
	if cctx.IsSet("no-cache") {
		cfg.NoCache = cctx.Bool("no-cache")
	}
	if cctx.IsSet("base-url") {
		cfg.API.BaseURL = cctx.String("base-url")
	}
	if cctx.IsSet("username") {
		cfg.API.Username = cctx.String("username")
	}
	if cctx.IsSet("password") {
		cfg.API.Password = cctx.String("password")
	}
	if cctx.IsSet("log-level") {
		cfg.Telemetry.Logging.Level = cctx.String("log-level")
	}
	if cctx.IsSet("traces-exporter") {
		cfg.Telemetry.Tracing.Exporter = cctx.String("traces-exporter")
		cfg.Telemetry.Tracing.Enabled = cfg.Telemetry.Tracing.Exporter != "none"
	}
	if cctx.IsSet("metrics-exporter") {
		cfg.Telemetry.Metrics.Exporter = cctx.String("metrics-exporter")
		cfg.Telemetry.Metrics.Enabled = cfg.Telemetry.Metrics.Exporter != "none"
	}
	cfg.Telemetry.Version = version

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runtime holds the long-lived objects of one command invocation.
type runtime struct {
	cfg     config.Config
	log     observe.Logger
	client  *openreview.Client
	mw      *observe.Middleware
	hits    *observe.CacheMetrics
	breaker *resilience.CircuitBreaker
}

// withRuntime sets up telemetry and the API client, runs fn, and flushes
// telemetry afterwards.
func withRuntime(ctx context.Context, cfg config.Config, fn func(context.Context, *runtime) error) (err error) {
	obs, err := observe.NewObserver(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := obs.Shutdown(sctx); serr != nil && err == nil {
			err = fmt.Errorf("telemetry shutdown: %w", serr)
		}
	}()

	rt := &runtime{cfg: cfg, log: obs.Logger()}
	if rt.mw, err = observe.MiddlewareFromObserver(obs); err != nil {
		return err
	}
	if rt.hits, err = observe.NewCacheMetrics(obs.Meter()); err != nil {
		return err
	}

	rt.breaker = newBreaker(cfg.API, rt.log)
	rt.client = openreview.NewClient(openreview.Config{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.API.Timeout,
		HTTPRetries:  cfg.API.HTTPRetries,
		RetryWaitMin: time.Second,
		RetryWaitMax: 10 * time.Second,
		UserAgent:    "neurips-openreview/" + version,
		Logger:       rt.log,
	}, newExecutor(cfg.API, rt.breaker, rt.log))

	if err := rt.login(ctx); err != nil {
		rt.log.Error(ctx, "login failed", observe.F("error", err))
		return err
	}

	if err := fn(ctx, rt); err != nil {
		rt.log.Error(ctx, "command failed", observe.F("error", err))
		return err
	}
	return nil
}

func (rt *runtime) login(ctx context.Context) error {
	api := rt.cfg.API
	if api.Username == "" {
		rt.log.Debug(ctx, "no credentials configured, using anonymous access")
		return nil
	}

	resolver := secret.DefaultResolver()
	defer resolver.Close()

	password, err := resolver.ResolveValue(ctx, api.Password)
	if err != nil {
		return fmt.Errorf("resolve password: %w", err)
	}
	if err := rt.client.Login(ctx, api.Username, password); err != nil {
		return err
	}

	fields := []observe.Field{observe.F("username", api.Username)}
	if exp, ok := rt.client.TokenExpiry(); ok {
		fields = append(fields, observe.F("expires", exp.Format(time.RFC3339)))
	}
	rt.log.Info(ctx, "logged in", fields...)
	return nil
}

// getNotes is the instrumented, uncached API call.
func (rt *runtime) getNotes() memo.Func[openreview.NotesQuery, []openreview.Note] {
	return observe.Instrument(rt.mw, describeQuery, rt.client.GetNotes)
}

func describeQuery(q openreview.NotesQuery) observe.Operation {
	attrs := []attribute.KeyValue{
		attribute.String("openreview.invitation", q.Invitation),
	}
	if q.Offset > 0 {
		attrs = append(attrs, attribute.Int("openreview.offset", q.Offset))
	}
	return observe.Operation{Name: notesNamespace, Attrs: attrs}
}

// withNotes runs fn with a memoized notes function. The cache lives in
// cfg.CacheDir, or in memory when caching is disabled.
func (rt *runtime) withNotes(ctx context.Context, fn func(neurips.NotesFunc) error) error {
	hooks := memo.WithHooks(rt.hits)

	if rt.cfg.NoCache {
		m, err := memo.Wrap(memo.NewMemoryStore(), notesNamespace, rt.getNotes(), hooks)
		if err != nil {
			return err
		}
		return fn(m.Call)
	}

	return memo.WithScope(ctx, rt.cfg.CacheDir, func(scope *memo.Scope) error {
		m, err := memo.Bind(ctx, scope, notesNamespace, rt.getNotes(), hooks)
		if err != nil {
			return err
		}
		err = fn(m.Call)

		st := m.Stats()
		rt.log.Info(ctx, "cache activity",
			observe.F("namespace", m.Namespace()),
			observe.F("hits", st.Hits),
			observe.F("misses", st.Misses),
			observe.F("stores", st.Stores),
		)
		return err
	})
}

func newBreaker(api config.APIConfig, log observe.Logger) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  api.BreakerFailures,
		ResetTimeout: api.BreakerReset,
		OnStateChange: func(from, to resilience.State) {
			log.Warn(context.Background(), "circuit breaker state changed",
				observe.F("from", from.String()),
				observe.F("to", to.String()),
			)
		},
	})
}

// newExecutor applies the API resilience policy: bounded retries of
// transient errors around a circuit breaker, rate limit and per-attempt
// timeout.
func newExecutor(api config.APIConfig, breaker *resilience.CircuitBreaker, log observe.Logger) *resilience.Executor {
	return resilience.NewExecutor(
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  api.MaxAttempts,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2,
			Strategy:     resilience.BackoffExponential,
			Jitter:       true,
			RetryIf:      openreview.IsRetryable,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				log.Warn(context.Background(), "retrying request",
					observe.F("attempt", attempt),
					observe.F("delay", delay),
					observe.F("error", err),
				)
			},
		})),
		resilience.WithCircuitBreaker(breaker),
		resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:        api.RequestsPerSecond,
			Burst:       api.Burst,
			WaitOnLimit: true,
		})),
		resilience.WithTimeout(api.Timeout),
	)
}
