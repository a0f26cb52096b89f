package health

import (
	"context"
	"slices"
	"sync"
	"time"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds all checks together. Default: 10 seconds.
	Timeout time.Duration

	// Sequential runs checks one after another instead of in parallel.
	Sequential bool
}

// Named pairs a result with the checker that produced it.
type Named struct {
	Name string
	Result
}

// Aggregator combines multiple health checkers.
type Aggregator struct {
	config   AggregatorConfig
	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Aggregator{config: config}
}

// Register adds a checker, replacing any checker with the same name in place.
func (a *Aggregator) Register(c Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := slices.IndexFunc(a.checkers, func(x Checker) bool { return x.Name() == c.Name() }); i >= 0 {
		a.checkers[i] = c
		return
	}
	a.checkers = append(a.checkers, c)
}

// CheckerNames returns the names of all registered checkers in order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	i := slices.IndexFunc(a.checkers, func(c Checker) bool { return c.Name() == name })
	var checker Checker
	if i >= 0 {
		checker = a.checkers[i]
	}
	a.mu.RUnlock()

	if checker == nil {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// CheckAll runs every registered check and returns the results in
// registration order.
func (a *Aggregator) CheckAll(ctx context.Context) []Named {
	a.mu.RLock()
	checkers := slices.Clone(a.checkers)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make([]Named, len(checkers))
	if a.config.Sequential {
		for i, c := range checkers {
			results[i] = Named{Name: c.Name(), Result: runCheck(ctx, c)}
		}
		return results
	}

	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Named{Name: c.Name(), Result: runCheck(ctx, c)}
		}()
	}
	wg.Wait()
	return results
}

// Overall returns the worst status among results. No results is healthy.
func Overall(results []Named) Status {
	worst := StatusHealthy
	for _, r := range results {
		if r.Status > worst {
			worst = r.Status
		}
	}
	return worst
}

func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		result := checker.Check(ctx)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		result.Duration = time.Since(start)
		return result
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  time.Since(start),
			Timestamp: start,
		}
	}
}
