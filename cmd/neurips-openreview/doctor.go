package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/JasonGross/openreview-exploration/health"
	"github.com/JasonGross/openreview-exploration/neurips"
	"github.com/JasonGross/openreview-exploration/openreview"
	"github.com/JasonGross/openreview-exploration/resilience"
)

// ErrUnhealthy is returned by doctor when any check fails.
var ErrUnhealthy = errors.New("unhealthy")

var doctorCmd = &cli.Command{
	Name:  "doctor",
	Usage: "check the cache directory, the cached shelves and API reachability",
	Flags: append(commonFlags(),
		yearFlag(),
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print results as JSON",
		},
	),
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		asJSON := cctx.Bool("json")
		out := cctx.App.Writer
		return withRuntime(cctx.Context, cfg, func(ctx context.Context, rt *runtime) error {
			return doctor(ctx, rt, out, asJSON)
		})
	},
}

func doctor(ctx context.Context, rt *runtime, out io.Writer, asJSON bool) error {
	agg := health.NewAggregator(health.AggregatorConfig{Sequential: true})
	if !rt.cfg.NoCache {
		agg.Register(health.DirChecker{Dir: rt.cfg.CacheDir})
		agg.Register(health.ShelfChecker{Dir: rt.cfg.CacheDir})
	}

	venue := neurips.NeurIPS(rt.cfg.Year)
	agg.Register(health.ProbeChecker{
		CheckName: "openreview_api",
		Probe: func(ctx context.Context) error {
			_, err := rt.getNotes()(ctx, openreview.NotesQuery{Invitation: venue.Submission(), Limit: 1})
			return err
		},
	})
	agg.Register(health.NewCheckerFunc("api_breaker", func(context.Context) health.Result {
		switch st := rt.breaker.State(); st {
		case resilience.StateClosed:
			return health.Healthy("closed")
		case resilience.StateHalfOpen:
			return health.Degraded("half-open")
		default:
			return health.Unhealthy(st.String(), resilience.ErrCircuitOpen)
		}
	}))

	results := agg.CheckAll(ctx)
	overall := health.Overall(results)

	if err := printResults(out, results, overall, asJSON); err != nil {
		return err
	}
	if overall == health.StatusUnhealthy {
		return ErrUnhealthy
	}
	return nil
}

type resultJSON struct {
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
	Details    map[string]any `json:"details,omitempty"`
}

func printResults(w io.Writer, results []health.Named, overall health.Status, asJSON bool) error {
	if asJSON {
		report := struct {
			Status string       `json:"status"`
			Checks []resultJSON `json:"checks"`
		}{Status: overall.String()}
		for _, r := range results {
			rj := resultJSON{
				Name:       r.Name,
				Status:     r.Status.String(),
				Message:    r.Message,
				DurationMS: r.Duration.Milliseconds(),
				Details:    r.Details,
			}
			if r.Error != nil {
				rj.Error = r.Error.Error()
			}
			report.Checks = append(report.Checks, rj)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	for _, r := range results {
		line := fmt.Sprintf("%-16s %-10s %s", r.Name, r.Status, r.Message)
		if r.Error != nil {
			line += ": " + r.Error.Error()
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "overall: %s\n", overall)
	return err
}
