package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/JasonGross/openreview-exploration/neurips"
	"github.com/JasonGross/openreview-exploration/observe"
)

var fetchCmd = &cli.Command{
	Name:  "fetch",
	Usage: "fetch accepted papers with their review scores and write them as CSV",
	Flags: append(commonFlags(),
		yearFlag(),
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "CSV output path (default neurips_<year>_papers_openreview.csv)",
		},
		&cli.IntFlag{
			Name:  "page-size",
			Usage: "notes requested per page",
		},
		&cli.IntFlag{
			Name:  "progress-every",
			Usage: "log progress after this many submissions",
		},
	),
	Action: runFetch,
}

func runFetch(cctx *cli.Context) error {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	out := cctx.App.Writer
	return withRuntime(cctx.Context, cfg, func(ctx context.Context, rt *runtime) error {
		return fetch(ctx, rt, out)
	})
}

// previewRows is the number of rows printed after a fetch.
const previewRows = 5

func fetch(ctx context.Context, rt *runtime, out io.Writer) error {
	cfg := rt.cfg
	start := time.Now()

	var tally neurips.Tally
	err := rt.withNotes(ctx, func(notes neurips.NotesFunc) error {
		d := &neurips.Driver{
			Notes:    notes,
			Venue:    neurips.NeurIPS(cfg.Year),
			PageSize: cfg.PageSize,
			Progress: progressLogger(ctx, rt.log, cfg.ProgressEvery),
		}
		var err error
		tally, err = d.Run(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("fetch NeurIPS %d: %w", cfg.Year, err)
	}

	path := cfg.OutputPath()
	if err := neurips.WriteCSV(path, tally.Rows); err != nil {
		return err
	}

	rt.log.Info(ctx, "wrote papers",
		observe.F("path", path),
		observe.F("submissions", tally.Seen),
		observe.F("accepted", tally.Found),
		observe.F("oral", tally.Oral),
		observe.F("spotlight", tally.Spotlight),
		observe.F("poster", tally.Found-tally.Oral-tally.Spotlight),
		observe.F("duration", time.Since(start)),
	)
	return printSummary(out, tally.Rows)
}

// printSummary prints the first rows and the number of papers to out.
func printSummary(out io.Writer, rows []neurips.Row) error {
	if len(rows) > 0 {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NUMBER\tTYPE\tAVERAGE\tTITLE")
		for _, r := range rows[:min(previewRows, len(rows))] {
			avg := "-"
			if r.Scores != nil {
				avg = strconv.FormatFloat(r.Scores.Mean, 'f', 2, 64)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Number, r.Tier, avg, r.Title)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "Total papers fetched: %d\n", len(rows))
	return err
}

// progressLogger logs a report every n submissions and after the last one.
func progressLogger(ctx context.Context, log observe.Logger, n int) neurips.ProgressFunc {
	if n <= 0 {
		return nil
	}
	return func(r neurips.Report) {
		if r.Seen%n != 0 && r.Seen != r.Total {
			return
		}
		log.Info(ctx, "progress",
			observe.F("seen", r.Seen),
			observe.F("total", r.Total),
			observe.F("found", r.Found),
			observe.F("oral", r.Oral),
			observe.F("spotlight", r.Spotlight),
			observe.F("number", r.Number),
		)
	}
}
