package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/JasonGross/openreview-exploration/memo"
)

var cacheCmd = &cli.Command{
	Name:  "cache",
	Usage: "inspect the response cache",
	Subcommands: []*cli.Command{
		{
			Name:  "stats",
			Usage: "print entry counts and sizes of every cached namespace",
			Flags: append(commonFlags(), &cli.BoolFlag{
				Name:  "check",
				Usage: "also run a full integrity check of every shelf",
			}),
			Action: func(cctx *cli.Context) error {
				cfg, err := loadConfig(cctx)
				if err != nil {
					return err
				}
				return cacheStats(cctx.Context, cctx.App.Writer, cfg.CacheDir, cctx.Bool("check"))
			},
		},
	},
}

func cacheStats(ctx context.Context, w io.Writer, dir string, check bool) error {
	inspect := memo.InspectDir
	if check {
		inspect = memo.CheckDir
	}
	stats, err := inspect(ctx, dir)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "cache directory: %s\n", dir); err != nil {
		return err
	}
	if len(stats) == 0 {
		_, err := fmt.Fprintln(w, "no cached namespaces")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAMESPACE\tENTRIES\tBYTES\tOLDEST\tNEWEST")
	for _, st := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
			st.Namespace, st.Entries, st.Bytes, formatTime(st.Oldest), formatTime(st.Newest))
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}
