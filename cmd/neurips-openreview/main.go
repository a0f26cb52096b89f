// Command neurips-openreview lists accepted NeurIPS papers with their
// review scores, using the OpenReview API and a persistent response cache.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newApp().RunContext(ctx, args)
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "neurips-openreview",
		Usage:   "list accepted NeurIPS papers and their review scores from OpenReview",
		Version: version,
		Commands: []*cli.Command{
			fetchCmd,
			doctorCmd,
			cacheCmd,
		},
	}
}

// commonFlags are accepted by every command.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to a YAML config file",
			EnvVars: []string{"NEURIPS_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "OpenReview API base URL",
			EnvVars: []string{"OPENREVIEW_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "username",
			Usage:   "OpenReview username; requests are anonymous when unset",
			EnvVars: []string{"OPENREVIEW_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "OpenReview password, or a secretref such as secretref:file:/run/secrets/openreview",
			EnvVars: []string{"OPENREVIEW_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "cache-dir",
			Usage:   "directory holding the response cache",
			EnvVars: []string{"NEURIPS_CACHE_DIR"},
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "keep responses in memory only for this run",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			EnvVars: []string{"LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "traces-exporter",
			Usage:   "otlp, stdout or none",
			EnvVars: []string{"OTEL_TRACES_EXPORTER"},
		},
		&cli.StringFlag{
			Name:    "metrics-exporter",
			Usage:   "otlp, prometheus, stdout or none",
			EnvVars: []string{"OTEL_METRICS_EXPORTER"},
		},
	}
}

func yearFlag() cli.Flag {
	return &cli.IntFlag{
		Name:  "year",
		Usage: "conference year",
	}
}
