// Copyright 2024 The dpd-db Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/windwerfer/dpd-db/pipeline"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "run the export pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "read configuration from `FILE`",
				Aliases: []string{"c"},
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "dictionary database `PATH`",
			},
			&cli.StringFlag{
				Name:  "rule-table",
				Usage: "inflection rule table `PATH`",
			},
			&cli.StringFlag{
				Name:    "output",
				Usage:   "write artifacts to `DIR`",
				Aliases: []string{"o"},
			},
			&cli.StringSliceFlag{
				Name:  "targets",
				Usage: "export only the named `TARGET`s",
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: "restrict the ebook to entry ids listed in `FILE`",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "bound stage concurrency to `N` workers",
			},
			&cli.StringFlag{
				Name:  "bookname",
				Usage: "dictionary display `NAME`",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "log stage progress",
				Aliases: []string{"v"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := buildConfig(c)
			if err != nil {
				return err
			}

			level := slog.LevelWarn
			if c.Bool("verbose") {
				level = slog.LevelInfo
			}
			logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
				Level: level,
			}))

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
			defer stop()

			report, err := pipeline.New(cfg, logger).Run(ctx)
			// The report is printed even for failed runs.
			printReport(c, report)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrDpdexport, err)
			}
			return nil
		},
	}
}

// buildConfig layers command line flags over the config file and the
// defaults.
func buildConfig(c *cli.Context) (*pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = pipeline.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDpdexport, err)
		}
	}

	if v := c.String("db"); v != "" {
		cfg.DB = v
	}
	if v := c.String("rule-table"); v != "" {
		cfg.RuleTable = v
	}
	if v := c.String("output"); v != "" {
		cfg.Output = v
	}
	if v := c.StringSlice("targets"); len(v) > 0 {
		cfg.Targets = v
	}
	if v := c.String("filter"); v != "" {
		cfg.Filter = v
	}
	if v := c.Int("workers"); v > 0 {
		cfg.Workers = v
	}
	if v := c.String("bookname"); v != "" {
		cfg.Bookname = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFlagParse, err)
	}
	return cfg, nil
}

func printReport(c *cli.Context, report *pipeline.Report) {
	if report == nil {
		return
	}

	fmt.Fprintf(c.App.Writer, "state:   %s\n", report.State)
	if report.FailedStage != "" {
		fmt.Fprintf(c.App.Writer, "failed:  %s\n", report.FailedStage)
	}
	fmt.Fprintf(c.App.Writer, "entries: %d\n", report.Entries)
	fmt.Fprintf(c.App.Writer, "elapsed: %s\n\n", report.Elapsed.Round(time.Millisecond))

	if len(report.Artifacts) > 0 {
		tbl := table.New("TARGET", "ARTIFACT", "RECORDS", "BYTES").WithWriter(c.App.Writer)
		for _, a := range report.Artifacts {
			tbl.AddRow(a.Target, a.Name, a.Records, a.Size)
		}
		tbl.Print()
	}

	for target, err := range report.FailedTargets {
		fmt.Fprintf(c.App.ErrWriter, "target %s failed: %v\n", target, err)
	}

	if counts := report.WarningCounts(); len(counts) > 0 {
		fmt.Fprintln(c.App.Writer)
		tbl := table.New("WARNING", "COUNT").WithWriter(c.App.Writer)
		for kind, count := range counts {
			tbl.AddRow(string(kind), count)
		}
		tbl.Print()
	}
}
