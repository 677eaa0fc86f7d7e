// File: cmd/single/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// single runs a thread team of ten and lets exactly one member print
// which thread it is. Flags resize the team, add successive single
// constructs, pool and pin the members.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/momentics/hioload-omp/control"
	"github.com/momentics/hioload-omp/team"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := command(os.Stdout, os.Stderr).Run(context.Background(), os.Args); err != nil {
		slog.Error("single failed", "err", err)
		os.Exit(1)
	}
}

func command(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "single",
		Usage:     "run a parallel region whose single construct executes on exactly one thread",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML configuration file; flags override its values",
			},
			&cli.IntFlag{
				Name:    "threads",
				Aliases: []string{"n"},
				Usage:   "team size",
				Value:   10,
			},
			&cli.IntFlag{
				Name:    "constructs",
				Aliases: []string{"c"},
				Usage:   "number of successive single constructs in the region",
				Value:   1,
			},
			&cli.BoolFlag{
				Name:  "pooled",
				Usage: "run members on persistent workers locked to OS threads",
			},
			&cli.BoolFlag{
				Name:  "pin",
				Usage: "bind each member thread to a CPU",
			},
			&cli.IntSliceFlag{
				Name:  "cpus",
				Usage: "CPUs to pin to, cycled over the members",
			},
			&cli.BoolFlag{
				Name:  "strict-affinity",
				Usage: "fail instead of warning when a member cannot be pinned",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
				Value: "warn",
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "write Prometheus metrics to stderr after the run",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return run(ctx, cfg, stdout, stderr)
		},
	}
}

// loadConfig layers explicitly set flags over the config file, or over the
// defaults when no file is given.
func loadConfig(c *cli.Command) (*control.Config, error) {
	cfg := control.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = control.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if c.IsSet("threads") || c.String("config") == "" {
		cfg.Threads = int(c.Int("threads"))
	}
	if c.IsSet("constructs") || c.String("config") == "" {
		cfg.Constructs = int(c.Int("constructs"))
	}
	if c.IsSet("log-level") || c.String("config") == "" {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("pooled") {
		cfg.Pooled = c.Bool("pooled")
	}
	if c.IsSet("pin") {
		cfg.Pin = c.Bool("pin")
	}
	if c.IsSet("strict-affinity") {
		cfg.StrictAffinity = c.Bool("strict-affinity")
	}
	if c.IsSet("metrics") {
		cfg.Metrics = c.Bool("metrics")
	}
	if c.IsSet("cpus") {
		cfg.CPUs = cfg.CPUs[:0]
		for _, cpu := range c.IntSlice("cpus") {
			cfg.CPUs = append(cfg.CPUs, int(cpu))
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *control.Config, stdout, stderr io.Writer) error {
	level, err := control.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	var metrics *control.Metrics
	if cfg.Metrics {
		metrics = control.NewMetrics()
	}

	tm, err := team.New(&team.Config{
		Size:           cfg.Threads,
		Pooled:         cfg.Pooled,
		Pin:            cfg.Pin,
		CPUs:           cfg.CPUs,
		StrictAffinity: cfg.StrictAffinity,
	}, team.WithLogger(log), team.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("creating team: %w", err)
	}
	defer tm.Close()

	if log.Enabled(ctx, slog.LevelDebug) {
		probes := control.NewDebugProbes()
		control.RegisterPlatformProbes(probes)
		log.Debug("starting region", "threads", cfg.Threads, "constructs", cfg.Constructs, "probes", probes)
	}

	if err := tm.Parallel(ctx, announce(cfg.Constructs, &lockedWriter{w: stdout})); err != nil {
		return fmt.Errorf("parallel region: %w", err)
	}
	if err := metrics.WriteText(stderr); err != nil {
		return err
	}
	return nil
}
