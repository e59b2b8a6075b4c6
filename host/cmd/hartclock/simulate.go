package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"hartclock/host/logging"
	"hartclock/sim"
)

var simulateFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "scenario, s",
		Usage: "path of the JSON scenario to run",
	},
	cli.StringFlag{
		Name:  "log-level, l",
		Value: "info",
		Usage: "log level (err, warning, info, debug, trace)",
	},
	cli.IntFlag{
		Name:  "max-interrupts",
		Value: sim.DefaultMaxInterrupts,
		Usage: "interrupts allowed per advance step before giving up",
	},
}

func simulate(fs afero.Fs, stdout, stderr io.Writer) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		path := ctx.String("scenario")
		if path == "" {
			return fmt.Errorf("missing --scenario")
		}
		logger, err := logging.New(stderr, ctx.String("log-level"))
		if err != nil {
			return err
		}

		s, err := sim.LoadScenario(fs, path)
		if err != nil {
			return err
		}
		report, err := sim.Run(s,
			sim.WithLogger(logger),
			sim.WithMaxInterrupts(ctx.Int("max-interrupts")),
		)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}

		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if !report.Passed() {
			return fmt.Errorf("scenario %s: %d checks failed", s.Name, len(report.Failures))
		}
		return nil
	}
}
