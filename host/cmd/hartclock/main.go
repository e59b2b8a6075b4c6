package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
)

const version = "v0.1.0"

func newApp(fs afero.Fs, stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "hartclock"
	app.HelpName = "hartclock"
	app.Usage = "Simulate and monitor the multi-hart alarm timer."
	app.UsageText = "hartclock <command> [arguments...]"
	app.Version = version
	app.Writer = stdout
	app.ErrWriter = stderr
	app.Commands = []cli.Command{
		{
			Name:    "simulate",
			Aliases: []string{"sim"},
			Usage:   "runs a scenario against the simulated timer",
			Description: `Runs a JSON scenario of alarm allocations, deadlines and
time advances against the driver on simulated hardware, and
prints the report.

Example:
        hartclock simulate --scenario testdata/switchover.json
`,
			Flags:  simulateFlags,
			Action: simulate(fs, stdout, stderr),
		},
		{
			Name:  "trace",
			Usage: "decodes trace frames from the board's serial port",
			Description: `Reads trace frames written by the firmware's idle loop
and logs every timer decision.

Example:
        hartclock trace --device /dev/ttyUSB1
`,
			Flags:  traceFlags,
			Action: trace(stderr),
		},
	}
	return app
}

func main() {
	app := newApp(afero.NewOsFs(), os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "hartclock: %v\n", err)
		os.Exit(1)
	}
}
