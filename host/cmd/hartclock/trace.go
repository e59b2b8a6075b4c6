package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"hartclock/host/logging"
	"hartclock/host/serial"
	tracelink "hartclock/host/trace"
)

var traceFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "device, d",
		Value: "/dev/ttyUSB1",
		Usage: "serial device the firmware's trace UART is attached to",
	},
	cli.IntFlag{
		Name:  "baud, b",
		Value: serial.DefaultBaud,
		Usage: "baud rate of the trace UART",
	},
	cli.StringFlag{
		Name:  "log-level, l",
		Value: "info",
		Usage: "log level (err, warning, info, debug, trace)",
	},
}

func trace(stderr io.Writer) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		logger, err := logging.New(stderr, ctx.String("log-level"))
		if err != nil {
			return err
		}

		cfg := serial.DefaultConfig(ctx.String("device"))
		cfg.Baud = ctx.Int("baud")
		port, err := serial.Open(cfg)
		if err != nil {
			return err
		}

		sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-sigCtx.Done()
			port.Close()
		}()

		logger.Info().Str("device", cfg.Device).Int("baud", cfg.Baud).Log("reading trace")
		reader := tracelink.NewReader(logger, nil)
		err = reader.Run(port)

		stats := reader.Stats()
		logger.Info().
			Int("events", stats.Events).
			Int("invalid", stats.Invalid).
			Int64("resyncs", int64(stats.Link.Resyncs)).
			Int64("lost", int64(stats.Link.Lost)).
			Log("trace stopped")

		if sigCtx.Err() != nil {
			return nil
		}
		return err
	}
}
