// Package main provides the mycelium CLI: a small player that drives
// audio files through the mixing pipeline.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/mycophonic/mycelium/version"
)

func main() {
	ctx := context.Background()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()

	appl := &cli.Command{
		Name:    version.Name(),
		Usage:   "Audio mixing pipeline cli",
		Version: version.Version() + " (" + version.Commit() + " - " + version.Date() + ")",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log = log.Level(zerolog.DebugLevel)
			}

			return ctx, nil
		},
		Commands: []*cli.Command{
			playCommand(&log),
			infoCommand(),
		},
	}

	if err := appl.Run(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)

		os.Exit(1)
	}
}
