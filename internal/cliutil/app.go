// Package cliutil builds the urfave/cli/v2 application shared by every
// cmd/distwt-* binary: the -r/--rbuf, -l/--local, -o/--output, -p/--prefix
// flag surface from spec.md §6, plus -n/--procs to pick how many
// simulated workers the in-process substrate launches (standing in for
// "mpirun -np N", since there is no real MPI binding to hand off to).
package cliutil

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pdinklag/distwt-sub000/internal/cluster"
	"github.com/pdinklag/distwt-sub000/internal/engine"
)

// App builds the cli.App for one construction strategy. name and usage
// describe the binary; strategy is fixed per binary (distwt-dd always
// builds with DomainDecomp, etc).
func App(name, usage string, strategy engine.Strategy) *cli.App {
	return &cli.App{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "procs", Aliases: []string{"n"}, Value: 4, Usage: "number of simulated workers"},
			&cli.Int64Flag{Name: "rbuf", Aliases: []string{"r"}, Usage: "file read buffer size (bytes); 0 = local size"},
			&cli.StringFlag{Name: "local", Aliases: []string{"l"}, Usage: "extract local partitions under this base name first"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "output file base name"},
			&cli.Int64Flag{Name: "prefix", Aliases: []string{"p"}, Usage: "only process this many symbols of the input; 0 = whole file"},
			&cli.BoolFlag{Name: "wm", Usage: "build a wavelet matrix instead of a wavelet tree"},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return cli.Exit(fmt.Errorf("%s: expected exactly one input file argument", name), -1)
			}
			cfg := engine.Config{
				Input:    ctx.Args().Get(0),
				Local:    ctx.String("local"),
				Output:   ctx.String("output"),
				Prefix:   ctx.Int64("prefix"),
				RBuf:     int(ctx.Int64("rbuf")),
				Strategy: strategy,
				Matrix:   ctx.Bool("wm"),
			}
			procs := ctx.Int("procs")
			if procs < 1 {
				return cli.Exit(fmt.Errorf("%s: --procs must be >= 1, got %d", name, procs), -1)
			}
			if err := cluster.Launch(procs, procs, func(c *cluster.Cluster) error {
				return engine.Run(c, cfg)
			}); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}

// Main runs app against os.Args and exits with its result code, the
// shared tail every cmd/distwt-* main() delegates to. Flag/usage errors
// exit -1; runtime errors exit 1; success exits 0, per spec.md §6.
func Main(app *cli.App) {
	log.SetFlags(0)
	err := app.Run(os.Args)
	if err == nil {
		return
	}
	log.Println(err)
	if ec, ok := err.(cli.ExitCoder); ok {
		os.Exit(ec.ExitCode())
	}
	// Action only returns cli.Exit errors, so anything else comes from
	// flag parsing or a missing required flag.
	os.Exit(-1)
}
