// Command bcopt reads a textual annotated-item listing, runs the
// peephole rewriter and the CFG builder over it in sequence, and
// reports the result — the same "read a listing, run a transform,
// print a report" shape chriskillpack-bbcdisasm/main.go gives its
// disasm subcommand, retargeted at this module's bytecode.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/F-OS/OpenDream/cfg"
	"github.com/F-OS/OpenDream/dump"
	"github.com/F-OS/OpenDream/peephole"
)

func main() {
	app := cli.NewApp()
	app.Name = "bcopt"
	app.Usage = "peephole-rewrite and CFG-convert a textual bytecode listing"
	app.Commands = []cli.Command{
		optimizeCommand,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var optimizeCommand = cli.Command{
	Name:      "optimize",
	Aliases:   []string{"o"},
	Usage:     "run the peephole rewriter then the CFG builder over a listing file",
	ArgsUsage: "listing.txt",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "origin",
			Value: "proc",
			Usage: "origin name reported in structural/invariant errors",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable peephole and cfg package debug logging",
		},
		cli.BoolFlag{
			Name:  "dump",
			Usage: "write the resulting block graph to ./cfg/<origin> (slashes become underscores) via the dump package",
		},
	},
	Action: runOptimize,
}

func runOptimize(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("missing listing file argument", 1)
	}
	path := c.Args().First()
	origin := c.String("origin")

	if c.Bool("verbose") {
		peephole.PrintDebugInfo = true
		cfg.PrintDebugInfo = true
	}

	f, err := os.Open(path)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("opening %s: %v", path, err), 1)
	}
	defer f.Close()

	stream, err := parseListing(f)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("parsing %s: %v", path, err), 1)
	}

	rewritten, peepholeStats := peephole.Run(stream)
	fmt.Printf("peephole: %d iteration(s)\n", peepholeStats.Iterations)
	for name, count := range peepholeStats.FiredByPattern {
		fmt.Printf("  %-28s fired %d time(s)\n", name, count)
	}

	blocks, cfgStats, err := cfg.Convert(rewritten, origin)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("cfg.Convert: %v", err), 1)
	}
	fmt.Printf("cfg: %d block(s), %d iteration(s), %d block(s) removed, "+
		"%d label(s) removed, %d jump(s) forwarded, %d jump(s) canonicalized\n",
		len(blocks), cfgStats.Iterations, cfgStats.BlocksRemoved,
		cfgStats.LabelsRemoved, cfgStats.JumpsForwarded, cfgStats.JumpsCanonicalized)

	for _, b := range blocks {
		fmt.Printf("block %d: preds=%v succs=%v (%d item(s))\n",
			b.ID, b.Predecessors(), b.Successors(), len(b.Items))
	}

	if c.Bool("dump") {
		if err := dump.WriteCFG(blocks, origin); err != nil {
			return cli.NewExitError(fmt.Sprintf("dump.WriteCFG: %v", err), 1)
		}
		name := strings.ReplaceAll(origin, "/", "_")
		fmt.Printf("wrote ./cfg/%s and ./cfg/%s_insts\n", name, name)
	}

	return nil
}
