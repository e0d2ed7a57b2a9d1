package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/seqbox/sbx"
)

var showCommand = &cli.Command{
	Name:      "show",
	Usage:     "print the metadata stored in an SBX container",
	ArgsUsage: "<in_file>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "show-all", Usage: "print every metadata copy, not just the primary"},
		&cli.BoolFlag{Name: "force-misalign", Usage: "scan every byte offset for the reference block"},
		&cli.BoolFlag{Name: "json", Usage: "print the result as JSON"},
	},
	Action: showAction,
}

func showAction(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return sbxUsageError("show requires a container path")
	}
	path := c.Args().Get(0)

	f, err := os.Open(path)
	if err != nil {
		return cli.Exit(err, 2)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return cli.Exit(err, 2)
	}

	ins := sbx.NewInspector(c.Bool("force-misalign"))
	reports, err := ins.Show(f, fi.Size(), c.Bool("show-all"))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printShowJSON(reports)
	}
	for i, report := range reports {
		if i > 0 {
			fmt.Println()
		}
		fmt.Printf("metadata copy at offset %d (version %s, uid %x)\n", report.Offset, report.Version, report.FileUID)
		for _, f := range report.Fields {
			fmt.Printf("  %s: %s\n", f.ID, f.Display)
		}
	}
	return nil
}
