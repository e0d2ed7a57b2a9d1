package main

import (
	"encoding/hex"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/seqbox/sbx"
)

var sortCommand = &cli.Command{
	Name:      "sort",
	Usage:     "rewrite an SBX container's blocks into canonical position order",
	ArgsUsage: "<in_file> [out_file]",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "rs-data", Usage: "RS data shard count, for RS containers"},
		&cli.IntFlag{Name: "rs-parity", Usage: "RS parity shard count, for RS containers"},
		&cli.IntFlag{Name: "burst", Usage: "RS burst level, for RS containers"},
		&cli.BoolFlag{Name: "no-meta", Usage: "container has no metadata block"},
		&cli.BoolFlag{Name: "dry-run", Usage: "report what would move without writing anything"},
		&cli.BoolFlag{Name: "force-misalign", Usage: "scan every byte offset for the reference block"},
	},
	Action: sortAction,
}

func sortAction(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return sbxUsageError("sort requires a container path")
	}
	inPath := c.Args().Get(0)
	outPath := c.Args().Get(1)
	dryRun := c.Bool("dry-run") || outPath == ""

	src, err := os.Open(inPath)
	if err != nil {
		return cli.Exit(err, 2)
	}
	defer src.Close()
	fi, err := src.Stat()
	if err != nil {
		return cli.Exit(err, 2)
	}

	ins := sbx.NewInspector(c.Bool("force-misalign"))
	reports, err := ins.Show(src, fi.Size(), false)
	if err != nil {
		return err
	}
	report := reports[0]

	var shardCfg *sbx.ShardConfig
	if c.IsSet("rs-data") || c.IsSet("rs-parity") {
		shardCfg = &sbx.ShardConfig{Data: c.Int("rs-data"), Parity: c.Int("rs-parity"), Burst: c.Int("burst")}
		if !c.IsSet("burst") {
			guessed, err := sbx.GuessBurst(src, report.Version, report.FileUID, shardCfg.Data, shardCfg.Parity, 32)
			if err != nil {
				return err
			}
			shardCfg.Burst = guessed
		}
	}

	sorter := sbx.NewSorter(report.Version, report.FileUID, !c.Bool("no-meta"), shardCfg)

	var dst *os.File
	if !dryRun {
		dst, err = os.Create(outPath)
		if err != nil {
			return cli.Exit(err, 2)
		}
		defer dst.Close()
	} else {
		dst = src
	}

	result, err := sorter.Sort(src, dst, fi.Size(), dryRun)
	if err != nil {
		return err
	}

	log.Infof("uid %s: read %d blocks, %d out of canonical position%s",
		hex.EncodeToString(report.FileUID[:]), result.BlocksRead, result.BlocksMoved,
		dryRunSuffix(dryRun))
	return nil
}

func dryRunSuffix(dryRun bool) string {
	if dryRun {
		return " (dry run, nothing written)"
	}
	return ""
}
