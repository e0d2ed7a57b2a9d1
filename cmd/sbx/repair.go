package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/seqbox/sbx"
)

var repairCommand = &cli.Command{
	Name:      "repair",
	Usage:     "reconstruct missing or corrupt blocks of an RS-protected container in place",
	ArgsUsage: "<container_file>",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "rs-data", Usage: "RS data shard count"},
		&cli.IntFlag{Name: "rs-parity", Usage: "RS parity shard count"},
		&cli.IntFlag{Name: "burst", Usage: "RS burst level (guessed if omitted)"},
		&cli.BoolFlag{Name: "force-misalign", Usage: "scan every byte offset for the reference block"},
		&cli.BoolFlag{Name: "json", Usage: "print the repair report as JSON"},
	},
	Action: repairAction,
}

func repairAction(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return sbxUsageError("repair requires a container path")
	}
	path := c.Args().Get(0)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return cli.Exit(err, 2)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return cli.Exit(err, 2)
	}

	ins := sbx.NewInspector(c.Bool("force-misalign"))
	reports, err := ins.Show(f, fi.Size(), false)
	if err != nil {
		return err
	}
	report := reports[0]

	if !report.Version.UsesRS() {
		return sbxUsageError("%s is not an RS-protected version, nothing to repair", report.Version)
	}
	data, parity := c.Int("rs-data"), c.Int("rs-parity")
	if data <= 0 || parity <= 0 {
		return sbxUsageError("repair requires --rs-data and --rs-parity")
	}

	burst := c.Int("burst")
	if !c.IsSet("burst") {
		guessed, err := sbx.GuessBurst(f, report.Version, report.FileUID, data, parity, 32)
		if err != nil {
			return err
		}
		burst = guessed
	}
	shardCfg := sbx.ShardConfig{Data: data, Parity: parity, Burst: burst}

	rp, err := sbx.NewRepairer(report.Version, report.FileUID, shardCfg)
	if err != nil {
		return err
	}

	blockSize := int64(report.Version.BlockSize())
	totalBlocks := fi.Size() / blockSize
	dataSetCount := int((totalBlocks - int64(shardCfg.MetaCopies())) / int64(shardCfg.Total()))

	metaResult, err := rp.RepairMetadata(f)
	if err != nil {
		return err
	}
	result, err := rp.Repair(f, dataSetCount)
	if err != nil {
		return err
	}

	log.Infof("uid %s: repaired %d blocks, %d unrecoverable across %d RS sets (metadata: %d/%d copies present)",
		hex.EncodeToString(report.FileUID[:]), result.BlocksFixed, result.BlocksLost, len(result.Sets),
		metaResult.PresentCount, metaResult.PresentCount+metaResult.MissingCount)

	if c.Bool("json") {
		return printRepairJSON(metaResult, result)
	}
	if result.BlocksLost > 0 {
		fmt.Printf("warning: %d blocks could not be reconstructed\n", result.BlocksLost)
	}
	return nil
}
