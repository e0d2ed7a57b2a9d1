package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/seqbox/sbx"
)

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "decode an SBX container back to its original bytes",
	ArgsUsage: "<in_file> [out_file]",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "burst", Usage: "RS burst level, skipping the auto-guess"},
		&cli.BoolFlag{Name: "no-meta", Usage: "container has no metadata block (non-RS only)"},
		&cli.BoolFlag{Name: "force-misalign", Usage: "scan every byte offset for the reference block instead of 128-byte strides"},
		&cli.BoolFlag{Name: "multi-pass", Usage: "re-decode into an existing output, skipping blocks that already verify"},
		&cli.BoolFlag{Name: "multi-pass-no-skip", Usage: "re-decode into an existing output, rewriting every block"},
		&cli.BoolFlag{Name: "json", Usage: "print the result as JSON"},
		&cli.BoolFlag{Name: "verbose", Usage: "raise logging to debug level"},
	},
	Action: decodeAction,
}

func decodeAction(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return sbxUsageError("decode requires an input container")
	}
	inPath := c.Args().Get(0)
	outPath := c.Args().Get(1)
	if outPath == "" {
		outPath = trimSBXSuffix(inPath)
	}

	if c.Bool("verbose") {
		log.SetLevel(logrus.DebugLevel)
	}

	opts := sbx.DecodeOptions{
		NoMeta:        c.Bool("no-meta"),
		ForceMisalign: c.Bool("force-misalign"),
		Verbose:       c.Bool("verbose"),
	}
	if c.IsSet("burst") {
		b := c.Int("burst")
		opts.Burst = &b
	}
	switch {
	case c.Bool("multi-pass"):
		opts.UseSkipGood = true
		opts.SkipGood = sbx.CheckBeforeWrite
	case c.Bool("multi-pass-no-skip"):
		opts.UseSkipGood = true
		opts.SkipGood = sbx.AlwaysWrite
	}

	in, err := os.Open(inPath)
	if err != nil {
		return cli.Exit(err, 2)
	}
	defer in.Close()

	outFlags := os.O_CREATE
	if opts.UseSkipGood {
		// Read-write, so multi-pass can read back what is already there.
		outFlags |= os.O_RDWR
	} else {
		outFlags |= os.O_WRONLY | os.O_TRUNC
	}
	out, err := os.OpenFile(outPath, outFlags, 0644)
	if err != nil {
		return cli.Exit(err, 2)
	}
	defer out.Close()

	dec := sbx.NewDecoder(opts)
	log.Infof("decoding %s -> %s", inPath, outPath)
	result, err := dec.Decode(in, out)
	if err != nil {
		return err
	}

	if result.HashVerified && result.HashMismatch {
		log.Warn("decoded content does not match the stored hash")
	}
	log.Infof("wrote %d bytes (%d data blocks, %s elapsed)",
		result.BytesWritten, result.Stats.DataBlocksWritten, result.Stats.Elapsed)

	if c.Bool("json") {
		return printDecodeJSON(result)
	}
	return nil
}

// trimSBXSuffix strips a trailing ".sbx" extension, matching what encode
// appended by default.
func trimSBXSuffix(path string) string {
	const suffix = ".sbx"
	if len(path) > len(suffix) && path[len(path)-len(suffix):] == suffix {
		return path[:len(path)-len(suffix)]
	}
	return path + ".out"
}
