package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
	times "gopkg.in/djherbis/times.v1"

	"github.com/seqbox/sbx"
)

var encodeCommand = &cli.Command{
	Name:      "encode",
	Usage:     "encode a file into an SBX container",
	ArgsUsage: "<in_file> [out_file]",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "version", Value: 1, Usage: "SBX version (1, 2, 3, 17, 18, 19)"},
		&cli.BoolFlag{Name: "no-meta", Usage: "omit the metadata block (non-RS versions only)"},
		&cli.StringFlag{Name: "uid", Usage: "12 hex-digit file UID (random if omitted)"},
		&cli.IntFlag{Name: "rs-data", Usage: "RS data shard count (required for versions 17-19)"},
		&cli.IntFlag{Name: "rs-parity", Usage: "RS parity shard count (required for versions 17-19)"},
		&cli.IntFlag{Name: "burst", Usage: "RS burst interleaving level for versions 17-19 (default 0: no interleaving)"},
		&cli.StringFlag{Name: "hash", Value: "sha256", Usage: "sha1, sha256, sha512, or blake2b-512"},
		&cli.StringFlag{Name: "sbx-name", Usage: "container name recorded in SNM metadata"},
		&cli.Int64Flag{Name: "from-byte", Usage: "start of the input byte range (inclusive)"},
		&cli.Int64Flag{Name: "to-byte-exc", Usage: "end of the input byte range (exclusive)"},
		&cli.BoolFlag{Name: "progress", Usage: "print periodic progress to stderr"},
	},
	Action: encodeAction,
}

func encodeAction(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return sbxUsageError("encode requires an input file")
	}
	inPath := c.Args().Get(0)
	outPath := c.Args().Get(1)
	if outPath == "" {
		outPath = inPath + ".sbx"
	}

	version, err := sbx.ParseVersion(byte(c.Int("version")))
	if err != nil {
		return cli.Exit(err, 1)
	}

	opts := sbx.EncodeOptions{
		Version:     version,
		MetaEnabled: !c.Bool("no-meta") || version.RequiresMetadata(),
	}

	if version.UsesRS() {
		data, parity, burst := c.Int("rs-data"), c.Int("rs-parity"), c.Int("burst")
		if data <= 0 || parity <= 0 {
			return sbxUsageError("versions 17-19 require --rs-data and --rs-parity")
		}
		opts.ShardCfg = &sbx.ShardConfig{Data: data, Parity: parity, Burst: burst}
	}

	if uidHex := c.String("uid"); uidHex != "" {
		raw, err := hex.DecodeString(uidHex)
		if err != nil || len(raw) != sbx.FileUIDSize {
			return sbxUsageError("--uid must be %d hex-encoded bytes", sbx.FileUIDSize)
		}
		copy(opts.FileUID[:], raw)
		opts.HasUID = true
	}

	hashType, err := parseHashName(c.String("hash"))
	if err != nil {
		return cli.Exit(err, 1)
	}
	opts.HashType = hashType
	opts.FileName = filepath.Base(inPath)
	opts.ContainerName = c.String("sbx-name")

	in, err := os.Open(inPath)
	if err != nil {
		return cli.Exit(err, 2)
	}
	defer in.Close()

	if fi, err := in.Stat(); err == nil {
		opts.FileSize = fi.Size()
		opts.HasFileSize = true
	}
	if ts, err := times.Stat(inPath); err == nil {
		opts.FileModTime = ts.ModTime()
		opts.HasModTime = true
	}

	if c.IsSet("from-byte") || c.IsSet("to-byte-exc") {
		start := c.Int64("from-byte")
		end := c.Int64("to-byte-exc")
		if !c.IsSet("to-byte-exc") {
			end = opts.FileSize
		}
		opts.ByteRange = &sbx.ByteRange{Start: start, End: end}
		if start > 0 {
			if _, err := in.Seek(start, io.SeekStart); err != nil {
				return cli.Exit(err, 2)
			}
		}
	}

	opts.Cancel = installCancelOnSignal()

	enc, err := sbx.NewEncoder(opts)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return cli.Exit(err, 2)
	}
	defer out.Close()

	log.Infof("encoding %s -> %s (version %s)", inPath, outPath, version)
	var progress *progressReporter
	if c.Bool("progress") {
		progress = startProgress(out, time.Second)
	}
	result, err := enc.Encode(in, out)
	if progress != nil {
		progress.Stop()
	}
	if err != nil {
		return err
	}

	log.Infof("wrote %d meta, %d data, %d parity blocks (%d bytes processed, %s elapsed)",
		result.Stats.MetaBlocksWritten, result.Stats.DataBlocksWritten, result.Stats.ParityBlocksWritten,
		result.Stats.BytesProcessed, result.Stats.Elapsed)
	fmt.Printf("%s: %x\n", hashType.String(), result.Hash)
	return nil
}

func parseHashName(name string) (sbx.HashType, error) {
	switch name {
	case "sha1":
		return sbx.HashSHA1, nil
	case "sha256":
		return sbx.HashSHA256, nil
	case "sha512":
		return sbx.HashSHA512, nil
	case "blake2b-512":
		return sbx.HashBLAKE2b512, nil
	default:
		return 0, sbxUsageError("unrecognized hash %q", name)
	}
}

func sbxUsageError(format string, args ...interface{}) error {
	return cli.Exit(fmt.Sprintf(format, args...), 1)
}
