package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestEncodeDecodeCLIRoundTripPlain(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "payload.txt")
	require.NoError(t, os.WriteFile(inPath, []byte("the quick brown fox\n"), 0644))

	sbxPath := filepath.Join(dir, "payload.sbx")
	app := &cli.App{Commands: []*cli.Command{encodeCommand}}
	require.NoError(t, app.Run([]string{"sbx", "encode", inPath, sbxPath, "--version", "1"}))

	outPath := filepath.Join(dir, "payload.out")
	app = &cli.App{Commands: []*cli.Command{decodeCommand}}
	require.NoError(t, app.Run([]string{"sbx", "decode", sbxPath, outPath}))

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, "the quick brown fox\n", string(got))
}

func TestEncodeDecodeRepairCLIRoundTripRS(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "payload.bin")
	content := make([]byte, 4000)
	for i := range content {
		content[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(inPath, content, 0644))

	sbxPath := filepath.Join(dir, "payload.sbx")
	app := &cli.App{Commands: []*cli.Command{encodeCommand}}
	require.NoError(t, app.Run([]string{
		"sbx", "encode", inPath, sbxPath,
		"--version", "17", "--rs-data", "3", "--rs-parity", "2", "--burst", "4",
	}))

	f, err := os.OpenFile(sbxPath, os.O_RDWR, 0644)
	require.NoError(t, err)
	blockSize := 512
	zeroed := make([]byte, blockSize)
	_, err = f.WriteAt(zeroed, int64(3)*int64(blockSize))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	app = &cli.App{Commands: []*cli.Command{repairCommand}}
	require.NoError(t, app.Run([]string{
		"sbx", "repair", sbxPath, "--rs-data", "3", "--rs-parity", "2", "--burst", "4",
	}))

	outPath := filepath.Join(dir, "payload.out")
	app = &cli.App{Commands: []*cli.Command{decodeCommand}}
	require.NoError(t, app.Run([]string{"sbx", "decode", sbxPath, outPath}))

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestEncodeRejectsMissingInputArg(t *testing.T) {
	app := &cli.App{Commands: []*cli.Command{encodeCommand}}
	err := app.Run([]string{"sbx", "encode"})
	require.Error(t, err)
}
