package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runCalc(t *testing.T, args []string) string {
	t.Helper()
	app := &cli.App{Commands: []*cli.Command{calcCommand}}

	r, w, err := os.Pipe()
	require.NoError(t, err)
	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	runErr := app.Run(append([]string{"sbx", "calc"}, args...))
	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	require.NoError(t, runErr)
	return buf.String()
}

// TestCalcS5 reproduces spec.md §8 scenario S5 exactly: a 1,000,000-byte
// file under version 17 with rs-data=10, rs-parity=2, burst=10 needs 2017
// data blocks, 404 parity blocks, 3 metadata blocks, 2424 total blocks.
func TestCalcS5(t *testing.T) {
	out := runCalc(t, []string{"1000000", "--version", "17", "--rs-data", "10", "--rs-parity", "2", "--burst", "10"})
	require.Contains(t, out, "data blocks:   2017")
	require.Contains(t, out, "parity blocks: 404")
	require.Contains(t, out, "meta blocks:   3")
	require.Contains(t, out, "total blocks:  2424")
	require.Contains(t, out, "total bytes:   1241088")
}

func TestCalcRequiresShardFlagsForRSVersion(t *testing.T) {
	app := &cli.App{Commands: []*cli.Command{calcCommand}}
	err := app.Run([]string{"sbx", "calc", "1000", "--version", "17"})
	require.Error(t, err)
}

func TestCalcPlainVersionWithMetadata(t *testing.T) {
	out := runCalc(t, []string{"400", "--version", "1"})
	require.Contains(t, out, "data blocks:   1")
	require.Contains(t, out, "meta blocks:   1")
	require.Contains(t, out, "total blocks:  2")
	require.Contains(t, out, "total bytes:   1024")
}
