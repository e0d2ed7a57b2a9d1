package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/seqbox/sbx"
)

// log is the single shared logger threaded through every subcommand
// (spec.md §1 ambient logging: one instance, text formatter, Info for
// operational messages and Warn for recoverable per-block errors).
var log = logrus.New()

func main() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := &cli.App{
		Name:  "sbx",
		Usage: "encode, decode, repair, sort, and inspect SeqBox containers",
		Commands: []*cli.Command{
			encodeCommand,
			decodeCommand,
			repairCommand,
			showCommand,
			sortCommand,
			calcCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an sbx.Kind to the process exit code contract in
// SPEC_FULL.md §1: usage errors are 1, I/O errors are 2, everything else
// (format/RS/invariant/too-much-metadata) is 3. A cli.ExitCoder (from
// cli.Exit, used for plain flag/argument mistakes) carries its own code.
func exitCodeFor(err error) int {
	if coder, ok := err.(cli.ExitCoder); ok {
		return coder.ExitCode()
	}
	kind, ok := sbx.KindOf(err)
	if !ok {
		return 3
	}
	switch kind {
	case sbx.KindUsage:
		return 1
	case sbx.KindIO:
		return 2
	default:
		return 3
	}
}

// installCancelOnSignal returns the cancellation flag the Encoder polls
// before each input read (spec.md §5) and sets it the first time SIGINT or
// SIGTERM arrives during a run; a second signal exits the process
// immediately with status 130 rather than hanging forever on an
// unresponsive pipeline stage.
func installCancelOnSignal() *int32 {
	var flag int32
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		log.Warn("received interrupt, finishing the current lot before stopping")
		sbx.SetCanceled(&flag)
		<-ch
		os.Exit(130)
	}()
	return &flag
}
