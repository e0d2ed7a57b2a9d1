package main

import (
	"fmt"
	"os"
	"time"
)

// progressReporter prints periodic "bytes written so far" lines to stderr
// while a long-running encode is in flight, by polling the output file's
// size — the core package doesn't expose a progress callback, so this
// watches the same file descriptor the encoder is writing through.
type progressReporter struct {
	stop chan struct{}
	done chan struct{}
}

// startProgress begins polling f's size every interval and printing it to
// stderr until Stop is called.
func startProgress(f *os.File, interval time.Duration) *progressReporter {
	p := &progressReporter{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				if fi, err := f.Stat(); err == nil {
					fmt.Fprintf(os.Stderr, "\r%d bytes written", fi.Size())
				}
			}
		}
	}()
	return p
}

func (p *progressReporter) Stop() {
	close(p.stop)
	<-p.done
	fmt.Fprintln(os.Stderr)
}
