// Package signals implements cooperative cancellation for the ingest
// pipeline: a signal handler flips a shared atomic flag, and the
// ingest loop checks it between sections rather than suspending
// mid-section.
package signals

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Flag is a checked-between-sections shutdown signal.
type Flag struct {
	raised atomic.Bool
}

// Watch installs a SIGINT/SIGTERM handler that raises the flag on the
// first signal and returns a function to remove it.
func (f *Flag) Watch() (stop func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			f.raised.Store(true)
		case <-done:
		}
	}()

	return func() {
		close(done)
		signal.Stop(ch)
	}
}

// Raised reports whether a shutdown signal has been received.
func (f *Flag) Raised() bool {
	return f.raised.Load()
}
