package signals

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlag_RaisedFalseUntilSignal(t *testing.T) {
	f := &Flag{}
	assert.False(t, f.Raised())

	stop := f.Watch()
	defer stop()
	assert.False(t, f.Raised())
}

func TestFlag_RaisedAfterSIGTERM(t *testing.T) {
	f := &Flag{}
	stop := f.Watch()
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Skipf("cannot send signal in this sandbox: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.Raised() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("flag was not raised after SIGTERM")
}
