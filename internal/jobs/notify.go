package jobs

import (
	"os"
	"os/signal"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Notifier turns SIGCHLD into a single sticky flag. It never says which
// child terminated, only that the registry is worth polling again; rapid
// terminations coalesce into one flag set, which is fine because
// PollCompleted rescans everything anyway.
type Notifier struct {
	flag atomic.Bool
	sigs chan os.Signal
}

func NewNotifier() *Notifier {
	return &Notifier{sigs: make(chan os.Signal, 1)}
}

// Start registers for SIGCHLD. The signal path does nothing but flip the
// flag; all reaping happens synchronously at control-loop checkpoints.
func (n *Notifier) Start() {
	signal.Notify(n.sigs, unix.SIGCHLD)
	go func() {
		for range n.sigs {
			n.flag.Store(true)
		}
	}()
}

// Stop unregisters the signal and releases the delivery goroutine.
func (n *Notifier) Stop() {
	signal.Stop(n.sigs)
	close(n.sigs)
}

// Raise sets the flag from the control path. Needed for jobs that have no
// live process left to terminate: no SIGCHLD will ever arrive for them, yet
// the next checkpoint must still report them.
func (n *Notifier) Raise() {
	n.flag.Store(true)
}

// Consume reports whether a child terminated since the last call, clearing
// the flag atomically.
func (n *Notifier) Consume() bool {
	return n.flag.Swap(false)
}
