// Package jobs tracks in-flight background pipelines and the asynchronous
// child-termination signal that triggers their reaping. The registry is only
// ever touched by the control loop at checkpoints; the signal path sets a
// single flag and nothing else.
package jobs

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sys/unix"
)

// MaxJobs bounds the number of background pipelines tracked at once.
const MaxJobs = 16

// ErrRegistryFull is returned by Submit when the job table is saturated. The
// rejected pipeline's processes keep running untracked.
var ErrRegistryFull = errors.New("job table full")

// Completion is one finished background job ready to be reported.
type Completion struct {
	Line     string
	Statuses []int
}

// record is the bookkeeping for one background pipeline. A stage that never
// spawned holds pid -1 and is pre-marked done with status 1.
type record struct {
	pids     []int
	statuses []int
	done     []bool
	line     string
}

// waitFunc performs a non-blocking liveness check on one pid. It reports
// whether the process has been reaped and, if so, its bracketed status.
type waitFunc func(pid int) (reaped bool, status int)

// Registry is a bounded FIFO table of background jobs. Records keep their
// submission order across polls, so jobs that finish in the same pass are
// reported first-submitted-first.
type Registry struct {
	records []*record
	lastID  int
	wait    waitFunc
}

func NewRegistry() *Registry {
	return &Registry{
		records: make([]*record, 0, MaxJobs),
		wait:    sysWait,
	}
}

// Submit registers a background pipeline and returns its job id. The command
// text is copied so the report outlives the line buffer it was read from.
func (r *Registry) Submit(pids []int, line string) (int, error) {
	if len(r.records) >= MaxJobs {
		return 0, ErrRegistryFull
	}

	rec := &record{
		pids:     append([]int(nil), pids...),
		statuses: make([]int, len(pids)),
		done:     make([]bool, len(pids)),
		line:     strings.Clone(line),
	}
	for i, pid := range pids {
		if pid < 0 {
			rec.done[i] = true
			rec.statuses[i] = 1
		}
	}

	r.records = append(r.records, rec)
	r.lastID++
	return r.lastID, nil
}

// PollCompleted scans every record in submission order, reaping whatever has
// terminated without blocking. A job is complete only when all of its
// processes are done; completed jobs are returned exactly once and removed,
// and the remaining records are compacted to the front without reordering.
func (r *Registry) PollCompleted() []Completion {
	var out []Completion

	kept := r.records[:0]
	for _, rec := range r.records {
		all := true
		for i, pid := range rec.pids {
			if rec.done[i] {
				continue
			}
			reaped, status := r.wait(pid)
			if !reaped {
				all = false
				break
			}
			rec.done[i] = true
			rec.statuses[i] = status
		}

		if all {
			out = append(out, Completion{Line: rec.line, Statuses: rec.statuses})
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept

	return out
}

// HasActive reports whether any background job is still tracked. The exit
// builtin is refused while this is true.
func (r *Registry) HasActive() bool {
	return len(r.records) > 0
}

// sysWait polls one child with WNOHANG. A stage killed by a signal reports
// 128+signum. A wait error means the child is gone; its slot keeps the
// zero status.
func sysWait(pid int) (bool, int) {
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
	if err != nil {
		return true, 0
	}
	if wpid == 0 {
		return false, 0
	}
	switch {
	case ws.Exited():
		return true, ws.ExitStatus()
	case ws.Signaled():
		return true, 128 + int(ws.Signal())
	}
	return false, 0
}

// Report writes one completion line: the original command text followed by
// the bracketed status of every stage in order.
func Report(w io.Writer, line string, statuses []int) {
	var b strings.Builder
	fmt.Fprintf(&b, "+ completed '%s' ", line)
	for _, status := range statuses {
		fmt.Fprintf(&b, "[%d]", status)
	}
	fmt.Fprintln(w, b.String())
}

// Drain is the checkpoint routine: it consumes the notifier flag and, when
// set, reports every job that has completed since the last checkpoint.
func Drain(n *Notifier, r *Registry, w io.Writer) {
	if !n.Consume() {
		return
	}
	for _, c := range r.PollCompleted() {
		Report(w, c.Line, c.Statuses)
	}
}
