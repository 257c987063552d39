// Package execute runs parsed pipelines: it allocates the inter-stage pipes,
// spawns one process per stage and either reaps the pipeline in the
// foreground or hands it to the background job registry.
package execute

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"sshell/internal/jobs"
)

const (
	// MaxStages bounds the number of piped commands per line.
	MaxStages = 4
	// MaxArgs bounds the argument vector of a single stage.
	MaxArgs = 16
)

// Stage is one program invocation within a pipeline. InFile is only valid on
// the first stage, OutFile only on the last; the parser enforces this.
type Stage struct {
	Args    []string
	InFile  string
	OutFile string
}

// Pipeline is the parsed form of one command line. Line keeps the original
// text for completion reporting, independent of the buffer it was read from.
type Pipeline struct {
	Stages     []Stage
	Background bool
	Line       string
}

// Outcome classifies what Dispatch did with a pipeline.
type Outcome int

const (
	// Foreground means every stage was reaped and the completion reported.
	Foreground Outcome = iota
	// Background means the pipeline was accepted into the job registry.
	Background
	// Rejected means dispatch was refused; a diagnostic has already been
	// written and nothing is tracked.
	Rejected
)

// Dispatcher wires pipelines to the job registry and completion notifier.
type Dispatcher struct {
	Registry *jobs.Registry
	Notifier *jobs.Notifier
	Stderr   io.Writer
}

// Dispatch executes one pipeline. Foreground pipelines block until every
// stage has terminated and report their completion; background pipelines are
// submitted to the registry and reported later from a checkpoint.
//
// A non-nil error means process creation itself is broken and the shell
// cannot make progress; everything else is reported on Stderr and recovered.
func (d *Dispatcher) Dispatch(p *Pipeline) (Outcome, error) {
	var in, out *os.File
	last := len(p.Stages) - 1

	if name := p.Stages[0].InFile; name != "" {
		f, err := os.Open(name)
		if err != nil {
			fmt.Fprintln(d.Stderr, "Error: cannot open input file")
			return Rejected, nil
		}
		defer f.Close()
		in = f
	}
	if name := p.Stages[last].OutFile; name != "" {
		f, err := os.Create(name)
		if err != nil {
			fmt.Fprintln(d.Stderr, "Error: cannot open output file")
			return Rejected, nil
		}
		defer f.Close()
		out = f
	}

	fab, err := newFabric(len(p.Stages))
	if err != nil {
		return Rejected, err
	}
	defer fab.Close()

	pids := make([]int, len(p.Stages))
	for i, st := range p.Stages {
		stdin := os.Stdin
		switch {
		case i == 0 && in != nil:
			stdin = in
		case i > 0:
			stdin = fab.readEnd(i)
		}

		stdout := os.Stdout
		switch {
		case i == last && out != nil:
			stdout = out
		case i < last:
			stdout = fab.writeEnd(i)
		}

		pid, err := d.launch(st, stdin, stdout)
		if err != nil {
			return Rejected, err
		}
		pids[i] = pid
	}

	// Every pipe endpoint must be closed here, in the spawning process,
	// before anyone waits: a stray write end held open in the parent would
	// keep downstream readers from ever seeing EOF.
	fab.Close()

	if p.Background {
		if _, err := d.Registry.Submit(pids, p.Line); err != nil {
			fmt.Fprintln(d.Stderr, "Error: too many background jobs")
			return Rejected, nil
		}
		// If no stage spawned there is no child to deliver SIGCHLD, so the
		// checkpoints would never poll this job. Raise the flag ourselves.
		spawned := false
		for _, pid := range pids {
			if pid >= 0 {
				spawned = true
				break
			}
		}
		if !spawned {
			d.Notifier.Raise()
		}
		return Background, nil
	}

	statuses := waitAll(pids)
	jobs.Drain(d.Notifier, d.Registry, d.Stderr)
	jobs.Report(d.Stderr, p.Line, statuses)
	return Foreground, nil
}

// launch spawns one stage with the given stdio files. A stage whose program
// cannot be found or executed is local damage: the diagnostic is written, -1
// is returned in place of a pid and the siblings keep running. Only
// process-creation exhaustion surfaces as an error.
func (d *Dispatcher) launch(st Stage, stdin, stdout *os.File) (int, error) {
	path, err := exec.LookPath(st.Args[0])
	if err != nil {
		fmt.Fprintln(d.Stderr, "Error: command not found")
		return -1, nil
	}

	pid, err := syscall.ForkExec(path, st.Args, &syscall.ProcAttr{
		Env:   os.Environ(),
		Files: []uintptr{stdin.Fd(), stdout.Fd(), os.Stderr.Fd()},
	})
	if err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ENOMEM) {
			return -1, fmt.Errorf("fork: %w", err)
		}
		fmt.Fprintln(d.Stderr, "Error: command not found")
		return -1, nil
	}
	return pid, nil
}

// waitAll blocks on each pid in stage order and returns the bracketed status
// per stage: the exit status for a normal exit, 128+signum for a stage killed
// by a signal, 1 for a stage that never spawned.
func waitAll(pids []int) []int {
	statuses := make([]int, len(pids))
	for i, pid := range pids {
		if pid < 0 {
			statuses[i] = 1
			continue
		}

		var ws unix.WaitStatus
		for {
			if _, err := unix.Wait4(pid, &ws, 0, nil); err != unix.EINTR {
				break
			}
		}
		switch {
		case ws.Exited():
			statuses[i] = ws.ExitStatus()
		case ws.Signaled():
			statuses[i] = 128 + int(ws.Signal())
		}
	}
	return statuses
}
