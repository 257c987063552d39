// Package shell owns the interactive control loop: read a line, run the
// builtins that need the job table, dispatch everything else, and drain
// background completions at fixed checkpoints.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	"sshell/internal/execute"
	"sshell/internal/jobs"
	"sshell/internal/parser"
	"sshell/internal/prompt"
)

type Shell struct {
	registry *jobs.Registry
	notifier *jobs.Notifier
	disp     *execute.Dispatcher
	stdin    *os.File
	stdout   io.Writer
	stderr   io.Writer
}

func New() *Shell {
	registry := jobs.NewRegistry()
	notifier := jobs.NewNotifier()
	return &Shell{
		registry: registry,
		notifier: notifier,
		disp: &execute.Dispatcher{
			Registry: registry,
			Notifier: notifier,
			Stderr:   os.Stderr,
		},
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Run drives the read-parse-dispatch loop until the exit builtin or EOF.
// When stdin is not a terminal each line is echoed after the prompt so
// scripted transcripts read like an interactive session. EOF is treated as
// the exit builtin, so it is refused the same way while jobs are active.
func (s *Shell) Run() error {
	s.notifier.Start()
	defer s.notifier.Stop()

	interactive := term.IsTerminal(int(s.stdin.Fd()))

	var rl *readline.Instance
	var sc *bufio.Scanner
	if interactive {
		r, err := readline.New(prompt.Text())
		if err != nil {
			return fmt.Errorf("readline: %w", err)
		}
		defer r.Close()
		rl = r
	} else {
		sc = bufio.NewScanner(s.stdin)
	}

	for {
		// Checkpoint: report finished background jobs before prompting.
		jobs.Drain(s.notifier, s.registry, s.stderr)

		var line string
		if interactive {
			l, err := rl.Readline()
			switch err {
			case nil:
				line = l
			case readline.ErrInterrupt:
				continue
			default:
				fmt.Fprintln(s.stdout, "exit")
				line = "exit"
			}
		} else {
			prompt.Out(s.stdout)
			if sc.Scan() {
				line = sc.Text()
			} else {
				line = "exit"
			}
			fmt.Fprintln(s.stdout, line)
		}

		quit, err := s.runLine(line)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

// runLine parses and executes one line. It returns true when the shell
// should terminate, and a non-nil error only for unrecoverable dispatch
// failure.
func (s *Shell) runLine(line string) (bool, error) {
	if strings.TrimSpace(line) == "" {
		return false, nil
	}

	p, err := parser.Parse(line)
	if err != nil {
		fmt.Fprintf(s.stderr, "Error: %v\n", err)
		return false, nil
	}

	args := p.Stages[0].Args
	switch args[0] {
	case "exit":
		if s.registry.HasActive() {
			fmt.Fprintln(s.stderr, "Error: active job still running")
			// Checkpoint: a job may have finished since the last prompt.
			jobs.Drain(s.notifier, s.registry, s.stderr)
			jobs.Report(s.stderr, "exit", []int{1})
			return false, nil
		}
		fmt.Fprintln(s.stderr, "Bye...")
		jobs.Report(s.stderr, "exit", []int{0})
		return true, nil
	case "pwd":
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(s.stderr, "Error: cannot get current directory")
			jobs.Report(s.stderr, p.Line, []int{1})
			return false, nil
		}
		fmt.Fprintln(s.stdout, cwd)
		jobs.Report(s.stderr, p.Line, []int{0})
		return false, nil
	case "cd":
		status := 0
		if len(args) != 2 || os.Chdir(args[1]) != nil {
			fmt.Fprintln(s.stderr, "Error: cannot cd into directory")
			status = 1
		}
		jobs.Report(s.stderr, p.Line, []int{status})
		return false, nil
	}

	if _, err := s.disp.Dispatch(p); err != nil {
		return false, err
	}
	return false, nil
}
