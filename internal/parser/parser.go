// Package parser turns one command line into an execute.Pipeline. The
// grammar is pipes, boundary redirection and a trailing background marker;
// every malformed line maps to one of the typed errors below, whose text is
// the user-visible diagnostic.
package parser

import (
	"errors"
	"os"
	"strings"

	"sshell/internal/execute"
)

// MaxLine bounds the length of an accepted command line.
const MaxLine = 512

var (
	ErrMissingCommand       = errors.New("missing command")
	ErrMislocatedBackground = errors.New("mislocated background sign")
	ErrMislocatedInput      = errors.New("mislocated input redirection")
	ErrMislocatedOutput     = errors.New("mislocated output redirection")
	ErrNoInputFile          = errors.New("no input file")
	ErrNoOutputFile         = errors.New("no output file")
	ErrCannotOpenInput      = errors.New("cannot open input file")
	ErrCannotOpenOutput     = errors.New("cannot open output file")
	ErrTooManyArguments     = errors.New("too many process arguments")
	ErrTooManyStages        = errors.New("too many commands")
	ErrLineTooLong          = errors.New("command line too long")
)

// Parse builds a pipeline from line. The returned pipeline keeps line
// verbatim for completion reporting. Redirection targets are validated here,
// before any process exists: the input file must be readable and the output
// file is created (and truncated) up front.
func Parse(line string) (*execute.Pipeline, error) {
	if len(line) > MaxLine {
		return nil, ErrLineTooLong
	}

	p := &execute.Pipeline{Line: line}

	text := strings.TrimSpace(line)
	if strings.HasSuffix(text, "&") {
		p.Background = true
		text = strings.TrimSpace(strings.TrimSuffix(text, "&"))
		if text == "" {
			return nil, ErrMissingCommand
		}
	}
	if strings.ContainsRune(text, '&') {
		return nil, ErrMislocatedBackground
	}

	text = padOperators(text)

	parts := strings.Split(text, "|")
	if len(parts) > execute.MaxStages {
		return nil, ErrTooManyStages
	}

	for i, part := range parts {
		st, err := parseStage(part, i == 0, i == len(parts)-1)
		if err != nil {
			return nil, err
		}
		p.Stages = append(p.Stages, st)
	}

	return p, nil
}

// parseStage splits one pipe-delimited segment into an argument vector,
// peeling off redirection operators. Input redirection is only legal on the
// first stage, output redirection only on the last.
func parseStage(part string, first, last bool) (execute.Stage, error) {
	var st execute.Stage

	tokens := strings.Fields(part)
	if len(tokens) == 0 || tokens[0] == "<" || tokens[0] == ">" {
		return st, ErrMissingCommand
	}

	for i := 0; i < len(tokens); i++ {
		switch tokens[i] {
		case "<":
			if !first {
				return st, ErrMislocatedInput
			}
			if i+1 >= len(tokens) {
				return st, ErrNoInputFile
			}
			i++
			st.InFile = tokens[i]
			f, err := os.Open(st.InFile)
			if err != nil {
				return st, ErrCannotOpenInput
			}
			f.Close()
		case ">":
			if !last {
				return st, ErrMislocatedOutput
			}
			if i+1 >= len(tokens) {
				return st, ErrNoOutputFile
			}
			i++
			st.OutFile = tokens[i]
			f, err := os.Create(st.OutFile)
			if err != nil {
				return st, ErrCannotOpenOutput
			}
			f.Close()
		default:
			st.Args = append(st.Args, tokens[i])
		}
	}

	if len(st.Args) > execute.MaxArgs {
		return st, ErrTooManyArguments
	}
	return st, nil
}

// padOperators surrounds |, < and > with spaces so a plain field split
// tokenizes lines like "a|b>c".
func padOperators(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '|', '<', '>':
			b.WriteByte(' ')
			b.WriteByte(text[i])
			b.WriteByte(' ')
		default:
			b.WriteByte(text[i])
		}
	}
	return b.String()
}
