package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"sshell/internal/execute"
)

func TestParseSingleCommand(t *testing.T) {
	p, err := Parse("echo hello world")

	assert.NoError(t, err)
	assert.False(t, p.Background)
	assert.Equal(t, "echo hello world", p.Line)
	assert.Len(t, p.Stages, 1)
	assert.Equal(t, []string{"echo", "hello", "world"}, p.Stages[0].Args)
}

func TestParsePipeline(t *testing.T) {
	p, err := Parse("ls -l | grep foo|wc -l")

	assert.NoError(t, err)
	assert.Len(t, p.Stages, 3)
	assert.Equal(t, []string{"ls", "-l"}, p.Stages[0].Args)
	assert.Equal(t, []string{"grep", "foo"}, p.Stages[1].Args)
	assert.Equal(t, []string{"wc", "-l"}, p.Stages[2].Args)
}

func TestParseBackground(t *testing.T) {
	p, err := Parse("sleep 1 &")

	assert.NoError(t, err)
	assert.True(t, p.Background)
	assert.Equal(t, "sleep 1 &", p.Line)
	assert.Equal(t, []string{"sleep", "1"}, p.Stages[0].Args)
}

func TestParseRedirection(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	assert.NoError(t, os.WriteFile(in, []byte("data\n"), 0644))

	p, err := Parse("cat <" + in + " > " + out)

	assert.NoError(t, err)
	assert.Len(t, p.Stages, 1)
	assert.Equal(t, []string{"cat"}, p.Stages[0].Args)
	assert.Equal(t, in, p.Stages[0].InFile)
	assert.Equal(t, out, p.Stages[0].OutFile)

	// The output target is created and truncated at parse time.
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestParseRedirectionOnPipelineBoundaries(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	out := filepath.Join(dir, "out.txt")
	assert.NoError(t, os.WriteFile(in, nil, 0644))

	p, err := Parse("cat < " + in + " | tr a b | wc -c > " + out)

	assert.NoError(t, err)
	assert.Len(t, p.Stages, 3)
	assert.Equal(t, in, p.Stages[0].InFile)
	assert.Empty(t, p.Stages[0].OutFile)
	assert.Empty(t, p.Stages[1].InFile)
	assert.Empty(t, p.Stages[1].OutFile)
	assert.Equal(t, out, p.Stages[2].OutFile)
}

func TestParseErrors(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.txt")

	cases := map[string]struct {
		line string
		want error
	}{
		"leading pipe":            {"| cat", ErrMissingCommand},
		"trailing pipe":           {"cat |", ErrMissingCommand},
		"empty stage":             {"cat | | wc", ErrMissingCommand},
		"bare background":         {"&", ErrMissingCommand},
		"redirection only":        {"> out.txt", ErrMissingCommand},
		"background mid-line":     {"sleep 1 & echo hi", ErrMislocatedBackground},
		"input on later stage":    {"cat | wc < " + missing, ErrMislocatedInput},
		"output on earlier stage": {"cat > out.txt | wc", ErrMislocatedOutput},
		"missing input target":    {"cat <", ErrNoInputFile},
		"missing output target":   {"cat >", ErrNoOutputFile},
		"unreadable input":        {"cat < " + missing, ErrCannotOpenInput},
		"unwritable output":       {"cat > " + filepath.Join(dir, "no", "out.txt"), ErrCannotOpenOutput},
		"too many stages":         {"a | b | c | d | e", ErrTooManyStages},
		"too many arguments":      {"echo " + strings.Repeat("x ", execute.MaxArgs+1), ErrTooManyArguments},
		"oversize line":           {strings.Repeat("a", MaxLine+1), ErrLineTooLong},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := Parse(tc.line)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
