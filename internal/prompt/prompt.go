package prompt

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

const text = "sshell@ucd$ "

// Text returns the prompt string, highlighted when stdout is a terminal.
func Text() string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return color.New(color.FgGreen, color.Bold).Sprint(text)
	}
	return text
}

// Out writes the plain prompt, used when input is scripted and the line loop
// echoes commands itself.
func Out(w io.Writer) {
	fmt.Fprint(w, text)
}
