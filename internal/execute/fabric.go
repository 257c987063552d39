package execute

import (
	"fmt"
	"os"
)

// fabric holds the N-1 pipes connecting an N-stage pipeline. os.Pipe
// descriptors are close-on-exec, so a child only ever inherits the two ends
// the launcher passes as its stdio; the parent's copies are released by
// Close.
type fabric struct {
	pipes [][2]*os.File // read end, write end
}

func newFabric(stages int) (*fabric, error) {
	f := &fabric{}
	for i := 0; i < stages-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("pipe: %w", err)
		}
		f.pipes = append(f.pipes, [2]*os.File{r, w})
	}
	return f, nil
}

// readEnd returns the file stage i reads from: the read end of pipe i-1.
// Stage 0 has no upstream pipe.
func (f *fabric) readEnd(i int) *os.File {
	if i == 0 {
		return nil
	}
	return f.pipes[i-1][0]
}

// writeEnd returns the file stage i writes to: the write end of pipe i.
// The last stage has no downstream pipe.
func (f *fabric) writeEnd(i int) *os.File {
	if i >= len(f.pipes) {
		return nil
	}
	return f.pipes[i][1]
}

// Close closes every endpoint of every pipe. Safe to call more than once.
func (f *fabric) Close() {
	for _, p := range f.pipes {
		p[0].Close()
		p[1].Close()
	}
}
