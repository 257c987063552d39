package execute

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFabricSingleStage(t *testing.T) {
	f, err := newFabric(1)

	assert.NoError(t, err)
	assert.Empty(t, f.pipes)
	assert.Nil(t, f.readEnd(0))
	assert.Nil(t, f.writeEnd(0))
	f.Close()
}

func TestFabricEndpoints(t *testing.T) {
	f, err := newFabric(3)
	assert.NoError(t, err)
	defer f.Close()

	assert.Len(t, f.pipes, 2)
	assert.Nil(t, f.readEnd(0))
	assert.Nil(t, f.writeEnd(2))

	// Stage i's write end feeds stage i+1's read end.
	_, err = f.writeEnd(0).WriteString("ping")
	assert.NoError(t, err)

	buf := make([]byte, 4)
	_, err = f.readEnd(1).Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestFabricCloseReleasesAllEndpoints(t *testing.T) {
	f, err := newFabric(4)
	assert.NoError(t, err)

	f.Close()

	for _, p := range f.pipes {
		_, rerr := p[0].Read(make([]byte, 1))
		assert.Error(t, rerr)
		_, werr := p[1].WriteString("x")
		assert.Error(t, werr)
	}

	// Double close must be harmless.
	f.Close()
}
