package capper

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/heightmesh/pkg/math"
	"github.com/Faultbox/heightmesh/pkg/mesh"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestWritePlot(t *testing.T) {
	pts := []math.Vec3{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0.5, Y: 2}}
	edges := []Edge{{0, 1}, {1, 2}, {2, 0}}
	tris := []mesh.Triangle{{0, 2, 1}}

	var sb strings.Builder
	require.NoError(t, WritePlot(&sb, pts, edges, tris))
	out := sb.String()

	assert.True(t, strings.HasPrefix(out, "#!/usr/bin/env python3\n"))
	assert.Contains(t, out, "edges = [((0.000000000, 0.000000000), (1.000000000, 0.000000000)), ")
	assert.Contains(t, out,
		"triangles = [((0.000000000, 0.000000000), (0.500000000, 2.000000000), (1.000000000, 0.000000000)), ]\n")
	assert.Contains(t, out, "plt.savefig(sys.argv[1])")
	assert.Equal(t, 1, strings.Count(out, "plt.fill("))
}

func TestWritePlot_Empty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WritePlot(&sb, nil, nil, nil))
	assert.Contains(t, sb.String(), "edges = []\n")
	assert.Contains(t, sb.String(), "triangles = []\n")
}

func TestWritePlot_WriteError(t *testing.T) {
	err := WritePlot(failingWriter{}, nil, nil, nil)
	assert.EqualError(t, err, "disk full")
}
