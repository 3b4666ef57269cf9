package capper

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Faultbox/heightmesh/pkg/math"
	"github.com/Faultbox/heightmesh/pkg/mesh"
)

// WritePlot writes a Python script that draws the bottom edges above the
// cap triangles with matplotlib. Run without arguments it opens a window;
// given one argument it saves the figure to that path.
func WritePlot(w io.Writer, points []math.Vec3, edges []Edge, tris []mesh.Triangle) error {
	bw := bufio.NewWriter(w)
	xy := func(id uint32) string {
		p := points[id]
		return fmt.Sprintf("(%.9f, %.9f)", p.X, p.Y)
	}

	fmt.Fprint(bw, "#!/usr/bin/env python3\nimport sys\nimport matplotlib.pyplot as plt\n")

	fmt.Fprint(bw, "edges = [")
	for _, e := range edges {
		fmt.Fprintf(bw, "(%s, %s), ", xy(e.A), xy(e.B))
	}
	fmt.Fprint(bw, "]\n")

	fmt.Fprint(bw, "triangles = [")
	for _, t := range tris {
		fmt.Fprintf(bw, "(%s, %s, %s), ", xy(t[0]), xy(t[1]), xy(t[2]))
	}
	fmt.Fprint(bw, "]\n")

	fmt.Fprint(bw, `plt.figure()
ax = plt.subplot(2, 1, 1)
for (x0, y0), (x1, y1) in edges:
    plt.plot([x0, x1], [y0, y1])
plt.subplot(2, 1, 2, sharex=ax, sharey=ax)
for (x0, y0), (x1, y1), (x2, y2) in triangles:
    plt.fill([x0, x1, x2], [y0, y1, y2])
if len(sys.argv) == 1:
    plt.show()
elif len(sys.argv) == 2:
    plt.savefig(sys.argv[1])
else:
    print("unexpected number of arguments: " + str(sys.argv))
`)
	return bw.Flush()
}
