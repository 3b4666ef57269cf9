package formats

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	stdmath "math"

	"github.com/Faultbox/heightmesh/pkg/math"
	"github.com/Faultbox/heightmesh/pkg/mesh"
)

// STL format errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrInvalidSTLData   = errors.New("invalid STL data")
)

const (
	stlHeaderSize = 80
	stlFacetSize  = 4*3*4 + 2 // normal, three vertices, attribute count
)

// WriteSTL writes a binary STL file with a zeroed header. Facet normals are
// computed from the winding; degenerate triangles get a zero normal.
func WriteSTL(w io.Writer, points []math.Vec3, triangles []mesh.Triangle) error {
	if uint64(len(triangles)) > mesh.MaxCount {
		return fmt.Errorf("%w: %d triangles", mesh.ErrCapacityExceeded, len(triangles))
	}

	bw := bufio.NewWriter(w)
	var header [stlHeaderSize + 4]byte
	binary.LittleEndian.PutUint32(header[stlHeaderSize:], uint32(len(triangles)))
	bw.Write(header[:])

	var facet [stlFacetSize]byte
	put := func(off int, v math.Vec3) {
		binary.LittleEndian.PutUint32(facet[off:], stdmath.Float32bits(v.X))
		binary.LittleEndian.PutUint32(facet[off+4:], stdmath.Float32bits(v.Y))
		binary.LittleEndian.PutUint32(facet[off+8:], stdmath.Float32bits(v.Z))
	}
	for i, t := range triangles {
		for _, id := range t {
			if int64(id) >= int64(len(points)) {
				return fmt.Errorf("triangle %d references vertex %d of %d", i, id, len(points))
			}
		}
		a, b, c := points[t[0]], points[t[1]], points[t[2]]
		put(0, math.TriangleNormal(a, b, c))
		put(12, a)
		put(24, b)
		put(36, c)
		// facet[48:50] stays zero: attribute byte count
		if _, err := bw.Write(facet[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadSTL reads a binary STL file. Vertices are deduplicated by exact
// coordinates, so a watertight solid comes back as a shared-vertex mesh.
func ReadSTL(r io.Reader) (*mesh.Mesh, error) {
	var header struct {
		H    [stlHeaderSize]byte
		NTri uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: header", ErrTruncatedSTLData)
	}
	if string(header.H[:5]) == "solid" && header.NTri == 0 {
		return nil, fmt.Errorf("%w: ASCII STL is not supported", ErrInvalidSTLData)
	}

	index := mesh.NewVertexIndex()
	tris := make([]mesh.Triangle, 0, min(header.NTri, 1<<20))
	buf := make([]byte, stlFacetSize)
	for i := 0; i < int(header.NTri); i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: facet %d of %d", ErrTruncatedSTLData, i, header.NTri)
		}
		var t mesh.Triangle
		for v := range t {
			const start = 3 * 4 // skip normal
			off := start + 12*v
			p := math.Vec3{
				X: stdmath.Float32frombits(binary.LittleEndian.Uint32(buf[off:])),
				Y: stdmath.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:])),
				Z: stdmath.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:])),
			}
			id, err := index.Intern(p)
			if err != nil {
				return nil, err
			}
			t[v] = id
		}
		tris = append(tris, t)
	}

	return &mesh.Mesh{Points: index.Points(), Triangles: tris}, nil
}
