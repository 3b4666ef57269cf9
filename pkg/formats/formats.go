// Package formats provides readers and writers for heightmap blobs and for
// binary PLY and STL meshes.
package formats

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/heightmesh/pkg/mesh"
)

// ErrUnknownMeshFormat is returned when a mesh format cannot be inferred.
var ErrUnknownMeshFormat = errors.New("unknown mesh format")

// MeshFormat names an on-disk mesh encoding.
type MeshFormat string

// Supported mesh formats.
const (
	FormatPLY MeshFormat = "ply"
	FormatSTL MeshFormat = "stl"
)

// ParseMeshFormat validates a format name such as "ply" or "STL".
func ParseMeshFormat(name string) (MeshFormat, error) {
	switch f := MeshFormat(strings.ToLower(name)); f {
	case FormatPLY, FormatSTL:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMeshFormat, name)
	}
}

// FormatFor infers the mesh format from a file extension.
func FormatFor(path string) (MeshFormat, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnknownMeshFormat, path)
	}
	return ParseMeshFormat(ext)
}

// EncodeMesh writes m to w in the given format.
func EncodeMesh(w io.Writer, m *mesh.Mesh, f MeshFormat) error {
	switch f {
	case FormatPLY:
		return WritePLY(w, m.Points, m.Triangles)
	case FormatSTL:
		return WriteSTL(w, m.Points, m.Triangles)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMeshFormat, f)
	}
}

// DecodeMesh reads a mesh from r in the given format.
func DecodeMesh(r io.Reader, f MeshFormat) (*mesh.Mesh, error) {
	switch f {
	case FormatPLY:
		return ReadPLY(r)
	case FormatSTL:
		return ReadSTL(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMeshFormat, f)
	}
}

// ReadMeshFile loads a PLY or STL mesh, choosing the codec by extension.
func ReadMeshFile(path string) (*mesh.Mesh, error) {
	f, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening mesh: %w", err)
	}
	defer file.Close()

	m, err := DecodeMesh(file, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
