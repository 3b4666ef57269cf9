package formats

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	stdmath "math"
	"strconv"
	"strings"

	"github.com/Faultbox/heightmesh/pkg/math"
	"github.com/Faultbox/heightmesh/pkg/mesh"
)

// PLY format errors.
var (
	ErrInvalidPLYMagic       = errors.New("invalid PLY magic: expected 'ply'")
	ErrUnsupportedPLYFormat  = errors.New("unsupported PLY format")
	ErrMalformedPLYHeader    = errors.New("malformed PLY header")
	ErrTruncatedPLYData      = errors.New("truncated PLY data")
	ErrInvalidPLYFaceIndices = errors.New("PLY face references missing vertex")
)

// WritePLY writes a binary little-endian PLY file. Header lines end in CRLF.
func WritePLY(w io.Writer, points []math.Vec3, triangles []mesh.Triangle) error {
	if uint64(len(points)) > mesh.MaxCount || uint64(len(triangles)) > mesh.MaxCount {
		return fmt.Errorf("%w: %d vertices, %d triangles", mesh.ErrCapacityExceeded, len(points), len(triangles))
	}

	bw := bufio.NewWriter(w)
	header := []string{
		"ply",
		"format binary_little_endian 1.0",
		fmt.Sprintf("element vertex %d", len(points)),
		"property float x",
		"property float y",
		"property float z",
		fmt.Sprintf("element face %d", len(triangles)),
		"property list uchar uint vertex_indices",
		"end_header",
	}
	for _, line := range header {
		bw.WriteString(line)
		bw.WriteString("\r\n")
	}

	var rec [13]byte
	for _, p := range points {
		binary.LittleEndian.PutUint32(rec[0:], stdmath.Float32bits(p.X))
		binary.LittleEndian.PutUint32(rec[4:], stdmath.Float32bits(p.Y))
		binary.LittleEndian.PutUint32(rec[8:], stdmath.Float32bits(p.Z))
		bw.Write(rec[:12])
	}
	rec[0] = 3
	for _, t := range triangles {
		binary.LittleEndian.PutUint32(rec[1:], t[0])
		binary.LittleEndian.PutUint32(rec[5:], t[1])
		binary.LittleEndian.PutUint32(rec[9:], t[2])
		bw.Write(rec[:13])
	}
	return bw.Flush()
}

// plyProperty is one scalar or list property of a PLY element.
type plyProperty struct {
	name      string
	typ       string
	list      bool
	countType string
}

type plyElement struct {
	name  string
	count uint64
	props []plyProperty
}

// plyTypeSize returns the byte size of a PLY scalar type, or 0 if unknown.
func plyTypeSize(typ string) int {
	switch typ {
	case "char", "uchar", "int8", "uint8":
		return 1
	case "short", "ushort", "int16", "uint16":
		return 2
	case "int", "uint", "float", "int32", "uint32", "float32":
		return 4
	case "double", "float64":
		return 8
	default:
		return 0
	}
}

// readPLYScalar reads one little-endian scalar and widens it.
func readPLYScalar(b []byte, typ string) float64 {
	switch typ {
	case "char", "int8":
		return float64(int8(b[0]))
	case "uchar", "uint8":
		return float64(b[0])
	case "short", "int16":
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case "ushort", "uint16":
		return float64(binary.LittleEndian.Uint16(b))
	case "int", "int32":
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case "uint", "uint32":
		return float64(binary.LittleEndian.Uint32(b))
	case "float", "float32":
		return float64(stdmath.Float32frombits(binary.LittleEndian.Uint32(b)))
	case "double", "float64":
		return stdmath.Float64frombits(binary.LittleEndian.Uint64(b))
	}
	return 0
}

func parsePLYHeader(br *bufio.Reader) ([]plyElement, error) {
	line, err := br.ReadString('\n')
	if err != nil || strings.TrimRight(line, "\r\n") != "ply" {
		return nil, ErrInvalidPLYMagic
	}

	var elements []plyElement
	formatSeen := false
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: missing end_header", ErrMalformedPLYHeader)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "comment", "obj_info":
		case "format":
			if len(fields) != 3 || fields[1] != "binary_little_endian" {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedPLYFormat, strings.Join(fields[1:], " "))
			}
			formatSeen = true
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: %q", ErrMalformedPLYHeader, strings.TrimSpace(line))
			}
			n, err := strconv.ParseUint(fields[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: element count %q", ErrMalformedPLYHeader, fields[2])
			}
			elements = append(elements, plyElement{name: fields[1], count: n})
		case "property":
			if len(elements) == 0 {
				return nil, fmt.Errorf("%w: property before element", ErrMalformedPLYHeader)
			}
			el := &elements[len(elements)-1]
			switch {
			case len(fields) == 5 && fields[1] == "list":
				if plyTypeSize(fields[2]) == 0 || plyTypeSize(fields[3]) == 0 {
					return nil, fmt.Errorf("%w: list types %s %s", ErrMalformedPLYHeader, fields[2], fields[3])
				}
				el.props = append(el.props, plyProperty{name: fields[4], typ: fields[3], list: true, countType: fields[2]})
			case len(fields) == 3:
				if plyTypeSize(fields[1]) == 0 {
					return nil, fmt.Errorf("%w: property type %s", ErrMalformedPLYHeader, fields[1])
				}
				el.props = append(el.props, plyProperty{name: fields[2], typ: fields[1]})
			default:
				return nil, fmt.Errorf("%w: %q", ErrMalformedPLYHeader, strings.TrimSpace(line))
			}
		case "end_header":
			if !formatSeen {
				return nil, fmt.Errorf("%w: missing format line", ErrMalformedPLYHeader)
			}
			return elements, nil
		default:
			return nil, fmt.Errorf("%w: unknown keyword %q", ErrMalformedPLYHeader, fields[0])
		}
	}
}

// ReadPLY reads a binary little-endian PLY mesh. Vertex properties other
// than x, y and z are skipped; polygon faces are split into fans.
func ReadPLY(r io.Reader) (*mesh.Mesh, error) {
	br := bufio.NewReader(r)
	elements, err := parsePLYHeader(br)
	if err != nil {
		return nil, err
	}

	m := &mesh.Mesh{}
	var buf [8]byte
	for _, el := range elements {
		if el.count > mesh.MaxCount {
			return nil, fmt.Errorf("%w: %d %s elements", mesh.ErrCapacityExceeded, el.count, el.name)
		}
		switch el.name {
		case "vertex":
			m.Points = make([]math.Vec3, 0, min(el.count, 1<<20))
		case "face":
			m.Triangles = make([]mesh.Triangle, 0, min(el.count, 1<<20))
		}

		for i := uint64(0); i < el.count; i++ {
			var p math.Vec3
			for _, prop := range el.props {
				if prop.list {
					tris, err := readPLYList(br, prop, buf[:])
					if err != nil {
						return nil, fmt.Errorf("%s %d: %w", el.name, i, err)
					}
					if el.name == "face" && (prop.name == "vertex_indices" || prop.name == "vertex_index") {
						m.Triangles = append(m.Triangles, tris...)
					}
					continue
				}
				size := plyTypeSize(prop.typ)
				if _, err := io.ReadFull(br, buf[:size]); err != nil {
					return nil, fmt.Errorf("%w: %s %d", ErrTruncatedPLYData, el.name, i)
				}
				if el.name != "vertex" {
					continue
				}
				v := float32(readPLYScalar(buf[:size], prop.typ))
				switch prop.name {
				case "x":
					p.X = v
				case "y":
					p.Y = v
				case "z":
					p.Z = v
				}
			}
			if el.name == "vertex" {
				m.Points = append(m.Points, p)
			}
		}
	}

	for i, t := range m.Triangles {
		for _, id := range t {
			if int64(id) >= int64(len(m.Points)) {
				return nil, fmt.Errorf("%w: face %d index %d of %d", ErrInvalidPLYFaceIndices, i, id, len(m.Points))
			}
		}
	}
	return m, nil
}

// readPLYList reads one list property and returns it as a triangle fan.
func readPLYList(br *bufio.Reader, prop plyProperty, buf []byte) ([]mesh.Triangle, error) {
	cs := plyTypeSize(prop.countType)
	if _, err := io.ReadFull(br, buf[:cs]); err != nil {
		return nil, ErrTruncatedPLYData
	}
	n := int(readPLYScalar(buf[:cs], prop.countType))
	if n < 0 {
		return nil, fmt.Errorf("%w: negative list length", ErrMalformedPLYHeader)
	}

	is := plyTypeSize(prop.typ)
	ids := make([]uint32, n)
	for k := range ids {
		if _, err := io.ReadFull(br, buf[:is]); err != nil {
			return nil, ErrTruncatedPLYData
		}
		v := readPLYScalar(buf[:is], prop.typ)
		if v < 0 {
			return nil, fmt.Errorf("%w: negative index %v", ErrInvalidPLYFaceIndices, v)
		}
		ids[k] = uint32(v)
	}

	var tris []mesh.Triangle
	for k := 2; k < n; k++ {
		tris = append(tris, mesh.Triangle{ids[0], ids[k-1], ids[k]})
	}
	return tris, nil
}
