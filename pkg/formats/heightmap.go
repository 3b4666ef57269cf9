package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Heightmap format errors.
var (
	ErrTruncatedHeightmap = errors.New("truncated heightmap data")
	ErrInvalidDimensions  = errors.New("invalid heightmap dimensions")
	ErrDimensionBits      = errors.New("dimension field width must be 32 or 64")
)

// MaxSamples is the largest sample count a heightmap may declare.
// It keeps a corrupt header from triggering a multi-gigabyte allocation.
const MaxSamples = 1 << 30

// Heightmap is a rectangular grid of elevation samples stored row-major.
// NaN marks a masked cell.
type Heightmap struct {
	Width  uint32
	Height uint32
	Min    float32 // smallest unmasked sample
	Max    float32 // largest unmasked sample
	Valid  uint64  // number of unmasked samples
	Data   []float32
}

// NewHeightmap returns a width x height heightmap with every sample set to 0.
func NewHeightmap(width, height uint32) *Heightmap {
	return &Heightmap{
		Width:  width,
		Height: height,
		Data:   make([]float32, int(width)*int(height)),
	}
}

// At returns the sample at (x, y). Out of range coordinates read as masked.
func (h *Heightmap) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= int(h.Width) || y >= int(h.Height) {
		return float32(math.NaN())
	}
	return h.Data[y*int(h.Width)+x]
}

// Set stores v at (x, y). Out of range coordinates are ignored.
func (h *Heightmap) Set(x, y int, v float32) {
	if x < 0 || y < 0 || x >= int(h.Width) || y >= int(h.Height) {
		return
	}
	h.Data[y*int(h.Width)+x] = v
}

// Masked reports whether the sample at (x, y) is absent.
func (h *Heightmap) Masked(x, y int) bool {
	return IsMasked(h.At(x, y))
}

// IsMasked reports whether v marks a masked sample.
func IsMasked(v float32) bool {
	return v != v
}

// Scan recomputes Min, Max and Valid from Data.
func (h *Heightmap) Scan() {
	h.Min, h.Max, h.Valid = 0, 0, 0
	for _, v := range h.Data {
		if IsMasked(v) {
			continue
		}
		if h.Valid == 0 {
			h.Min, h.Max = v, v
		} else {
			h.Min = min(h.Min, v)
			h.Max = max(h.Max, v)
		}
		h.Valid++
	}
}

// ParseHeightmap reads a heightmap record: height, width (each bits wide),
// then width*height little-endian float32 samples.
func ParseHeightmap(r io.Reader, bits int) (*Heightmap, error) {
	height, err := readDimension(r, bits)
	if err != nil {
		return nil, fmt.Errorf("reading height: %w", err)
	}
	width, err := readDimension(r, bits)
	if err != nil {
		return nil, fmt.Errorf("reading width: %w", err)
	}
	if width == 0 || height == 0 || width > math.MaxUint32 || height > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if width*height > MaxSamples {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d samples", ErrInvalidDimensions, width, height, MaxSamples)
	}

	h := NewHeightmap(uint32(width), uint32(height))
	buf := make([]byte, 4*int(width))
	for y := 0; y < int(height); y++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: row %d of %d", ErrTruncatedHeightmap, y, height)
		}
		row := h.Data[y*int(width) : (y+1)*int(width)]
		for x := range row {
			row[x] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*x:]))
		}
	}

	h.Scan()
	return h, nil
}

func readDimension(r io.Reader, bits int) (uint64, error) {
	switch bits {
	case 32:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, ErrTruncatedHeightmap
		}
		return uint64(v), nil
	case 64:
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, ErrTruncatedHeightmap
		}
		return v, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrDimensionBits, bits)
	}
}

// WriteHeightmap writes h in the layout ParseHeightmap reads.
func WriteHeightmap(w io.Writer, h *Heightmap, bits int) error {
	if len(h.Data) != int(h.Width)*int(h.Height) {
		return fmt.Errorf("%w: %dx%d with %d samples", ErrInvalidDimensions, h.Width, h.Height, len(h.Data))
	}
	bw := bufio.NewWriter(w)
	switch bits {
	case 32:
		binary.Write(bw, binary.LittleEndian, h.Height)
		binary.Write(bw, binary.LittleEndian, h.Width)
	case 64:
		binary.Write(bw, binary.LittleEndian, uint64(h.Height))
		binary.Write(bw, binary.LittleEndian, uint64(h.Width))
	default:
		return fmt.Errorf("%w: %d", ErrDimensionBits, bits)
	}
	var sample [4]byte
	for _, v := range h.Data {
		binary.LittleEndian.PutUint32(sample[:], math.Float32bits(v))
		if _, err := bw.Write(sample[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Compression identifies how a heightmap file is wrapped on disk.
type Compression int

// Supported compressions.
const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionGzip
)

// String returns the compression name.
func (c Compression) String() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionGzip:
		return "gzip"
	default:
		return "none"
	}
}

// CompressionFor picks the compression from a file name extension.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return CompressionZstd
	case ".gz":
		return CompressionGzip
	default:
		return CompressionNone
	}
}

// ReadHeightmapFile loads a heightmap from disk, decompressing .zst and .gz
// files on the fly.
func ReadHeightmapFile(path string, bits int) (*Heightmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening heightmap: %w", err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	switch CompressionFor(path) {
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	case CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer gr.Close()
		r = gr
	}

	h, err := ParseHeightmap(r, bits)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// WriteHeightmapFile saves a heightmap, compressing by file extension.
func WriteHeightmapFile(path string, h *Heightmap, bits int) error {
	var buf bytes.Buffer
	if err := WriteHeightmap(&buf, h, bits); err != nil {
		return err
	}

	data := buf.Bytes()
	switch CompressionFor(path) {
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("creating zstd encoder: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		enc.Close()
	case CompressionGzip:
		var zb bytes.Buffer
		gw := gzip.NewWriter(&zb)
		if _, err := gw.Write(data); err != nil {
			return fmt.Errorf("gzip heightmap: %w", err)
		}
		if err := gw.Close(); err != nil {
			return fmt.Errorf("gzip heightmap: %w", err)
		}
		data = zb.Bytes()
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing heightmap: %w", err)
	}
	return nil
}
