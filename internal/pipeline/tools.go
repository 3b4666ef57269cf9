package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/heightmesh/internal/runstats"
	"github.com/Faultbox/heightmesh/pkg/formats"
	"github.com/Faultbox/heightmesh/pkg/mesh"
	"github.com/Faultbox/heightmesh/pkg/synth"
)

// load reads a mesh file as a timed stage.
func (r *Runner) load(stats *runstats.Stats, in string) (*mesh.Mesh, error) {
	var m *mesh.Mesh
	err := stats.Time("load", func() error {
		var err error
		m, err = formats.ReadMeshFile(in)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("mesh loaded",
		zap.String("input", in),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("triangles", m.TriangleCount()))
	return m, nil
}

// transform loads in, applies fn and writes the result to out. The output
// format follows the extension of out.
func (r *Runner) transform(in, out string, fn func(m *mesh.Mesh, rep *Report) error) (*Report, error) {
	format, err := formats.FormatFor(out)
	if err != nil {
		return nil, err
	}

	stats := runstats.New()
	m, err := r.load(stats, in)
	if err != nil {
		return nil, err
	}

	rep := &Report{}
	if fn != nil {
		if err := stats.Time("process", func() error { return fn(m, rep) }); err != nil {
			return nil, err
		}
	}
	if err := r.finish(stats, m, out, format, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// Finish closes the bottom of a meshed solid: it drops the per-cell bottom
// facets, caps every bottom loop and removes unreferenced vertices.
func (r *Runner) Finish(in, out string) (*Report, error) {
	return r.transform(in, out, func(m *mesh.Mesh, rep *Report) error {
		return r.capBottom(m, rep)
	})
}

// Trim removes the triangles lying entirely in the z=0 plane.
func (r *Runner) Trim(in, out string) (*Report, error) {
	return r.transform(in, out, func(m *mesh.Mesh, rep *Report) error {
		rep.Trimmed = m.TrimBottom()
		m.Compact()
		return nil
	})
}

// Scale scales a mesh uniformly so its larger XY extent equals size.
func (r *Runner) Scale(size float32, in, out string) (*Report, error) {
	return r.transform(in, out, func(m *mesh.Mesh, _ *Report) error {
		factor, err := m.ScaleToFit(size)
		if err != nil {
			return fmt.Errorf("scaling %s: %w", in, err)
		}
		r.log.Debug("scaled", zap.Float32("factor", factor))
		return nil
	})
}

// Convert rewrites a mesh in the format implied by the output extension.
func (r *Runner) Convert(in, out string) (*Report, error) {
	return r.transform(in, out, nil)
}

// Generate writes a synthetic heightmap to out. The blob is compressed
// when out ends in .zst or .gz.
func (r *Runner) Generate(p synth.Params, out string, bits int) (*formats.Heightmap, error) {
	hm, err := synth.Generate(p)
	if err != nil {
		return nil, err
	}
	err = atomicWrite(out, func(tmp string) error {
		return formats.WriteHeightmapFile(tmp, hm, bits)
	})
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", out, err)
	}

	r.log.Info("heightmap generated",
		zap.String("output", out),
		zap.Uint32("width", hm.Width),
		zap.Uint32("height", hm.Height),
		zap.Uint64("valid", hm.Valid),
		zap.Stringer("compression", formats.CompressionFor(out)))
	return hm, nil
}

// HeightmapInfo describes a heightmap file.
type HeightmapInfo struct {
	Path        string
	Compression formats.Compression
	Width       uint32
	Height      uint32
	Valid       uint64
	Masked      uint64
	Min, Max    float32
}

// Info reads a heightmap and reports its statistics.
func (r *Runner) Info(path string, bits int) (*HeightmapInfo, error) {
	hm, err := formats.ReadHeightmapFile(path, bits)
	if err != nil {
		return nil, err
	}
	return &HeightmapInfo{
		Path:        path,
		Compression: formats.CompressionFor(path),
		Width:       hm.Width,
		Height:      hm.Height,
		Valid:       hm.Valid,
		Masked:      uint64(hm.Width)*uint64(hm.Height) - hm.Valid,
		Min:         hm.Min,
		Max:         hm.Max,
	}, nil
}
