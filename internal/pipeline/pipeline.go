// Package pipeline runs the heightmesh commands: it loads inputs, drives
// the mesher and the capper, writes outputs and logs what happened.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/Faultbox/heightmesh/internal/logger"
	"github.com/Faultbox/heightmesh/internal/runstats"
	"github.com/Faultbox/heightmesh/pkg/capper"
	"github.com/Faultbox/heightmesh/pkg/formats"
	"github.com/Faultbox/heightmesh/pkg/mesh"
)

// Report summarises one run that produced a mesh.
type Report struct {
	Output       string
	Format       formats.MeshFormat
	Vertices     int
	Triangles    int
	Trimmed      int // bottom facets removed before capping
	CapTriangles int
	Edges        mesh.EdgeStats
	Digest       uint64 // xxhash64 of the written file
	Stages       []runstats.Stage
}

// Runner executes pipeline operations.
type Runner struct {
	log *zap.Logger

	// Progress, when set, receives a progress bar per meshing run.
	Progress io.Writer

	// CapPlot, when set, is the path of a matplotlib script drawing the
	// bottom edges and the cap triangles. It is written even when capping
	// fails.
	CapPlot string
}

// New returns a Runner logging to log, or to the global logger when log is
// nil.
func New(log *zap.Logger) *Runner {
	if log == nil {
		log = logger.Log
	}
	return &Runner{log: log}
}

// rowProgress returns the per-row callback for the mesher and a function
// that finishes the bar.
func (r *Runner) rowProgress(rows int) (func(), func()) {
	if r.Progress == nil {
		return nil, func() {}
	}
	bar := progressbar.NewOptions(rows,
		progressbar.OptionSetWriter(r.Progress),
		progressbar.OptionSetDescription("meshing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionShowIts(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return func() { _ = bar.Add(1) }, func() { _ = bar.Finish() }
}

// capBottom replaces the per-cell bottom facets of m by one cap per loop
// and drops the vertices only those facets used.
func (r *Runner) capBottom(m *mesh.Mesh, rep *Report) error {
	rep.Trimmed = m.TrimBottom()
	tris, err := capper.Cap(m.Points, m.Triangles)
	if r.CapPlot != "" {
		if perr := r.writeCapPlot(m, tris); perr != nil {
			r.log.Warn("cap plot not written", zap.String("path", r.CapPlot), zap.Error(perr))
		}
	}
	if err != nil {
		return fmt.Errorf("capping bottom: %w", err)
	}
	if err := m.Append(tris...); err != nil {
		return err
	}
	rep.CapTriangles = len(tris)
	dropped := m.Compact()
	r.log.Debug("bottom capped",
		zap.Int("trimmed", rep.Trimmed),
		zap.Int("capTriangles", len(tris)),
		zap.Int("droppedVertices", dropped))
	return nil
}

func (r *Runner) writeCapPlot(m *mesh.Mesh, tris []mesh.Triangle) error {
	edges := capper.BottomEdges(m.Points, m.Triangles)
	return atomicWrite(r.CapPlot, func(tmp string) error {
		f, err := os.Create(tmp)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := capper.WritePlot(f, m.Points, edges, tris); err != nil {
			return err
		}
		return f.Close()
	})
}

// finish writes m and fills in the report.
func (r *Runner) finish(stats *runstats.Stats, m *mesh.Mesh, out string, format formats.MeshFormat, rep *Report) error {
	rep.Output = out
	rep.Format = format
	rep.Vertices = m.VertexCount()
	rep.Triangles = m.TriangleCount()

	err := stats.Time("write", func() error {
		d, err := writeMesh(out, m, format)
		rep.Digest = d
		return err
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	rep.Edges = m.EdgeStats()
	rep.Stages = stats.Stages()
	if !rep.Edges.Closed() {
		r.log.Warn("mesh is not closed",
			zap.Int("boundaryEdges", rep.Edges.Boundary),
			zap.Int("unbalancedEdges", rep.Edges.Unbalanced))
	}

	r.log.Info("mesh written",
		zap.String("output", out),
		zap.String("format", string(format)),
		zap.Int("vertices", rep.Vertices),
		zap.Int("triangles", rep.Triangles),
		zap.String("digest", fmt.Sprintf("%016x", rep.Digest)))
	r.log.Debug("run statistics", stats.Fields()...)
	return nil
}
