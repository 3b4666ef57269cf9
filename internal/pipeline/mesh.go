package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/heightmesh/internal/config"
	"github.com/Faultbox/heightmesh/internal/runstats"
	"github.com/Faultbox/heightmesh/pkg/formats"
	"github.com/Faultbox/heightmesh/pkg/mesh"
	"github.com/Faultbox/heightmesh/pkg/terrain"
)

// Mesh converts the configured heightmap into a mesh file.
func (r *Runner) Mesh(cfg *config.Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, err := cfg.OutputFormat()
	if err != nil {
		return nil, err
	}

	stats := runstats.New()
	rep := &Report{}

	var hm *formats.Heightmap
	err = stats.Time("load", func() error {
		var err error
		hm, err = formats.ReadHeightmapFile(cfg.Input.Path, cfg.Input.DimensionBits)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.log.Info("heightmap loaded",
		zap.String("input", cfg.Input.Path),
		zap.Uint32("width", hm.Width),
		zap.Uint32("height", hm.Height),
		zap.Uint64("valid", hm.Valid),
		zap.Float32("min", hm.Min),
		zap.Float32("max", hm.Max))

	scale, err := terrain.ComputeScale(cfg.Settings(), hm)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Input.Path, err)
	}
	r.log.Debug("scale",
		zap.Float32("xy", scale.XY),
		zap.Float32("z", scale.Z),
		zap.Float32("zOffset", scale.ZOffset))

	var m *mesh.Mesh
	err = stats.Time("mesh", func() error {
		var progress func()
		var done func()
		if cfg.Output.Progress {
			progress, done = r.rowProgress(int(hm.Height))
		} else {
			done = func() {}
		}
		defer done()

		var err error
		m, err = terrain.BuildMesh(hm, scale, progress)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("meshing %s: %w", cfg.Input.Path, err)
	}

	if cfg.Mesh.CapBottom {
		if err := stats.Time("cap", func() error { return r.capBottom(m, rep) }); err != nil {
			return nil, err
		}
	}

	if err := r.finish(stats, m, cfg.Output.Path, format, rep); err != nil {
		return nil, err
	}
	return rep, nil
}
