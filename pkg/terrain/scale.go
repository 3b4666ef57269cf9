// Package terrain turns heightmaps into closed triangle meshes.
package terrain

import (
	"errors"
	"fmt"

	"github.com/Faultbox/heightmesh/pkg/formats"
)

// Scale errors.
var (
	ErrNoSamples             = errors.New("heightmap has no unmasked samples")
	ErrNegativeElevation     = errors.New("heightmap has negative elevations")
	ErrInvalidZScale         = errors.New("z scale must be positive")
	ErrInvalidBaseHeightFrac = errors.New("base height fraction must be in [0, 1)")
)

// Settings are the user-facing meshing parameters.
type Settings struct {
	XYSize         float32 // target size of the larger grid dimension; <= 0 keeps grid units
	ZScale         float32 // vertical exaggeration relative to the XY scale
	BaseHeightFrac float32 // fraction of the total height taken by the solid base
	GenerateBase   bool    // emit side walls and a flat bottom
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		ZScale:       1,
		GenerateBase: true,
	}
}

// Scale holds the derived factors applied to every vertex.
type Scale struct {
	XY           float32 // grid units to output units
	Z            float32 // elevation units to output units
	ZOffset      float32 // added to every scaled elevation
	GenerateBase bool
}

// Elevation maps a raw sample to its output Z.
func (s Scale) Elevation(v float32) float32 {
	return s.ZOffset + s.Z*v
}

// ComputeScale derives the output scale for hm.
//
// The base offset is chosen so that it makes up BaseHeightFrac of the
// total printed height: offset / (relief + offset) == frac.
func ComputeScale(settings Settings, hm *formats.Heightmap) (Scale, error) {
	if hm.Valid == 0 {
		return Scale{}, ErrNoSamples
	}
	if hm.Min < 0 {
		return Scale{}, fmt.Errorf("%w: min %v", ErrNegativeElevation, hm.Min)
	}
	if !(settings.ZScale > 0) {
		return Scale{}, fmt.Errorf("%w: %v", ErrInvalidZScale, settings.ZScale)
	}
	frac := settings.BaseHeightFrac
	if !(frac >= 0 && frac < 1) {
		return Scale{}, fmt.Errorf("%w: %v", ErrInvalidBaseHeightFrac, frac)
	}

	var s Scale
	s.GenerateBase = settings.GenerateBase
	s.XY = 1
	if settings.XYSize > 0 {
		s.XY = settings.XYSize / float32(max(hm.Width, hm.Height))
	}
	s.Z = s.XY * settings.ZScale
	s.ZOffset = s.Z * (hm.Max - hm.Min) * frac / (1 - frac)
	return s, nil
}
