// Package synth generates synthetic heightmaps from Perlin noise.
package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"

	"github.com/Faultbox/heightmesh/pkg/formats"
)

// ErrInvalidParams is returned for parameters that cannot produce a map.
var ErrInvalidParams = errors.New("invalid generator parameters")

// Params controls Generate.
type Params struct {
	Width, Height uint32
	Seed          int64
	Octaves       int32
	Alpha         float64 // amplitude falloff between octaves
	Beta          float64 // frequency growth between octaves
	Frequency     float64 // noise periods across the larger dimension
	Amplitude     float64 // highest possible sample

	// SeaLevel masks samples below it when positive.
	SeaLevel float64
	// IslandRadius masks samples farther from the center than this
	// fraction of the half extent when positive.
	IslandRadius float64
}

// DefaultParams returns parameters for a 256x256 map of gentle hills.
func DefaultParams() Params {
	return Params{
		Width:     256,
		Height:    256,
		Seed:      1,
		Octaves:   4,
		Alpha:     2,
		Beta:      2,
		Frequency: 4,
		Amplitude: 100,
	}
}

func (p Params) validate() error {
	switch {
	case p.Width == 0 || p.Height == 0:
		return fmt.Errorf("%w: %dx%d grid", ErrInvalidParams, p.Width, p.Height)
	case uint64(p.Width)*uint64(p.Height) > formats.MaxSamples:
		return fmt.Errorf("%w: %dx%d exceeds %d samples", ErrInvalidParams, p.Width, p.Height, formats.MaxSamples)
	case p.Octaves < 1:
		return fmt.Errorf("%w: %d octaves", ErrInvalidParams, p.Octaves)
	case !(p.Alpha > 0) || !(p.Beta > 0):
		return fmt.Errorf("%w: alpha %v, beta %v", ErrInvalidParams, p.Alpha, p.Beta)
	case !(p.Frequency > 0):
		return fmt.Errorf("%w: frequency %v", ErrInvalidParams, p.Frequency)
	case !(p.Amplitude > 0):
		return fmt.Errorf("%w: amplitude %v", ErrInvalidParams, p.Amplitude)
	}
	return nil
}

// Generate builds a heightmap with samples in [0, Amplitude]. The same
// parameters always produce the same map.
func Generate(p Params) (*formats.Heightmap, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	noise := perlin.NewPerlin(p.Alpha, p.Beta, p.Octaves, p.Seed)
	hm := formats.NewHeightmap(p.Width, p.Height)
	step := p.Frequency / float64(max(p.Width, p.Height))
	nan := float32(math.NaN())

	for y := 0; y < int(p.Height); y++ {
		for x := 0; x < int(p.Width); x++ {
			if p.IslandRadius > 0 && radius(x, y, p.Width, p.Height) > p.IslandRadius {
				hm.Set(x, y, nan)
				continue
			}

			// Noise2D is close to [-1, 1]; octave sums can overshoot slightly.
			n := noise.Noise2D(float64(x)*step, float64(y)*step)
			v := p.Amplitude * (n + 1) / 2
			v = min(max(v, 0), p.Amplitude)

			if p.SeaLevel > 0 && v < p.SeaLevel {
				hm.Set(x, y, nan)
				continue
			}
			hm.Set(x, y, float32(v))
		}
	}
	hm.Scan()
	return hm, nil
}

// radius is the distance of the cell center from the grid center,
// normalized so that the middle of each edge is at 1.
func radius(x, y int, w, h uint32) float64 {
	dx := (float64(x)+0.5)/float64(w)*2 - 1
	dy := (float64(y)+0.5)/float64(h)*2 - 1
	return math.Hypot(dx, dy)
}
