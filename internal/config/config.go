// Package config handles heightmesh configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/heightmesh/pkg/formats"
	"github.com/Faultbox/heightmesh/pkg/terrain"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all meshing settings.
type Config struct {
	Input   InputConfig   `yaml:"input"`
	Mesh    MeshConfig    `yaml:"mesh"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// InputConfig describes the heightmap to read.
type InputConfig struct {
	Path          string `yaml:"path"`
	DimensionBits int    `yaml:"dimension_bits"` // width of the dimension fields, 32 or 64
}

// MeshConfig holds the surface mesher parameters.
type MeshConfig struct {
	XYSize         float32 `yaml:"xy_size"`
	ZScale         float32 `yaml:"z_scale"`
	BaseHeightFrac float32 `yaml:"base_height_frac"`
	GenerateBase   bool    `yaml:"generate_base"`
	CapBottom      bool    `yaml:"cap_bottom"` // replace per-cell base facets by one cap
}

// OutputConfig describes the mesh file to write.
type OutputConfig struct {
	Path     string `yaml:"path"`
	Format   string `yaml:"format"` // ply or stl; empty picks by extension
	Progress bool   `yaml:"progress"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	s := terrain.DefaultSettings()
	return &Config{
		Input: InputConfig{
			DimensionBits: 32,
		},
		Mesh: MeshConfig{
			XYSize:         s.XYSize,
			ZScale:         s.ZScale,
			BaseHeightFrac: s.BaseHeightFrac,
			GenerateBase:   s.GenerateBase,
		},
		Output: OutputConfig{
			Progress: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Settings returns the mesher settings.
func (c *Config) Settings() terrain.Settings {
	return terrain.Settings{
		XYSize:         c.Mesh.XYSize,
		ZScale:         c.Mesh.ZScale,
		BaseHeightFrac: c.Mesh.BaseHeightFrac,
		GenerateBase:   c.Mesh.GenerateBase,
	}
}

// OutputFormat resolves the output format, falling back to the extension
// of the output path.
func (c *Config) OutputFormat() (formats.MeshFormat, error) {
	if c.Output.Format != "" {
		return formats.ParseMeshFormat(c.Output.Format)
	}
	return formats.FormatFor(c.Output.Path)
}

// Validate checks the settings a mesh run depends on.
func (c *Config) Validate() error {
	var problems []string

	if c.Input.Path == "" {
		problems = append(problems, "input path is required")
	}
	if c.Output.Path == "" {
		problems = append(problems, "output path is required")
	}
	if c.Input.DimensionBits != 32 && c.Input.DimensionBits != 64 {
		problems = append(problems, fmt.Sprintf("dimension_bits must be 32 or 64, got %d", c.Input.DimensionBits))
	}
	if !(c.Mesh.ZScale > 0) {
		problems = append(problems, fmt.Sprintf("z_scale must be positive, got %v", c.Mesh.ZScale))
	}
	if !(c.Mesh.BaseHeightFrac >= 0 && c.Mesh.BaseHeightFrac < 1) {
		problems = append(problems, fmt.Sprintf("base_height_frac must be in [0, 1), got %v", c.Mesh.BaseHeightFrac))
	}
	if c.Mesh.CapBottom && !c.Mesh.GenerateBase {
		problems = append(problems, "cap_bottom needs generate_base")
	}
	if c.Output.Path != "" || c.Output.Format != "" {
		if _, err := c.OutputFormat(); err != nil {
			problems = append(problems, err.Error())
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
