package config

import "flag"

// Flags are the command-line overrides of a mesh run, bound to one
// subcommand's FlagSet.
type Flags struct {
	fs *flag.FlagSet

	Config      *string
	Input       *string
	Output      *string
	Format      *string
	DimBits     *int
	XYSize      *float64
	ZScale      *float64
	BaseFrac    *float64
	SurfaceOnly *bool
	Cap         *bool
	NoProgress  *bool
	Debug       *bool
	LogFile     *string
}

// RegisterFlags defines the mesh flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs:          fs,
		Config:      fs.String("config", "", "Path to config file"),
		Input:       fs.String("i", "", "Input heightmap (.bin, .zst or .gz)"),
		Output:      fs.String("o", "", "Output mesh (.ply or .stl)"),
		Format:      fs.String("format", "", "Output format: ply or stl (default: by extension)"),
		DimBits:     fs.Int("dim-bits", 32, "Width of the heightmap dimension fields: 32 or 64"),
		XYSize:      fs.Float64("xy-size", 0, "Size of the larger grid dimension in output units (0 = grid units)"),
		ZScale:      fs.Float64("z-scale", 1, "Vertical exaggeration"),
		BaseFrac:    fs.Float64("base-frac", 0, "Fraction of the total height taken by the base"),
		SurfaceOnly: fs.Bool("surface-only", false, "Emit only the top surface"),
		Cap:         fs.Bool("cap", false, "Replace the per-cell base by a single cap"),
		NoProgress:  fs.Bool("no-progress", false, "Hide the progress bar"),
		Debug:       fs.Bool("debug", false, "Enable debug logging"),
		LogFile:     fs.String("log-file", "", "Also write logs to this file"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.Config
}

// applyFlags applies the flags that were set on the command line. Unset
// flags leave file and default values alone.
func (f *Flags) applyFlags(cfg *Config) {
	if f == nil {
		return
	}
	set := make(map[string]bool)
	f.fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["i"] {
		cfg.Input.Path = *f.Input
	}
	if set["o"] {
		cfg.Output.Path = *f.Output
	}
	if set["format"] {
		cfg.Output.Format = *f.Format
	}
	if set["dim-bits"] {
		cfg.Input.DimensionBits = *f.DimBits
	}
	if set["xy-size"] {
		cfg.Mesh.XYSize = float32(*f.XYSize)
	}
	if set["z-scale"] {
		cfg.Mesh.ZScale = float32(*f.ZScale)
	}
	if set["base-frac"] {
		cfg.Mesh.BaseHeightFrac = float32(*f.BaseFrac)
	}
	if *f.SurfaceOnly {
		cfg.Mesh.GenerateBase = false
		cfg.Mesh.CapBottom = false
	}
	if *f.Cap {
		cfg.Mesh.CapBottom = true
	}
	if *f.NoProgress {
		cfg.Output.Progress = false
	}
	if *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if set["log-file"] {
		cfg.Logging.LogFile = *f.LogFile
	}
}
