// heightmesh turns heightmaps into closed, printable triangle meshes.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/Faultbox/heightmesh/internal/config"
	"github.com/Faultbox/heightmesh/internal/logger"
	"github.com/Faultbox/heightmesh/internal/pipeline"
	"github.com/Faultbox/heightmesh/pkg/capper"
	"github.com/Faultbox/heightmesh/pkg/synth"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "mesh":
		cmdMesh(args)
	case "finish":
		cmdFinish(args)
	case "trim":
		cmdTrim(args)
	case "scale":
		cmdScale(args)
	case "convert":
		cmdConvert(args)
	case "info":
		cmdInfo(args)
	case "gen", "generate":
		cmdGen(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`heightmesh - heightmap to 3D mesh converter

Usage:
  heightmesh <command> [options]

Commands:
  mesh -i <in.bin> -o <out.ply|out.stl>  Mesh a heightmap (see mesh -h)
  finish [-plot f.py] <in> <out>         Replace the bottom facets by a single cap
  trim <in> <out>                        Remove the bottom facets
  scale <size> <in> <out>                Scale so the larger XY extent equals size
  convert <in> <out>                     Convert between PLY and STL
  info <in.bin>                          Show heightmap statistics
  gen -o <out.bin> [options]             Generate a Perlin noise heightmap

Heightmaps ending in .zst or .gz are compressed. Mesh formats follow the
file extension.

Examples:
  heightmesh gen -o hills.bin.zst -w 512 -h 512 -island 0.9
  heightmesh mesh -i hills.bin.zst -o hills.stl -xy-size 150 -base-frac 0.2 -cap
  heightmesh finish old.ply old-capped.ply`)
}

// logFlags are the logging options shared by the simple commands.
type logFlags struct {
	debug   *bool
	logFile *string
}

func addLogFlags(fs *flag.FlagSet) logFlags {
	return logFlags{
		debug:   fs.Bool("debug", false, "Enable debug logging"),
		logFile: fs.String("log-file", "", "Also write logs to this file"),
	}
}

func (l logFlags) init() {
	level := "info"
	if *l.debug {
		level = "debug"
	}
	initLogger(level, *l.logFile)
}

func initLogger(level, logFile string) {
	if err := logger.Init(level, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// fail logs err and exits.
func fail(msg string, err error) {
	fields := []zap.Field{zap.Error(err)}
	var te *capper.TopologyError
	if errors.As(err, &te) {
		fields = append(fields,
			zap.Stringer("kind", te.Kind),
			zap.Uint32("vertex", te.Vertex))
	}
	logger.Error(msg, fields...)
	logger.Sync()
	os.Exit(1)
}

func printReport(rep *pipeline.Report) {
	fmt.Printf("Output:    %s (%s)\n", rep.Output, rep.Format)
	fmt.Printf("Vertices:  %d\n", rep.Vertices)
	fmt.Printf("Triangles: %d\n", rep.Triangles)
	if rep.CapTriangles > 0 || rep.Trimmed > 0 {
		fmt.Printf("Bottom:    %d facets trimmed, %d cap triangles\n", rep.Trimmed, rep.CapTriangles)
	}
	closed := "yes"
	if !rep.Edges.Closed() {
		closed = fmt.Sprintf("no (%d boundary edges)", rep.Edges.Boundary)
	}
	fmt.Printf("Closed:    %s\n", closed)
	fmt.Printf("Digest:    %016x\n", rep.Digest)
}

func cmdMesh(args []string) {
	fs := flag.NewFlagSet("mesh", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	saveConfig := fs.String("save-config", "", "Write the effective config to this file")
	plot := fs.String("plot", "", "With -cap, write a matplotlib script of the bottom edges and cap to this file")
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	initLogger(cfg.Logging.Level, cfg.Logging.LogFile)
	defer logger.Sync()

	if *saveConfig != "" {
		if err := cfg.SaveTo(*saveConfig); err != nil {
			fail("saving config", err)
		}
		logger.Info("config saved", zap.String("path", *saveConfig))
	}

	r := pipeline.New(nil)
	r.CapPlot = *plot
	if cfg.Output.Progress {
		r.Progress = os.Stderr
	}
	rep, err := r.Mesh(cfg)
	if err != nil {
		fail("mesh failed", err)
	}
	printReport(rep)
}

// cmdTransform handles the commands that read one mesh and write another.
func cmdTransform(name, usage string, nargs int, args []string, run func(r *pipeline.Runner, args []string) (*pipeline.Report, error)) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	lf := addLogFlags(fs)
	fs.Parse(args)

	if fs.NArg() != nargs {
		fmt.Fprintf(os.Stderr, "Usage: heightmesh %s %s\n", name, usage)
		os.Exit(1)
	}
	lf.init()
	defer logger.Sync()

	rep, err := run(pipeline.New(nil), fs.Args())
	if err != nil {
		fail(name+" failed", err)
	}
	printReport(rep)
}

func cmdFinish(args []string) {
	fs := flag.NewFlagSet("finish", flag.ExitOnError)
	plot := fs.String("plot", "", "Write a matplotlib script of the bottom edges and cap to this file")
	lf := addLogFlags(fs)
	fs.Parse(args)

	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Usage: heightmesh finish [-plot bottom.py] <in.ply|in.stl> <out.ply|out.stl>")
		os.Exit(1)
	}
	lf.init()
	defer logger.Sync()

	r := pipeline.New(nil)
	r.CapPlot = *plot
	rep, err := r.Finish(fs.Arg(0), fs.Arg(1))
	if err != nil {
		fail("finish failed", err)
	}
	printReport(rep)
}

func cmdTrim(args []string) {
	cmdTransform("trim", "<in> <out>", 2, args,
		func(r *pipeline.Runner, a []string) (*pipeline.Report, error) {
			return r.Trim(a[0], a[1])
		})
}

func cmdScale(args []string) {
	cmdTransform("scale", "<size> <in> <out>", 3, args,
		func(r *pipeline.Runner, a []string) (*pipeline.Report, error) {
			size, err := strconv.ParseFloat(a[0], 32)
			if err != nil {
				return nil, fmt.Errorf("invalid size %q: %w", a[0], err)
			}
			return r.Scale(float32(size), a[1], a[2])
		})
}

func cmdConvert(args []string) {
	cmdTransform("convert", "<in> <out>", 2, args,
		func(r *pipeline.Runner, a []string) (*pipeline.Report, error) {
			return r.Convert(a[0], a[1])
		})
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	bits := fs.Int("dim-bits", 32, "Width of the dimension fields: 32 or 64")
	lf := addLogFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: heightmesh info [-dim-bits 64] <in.bin>")
		os.Exit(1)
	}
	lf.init()
	defer logger.Sync()

	info, err := pipeline.New(nil).Info(fs.Arg(0), *bits)
	if err != nil {
		fail("info failed", err)
	}

	total := uint64(info.Width) * uint64(info.Height)
	fmt.Printf("Heightmap:   %s\n", info.Path)
	fmt.Printf("Compression: %s\n", info.Compression)
	fmt.Printf("Size:        %d x %d (%d samples)\n", info.Width, info.Height, total)
	fmt.Printf("Valid:       %d (%.1f%%)\n", info.Valid, 100*float64(info.Valid)/float64(total))
	fmt.Printf("Masked:      %d\n", info.Masked)
	if info.Valid > 0 {
		fmt.Printf("Elevation:   %g .. %g\n", info.Min, info.Max)
	}
}

func cmdGen(args []string) {
	def := synth.DefaultParams()

	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	out := fs.String("o", "", "Output heightmap (.bin, .zst or .gz)")
	width := fs.Uint("w", uint(def.Width), "Width in samples")
	height := fs.Uint("h", uint(def.Height), "Height in samples")
	seed := fs.Int64("seed", def.Seed, "Noise seed")
	octaves := fs.Int("octaves", int(def.Octaves), "Noise octaves")
	alpha := fs.Float64("alpha", def.Alpha, "Amplitude falloff between octaves")
	beta := fs.Float64("beta", def.Beta, "Frequency growth between octaves")
	freq := fs.Float64("freq", def.Frequency, "Noise periods across the larger dimension")
	amp := fs.Float64("amp", def.Amplitude, "Highest sample value")
	sea := fs.Float64("sea", 0, "Mask samples below this level (0 = off)")
	island := fs.Float64("island", 0, "Mask samples outside this radius, 1 = edge midpoints (0 = off)")
	bits := fs.Int("dim-bits", 32, "Width of the dimension fields: 32 or 64")
	lf := addLogFlags(fs)
	fs.Parse(args)

	if *out == "" {
		fmt.Fprintln(os.Stderr, "Usage: heightmesh gen -o <out.bin> [-w 256 -h 256 -seed 1 ...]")
		os.Exit(1)
	}
	lf.init()
	defer logger.Sync()

	p := synth.Params{
		Width:        uint32(*width),
		Height:       uint32(*height),
		Seed:         *seed,
		Octaves:      int32(*octaves),
		Alpha:        *alpha,
		Beta:         *beta,
		Frequency:    *freq,
		Amplitude:    *amp,
		SeaLevel:     *sea,
		IslandRadius: *island,
	}
	hm, err := pipeline.New(nil).Generate(p, *out, *bits)
	if err != nil {
		fail("gen failed", err)
	}
	fmt.Printf("Generated: %s (%d x %d, %d valid samples)\n", *out, hm.Width, hm.Height, hm.Valid)
}
