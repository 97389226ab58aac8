// terraprint turns geographic elevation data into printable STL terrain models.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/terraprint/internal/config"
	"github.com/Faultbox/terraprint/internal/elevation"
	"github.com/Faultbox/terraprint/internal/logger"
	"github.com/Faultbox/terraprint/internal/pipeline"
	"github.com/Faultbox/terraprint/internal/regions"
	"github.com/Faultbox/terraprint/pkg/dem"
	"github.com/Faultbox/terraprint/pkg/stl"
)

func main() {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Debug("config loaded",
		zap.String("source", cfg.Acquisition.Source),
		zap.String("output_dir", cfg.Export.OutputDir))

	command := args[0]
	args = args[1:]

	switch command {
	case "regions", "ls":
		err = cmdRegions(args)
	case "estimate":
		err = cmdEstimate(cfg, args)
	case "generate", "gen":
		err = cmdGenerate(cfg, args)
	case "export":
		err = cmdExport(cfg, args)
	case "info":
		err = cmdInfo(args)
	case "config":
		err = cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`terraprint - printable terrain models from elevation data

Usage:
  terraprint [global options] <command> [options]

Commands:
  regions                           List named regions
  estimate [-r N] [-base] [-scale S] Predict triangles, file size and print time
  generate -region ID | -bbox BOX   Acquire and summarize a terrain
  export   -region ID | -bbox BOX   Generate a terrain and write it as STL
  info <file.stl>                   Show STL file information
  config [-save] [-o FILE]          Print or save the effective configuration

Global options:
  -config FILE        Config file (default ./terraprint.yaml)
  -source NAME        Elevation source: synthetic, open-elevation
  -endpoint URL       Elevation lookup endpoint
  -batch-interval D   Delay between elevation batches
  -out DIR            Output directory for exports
  -log-file FILE      Also log to FILE
  -debug              Debug logging

Examples:
  terraprint regions
  terraprint estimate -r 256 -scale 1.5
  terraprint export -region mont-blanc -r 128 -e 1.5
  terraprint -source open-elevation export -bbox 45.78,45.90,6.80,6.95 -o alps.stl
  terraprint info terrain_mont-blanc_128.stl`)
}

func cmdRegions(args []string) error {
	fs := flag.NewFlagSet("regions", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print as JSON")
	fs.Parse(args)

	all := regions.All()
	if *asJSON {
		return printJSON(all)
	}

	fmt.Printf("%-16s %-22s %-36s %s\n", "ID", "NAME", "BOUNDS", "ELEVATION")
	for _, r := range all {
		fmt.Printf("%-16s %-22s %-36s %.0f-%.0f m\n",
			r.ID, r.Name, r.BBox, r.ElevationRange[0], r.ElevationRange[1])
	}
	return nil
}

func cmdEstimate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("estimate", flag.ExitOnError)
	res := fs.Int("r", 256, "Grid resolution per axis")
	base := fs.Bool("base", true, "Include skirts and base plate")
	scale := fs.Float64("scale", 1, "Horizontal scale factor")
	asJSON := fs.Bool("json", false, "Print as JSON")
	fs.Parse(args)

	session, err := newSession(cfg)
	if err != nil {
		return err
	}
	est, err := session.Estimate(*res, *base, *scale)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(est)
	}

	fmt.Printf("Resolution: %d x %d\n", est.Resolution, est.Resolution)
	fmt.Printf("Triangles:  %d\n", est.EstimatedTriangles)
	fmt.Printf("File size:  %d bytes (%.2f MB)\n", est.FileSizeBytes, est.FileSizeMB)
	fmt.Printf("Print time: %s\n", est.EstimatedPrintTime)
	return nil
}

// targetFlags are the flags shared by generate and export.
type targetFlags struct {
	region       *string
	bbox         *string
	resolution   *int
	exaggeration *float64
	source       *string
}

func addTargetFlags(fs *flag.FlagSet) targetFlags {
	return targetFlags{
		region:       fs.String("region", "", "Named region id (see 'terraprint regions')"),
		bbox:         fs.String("bbox", "", "Bounding box lat_min,lat_max,lon_min,lon_max"),
		resolution:   fs.Int("r", 128, "Grid resolution per axis (64-256, step 32)"),
		exaggeration: fs.Float64("e", 1, "Height exaggeration (0.5-5)"),
		source:       fs.String("data-source", "", "Elevation source for this request"),
	}
}

func (f targetFlags) request() (pipeline.GenerateRequest, error) {
	req := pipeline.GenerateRequest{
		Resolution:   *f.resolution,
		Exaggeration: *f.exaggeration,
		DataSource:   *f.source,
	}
	switch {
	case *f.region != "" && *f.bbox != "":
		return req, errors.New("use either -region or -bbox, not both")
	case *f.region != "":
		req.Target = pipeline.ByRegion{ID: *f.region}
	case *f.bbox != "":
		box, err := parseBBox(*f.bbox)
		if err != nil {
			return req, err
		}
		req.Target = pipeline.ByBoundingBox{Box: box}
	default:
		return req, errors.New("either -region or -bbox is required")
	}
	return req, nil
}

func cmdGenerate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	target := addTargetFlags(fs)
	heightmap := fs.String("heightmap", "", "Write the elevation grid as JSON to this file")
	fs.Parse(args)

	req, err := target.request()
	if err != nil {
		return err
	}
	session, err := newSession(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := generate(ctx, session, req)
	if err != nil {
		return err
	}

	fmt.Printf("Terrain:    %s\n", t.ID)
	if t.Region != "" {
		fmt.Printf("Region:     %s\n", t.Region)
	}
	fmt.Printf("Bounds:     %s\n", t.Bounds)
	fmt.Printf("Center:     %.5f, %.5f\n", t.Metadata.CenterLat, t.Metadata.CenterLon)
	fmt.Printf("Elevation:  %.1f - %.1f m\n", t.Metadata.MinElevation, t.Metadata.MaxElevation)
	fmt.Printf("Grid:       %d x %d\n", t.Grid.Rows, t.Grid.Cols)
	fmt.Printf("Source:     %s\n", t.Metadata.DataSource)
	fmt.Printf("Preview:    %d vertices, %d triangles\n", len(t.Preview.Vertices), t.Preview.TriangleCount())

	if *heightmap != "" {
		data, err := json.Marshal(map[string]any{
			"id":        t.ID,
			"heightmap": t.Grid.ToRows(),
			"metadata":  t.Metadata,
			"bounds":    t.Bounds,
		})
		if err != nil {
			return err
		}
		if err := os.WriteFile(*heightmap, data, 0o644); err != nil {
			return fmt.Errorf("writing heightmap: %w", err)
		}
		fmt.Printf("Heightmap:  %s\n", *heightmap)
	}
	return nil
}

func cmdExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	target := addTargetFlags(fs)
	exportRes := fs.Int("export-r", 0, "Export resolution (default: same as -r)")
	scaleXY := fs.Float64("scale-xy", 1, "Horizontal scale (0.1-10)")
	scaleZ := fs.Float64("scale-z", 1, "Vertical scale (0.5-5)")
	base := fs.Bool("base", true, "Add skirts and base plate")
	thickness := fs.Float64("thickness", cfg.Model.BaseThicknessMM, "Base thickness in mm (1-20)")
	output := fs.String("o", "", "Output file (default: <out dir>/terrain_<region>_<res>.stl)")
	fs.Parse(args)

	req, err := target.request()
	if err != nil {
		return err
	}
	session, err := newSession(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := generate(ctx, session, req)
	if err != nil {
		return err
	}

	res := *exportRes
	if res == 0 {
		res = req.Resolution
	}
	est, err := session.Estimate(res, *base, *scaleXY)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Building %dx%d solid (estimate %.2f MB, %s)\n",
		res, res, est.FileSizeMB, est.EstimatedPrintTime)

	out, err := session.Export(ctx, pipeline.ExportRequest{
		TerrainID:     t.ID,
		Resolution:    res,
		ScaleXY:       *scaleXY,
		ScaleZ:        *scaleZ,
		AddBase:       *base,
		BaseThickness: *thickness,
	})
	if err != nil {
		return err
	}

	path := *output
	if path == "" {
		path = filepath.Join(cfg.Export.OutputDir, out.Filename)
	}
	if _, err := os.Stat(path); err == nil {
		logger.Warn("overwriting existing file", zap.String("path", path))
	}
	if err := os.WriteFile(path, out.Data, 0o644); err != nil {
		return fmt.Errorf("writing STL: %w", err)
	}
	logger.Info("STL written",
		zap.String("path", path),
		zap.String("terrain", t.ID),
		zap.Int("triangles", out.Counts.Total()),
		zap.Int("bytes", len(out.Data)))

	size := out.Bounds.Size()
	fmt.Printf("Wrote %s\n", path)
	fmt.Printf("Triangles:  %d (terrain %d, skirt %d, base %d)\n",
		out.Counts.Total(), out.Counts.Terrain, out.Counts.Skirt, out.Counts.Base)
	fmt.Printf("File size:  %.2f MB\n", float64(len(out.Data))/(1024*1024))
	fmt.Printf("Model size: %.1f x %.1f x %.1f mm\n", size.X, size.Y, size.Z)
	return nil
}

func cmdConfig(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.Bool("save", false, "Save to the user config directory")
	output := fs.String("o", "", "Save to this file")
	fs.Parse(args)

	switch {
	case *output != "":
		if err := cfg.SaveTo(*output); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		logger.Sugar.Infof("config saved to %s", *output)
	case *save:
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		logger.Sugar.Infof("config saved to %s", filepath.Join(config.ConfigDir(), "config.yaml"))
	default:
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		os.Stdout.Write(data)
	}
	return nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: terraprint info <file.stl>")
		os.Exit(1)
	}

	f, err := stl.ParseFile(args[0])
	if err != nil {
		return err
	}
	lo, hi := f.Bounds()
	size := hi.Sub(lo)

	fmt.Printf("File:      %s\n", args[0])
	fmt.Printf("Header:    %s\n", f.HeaderText())
	fmt.Printf("Triangles: %d\n", f.TriangleCount())
	fmt.Printf("Size:      %.2f MB\n", float64(stl.Size(f.TriangleCount()))/(1024*1024))
	fmt.Printf("Bounds:    (%.2f, %.2f, %.2f) - (%.2f, %.2f, %.2f)\n", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
	fmt.Printf("Extent:    %.1f x %.1f x %.1f mm\n", size.X, size.Y, size.Z)
	return nil
}

// newSession builds a pipeline over the configured source, with the offline
// generator always available as a fallback data source.
func newSession(cfg *config.Config) (*pipeline.Session, error) {
	primary, err := elevation.NewSource(cfg.Acquisition.Source, cfg.Acquisition.Endpoint, cfg.Acquisition.RequestTimeout)
	if err != nil {
		return nil, err
	}
	sources := []elevation.Source{primary}
	if primary.Name() != elevation.SyntheticName {
		sources = append(sources, elevation.NewSynthetic())
	}
	return pipeline.New(cfg, sources)
}

// generate runs a generate request, reporting progress on stderr.
func generate(ctx context.Context, session *pipeline.Session, req pipeline.GenerateRequest) (*pipeline.Terrain, error) {
	unsubscribe := session.Subscribe(func(s pipeline.Snapshot) {
		if s.State == pipeline.Acquiring && s.Progress.Total > 0 {
			fmt.Fprintf(os.Stderr, "\r%s: %d/%d points", s.Progress.Message, s.Progress.Current, s.Progress.Total)
			if s.Progress.Current == s.Progress.Total {
				fmt.Fprintln(os.Stderr)
			}
		}
	})
	defer unsubscribe()

	return session.Generate(ctx, req)
}

func parseBBox(s string) (dem.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return dem.BoundingBox{}, fmt.Errorf("bbox needs 4 comma-separated values, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return dem.BoundingBox{}, fmt.Errorf("bbox value %q: %w", p, err)
		}
		v[i] = f
	}
	box := dem.BoundingBox{LatMin: v[0], LatMax: v[1], LonMin: v[2], LonMax: v[3]}
	return box, box.Validate()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
