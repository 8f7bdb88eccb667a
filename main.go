package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/df07/go-whitted-raytracer/pkg/config"
	"github.com/df07/go-whitted-raytracer/pkg/core"
	"github.com/df07/go-whitted-raytracer/pkg/frame"
	"github.com/df07/go-whitted-raytracer/pkg/input"
	"github.com/df07/go-whitted-raytracer/pkg/loaders"
	"github.com/df07/go-whitted-raytracer/pkg/publish"
	"github.com/df07/go-whitted-raytracer/pkg/renderer"
	"github.com/df07/go-whitted-raytracer/pkg/scene"
)

// errHelp is returned by run when -help was requested
var errHelp = errors.New("help requested")

// options holds the parsed command line
type options struct {
	scene       string
	width       int
	height      int
	focal       float64
	outDir      string
	format      string
	scale       int
	noShadows   bool
	noSpecular  bool
	interactive bool
	publish     bool
}

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	core.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if err := run(cfg, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line over the configured defaults
func parseFlags(cfg config.Config, args []string, stdout io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("raytracer", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.StringVar(&opts.scene, "scene", "default", "Scene: a built-in name, file:<name> from the scenes directory, or a .json path")
	fs.IntVar(&opts.width, "width", 0, "Frame width in pixels (0 uses the scene's width)")
	fs.IntVar(&opts.height, "height", 0, "Frame height in pixels (0 uses the scene's height)")
	fs.Float64Var(&opts.focal, "focal", 0, "Focal length in pixels (0 uses the scene's focal length)")
	fs.StringVar(&opts.outDir, "out", cfg.OutputDir, "Output directory")
	fs.StringVar(&opts.format, "format", cfg.OutputFormat, "Output format: png, bmp, jpg, gif or tif")
	fs.IntVar(&opts.scale, "scale", cfg.Scale, "Nearest-neighbour upscale factor for saved images")
	fs.BoolVar(&opts.noShadows, "no-shadows", false, "Disable point-light shadows")
	fs.BoolVar(&opts.noSpecular, "no-specular", false, "Disable specular highlights")
	fs.BoolVar(&opts.interactive, "interactive", false, "Read keys from stdin: w/s/a/d move the sphere, u renders, q quits")
	fs.BoolVar(&opts.publish, "publish", false, "Upload every presented frame to S3 (requires S3_BUCKET)")
	help := fs.Bool("help", false, "Show help information")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, errHelp
		}
		return opts, err
	}
	if *help {
		fmt.Fprintln(stdout, "Whitted Raytracer")
		fmt.Fprintln(stdout, "Usage: raytracer [options]")
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, "Available scenes:")
		for _, info := range scene.BuiltInScenes() {
			fmt.Fprintf(stdout, "  %-8s - %s\n", info.ID, info.Description)
		}
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "Output will be saved to %s/<scene>/render_<timestamp>_<frame>.<format>\n", opts.outDir)
		return opts, errHelp
	}
	if opts.width < 0 || opts.height < 0 || opts.focal < 0 {
		return opts, fmt.Errorf("width, height and focal must not be negative")
	}
	if opts.scale < 1 {
		return opts, fmt.Errorf("scale must be at least 1, got %d", opts.scale)
	}
	opts.format = strings.ToLower(strings.TrimPrefix(opts.format, "."))
	return opts, nil
}

// run renders the selected scene once, or drives it interactively from stdin
func run(cfg config.Config, args []string, stdin io.Reader, stdout io.Writer) error {
	opts, err := parseFlags(cfg, args, stdout)
	if err != nil {
		return err
	}

	selectedScene, err := createScene(opts.scene, cfg)
	if err != nil {
		return err
	}
	selectedScene.Options.SetFrame(opts.width, opts.height, opts.focal)
	if opts.noShadows {
		selectedScene.SetShadows(false)
	}
	if opts.noSpecular {
		selectedScene.SetSpecular(false)
	}

	width, height := selectedScene.Options.Width, selectedScene.Options.Height
	raytracer := renderer.NewRaytracer(selectedScene, width, height)
	f := frame.New(width, height)

	outputDir := createOutputDir(opts.outDir, opts.scene)
	f.OnPresent(saveFrame(outputDir, opts.format, opts.scale, stdout))

	if opts.publish {
		if !cfg.PublishEnabled() {
			return fmt.Errorf("-publish requires S3_BUCKET to be set")
		}
		publisher, err := publish.NewFromConfig(cfg, "cli")
		if err != nil {
			return err
		}
		publisher.SetFormat(opts.format, opts.scale)
		f.OnPresent(publisher.PresentFunc(context.Background(), filepath.Base(outputDir)))
	}

	fmt.Fprintf(stdout, "Rendering %s at %dx%d...\n", opts.scene, width, height)
	if err := renderFrame(raytracer, f, stdout); err != nil {
		return err
	}
	if !opts.interactive {
		return nil
	}
	return interact(input.NewController(selectedScene.Controlled), raytracer, f, stdin, stdout)
}

// interact applies keys read from stdin until q or end of input. Every
// character on a line is a key.
func interact(controller *input.Controller, raytracer *renderer.Raytracer, f *frame.Frame, stdin io.Reader, stdout io.Writer) error {
	if controller.Target() == nil {
		fmt.Fprintln(stdout, "Scene has no controlled sphere; only u and q have an effect")
	}

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		for _, key := range strings.TrimSpace(scanner.Text()) {
			switch controller.HandleKey(key) {
			case input.ActionMoved:
				fmt.Fprintf(stdout, "Sphere moved to %v\n", controller.Target().Center)
			case input.ActionRender:
				if err := renderFrame(raytracer, f, stdout); err != nil {
					return err
				}
			case input.ActionQuit:
				return nil
			}
		}
	}
	return scanner.Err()
}

// renderFrame renders one frame and prints its statistics
func renderFrame(raytracer *renderer.Raytracer, f *frame.Frame, stdout io.Writer) error {
	stats, err := raytracer.Render(f)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Render completed in %v\n", stats.Duration)
	fmt.Fprintf(stdout, "Hits: %d/%d pixels, %d rays, max depth %d",
		stats.Hits, stats.Pixels, stats.Trace.Calls, stats.Trace.MaxDepth)
	if stats.Faults > 0 {
		fmt.Fprintf(stdout, ", %d faults", stats.Faults)
	}
	fmt.Fprintln(stdout)
	return nil
}

// saveFrame returns a present callback writing each frame to a timestamped file
func saveFrame(outputDir, format string, scale int, stdout io.Writer) frame.PresentFunc {
	return func(f *frame.Frame) error {
		timestamp := time.Now().Format("20060102_150405")
		filename := filepath.Join(outputDir, fmt.Sprintf("render_%s_%03d.%s", timestamp, f.Presented(), format))

		var err error
		if format == "bmp" && scale == 1 {
			err = writeBMP(f, filename)
		} else {
			err = renderer.SaveImage(f.Image(), filename, scale)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Render saved as %s\n", filename)
		return nil
	}
}

func writeBMP(f *frame.Frame, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer file.Close()
	return f.WriteBMP(file)
}

// createScene resolves a built-in scene name, a file:<name> ID from the
// scenes directory, or a direct path to a JSON scene file. Built-in scenes
// take their frame settings from cfg.
func createScene(sceneType string, cfg config.Config) (*scene.Scene, error) {
	if sceneType == "" {
		return nil, fmt.Errorf("scene name cannot be empty")
	}
	if strings.HasSuffix(strings.ToLower(sceneType), ".json") {
		return loaders.LoadScene(sceneType)
	}

	s, err := loaders.Resolve(cfg.ScenesDir, sceneType)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(sceneType, loaders.FilePrefix) {
		s.Options.SetFrame(cfg.Width, cfg.Height, cfg.FocalLength)
	}
	return s, nil
}

// createOutputDir names the output directory for a scene: built-in scenes
// use their name and scene files their base filename
func createOutputDir(baseDir, sceneType string) string {
	name := strings.TrimPrefix(sceneType, loaders.FilePrefix)
	name = filepath.Base(name)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(baseDir, name)
}
