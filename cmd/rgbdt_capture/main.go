// Command rgbdt_capture records synchronized color, depth and aligned depth
// frames from a RealSense camera together with two auxiliary cameras.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/kevmo314/go-rgbdt"
	"github.com/kevmo314/go-rgbdt/pkg/diskspace"
	"github.com/kevmo314/go-rgbdt/pkg/preview"
	"github.com/kevmo314/go-rgbdt/pkg/preview/cvview"
	"github.com/kevmo314/go-rgbdt/pkg/preview/ebitenview"
	"github.com/kevmo314/go-rgbdt/pkg/preview/sdlview"
	"github.com/kevmo314/go-rgbdt/pkg/preview/tuiview"
	"github.com/kevmo314/go-rgbdt/pkg/realsense"
	"github.com/kevmo314/go-rgbdt/pkg/videocap"
)

func init() {
	// SDL, highgui and ebiten all want the main OS thread
	runtime.LockOSThread()
}

type options struct {
	out         string
	aux         []int
	width       int
	height      int
	fps         int
	auxWidth    int
	auxHeight   int
	auxFPS      float64
	preview     string
	frames      int
	depthMax    int
	compression png.CompressionLevel
	minFree     uint64
}

func parseAux(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("want two comma separated device indices, got %q", s)
	}
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid device index %q: %w", p, err)
		}
		out[i] = n
	}
	return out, nil
}

func parseCompression(s string) (png.CompressionLevel, error) {
	switch s {
	case "default":
		return png.DefaultCompression, nil
	case "speed":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none":
		return png.NoCompression, nil
	}
	return 0, fmt.Errorf("unknown compression %q", s)
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.out, "out", ".", "directory the session directory is created in")
	aux := fs.String("aux", "1,2", "OpenCV indices of the two auxiliary cameras")
	fs.IntVar(&o.width, "width", 640, "depth and color stream width")
	fs.IntVar(&o.height, "height", 480, "depth and color stream height")
	fs.IntVar(&o.fps, "fps", 60, "depth and color stream frame rate")
	fs.IntVar(&o.auxWidth, "aux-width", 0, "auxiliary camera width (0 keeps the device default)")
	fs.IntVar(&o.auxHeight, "aux-height", 0, "auxiliary camera height (0 keeps the device default)")
	fs.Float64Var(&o.auxFPS, "aux-fps", 0, "auxiliary camera frame rate (0 keeps the device default)")
	fs.StringVar(&o.preview, "preview", "sdl", "preview backend: sdl, opencv, ebiten, tui or none")
	fs.IntVar(&o.frames, "frames", 0, "stop after this many frames (0 records until interrupted)")
	fs.IntVar(&o.depthMax, "depth-max", 4000, "depth value shown as white in the preview")
	compression := fs.String("compression", "speed", "png compression: default, speed, best or none")
	minFree := fs.Uint64("min-free", 1024, "refuse to start with less free disk space than this, in MiB")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	var err error
	if o.aux, err = parseAux(*aux); err != nil {
		return o, err
	}
	if o.compression, err = parseCompression(*compression); err != nil {
		return o, err
	}
	if o.frames < 0 {
		return o, fmt.Errorf("frames must not be negative, got %d", o.frames)
	}
	if o.auxFPS < 0 {
		return o, fmt.Errorf("aux-fps must not be negative, got %v", o.auxFPS)
	}
	if o.depthMax <= 0 || o.depthMax > 0xffff {
		return o, fmt.Errorf("depth-max must be in 1..65535, got %d", o.depthMax)
	}
	o.minFree = *minFree << 20
	return o, nil
}

// recorderConfig must be called after the display is opened: the terminal
// preview takes over stdout and redirects the logger into its log pane, so the
// device banners follow the logger there.
func recorderConfig(o options) rgbdt.Config {
	cfg := rgbdt.DefaultConfig()
	cfg.OutputRoot = o.out
	cfg.Streams = rgbdt.DefaultStreams(o.width, o.height, o.fps)
	cfg.MaxFrames = o.frames
	cfg.Compression = o.compression
	cfg.DepthPreview = preview.DepthToGray(uint16(o.depthMax))
	if o.preview == "tui" {
		cfg.Stdout = log.Writer()
	}
	return cfg
}

// exitCode reports err the way the process should and returns its exit
// status. SDK errors go to stdout with the failing call and its arguments.
func exitCode(err error, stdout io.Writer) int {
	var rsErr *realsense.Error
	switch {
	case err == nil:
		return 0
	case errors.Is(err, rgbdt.ErrNoDevice):
		return 1
	case errors.As(err, &rsErr):
		fmt.Fprintln(stdout, rsErr.Error())
		return 1
	default:
		log.Printf("%v", err)
		return 1
	}
}

func openDisplay(name string) (rgbdt.Display, error) {
	switch name {
	case "sdl":
		return sdlview.New()
	case "opencv":
		return cvview.New(), nil
	case "ebiten":
		return ebitenview.New(320, 240), nil
	case "tui":
		return tuiview.New(), nil
	case "none":
		return preview.None{}, nil
	}
	return nil, fmt.Errorf("unknown preview backend %q", name)
}

// existingDir returns the closest ancestor of path that exists, for the free
// space check before the output directory is created.
func existingDir(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

func run(ctx context.Context, o options) error {
	if o.minFree > 0 {
		if err := diskspace.Check(existingDir(o.out), o.minFree); err != nil {
			return err
		}
	}

	rs, err := realsense.NewContext()
	if err != nil {
		return err
	}
	defer rs.Close()

	var sources []rgbdt.FrameSource
	for _, index := range o.aux {
		c, err := videocap.Open(index, videocap.Options{Width: o.auxWidth, Height: o.auxHeight, FPS: o.auxFPS})
		if err != nil {
			return err
		}
		defer c.Close()
		sources = append(sources, c)
	}

	display, err := openDisplay(o.preview)
	if err != nil {
		return err
	}
	defer display.Close()

	rec, err := rgbdt.NewRecorder(rs, sources, display, recorderConfig(o))
	if err != nil {
		return err
	}

	loop, ok := display.(preview.MainLoop)
	if !ok {
		return rec.Run(ctx)
	}
	errc := make(chan error, 1)
	go func() {
		err := rec.Run(ctx)
		display.Close()
		errc <- err
	}()
	if err := loop.Run(); err != nil {
		log.Printf("preview stopped: %v", err)
	}
	// a closed preview makes PollEvents report a quit, so the recorder
	// returns shortly after
	return <-errc
}

func main() {
	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, o)
	stop()
	os.Exit(exitCode(err, os.Stdout))
}
