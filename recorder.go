package rgbdt

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

// Preview window names.
const (
	WindowColor      = "rgb"
	WindowDepth      = "depth"
	WindowThermalIT  = "thermal"
	WindowThermalRGB = "rgb_t"
)

const keyEscape = 27

type Config struct {
	// OutputRoot is the directory the session directory is created in.
	OutputRoot string
	Streams    []StreamConfig
	// MaxFrames stops the loop after that many iterations. Zero means run
	// until cancelled or until the display asks to quit.
	MaxFrames   int
	KeyWait     time.Duration
	Compression png.CompressionLevel
	// DepthPreview converts 16-bit depth into something a window can show.
	DepthPreview func(*image.Gray16) image.Image
	// Stdout receives the device banners. Defaults to os.Stdout.
	Stdout io.Writer
	Now    func() time.Time
}

func DefaultConfig() Config {
	return Config{
		OutputRoot:  ".",
		Streams:     DefaultStreams(640, 480, 60),
		KeyWait:     25 * time.Millisecond,
		Compression: png.BestSpeed,
	}
}

// Recorder runs the capture-and-record loop: one frame set from the depth
// device and one frame from each auxiliary source per iteration, written to
// the session directory and shown on the display.
type Recorder struct {
	depth   DepthContext
	aux     [2]FrameSource
	display Display
	cfg     Config
	writer  *imageWriter

	session *Session
	frames  int
}

func NewRecorder(depth DepthContext, aux []FrameSource, display Display, cfg Config) (*Recorder, error) {
	if depth == nil {
		return nil, errors.New("depth context is required")
	}
	if len(aux) != 2 {
		return nil, fmt.Errorf("expected 2 auxiliary sources, got %d", len(aux))
	}
	if display == nil {
		return nil, errors.New("display is required")
	}
	if len(cfg.Streams) == 0 {
		cfg.Streams = DefaultStreams(640, 480, 60)
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.DepthPreview == nil {
		cfg.DepthPreview = func(img *image.Gray16) image.Image { return img }
	}
	return &Recorder{
		depth:   depth,
		aux:     [2]FrameSource{aux[0], aux[1]},
		display: display,
		cfg:     cfg,
		writer:  newImageWriter(cfg.Compression),
	}, nil
}

// Session returns the session directory, or nil before Run has created it.
func (r *Recorder) Session() *Session { return r.session }

// Frames returns the number of completed iterations.
func (r *Recorder) Frames() int { return r.frames }

func (r *Recorder) stream(s Stream) (StreamConfig, error) {
	for _, c := range r.cfg.Streams {
		if c.Stream == s {
			return c, nil
		}
	}
	return StreamConfig{}, fmt.Errorf("%s stream is not configured", s)
}

// Run performs the startup sequence and then loops until ctx is cancelled,
// the display asks to quit, or MaxFrames iterations have been recorded.
func (r *Recorder) Run(ctx context.Context) error {
	out := r.cfg.Stdout

	depthCfg, err := r.stream(StreamDepth)
	if err != nil {
		return err
	}
	colorCfg, err := r.stream(StreamColor)
	if err != nil {
		return err
	}

	n, err := r.depth.DeviceCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "There are %d connected RealSense devices.\n", n)
	if n == 0 {
		return ErrNoDevice
	}

	dev, err := r.depth.Device(0)
	if err != nil {
		return err
	}
	defer dev.Close()

	info, err := dev.Info()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nUsing device 0, an %s\n", info.Name)
	fmt.Fprintf(out, "    Serial number: %s\n", info.Serial)
	fmt.Fprintf(out, "    Firmware version: %s\n", info.Firmware)

	for _, c := range r.cfg.Streams {
		if err := dev.EnableStream(c); err != nil {
			if c.Optional {
				fmt.Fprintf(out, "Device does not provide %s stream.\n", c.Stream)
				continue
			}
			return fmt.Errorf("failed to enable %s: %w", c, err)
		}
	}
	if err := dev.Start(); err != nil {
		return err
	}

	intrin, err := dev.Intrinsics(StreamColor)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Camera intrinsics: fx, fy, cx, cy\n")
	fmt.Fprintf(out, "%d %d %f %f %f %f\n", intrin.Width, intrin.Height, intrin.FX, intrin.FY, intrin.PPX, intrin.PPY)
	for _, c := range intrin.Coeffs {
		fmt.Fprintf(out, "%f ", c)
	}
	fmt.Fprintf(out, "\nDistortion model: %s\n", intrin.Model)

	r.session, err = NewSession(r.cfg.OutputRoot, r.cfg.Now())
	if err != nil {
		return err
	}
	log.Printf("recording to %s", r.session.Dir)

	var (
		lastLog    = time.Now()
		lastFrames = 0
	)
	for id := 1; r.cfg.MaxFrames == 0 || id <= r.cfg.MaxFrames; id++ {
		if ctx.Err() != nil || !r.display.PollEvents() {
			break
		}
		fs, err := dev.WaitForFrames(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}
		quit, err := r.record(id, fs, depthCfg, colorCfg)
		fs.Release()
		if err != nil {
			return fmt.Errorf("frame %d: %w", id, err)
		}
		r.frames = id

		if t := time.Now(); t.Sub(lastLog) >= 5*time.Second {
			log.Printf("recorded %d frames (%.1f fps)", r.frames, float64(r.frames-lastFrames)/t.Sub(lastLog).Seconds())
			lastLog, lastFrames = t, r.frames
		}
		if quit {
			break
		}
	}
	log.Printf("recorded %d frames to %s in %s", r.frames, r.session.Dir, time.Since(r.session.Started).Round(time.Second))
	return nil
}

// record persists and previews one iteration. The frame set must stay
// unreleased until it returns.
func (r *Recorder) record(id int, fs FrameSet, depthCfg, colorCfg StreamConfig) (bool, error) {
	thermalIT, err := r.aux[0].ReadFrame()
	if err != nil {
		return false, fmt.Errorf("auxiliary camera 0: %w", err)
	}
	thermalRGB, err := r.aux[1].ReadFrame()
	if err != nil {
		return false, fmt.Errorf("auxiliary camera 1: %w", err)
	}

	colorBuf, err := fs.Data(StreamColor)
	if err != nil {
		return false, err
	}
	depthBuf, err := fs.Data(StreamDepth)
	if err != nil {
		return false, err
	}
	alignedBuf, err := fs.Data(StreamDepthAlignedToColor)
	if err != nil {
		return false, err
	}

	color, err := ColorView(colorBuf, colorCfg.Width, colorCfg.Height, colorCfg.Format)
	if err != nil {
		return false, fmt.Errorf("color: %w", err)
	}
	depth, err := DepthImage(depthBuf, depthCfg.Width, depthCfg.Height)
	if err != nil {
		return false, fmt.Errorf("depth: %w", err)
	}
	// alignment reprojects depth into the color camera's grid
	alignedSize := StreamConfig{Width: colorCfg.Width, Height: colorCfg.Height, Format: FormatZ16}.FrameSize()
	aligned, err := DepthImage(alignedBuf, colorCfg.Width, colorCfg.Height)
	if err != nil {
		return false, fmt.Errorf("aligned depth: %w", err)
	}

	s := r.session
	var g errgroup.Group
	g.Go(func() error { return r.writer.WritePNG(s.Path(KindColor, id, "png"), color) })
	g.Go(func() error { return r.writer.WritePNG(s.Path(KindDepth, id, "png"), depth) })
	g.Go(func() error { return r.writer.WritePNG(s.Path(KindAlignedDepth, id, "png"), aligned) })
	g.Go(func() error { return r.writer.WritePNG(s.Path(KindThermalIT, id, "png"), thermalIT) })
	g.Go(func() error { return r.writer.WritePNG(s.Path(KindThermalRGB, id, "png"), thermalRGB) })
	g.Go(func() error { return r.writer.WriteRaw(s.Path(KindAlignedRaw, id, "bin"), alignedBuf[:alignedSize]) })
	if err := g.Wait(); err != nil {
		return false, err
	}

	r.display.Show(WindowColor, color)
	r.display.Show(WindowDepth, r.cfg.DepthPreview(aligned))
	r.display.Show(WindowThermalIT, thermalIT)
	r.display.Show(WindowThermalRGB, thermalRGB)
	key, ok := r.display.WaitKey(r.cfg.KeyWait)
	return ok && (key == 'q' || key == keyEscape), nil
}
