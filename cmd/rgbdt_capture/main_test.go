package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/kevmo314/go-rgbdt"
	"github.com/kevmo314/go-rgbdt/pkg/realsense"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("rgbdt_capture", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlagsDefaults(t *testing.T) {
	o, err := parseFlags(newFlagSet(), nil)
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if len(o.aux) != 2 || o.aux[0] != 1 || o.aux[1] != 2 {
		t.Errorf("aux = %v, want [1 2]", o.aux)
	}
	if o.width != 640 || o.height != 480 || o.fps != 60 {
		t.Errorf("stream = %dx%d@%d, want 640x480@60", o.width, o.height, o.fps)
	}
	if o.frames != 0 {
		t.Errorf("frames = %d, want 0", o.frames)
	}
	if o.compression != png.BestSpeed {
		t.Errorf("compression = %v, want BestSpeed", o.compression)
	}
	if o.minFree != 1024<<20 {
		t.Errorf("minFree = %d, want %d", o.minFree, 1024<<20)
	}
}

func TestParseFlagsAuxFPS(t *testing.T) {
	o, err := parseFlags(newFlagSet(), []string{"-aux", "3, 4", "-aux-fps", "9"})
	if err != nil {
		t.Fatalf("parseFlags failed: %v", err)
	}
	if o.aux[0] != 3 || o.aux[1] != 4 || o.auxFPS != 9 {
		t.Errorf("aux = %v at %v fps, want [3 4] at 9 fps", o.aux, o.auxFPS)
	}
}

func TestParseFlagsRejects(t *testing.T) {
	tests := [][]string{
		{"-frames", "-1"},
		{"-aux", "1"},
		{"-aux", "1,x"},
		{"-aux-fps", "-5"},
		{"-compression", "zstd"},
		{"-depth-max", "0"},
		{"-depth-max", "70000"},
	}
	for _, args := range tests {
		if _, err := parseFlags(newFlagSet(), args); err == nil {
			t.Errorf("parseFlags(%v) succeeded, want error", args)
		}
	}
}

func TestRecorderConfig(t *testing.T) {
	var pane bytes.Buffer
	saved := log.Writer()
	log.SetOutput(&pane)
	defer log.SetOutput(saved)

	o, err := parseFlags(newFlagSet(), []string{"-frames", "7", "-width", "848", "-preview", "tui"})
	if err != nil {
		t.Fatal(err)
	}
	cfg := recorderConfig(o)
	if cfg.MaxFrames != 7 {
		t.Errorf("MaxFrames = %d, want 7", cfg.MaxFrames)
	}
	if cfg.Streams[0].Width != 848 {
		t.Errorf("depth width = %d, want 848", cfg.Streams[0].Width)
	}
	if cfg.Stdout != io.Writer(&pane) {
		t.Errorf("Stdout = %v, want the log writer", cfg.Stdout)
	}

	o.preview = "sdl"
	if cfg := recorderConfig(o); cfg.Stdout != nil {
		t.Errorf("Stdout = %v, want nil so the recorder uses os.Stdout", cfg.Stdout)
	}
}

func TestExitCode(t *testing.T) {
	sdkErr := &realsense.Error{
		Function: "rs2_config_enable_stream",
		Args:     "config:0x1, stream:Color",
		Message:  "Couldn't resolve requests",
	}
	tests := []struct {
		name   string
		err    error
		want   int
		stdout string
	}{
		{"clean", nil, 0, ""},
		{"no device", rgbdt.ErrNoDevice, 1, ""},
		{"wrapped sdk error", fmt.Errorf("failed to enable color 640x480 rgb8@60: %w", sdkErr), 1,
			"rs2 error was thrown when calling rs2_config_enable_stream(config:0x1, stream:Color):\n    Couldn't resolve requests\n"},
		{"other", errors.New("auxiliary camera 0: empty frame"), 1, ""},
	}

	saved := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(saved)

	for _, tt := range tests {
		var stdout bytes.Buffer
		if got := exitCode(tt.err, &stdout); got != tt.want {
			t.Errorf("%s: exitCode() = %d, want %d", tt.name, got, tt.want)
		}
		if got := stdout.String(); got != tt.stdout {
			t.Errorf("%s: stdout = %q, want %q", tt.name, got, tt.stdout)
		}
	}
}

func TestExistingDir(t *testing.T) {
	dir := t.TempDir()
	if got := existingDir(filepath.Join(dir, "a", "b", "c")); got != dir {
		t.Errorf("existingDir() = %s, want %s", got, dir)
	}
	if got := existingDir(dir); got != dir {
		t.Errorf("existingDir(%s) = %s, want itself", dir, got)
	}
}
