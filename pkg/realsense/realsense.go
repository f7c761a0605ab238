// Package realsense binds the parts of librealsense2 needed to stream depth,
// color and infrared frames from an Intel RealSense camera.
package realsense

/*
#cgo LDFLAGS: -lrealsense2
#include <stdlib.h>
#include <librealsense2/rs.h>
#include <librealsense2/h/rs_pipeline.h>
#include <librealsense2/h/rs_config.h>
#include <librealsense2/h/rs_frame.h>
#include <librealsense2/h/rs_processing.h>

static inline int rgbdt_api_version() {
	return RS2_API_VERSION;
}
*/
import "C"
import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/kevmo314/go-rgbdt"
)

const (
	waitSlice   = 250 * time.Millisecond
	waitTimeout = 15 * time.Second
	// alignTimeout bounds the wait for the align block, which runs on the
	// SDK's processing thread.
	alignTimeout = 5000
)

// errorFrom converts and frees *e, leaving it nil so the variable can be
// passed to the next call.
func errorFrom(e **C.rs2_error) error {
	if *e == nil {
		return nil
	}
	err := &Error{
		Function: C.GoString(C.rs2_get_failed_function(*e)),
		Args:     C.GoString(C.rs2_get_failed_args(*e)),
		Message:  C.GoString(C.rs2_get_error_message(*e)),
	}
	C.rs2_free_error(*e)
	*e = nil
	return err
}

func streamOf(s rgbdt.Stream) (C.rs2_stream, C.int, error) {
	switch s {
	case rgbdt.StreamDepth:
		return C.RS2_STREAM_DEPTH, -1, nil
	case rgbdt.StreamColor:
		return C.RS2_STREAM_COLOR, -1, nil
	case rgbdt.StreamInfrared:
		return C.RS2_STREAM_INFRARED, 1, nil
	case rgbdt.StreamInfrared2:
		return C.RS2_STREAM_INFRARED, 2, nil
	}
	return 0, 0, fmt.Errorf("stream %s cannot be enabled", s)
}

func formatOf(f rgbdt.Format) (C.rs2_format, error) {
	switch f {
	case rgbdt.FormatAny:
		return C.RS2_FORMAT_ANY, nil
	case rgbdt.FormatZ16:
		return C.RS2_FORMAT_Z16, nil
	case rgbdt.FormatRGB8:
		return C.RS2_FORMAT_RGB8, nil
	case rgbdt.FormatBGR8:
		return C.RS2_FORMAT_BGR8, nil
	case rgbdt.FormatY8:
		return C.RS2_FORMAT_Y8, nil
	}
	return 0, fmt.Errorf("unsupported format %s", f)
}

// Context owns the handles to all connected RealSense devices.
type Context struct {
	ctx     *C.rs2_context
	devices *C.rs2_device_list
}

var _ rgbdt.DepthContext = &Context{}

func NewContext() (*Context, error) {
	var e *C.rs2_error
	ctx := C.rs2_create_context(C.rgbdt_api_version(), &e)
	if err := errorFrom(&e); err != nil {
		return nil, err
	}
	return &Context{ctx: ctx}, nil
}

func (c *Context) query() error {
	if c.devices != nil {
		return nil
	}
	var e *C.rs2_error
	list := C.rs2_query_devices(c.ctx, &e)
	if err := errorFrom(&e); err != nil {
		return err
	}
	c.devices = list
	return nil
}

func (c *Context) DeviceCount() (int, error) {
	if err := c.query(); err != nil {
		return 0, err
	}
	var e *C.rs2_error
	n := C.rs2_get_device_count(c.devices, &e)
	if err := errorFrom(&e); err != nil {
		return 0, err
	}
	return int(n), nil
}

// Device opens the device at index and prepares a pipeline bound to it.
func (c *Context) Device(index int) (rgbdt.DepthDevice, error) {
	d, err := c.OpenDevice(index)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (c *Context) OpenDevice(index int) (*Device, error) {
	if err := c.query(); err != nil {
		return nil, err
	}
	var e *C.rs2_error
	dev := C.rs2_create_device(c.devices, C.int(index), &e)
	if err := errorFrom(&e); err != nil {
		return nil, err
	}
	d := &Device{dev: dev}
	if d.cfg = C.rs2_create_config(&e); e != nil {
		d.Close()
		return nil, errorFrom(&e)
	}
	if d.pipe = C.rs2_create_pipeline(c.ctx, &e); e != nil {
		d.Close()
		return nil, errorFrom(&e)
	}
	serial := C.rs2_get_device_info(dev, C.RS2_CAMERA_INFO_SERIAL_NUMBER, &e)
	if err := errorFrom(&e); err != nil {
		d.Close()
		return nil, err
	}
	C.rs2_config_enable_device(d.cfg, serial, &e)
	if err := errorFrom(&e); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (c *Context) Close() error {
	if c.devices != nil {
		C.rs2_delete_device_list(c.devices)
		c.devices = nil
	}
	if c.ctx != nil {
		C.rs2_delete_context(c.ctx)
		c.ctx = nil
	}
	return nil
}

type Device struct {
	dev     *C.rs2_device
	cfg     *C.rs2_config
	pipe    *C.rs2_pipeline
	profile *C.rs2_pipeline_profile
	align   *C.rs2_processing_block
	queue   *C.rs2_frame_queue
}

var _ rgbdt.DepthDevice = &Device{}

func (d *Device) info(key C.rs2_camera_info) (string, error) {
	var e *C.rs2_error
	ok := C.rs2_supports_device_info(d.dev, key, &e)
	if err := errorFrom(&e); err != nil {
		return "", err
	}
	if ok == 0 {
		return "", nil
	}
	s := C.rs2_get_device_info(d.dev, key, &e)
	if err := errorFrom(&e); err != nil {
		return "", err
	}
	return C.GoString(s), nil
}

func (d *Device) Info() (rgbdt.DeviceInfo, error) {
	var info rgbdt.DeviceInfo
	var err error
	if info.Name, err = d.info(C.RS2_CAMERA_INFO_NAME); err != nil {
		return info, err
	}
	if info.Serial, err = d.info(C.RS2_CAMERA_INFO_SERIAL_NUMBER); err != nil {
		return info, err
	}
	if info.Firmware, err = d.info(C.RS2_CAMERA_INFO_FIRMWARE_VERSION); err != nil {
		return info, err
	}
	return info, nil
}

// EnableStream requests a stream from the pipeline. Optional streams are
// checked against the device immediately and withdrawn with
// ErrStreamUnavailable if the configuration can no longer be resolved.
func (d *Device) EnableStream(cfg rgbdt.StreamConfig) error {
	stream, index, err := streamOf(cfg.Stream)
	if err != nil {
		return err
	}
	format, err := formatOf(cfg.Format)
	if err != nil {
		return err
	}
	var e *C.rs2_error
	C.rs2_config_enable_stream(d.cfg, stream, index, C.int(cfg.Width), C.int(cfg.Height), format, C.int(cfg.FPS), &e)
	if err := errorFrom(&e); err != nil {
		return err
	}
	if !cfg.Optional {
		return nil
	}
	ok := C.rs2_config_can_resolve(d.cfg, d.pipe, &e)
	if err := errorFrom(&e); err == nil && ok != 0 {
		return nil
	}
	C.rs2_config_disable_indexed_stream(d.cfg, stream, index, &e)
	if err := errorFrom(&e); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrStreamUnavailable, cfg)
}

// Start begins streaming and sets up alignment of depth to the color stream.
func (d *Device) Start() error {
	var e *C.rs2_error
	d.profile = C.rs2_pipeline_start_with_config(d.pipe, d.cfg, &e)
	if err := errorFrom(&e); err != nil {
		return err
	}
	d.align = C.rs2_create_align(C.RS2_STREAM_COLOR, &e)
	if err := errorFrom(&e); err != nil {
		return err
	}
	d.queue = C.rs2_create_frame_queue(1, &e)
	if err := errorFrom(&e); err != nil {
		return err
	}
	C.rs2_start_processing_queue(d.align, d.queue, &e)
	return errorFrom(&e)
}

func (d *Device) Intrinsics(s rgbdt.Stream) (rgbdt.Intrinsics, error) {
	if d.profile == nil {
		return rgbdt.Intrinsics{}, fmt.Errorf("device not started")
	}
	want, index, err := streamOf(s)
	if err != nil {
		return rgbdt.Intrinsics{}, err
	}
	var e *C.rs2_error
	list := C.rs2_pipeline_profile_get_streams(d.profile, &e)
	if err := errorFrom(&e); err != nil {
		return rgbdt.Intrinsics{}, err
	}
	defer C.rs2_delete_stream_profiles_list(list)
	n := C.rs2_get_stream_profiles_count(list, &e)
	if err := errorFrom(&e); err != nil {
		return rgbdt.Intrinsics{}, err
	}
	for i := C.int(0); i < n; i++ {
		p := C.rs2_get_stream_profile(list, i, &e)
		if err := errorFrom(&e); err != nil {
			return rgbdt.Intrinsics{}, err
		}
		if !profileMatches(p, want, index) {
			continue
		}
		var in C.rs2_intrinsics
		C.rs2_get_video_stream_intrinsics(p, &in, &e)
		if err := errorFrom(&e); err != nil {
			return rgbdt.Intrinsics{}, err
		}
		out := rgbdt.Intrinsics{
			Width:  int(in.width),
			Height: int(in.height),
			PPX:    float32(in.ppx),
			PPY:    float32(in.ppy),
			FX:     float32(in.fx),
			FY:     float32(in.fy),
			Model:  C.GoString(C.rs2_distortion_to_string(in.model)),
		}
		for j := range out.Coeffs {
			out.Coeffs[j] = float32(in.coeffs[j])
		}
		return out, nil
	}
	return rgbdt.Intrinsics{}, fmt.Errorf("%w: %s is not streaming", ErrStreamUnavailable, s)
}

func profileMatches(p *C.rs2_stream_profile, want C.rs2_stream, index C.int) bool {
	var e *C.rs2_error
	var stream C.rs2_stream
	var format C.rs2_format
	var idx, uid, framerate C.int
	C.rs2_get_stream_profile_data(p, &stream, &format, &idx, &uid, &framerate, &e)
	if errorFrom(&e) != nil {
		return false
	}
	return stream == want && (index < 0 || idx == index)
}

// WaitForFrames blocks until the pipeline delivers the next frame set, ctx is
// cancelled, or no frame arrived for 15 seconds.
func (d *Device) WaitForFrames(ctx context.Context) (rgbdt.FrameSet, error) {
	if d.pipe == nil || d.profile == nil {
		return nil, ErrClosed
	}
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			e     *C.rs2_error
			frame *C.rs2_frame
		)
		ok := C.rs2_pipeline_try_wait_for_frames(d.pipe, &frame, C.uint(waitSlice.Milliseconds()), &e)
		if err := errorFrom(&e); err != nil {
			return nil, err
		}
		if ok != 0 {
			return &FrameSet{dev: d, composite: frame}, nil
		}
	}
	return nil, ErrFrameTimeout
}

func (d *Device) Close() error {
	var e *C.rs2_error
	if d.profile != nil {
		C.rs2_pipeline_stop(d.pipe, &e)
		errorFrom(&e)
		C.rs2_delete_pipeline_profile(d.profile)
		d.profile = nil
	}
	if d.align != nil {
		C.rs2_delete_processing_block(d.align)
		d.align = nil
	}
	if d.queue != nil {
		C.rs2_delete_frame_queue(d.queue)
		d.queue = nil
	}
	if d.pipe != nil {
		C.rs2_delete_pipeline(d.pipe)
		d.pipe = nil
	}
	if d.cfg != nil {
		C.rs2_delete_config(d.cfg)
		d.cfg = nil
	}
	if d.dev != nil {
		C.rs2_delete_device(d.dev)
		d.dev = nil
	}
	return nil
}

// FrameSet is a composite frame from the pipeline. Slices returned by Data
// point into SDK memory and are invalid after Release.
type FrameSet struct {
	dev       *Device
	composite *C.rs2_frame
	aligned   *C.rs2_frame
	extracted []*C.rs2_frame
}

var _ rgbdt.FrameSet = &FrameSet{}

func (fs *FrameSet) Data(s rgbdt.Stream) ([]byte, error) {
	if fs.composite == nil {
		return nil, ErrClosed
	}
	if s == rgbdt.StreamDepthAlignedToColor {
		if err := fs.alignToColor(); err != nil {
			return nil, err
		}
		return fs.find(fs.aligned, C.RS2_STREAM_DEPTH, -1)
	}
	stream, index, err := streamOf(s)
	if err != nil {
		return nil, err
	}
	return fs.find(fs.composite, stream, index)
}

func (fs *FrameSet) alignToColor() error {
	if fs.aligned != nil {
		return nil
	}
	var e *C.rs2_error
	// rs2_process_frame takes ownership of a reference.
	C.rs2_frame_add_ref(fs.composite, &e)
	if err := errorFrom(&e); err != nil {
		return err
	}
	C.rs2_process_frame(fs.dev.align, fs.composite, &e)
	if err := errorFrom(&e); err != nil {
		return err
	}
	aligned := C.rs2_wait_for_frame(fs.dev.queue, alignTimeout, &e)
	if err := errorFrom(&e); err != nil {
		return err
	}
	fs.aligned = aligned
	return nil
}

func (fs *FrameSet) find(composite *C.rs2_frame, want C.rs2_stream, index C.int) ([]byte, error) {
	var e *C.rs2_error
	n := C.rs2_embedded_frames_count(composite, &e)
	if err := errorFrom(&e); err != nil {
		return nil, err
	}
	for i := C.int(0); i < n; i++ {
		f := C.rs2_extract_frame(composite, i, &e)
		if err := errorFrom(&e); err != nil {
			return nil, err
		}
		p := C.rs2_get_frame_stream_profile(f, &e)
		if err := errorFrom(&e); err != nil {
			C.rs2_release_frame(f)
			return nil, err
		}
		if !profileMatches(p, want, index) {
			C.rs2_release_frame(f)
			continue
		}
		fs.extracted = append(fs.extracted, f)
		data := C.rs2_get_frame_data(f, &e)
		if err := errorFrom(&e); err != nil {
			return nil, err
		}
		size := C.rs2_get_frame_data_size(f, &e)
		if err := errorFrom(&e); err != nil {
			return nil, err
		}
		return unsafe.Slice((*byte)(unsafe.Pointer(data)), int(size)), nil
	}
	return nil, fmt.Errorf("%w: no %s frame in frame set", ErrStreamUnavailable, C.GoString(C.rs2_stream_to_string(want)))
}

func (fs *FrameSet) Release() {
	for _, f := range fs.extracted {
		C.rs2_release_frame(f)
	}
	fs.extracted = nil
	if fs.aligned != nil {
		C.rs2_release_frame(fs.aligned)
		fs.aligned = nil
	}
	if fs.composite != nil {
		C.rs2_release_frame(fs.composite)
		fs.composite = nil
	}
}
