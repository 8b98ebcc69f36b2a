// Package capture owns the camera: it opens the device through GoCV, wraps
// captured images in frames, and hands out the most recent one.
package capture

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"gocv.io/x/gocv"
)

// Default device settings. The classifier downsamples to its own input size,
// so the capture resolution only matters for the preview stream.
const (
	DefaultFPS    = 15
	DefaultWidth  = 1280
	DefaultHeight = 720
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the device delivers an empty image.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Camera is a source of frames. ReadFrame hands ownership of the Mat to the
// caller.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Device is a Camera backed by an OpenCV capture device.
type Device struct {
	id     int
	width  int
	height int

	mu      sync.Mutex
	vc      *gocv.VideoCapture
	fps     int
	scratch gocv.Mat
}

// NewCamera returns the capture device with the given index at the default
// resolution. Nothing is opened until Open.
func NewCamera(deviceID int) *Device {
	return &Device{
		id:     deviceID,
		width:  DefaultWidth,
		height: DefaultHeight,
		fps:    DefaultFPS,
	}
}

// Open starts the device. Opening an open device is a no-op.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(d.id)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", d.id, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("open camera %d: device unavailable", d.id)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(d.width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(d.height))
	vc.Set(gocv.VideoCaptureFPS, float64(d.fps))
	// Keep the driver from queueing stale images behind the newest one.
	vc.Set(gocv.VideoCaptureBufferSize, 1)

	w := int(vc.Get(gocv.VideoCaptureFrameWidth))
	h := int(vc.Get(gocv.VideoCaptureFrameHeight))
	if w != d.width || h != d.height {
		log.Printf("Camera %d negotiated %dx%d instead of %dx%d", d.id, w, h, d.width, d.height)
	}

	d.vc = vc
	d.scratch = gocv.NewMat()
	return nil
}

// Close stops the device. Closing a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil
	}

	err := d.vc.Close()
	d.scratch.Close()
	d.vc = nil
	return err
}

// ReadFrame grabs the next image. The returned Mat is a copy the caller
// must close.
func (d *Device) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil, ErrCameraNotOpen
	}

	if ok := d.vc.Read(&d.scratch); !ok {
		return nil, fmt.Errorf("read camera %d: device stopped delivering", d.id)
	}
	if d.scratch.Empty() {
		return nil, ErrEmptyFrame
	}

	mat := d.scratch.Clone()
	return &mat, nil
}

// SetFPS changes the requested frame rate. Non-positive values are ignored.
func (d *Device) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.fps = fps
	if d.vc != nil {
		d.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the requested frame rate.
func (d *Device) FPS() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fps
}

// IsOpen reports whether the device is capturing.
func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vc != nil
}
