package capture

import (
	"fmt"
	"strings"
	"sync/atomic"

	"gocv.io/x/gocv"
)

// DeviceOrientation is the physical orientation reported by the device
// holding the camera.
type DeviceOrientation int32

const (
	OrientationUnknown DeviceOrientation = iota
	OrientationPortrait
	OrientationPortraitUpsideDown
	OrientationLandscapeLeft
	OrientationLandscapeRight
	OrientationFaceUp
	OrientationFaceDown
)

var deviceOrientationNames = map[DeviceOrientation]string{
	OrientationUnknown:            "unknown",
	OrientationPortrait:           "portrait",
	OrientationPortraitUpsideDown: "portrait-upside-down",
	OrientationLandscapeLeft:      "landscape-left",
	OrientationLandscapeRight:     "landscape-right",
	OrientationFaceUp:             "face-up",
	OrientationFaceDown:           "face-down",
}

func (d DeviceOrientation) String() string {
	if name, ok := deviceOrientationNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DeviceOrientation(%d)", int32(d))
}

// ParseDeviceOrientation resolves the names produced by String.
func ParseDeviceOrientation(s string) (DeviceOrientation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, name := range deviceOrientationNames {
		if name == s {
			return d, nil
		}
	}
	return OrientationUnknown, fmt.Errorf("unknown device orientation %q", s)
}

// ImageOrientation tells the classifier how the captured image relates to
// its upright display orientation (EXIF semantics).
type ImageOrientation int

const (
	ImageUp ImageOrientation = iota
	ImageUpMirrored
	ImageDown
	ImageLeft
)

func (o ImageOrientation) String() string {
	switch o {
	case ImageUp:
		return "up"
	case ImageUpMirrored:
		return "up-mirrored"
	case ImageDown:
		return "down"
	case ImageLeft:
		return "left"
	default:
		return fmt.Sprintf("ImageOrientation(%d)", int(o))
	}
}

// ImageOrientationFor maps the device orientation to the orientation hint
// the classifier needs. Flat and unknown orientations are treated as upright.
func ImageOrientationFor(d DeviceOrientation) ImageOrientation {
	switch d {
	case OrientationPortraitUpsideDown:
		return ImageLeft
	case OrientationLandscapeLeft:
		return ImageUpMirrored
	case OrientationLandscapeRight:
		return ImageDown
	default:
		return ImageUp
	}
}

// Upright writes src into dst turned to its display orientation.
func (o ImageOrientation) Upright(src gocv.Mat, dst *gocv.Mat) {
	switch o {
	case ImageUpMirrored:
		gocv.Flip(src, dst, 1)
	case ImageDown:
		gocv.Rotate(src, dst, gocv.Rotate180Clockwise)
	case ImageLeft:
		gocv.Rotate(src, dst, gocv.Rotate90CounterClockwise)
	default:
		src.CopyTo(dst)
	}
}

// OrientationSource reports the current device orientation.
type OrientationSource interface {
	Orientation() DeviceOrientation
}

// OrientationState is an OrientationSource updated by whoever tracks the
// device, typically the front-end reporting rotation events.
type OrientationState struct {
	v atomic.Int32
}

// NewOrientationState creates a state starting at d.
func NewOrientationState(d DeviceOrientation) *OrientationState {
	s := &OrientationState{}
	s.Set(d)
	return s
}

// Orientation returns the last reported orientation.
func (s *OrientationState) Orientation() DeviceOrientation {
	return DeviceOrientation(s.v.Load())
}

// Set records a new orientation.
func (s *OrientationState) Set(d DeviceOrientation) {
	s.v.Store(int32(d))
}
