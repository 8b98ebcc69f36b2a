package capture

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Frame is a captured image together with its capture time.
// A Frame owns its Mat; whoever holds the Frame last must Close it.
type Frame struct {
	Mat        gocv.Mat
	CapturedAt time.Time

	once sync.Once
}

// NewFrame wraps mat in a Frame. The Frame takes ownership of mat.
func NewFrame(mat gocv.Mat, capturedAt time.Time) *Frame {
	return &Frame{Mat: mat, CapturedAt: capturedAt}
}

// Clone returns an independent deep copy of the frame.
func (f *Frame) Clone() *Frame {
	return &Frame{Mat: f.Mat.Clone(), CapturedAt: f.CapturedAt}
}

// Close releases the underlying Mat. It is safe to call more than once.
func (f *Frame) Close() error {
	var err error
	f.once.Do(func() {
		err = f.Mat.Close()
	})
	return err
}
