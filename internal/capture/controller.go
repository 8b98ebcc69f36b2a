package capture

import (
	"context"
	"log"
	"sync"
	"time"
)

// FrameSink receives frames from the capture loop. SubmitFrame must not
// block; the sink takes ownership of the frame.
type FrameSink interface {
	SubmitFrame(f *Frame)
}

// Controller gives one owner at a time exclusive use of the camera.
// Starting a new owner fully tears down the previous one before the camera
// is reopened, and Start/Stop calls are serialized.
type Controller struct {
	camera Camera
	fps    int
	latest *Slot

	// op serializes Start and Stop.
	op sync.Mutex

	mu     sync.Mutex
	owner  string
	stopCh chan struct{}
	done   chan struct{}
}

// NewController creates a controller for cam capturing at fps frames per second.
func NewController(cam Camera, fps int) *Controller {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Controller{
		camera: cam,
		fps:    fps,
		latest: NewSlot(),
	}
}

// Start opens the camera on behalf of owner and begins delivering frames to
// sink (which may be nil when only the latest frame is needed).
func (c *Controller) Start(owner string, sink FrameSink) error {
	c.op.Lock()
	defer c.op.Unlock()

	return c.startLocked(owner, sink)
}

// Acquire makes owner hold the camera without a sink. A capture already
// running for owner is left untouched.
func (c *Controller) Acquire(owner string) error {
	c.op.Lock()
	defer c.op.Unlock()

	if c.Owner() == owner {
		return nil
	}
	return c.startLocked(owner, nil)
}

func (c *Controller) startLocked(owner string, sink FrameSink) error {
	c.stopLocked()

	if err := c.camera.Open(); err != nil {
		return err
	}
	c.camera.SetFPS(c.fps)

	stopCh := make(chan struct{})
	done := make(chan struct{})

	c.mu.Lock()
	c.owner = owner
	c.stopCh = stopCh
	c.done = done
	c.mu.Unlock()

	go c.run(owner, sink, stopCh, done)

	log.Printf("Camera acquired by %s", owner)
	return nil
}

// Stop stops the capture loop and releases the camera. It waits for the
// loop to exit, so no frame reaches the sink after Stop returns.
func (c *Controller) Stop() {
	c.op.Lock()
	defer c.op.Unlock()

	c.stopLocked()
}

// Release stops the camera only if owner still holds it.
func (c *Controller) Release(owner string) bool {
	c.op.Lock()
	defer c.op.Unlock()

	if c.Owner() != owner {
		return false
	}
	c.stopLocked()
	return true
}

func (c *Controller) stopLocked() {
	c.mu.Lock()
	stopCh, done, owner := c.stopCh, c.done, c.owner
	c.stopCh, c.done, c.owner = nil, nil, ""
	c.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-done

	if err := c.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	c.latest.Reset()
	log.Printf("Camera released by %s", owner)
}

// Owner returns the current owner, or "" when the camera is idle.
func (c *Controller) Owner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Running reports whether a capture loop is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopCh != nil
}

// Latest waits for and returns a copy of the most recent frame.
func (c *Controller) Latest(ctx context.Context) (*Frame, error) {
	if !c.Running() {
		return nil, ErrCameraNotOpen
	}
	return c.latest.Wait(ctx)
}

// Snapshot returns a copy of the most recent frame without waiting.
func (c *Controller) Snapshot() (*Frame, bool) {
	return c.latest.Snapshot()
}

// run is the capture loop. Each tick reads one frame, keeps a copy as the
// latest frame and hands the original to the sink.
func (c *Controller) run(owner string, sink FrameSink, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(c.fps))
	defer ticker.Stop()

	failing := false

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			mat, err := c.camera.ReadFrame()
			if err != nil {
				// Only log the first error of a run of failures.
				if !failing {
					log.Printf("Error reading frame for %s: %v", owner, err)
					failing = true
				}
				continue
			}
			failing = false

			frame := NewFrame(*mat, time.Now())
			c.latest.Put(frame.Clone())

			if sink == nil {
				frame.Close()
				continue
			}
			sink.SubmitFrame(frame)
		}
	}
}
