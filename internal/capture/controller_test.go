package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingSink struct {
	mu     sync.Mutex
	frames int
}

func (s *countingSink) SubmitFrame(f *Frame) {
	f.Close()
	s.mu.Lock()
	s.frames++
	s.mu.Unlock()
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func newTestController(t *testing.T) (*Controller, *MockCamera) {
	t.Helper()
	cam := NewBlankMockCamera(64, 48)
	c := NewController(cam, 100)
	t.Cleanup(func() {
		c.Stop()
		cam.CloseFrames()
	})
	return c, cam
}

func TestController_DeliversFrames(t *testing.T) {
	c, _ := newTestController(t)
	sink := &countingSink{}

	if err := c.Start("scan", sink); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	f, err := c.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	f.Close()

	deadline := time.Now().Add(time.Second)
	for sink.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.count() == 0 {
		t.Error("sink received no frames")
	}
}

func TestController_StartReplacesOwner(t *testing.T) {
	c, cam := newTestController(t)
	first := &countingSink{}

	if err := c.Start("scan", first); err != nil {
		t.Fatalf("Start(scan) error = %v", err)
	}
	if err := c.Start("quiz", nil); err != nil {
		t.Fatalf("Start(quiz) error = %v", err)
	}

	if got := c.Owner(); got != "quiz" {
		t.Errorf("Owner() = %q, want quiz", got)
	}
	if got := cam.Opens(); got != 2 {
		t.Errorf("camera opened %d times, want 2", got)
	}

	// The previous owner's loop has exited, so its sink stays frozen.
	before := first.count()
	time.Sleep(50 * time.Millisecond)
	if after := first.count(); after != before {
		t.Errorf("replaced owner still receiving frames: %d -> %d", before, after)
	}
}

func TestController_Stop(t *testing.T) {
	c, cam := newTestController(t)

	if err := c.Start("scan", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	c.Stop()

	if c.Running() {
		t.Error("Running() = true after Stop")
	}
	if cam.IsOpen() {
		t.Error("camera still open after Stop")
	}
	if _, err := c.Latest(context.Background()); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("Latest() error = %v, want ErrCameraNotOpen", err)
	}
	if _, ok := c.Snapshot(); ok {
		t.Error("Snapshot() should be empty after Stop")
	}

	// Stopping twice is harmless.
	c.Stop()
}

func TestController_ReleaseOnlyByOwner(t *testing.T) {
	c, _ := newTestController(t)

	if err := c.Start("quiz", nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if c.Release("scan") {
		t.Error("Release(scan) succeeded for a camera owned by quiz")
	}
	if !c.Running() {
		t.Fatal("camera stopped by a non-owner")
	}
	if !c.Release("quiz") {
		t.Error("Release(quiz) failed for the owner")
	}
	if c.Running() {
		t.Error("camera still running after owner released it")
	}
}

func TestController_Acquire(t *testing.T) {
	c, cam := newTestController(t)

	if err := c.Start("scan", nil); err != nil {
		t.Fatalf("Start(scan) error = %v", err)
	}

	tests := []struct {
		name      string
		owner     string
		wantOpens int
	}{
		{name: "takes over from another owner", owner: "quiz:a", wantOpens: 2},
		{name: "keeps its own capture", owner: "quiz:a", wantOpens: 2},
		{name: "next owner reopens", owner: "quiz:b", wantOpens: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Acquire(tt.owner); err != nil {
				t.Fatalf("Acquire(%s) error = %v", tt.owner, err)
			}
			if got := c.Owner(); got != tt.owner {
				t.Errorf("Owner() = %q, want %q", got, tt.owner)
			}
			if got := cam.Opens(); got != tt.wantOpens {
				t.Errorf("camera opened %d times, want %d", got, tt.wantOpens)
			}
		})
	}
}

func TestController_ConcurrentStartStop(t *testing.T) {
	c, _ := newTestController(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.Start("scan", nil)
			} else {
				c.Stop()
			}
		}(i)
	}
	wg.Wait()

	c.Stop()
	if c.Running() || c.Owner() != "" {
		t.Errorf("after final Stop: Running=%v Owner=%q", c.Running(), c.Owner())
	}
}
