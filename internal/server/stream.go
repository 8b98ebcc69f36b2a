package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/lingolens/internal/capture"
	"gocv.io/x/gocv"
)

// streamInterval paces the preview at roughly 15 frames per second.
const streamInterval = 66 * time.Millisecond

// StreamHandler serves MJPEG frames from whichever mode holds the camera.
// It never opens the camera itself.
type StreamHandler struct {
	controller *capture.Controller
}

// NewStreamHandler creates a new StreamHandler for the given controller.
func NewStreamHandler(c *capture.Controller) *StreamHandler {
	return &StreamHandler{controller: c}
}

// ServeHTTP streams MJPEG frames until the client disconnects or the
// camera is released.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.controller.Running() {
		http.Error(w, "Camera is not active", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		frame, err := h.nextFrame(r.Context())
		if err != nil {
			return
		}

		// Encode as JPEG
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame.Mat)
		frame.Close()
		if err != nil {
			continue
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		w.Write(buf.GetBytes())
		fmt.Fprintf(w, "\r\n")
		buf.Close()

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		select {
		case <-r.Context().Done():
			return
		case <-time.After(streamInterval):
		}
	}
}

// nextFrame waits a bounded time for the latest frame. It fails once the
// camera has been released.
func (h *StreamHandler) nextFrame(ctx context.Context) (*capture.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return h.controller.Latest(ctx)
}
