// Package detector classifies camera frames into ranked object labels.
// Two on-device backends are provided: OpenCV's DNN module through GoCV and
// ONNX Runtime. Which one is used is decided once at startup by Open.
package detector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ayusman/lingolens/internal/capture"
	"gocv.io/x/gocv"
)

// ErrUnavailable is returned when no classifier backend could be loaded.
var ErrUnavailable = errors.New("classifier unavailable")

// Candidate is one ranked label produced for a frame.
type Candidate struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
}

// Classifier defines the interface for image classification implementations.
type Classifier interface {
	// Classify returns candidates for img, best first. The orientation tells
	// the classifier how img must be turned to be upright. Implementations
	// must not retain img.
	Classify(ctx context.Context, img *gocv.Mat, orientation capture.ImageOrientation) ([]Candidate, error)

	// Close releases any resources held by the classifier.
	Close() error
}

// Backend names accepted in Config.Backend.
const (
	BackendDNN  = "dnn"
	BackendONNX = "onnx"
	BackendNone = "none"
)

// Config holds configuration options for classification.
type Config struct {
	// Backend selects the implementation: "dnn", "onnx" or "none".
	Backend string

	// ModelPath is the network weights file (.onnx, .caffemodel, .pb, ...).
	ModelPath string

	// ConfigPath is the optional network description for the DNN backend.
	ConfigPath string

	// LabelsPath is a text file with one class label per line.
	LabelsPath string

	// InputSize is the square input edge expected by the network.
	InputSize int

	// Mean is subtracted per channel (RGB, pixel units) before scaling.
	Mean [3]float64

	// Scale multiplies each mean-subtracted pixel.
	Scale float64

	// SwapRB converts GoCV's BGR frames to RGB.
	SwapRB bool

	// Softmax turns raw logits into probabilities.
	Softmax bool

	// ORTLibrary is the path of the ONNX Runtime shared library.
	ORTLibrary string

	// InputName and OutputName are the ONNX graph tensor names.
	InputName  string
	OutputName string

	// MaxCandidates caps how many candidates a single call returns.
	MaxCandidates int
}

// DefaultConfig returns a Config suited to ImageNet classifiers such as
// MobileNetV2 exported to ONNX.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendDNN,
		InputSize:     224,
		Mean:          [3]float64{123.675, 116.28, 103.53},
		Scale:         1.0 / 58.0,
		SwapRB:        true,
		Softmax:       true,
		InputName:     "input",
		OutputName:    "output",
		MaxCandidates: 10,
	}
}

// Open loads the configured backend. When the backend cannot be loaded the
// returned error wraps ErrUnavailable; callers fall back to Unavailable.
func Open(cfg Config) (Classifier, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" || backend == BackendNone {
		return nil, fmt.Errorf("%w: disabled by configuration", ErrUnavailable)
	}

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: model: %v", ErrUnavailable, err)
	}
	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: labels: %v", ErrUnavailable, err)
	}

	var c Classifier
	switch backend {
	case BackendDNN:
		c, err = NewDNNClassifier(cfg, labels)
	case BackendONNX:
		c, err = NewONNXClassifier(cfg, labels)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrUnavailable, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return c, nil
}

// Unavailable is the Classifier used when no backend could be loaded.
type Unavailable struct {
	Reason error
}

// Classify always fails with ErrUnavailable.
func (u Unavailable) Classify(context.Context, *gocv.Mat, capture.ImageOrientation) ([]Candidate, error) {
	if u.Reason != nil {
		return nil, u.Reason
	}
	return nil, ErrUnavailable
}

// Close is a no-op.
func (Unavailable) Close() error { return nil }

// Available reports whether c can classify frames.
func Available(c Classifier) bool {
	switch c.(type) {
	case nil, Unavailable, *Unavailable:
		return false
	}
	return true
}
