package detector

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ayusman/lingolens/internal/capture"
	"gocv.io/x/gocv"
)

// DNNClassifier implements Classifier with OpenCV's DNN module.
type DNNClassifier struct {
	config Config
	labels []string
	net    gocv.Net
	mu     sync.Mutex
	closed bool
}

// NewDNNClassifier loads the network named in cfg.
func NewDNNClassifier(cfg Config, labels []string) (*DNNClassifier, error) {
	var net gocv.Net
	if strings.EqualFold(filepath.Ext(cfg.ModelPath), ".onnx") {
		net = gocv.ReadNetFromONNX(cfg.ModelPath)
	} else {
		net = gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	}
	if net.Empty() {
		return nil, errors.New("failed to load network from " + cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &DNNClassifier{
		config: cfg,
		labels: labels,
		net:    net,
	}, nil
}

// Classify runs one forward pass over img.
func (d *DNNClassifier) Classify(ctx context.Context, img *gocv.Mat, orientation capture.ImageOrientation) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Empty() {
		return nil, capture.ErrEmptyFrame
	}

	upright := gocv.NewMat()
	defer upright.Close()
	orientation.Upright(*img, &upright)

	size := d.config.InputSize
	mean := d.config.Mean
	blob := gocv.BlobFromImage(upright, d.config.Scale, image.Pt(size, size),
		gocv.NewScalar(mean[0], mean[1], mean[2], 0), d.config.SwapRB, false)
	defer blob.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrUnavailable
	}

	d.net.SetInput(blob, "")
	prob := d.net.Forward("")
	defer prob.Close()

	flat := prob.Reshape(1, 1)
	defer flat.Close()

	scores := make([]float32, flat.Cols())
	for i := range scores {
		scores[i] = flat.GetFloatAt(0, i)
	}
	if d.config.Softmax {
		softmax(scores)
	}

	return topK(scores, d.labels, d.config.MaxCandidates), nil
}

// Close releases the network.
func (d *DNNClassifier) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.net.Close()
}
