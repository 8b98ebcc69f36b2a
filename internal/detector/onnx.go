package detector

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/ayusman/lingolens/internal/capture"
	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// initRuntime initializes the ONNX Runtime environment once per process.
func initRuntime(libPath string) error {
	ortOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// ONNXClassifier implements Classifier with ONNX Runtime.
type ONNXClassifier struct {
	config  Config
	labels  []string
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	mu      sync.Mutex
	closed  bool
}

// NewONNXClassifier creates a session for the model named in cfg. The
// output tensor is sized from the label count.
func NewONNXClassifier(cfg Config, labels []string) (*ONNXClassifier, error) {
	if err := initRuntime(cfg.ORTLibrary); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()

	size := int64(cfg.InputSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(labels))))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &ONNXClassifier{
		config:  cfg,
		labels:  labels,
		session: session,
		input:   input,
		output:  output,
	}, nil
}

// Classify runs the model over img.
func (o *ONNXClassifier) Classify(ctx context.Context, img *gocv.Mat, orientation capture.ImageOrientation) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Empty() {
		return nil, capture.ErrEmptyFrame
	}

	upright := gocv.NewMat()
	defer upright.Close()
	orientation.Upright(*img, &upright)

	pic, err := upright.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	size := o.config.InputSize
	resized := imaging.Resize(pic, size, size, imaging.Linear)

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrUnavailable
	}

	o.fillInput(resized)
	if err := o.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	scores := append([]float32(nil), o.output.GetData()...)
	if o.config.Softmax {
		softmax(scores)
	}
	return topK(scores, o.labels, o.config.MaxCandidates), nil
}

// fillInput writes pic into the input tensor in NCHW RGB order.
func (o *ONNXClassifier) fillInput(pic *image.NRGBA) {
	buffer := o.input.GetData()
	size := o.config.InputSize
	channelSize := size * size
	mean, scale := o.config.Mean, float32(o.config.Scale)

	for y := 0; y < size; y++ {
		offset := y * size
		for x := 0; x < size; x++ {
			i := offset + x
			p := pic.Pix[y*pic.Stride+x*4:]
			buffer[i] = (float32(p[0]) - float32(mean[0])) * scale
			buffer[channelSize+i] = (float32(p[1]) - float32(mean[1])) * scale
			buffer[channelSize*2+i] = (float32(p[2]) - float32(mean[2])) * scale
		}
	}
}

// Close destroys the session and its tensors.
func (o *ONNXClassifier) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true

	err := o.session.Destroy()
	o.input.Destroy()
	o.output.Destroy()
	return err
}
