// Package app wires the camera, the classifier and the language model into
// the learning modes: object scanning, quick scan and the scavenger hunt quiz.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/lingolens/internal/capture"
	"github.com/ayusman/lingolens/internal/detector"
	"github.com/ayusman/lingolens/internal/lang"
	"github.com/ayusman/lingolens/internal/llm"
	"github.com/ayusman/lingolens/internal/quiz"
	"github.com/ayusman/lingolens/internal/settings"
	"github.com/ayusman/lingolens/internal/store"
)

// Camera owners.
const (
	OwnerScan      = "scan"
	OwnerQuickScan = "quickscan"
	ownerQuiz      = "quiz:"
)

// FrameTimeout bounds how long a one-shot classification waits for the
// camera to deliver its first frame.
const FrameTimeout = 3 * time.Second

var (
	// ErrQuizNotFound is returned for an unknown or finished quiz id.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrCameraUnavailable is returned when the camera cannot be opened.
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// Config holds the application's collaborators and tunables.
type Config struct {
	Store    *store.Store
	Settings *settings.Settings

	Camera     capture.Camera
	CameraFPS  int
	Classifier detector.Classifier

	Oracle        llm.Oracle
	OracleTimeout time.Duration

	ScanInterval         time.Duration
	HuntInterval         time.Duration
	RetryDelay           time.Duration
	TranslateConcurrency int
}

// App orchestrates the learning modes. All camera access goes through a
// single capture.Controller, so only one mode holds the camera at a time.
type App struct {
	config      Config
	controller  *capture.Controller
	classifier  detector.Classifier
	llm         *llm.Service
	assembler   *quiz.Assembler
	settings    *settings.Settings
	orientation *capture.OrientationState

	mu       sync.Mutex
	scanner  *scanner
	quizzes  map[string]*quizEntry
	activeID string

	events *broadcaster
}

// New creates an App. A nil classifier or oracle is replaced by its
// unavailable implementation.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if config.Settings == nil {
		return nil, errors.New("app: settings are required")
	}

	classifier := config.Classifier
	if classifier == nil {
		classifier = detector.Unavailable{}
	}
	if !detector.Available(classifier) {
		log.Println("Classifier not available, object detection will return no results")
	}

	service := llm.NewService(config.Oracle, config.OracleTimeout)
	if !service.Available() {
		log.Println("Language model not available, translations and sentences are disabled")
	}

	return &App{
		config:      config,
		controller:  capture.NewController(config.Camera, config.CameraFPS),
		classifier:  classifier,
		llm:         service,
		assembler:   quiz.NewAssembler(service, config.TranslateConcurrency),
		settings:    config.Settings,
		orientation: capture.NewOrientationState(capture.OrientationPortrait),
		quizzes:     make(map[string]*quizEntry),
		events:      newBroadcaster(),
	}, nil
}

// Controller returns the camera controller, used by the preview stream.
func (a *App) Controller() *capture.Controller {
	return a.controller
}

// Languages returns every supported target language.
func (a *App) Languages() []lang.Language {
	return lang.All()
}

// Language returns the selected target language.
func (a *App) Language() lang.Language {
	return a.settings.Language()
}

// SetLanguage changes the target language. Running quizzes keep the
// language they were started with.
func (a *App) SetLanguage(l lang.Language) error {
	if err := a.settings.SetLanguage(l); err != nil {
		return err
	}
	log.Printf("Target language set to %s", l)
	return nil
}

// Orientation returns the last reported device orientation.
func (a *App) Orientation() capture.DeviceOrientation {
	return a.orientation.Orientation()
}

// SetOrientation records the device orientation reported by the front-end.
func (a *App) SetOrientation(d capture.DeviceOrientation) {
	a.orientation.Set(d)
}

func (a *App) imageOrientation() capture.ImageOrientation {
	return capture.ImageOrientationFor(a.orientation.Orientation())
}

// ClassifierAvailable reports whether a real classifier is loaded.
func (a *App) ClassifierAvailable() bool {
	return detector.Available(a.classifier)
}

// OracleAvailable reports whether a language model is configured.
func (a *App) OracleAvailable() bool {
	return a.llm.Available()
}

// FilterObjects asks the language model which labels are concrete objects.
func (a *App) FilterObjects(ctx context.Context, labels []string) []string {
	return a.llm.FilterObjects(ctx, labels)
}

// WordSentence generates an example sentence for word in the selected
// language.
func (a *App) WordSentence(ctx context.Context, word string) (llm.Sentence, bool) {
	return a.llm.BilingualSentence(ctx, word, a.settings.Language())
}

// ReleaseCamera stops whatever currently holds the camera.
func (a *App) ReleaseCamera() {
	a.mu.Lock()
	a.stopScanLocked()
	a.mu.Unlock()

	a.controller.Stop()
}

// grabFrame makes owner hold the camera and returns a copy of the latest
// frame. The caller owns the frame.
func (a *App) grabFrame(ctx context.Context, owner string) (*capture.Frame, error) {
	if err := a.acquireCamera(owner); err != nil {
		return nil, err
	}
	return a.latestFrame(ctx)
}

func (a *App) acquireCamera(owner string) error {
	if err := a.controller.Acquire(owner); err != nil {
		return fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	return nil
}

// latestFrame returns a copy of the newest frame, waiting up to
// FrameTimeout for the first one.
func (a *App) latestFrame(ctx context.Context) (*capture.Frame, error) {
	if f, ok := a.controller.Snapshot(); ok {
		return f, nil
	}

	ctx, cancel := context.WithTimeout(ctx, FrameTimeout)
	defer cancel()

	f, err := a.controller.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", quiz.ErrNoFrame, err)
	}
	return f, nil
}

// Close stops every mode and releases the camera and the classifier.
func (a *App) Close() error {
	a.mu.Lock()
	a.stopScanLocked()
	entries := make([]*quizEntry, 0, len(a.quizzes))
	for id, e := range a.quizzes {
		entries = append(entries, e)
		delete(a.quizzes, id)
	}
	a.activeID = ""
	a.mu.Unlock()

	for _, e := range entries {
		e.runner.Stop()
		a.persistOutcomes(e)
		e.runner.Close()
	}

	a.controller.Stop()
	a.events.close()
	return a.classifier.Close()
}
