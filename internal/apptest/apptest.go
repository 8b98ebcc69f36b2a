// Package apptest builds an App wired to mock devices for tests.
package apptest

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/lingolens/internal/app"
	"github.com/ayusman/lingolens/internal/capture"
	"github.com/ayusman/lingolens/internal/detector"
	"github.com/ayusman/lingolens/internal/llm"
	"github.com/ayusman/lingolens/internal/settings"
	"github.com/ayusman/lingolens/internal/store"
)

// Dictionary is the English to French vocabulary FakeModel knows.
var Dictionary = map[string]string{
	"chair":      "chaise",
	"lamp":       "lampe",
	"coffee mug": "tasse",
	"table":      "table",
	"book":       "livre",
	"bottle":     "bouteille",
}

// FakeModel answers the filter, translation and sentence prompts the way a
// cooperative model would. The filter accepts every label.
func FakeModel(prompt string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "Analyze these labels: "):
		labels, _, _ := strings.Cut(strings.TrimPrefix(prompt, "Analyze these labels: "), "\n")
		return labels, nil
	case strings.Contains(prompt, "Translate the English word '"):
		_, rest, _ := strings.Cut(prompt, "word '")
		word, _, _ := strings.Cut(rest, "'")
		if t, ok := Dictionary[word]; ok {
			return t, nil
		}
		return "", errors.New("no translation")
	case strings.HasPrefix(prompt, "Objective: educational"):
		return "E: Here it is.\nT: Le voici.", nil
	}
	return "", errors.New("unexpected prompt")
}

// Fixture is an App together with the mocks behind it.
type Fixture struct {
	App        *app.App
	Camera     *capture.MockCamera
	Classifier *detector.MockClassifier
	Oracle     *llm.MockOracle
	Store      *store.Store
}

// New creates a Fixture backed by a temporary database. Throttling is
// disabled and the camera delivers blank frames at 100 fps. Everything is
// released when the test ends.
func New(t testing.TB) *Fixture {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}

	prefs, err := settings.Load(s.Settings())
	if err != nil {
		t.Fatalf("settings.Load() error = %v", err)
	}

	f := &Fixture{
		Camera:     capture.NewBlankMockCamera(64, 48),
		Classifier: detector.NewMockClassifier(),
		Oracle:     llm.NewMockOracle(FakeModel),
		Store:      s,
	}

	a, err := app.New(app.Config{
		Store:         s,
		Settings:      prefs,
		Camera:        f.Camera,
		CameraFPS:     100,
		Classifier:    f.Classifier,
		Oracle:        f.Oracle,
		OracleTimeout: time.Second,
		ScanInterval:  -1,
		HuntInterval:  -1,
		RetryDelay:    20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	f.App = a

	t.Cleanup(func() {
		f.Classifier.Release()
		f.Oracle.Release()
		a.Close()
		f.Camera.CloseFrames()
		s.Close()
	})
	return f
}
