// Package config reads process configuration from flags whose defaults come
// from the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ayusman/lingolens/internal/detector"
	"github.com/ayusman/lingolens/internal/llm"
	"github.com/ayusman/lingolens/internal/quiz"
	"github.com/ayusman/lingolens/internal/scan"
)

// Config holds everything main needs to wire the application.
type Config struct {
	Addr      string
	DataDir   string
	StaticDir string

	CameraDevice int
	CameraFPS    int

	Classifier detector.Config

	GeminiAPIKey  string
	GeminiModel   string
	OracleTimeout time.Duration

	ScanInterval         time.Duration
	HuntInterval         time.Duration
	RetryDelay           time.Duration
	TranslateConcurrency int

	Tray bool
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "lingolens.db")
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func getEnvBool(k string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(k)); err == nil {
		return v
	}
	return def
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lingolens"
	}
	return filepath.Join(home, ".lingolens")
}

// Load parses args (without the program name).
func Load(args []string) (*Config, error) {
	c := &Config{}
	cls := detector.DefaultConfig()

	fs := flag.NewFlagSet("lingolens", flag.ContinueOnError)

	fs.StringVar(&c.Addr, "addr", getEnv("LINGOLENS_ADDR", ":8080"), "HTTP listen address")
	fs.StringVar(&c.DataDir, "data-dir", getEnv("LINGOLENS_DATA_DIR", defaultDataDir()), "directory for the database and models")
	fs.StringVar(&c.StaticDir, "web-dir", getEnv("LINGOLENS_WEB_DIR", ""), "front-end directory (searched for when empty)")

	fs.IntVar(&c.CameraDevice, "camera", getEnvInt("LINGOLENS_CAMERA", 0), "camera device id")
	fs.IntVar(&c.CameraFPS, "fps", getEnvInt("LINGOLENS_CAMERA_FPS", 15), "camera frames per second")

	fs.StringVar(&c.Classifier.Backend, "classifier", getEnv("LINGOLENS_CLASSIFIER", cls.Backend), "classifier backend: dnn, onnx or none")
	fs.StringVar(&c.Classifier.ModelPath, "model", getEnv("LINGOLENS_MODEL", ""), "classifier model file")
	fs.StringVar(&c.Classifier.ConfigPath, "model-config", getEnv("LINGOLENS_MODEL_CONFIG", ""), "network description for the dnn backend")
	fs.StringVar(&c.Classifier.LabelsPath, "labels", getEnv("LINGOLENS_LABELS", ""), "class labels file")
	fs.StringVar(&c.Classifier.ORTLibrary, "onnxruntime", getEnv("ONNXRUNTIME_LIB", ""), "ONNX Runtime shared library")
	fs.IntVar(&c.Classifier.InputSize, "input-size", getEnvInt("LINGOLENS_INPUT_SIZE", cls.InputSize), "classifier input edge in pixels")

	fs.StringVar(&c.GeminiAPIKey, "gemini-key", getEnv("GEMINI_API_KEY", ""), "Gemini API key")
	fs.StringVar(&c.GeminiModel, "gemini-model", getEnv("GEMINI_MODEL", llm.DefaultGeminiModel), "Gemini model name")
	fs.DurationVar(&c.OracleTimeout, "oracle-timeout", getEnvDuration("LINGOLENS_ORACLE_TIMEOUT", llm.DefaultTimeout), "timeout for one language model call")

	fs.DurationVar(&c.ScanInterval, "scan-interval", getEnvDuration("LINGOLENS_SCAN_INTERVAL", scan.ScanInterval), "minimum spacing between scan classifications")
	fs.DurationVar(&c.HuntInterval, "hunt-interval", getEnvDuration("LINGOLENS_HUNT_INTERVAL", scan.HuntInterval), "minimum spacing between quiz attempts")
	fs.DurationVar(&c.RetryDelay, "retry-delay", getEnvDuration("LINGOLENS_RETRY_DELAY", quiz.DefaultRetryDelay), "how long a missed attempt is shown")
	fs.IntVar(&c.TranslateConcurrency, "translate-concurrency", getEnvInt("LINGOLENS_TRANSLATE_CONCURRENCY", quiz.DefaultConcurrency), "parallel translation requests")

	fs.BoolVar(&c.Tray, "tray", getEnvBool("LINGOLENS_TRAY", false), "show the desktop tray icon")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Fields without flags keep the classifier defaults.
	c.Classifier.Mean = cls.Mean
	c.Classifier.Scale = cls.Scale
	c.Classifier.SwapRB = cls.SwapRB
	c.Classifier.Softmax = cls.Softmax
	c.Classifier.InputName = cls.InputName
	c.Classifier.OutputName = cls.OutputName
	c.Classifier.MaxCandidates = cls.MaxCandidates

	if c.Classifier.ModelPath == "" {
		c.Classifier.ModelPath = filepath.Join(c.DataDir, "models", "mobilenetv2.onnx")
	}
	if c.Classifier.LabelsPath == "" {
		c.Classifier.LabelsPath = filepath.Join(c.DataDir, "models", "imagenet_labels.txt")
	}
	if c.StaticDir == "" {
		c.StaticDir = findWebDir(c.DataDir)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.CameraFPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.CameraFPS))
	}
	if c.Classifier.InputSize <= 0 {
		errs = append(errs, fmt.Errorf("input size must be positive, got %d", c.Classifier.InputSize))
	}
	if c.ScanInterval < 0 || c.HuntInterval < 0 {
		errs = append(errs, errors.New("throttle intervals must not be negative"))
	}
	if c.RetryDelay < 0 || c.OracleTimeout < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	return errors.Join(errs...)
}

// findWebDir searches for the front-end in common locations.
// It checks "web", "../web", "../../web" and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
