package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/lingolens/internal/app"
	"github.com/ayusman/lingolens/internal/capture"
	"github.com/ayusman/lingolens/internal/config"
	"github.com/ayusman/lingolens/internal/detector"
	"github.com/ayusman/lingolens/internal/llm"
	"github.com/ayusman/lingolens/internal/server"
	"github.com/ayusman/lingolens/internal/settings"
	"github.com/ayusman/lingolens/internal/store"
	"github.com/ayusman/lingolens/internal/tray"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	fmt.Println("LingoLens - Camera Language Scavenger Hunt")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Initialize the store
	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	prefs, err := settings.Load(st.Settings())
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	// Capabilities are decided once; anything missing degrades to empty results.
	var classifier detector.Classifier
	if c, err := detector.Open(cfg.Classifier); err == nil {
		classifier = c
		log.Printf("Using %s classifier with %s", cfg.Classifier.Backend, cfg.Classifier.ModelPath)
	} else {
		log.Printf("Classifier not loaded: %v", err)
		classifier = detector.Unavailable{Reason: err}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var oracle llm.Oracle
	if g, err := llm.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel); err == nil {
		defer g.Close()
		oracle = g
		log.Printf("Using Gemini model %s", g.Model())
	} else {
		log.Printf("Language model not configured: %v", err)
		oracle = llm.Unavailable{}
	}

	a, err := app.New(app.Config{
		Store:                st,
		Settings:             prefs,
		Camera:               capture.NewCamera(cfg.CameraDevice),
		CameraFPS:            cfg.CameraFPS,
		Classifier:           classifier,
		Oracle:               oracle,
		OracleTimeout:        cfg.OracleTimeout,
		ScanInterval:         cfg.ScanInterval,
		HuntInterval:         cfg.HuntInterval,
		RetryDelay:           cfg.RetryDelay,
		TranslateConcurrency: cfg.TranslateConcurrency,
	})
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	defer a.Close()

	if cfg.StaticDir != "" {
		fmt.Printf("Serving static files from: %s\n", cfg.StaticDir)
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(server.Config{StaticDir: cfg.StaticDir, App: a}),
	}

	serveErr := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	if cfg.Tray {
		go func() {
			waitForShutdown(ctx, serveErr)
			shutdown(httpServer)
			tray.Quit()
		}()
		runTray(a, cfg.Addr)
		return
	}

	waitForShutdown(ctx, serveErr)
	shutdown(httpServer)
}

func waitForShutdown(ctx context.Context, serveErr <-chan error) {
	select {
	case <-ctx.Done():
		log.Println("Shutting down")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
		}
	}
}

func shutdown(s *http.Server) {
	if err := s.Shutdown(context.Background()); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// runTray blocks on the system tray until Quit is picked.
func runTray(a *app.App, addr string) {
	t := tray.New(a.Language())

	// Toggle callbacks all run on the tray's click goroutine.
	var stopUpdates func()
	t.OnToggleScan(func(enabled bool) error {
		if stopUpdates != nil {
			stopUpdates()
			stopUpdates = nil
		}
		if !enabled {
			status := a.StopScan()
			t.SetObjectCount(len(status.Objects))
			return nil
		}

		updates, cancel := a.SubscribeScan()
		if _, err := a.StartScan(); err != nil {
			cancel()
			return err
		}
		stopUpdates = cancel
		t.SetObjectCount(0)
		go func() {
			for u := range updates {
				t.SetObjectCount(len(u.Objects))
			}
		}()
		return nil
	})
	t.OnLanguage(a.SetLanguage)
	t.OnOpen(func() { openBrowser(localURL(addr)) })
	t.OnQuit(func() { log.Println("Quit requested from tray") })

	t.Run()
}

func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
