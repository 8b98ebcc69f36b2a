package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/ayusman/lingolens/internal/app"
	"github.com/ayusman/lingolens/internal/llm"
	"github.com/gorilla/mux"
)

// ScanHandler serves object scanning, quick scan and word details.
type ScanHandler struct {
	app *app.App
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(a *app.App) *ScanHandler {
	return &ScanHandler{app: a}
}

// Register adds the handler's routes to r.
func (h *ScanHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/scan", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api/scan", h.start).Methods(http.MethodPost)
	r.HandleFunc("/api/scan", h.stop).Methods(http.MethodDelete)
	r.HandleFunc("/api/objects/filter", h.filter).Methods(http.MethodPost)
	r.HandleFunc("/api/quickscan", h.quickScan).Methods(http.MethodPost)
	r.HandleFunc("/api/sentence", h.sentence).Methods(http.MethodGet)
	r.HandleFunc("/api/camera", h.releaseCamera).Methods(http.MethodDelete)
}

type filterRequest struct {
	Labels []string `json:"labels"`
}

type filterResponse struct {
	Objects []string `json:"objects"`
}

type sentenceResponse struct {
	Word     string       `json:"word"`
	Sentence llm.Sentence `json:"sentence"`
}

// status handles GET /api/scan.
func (h *ScanHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.ScanStatus())
}

// start handles POST /api/scan.
func (h *ScanHandler) start(w http.ResponseWriter, r *http.Request) {
	status, err := h.app.StartScan()
	if err != nil {
		log.Printf("Failed to start scan: %v", err)
		writeError(w, statusFor(err), "Failed to start scan")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// stop handles DELETE /api/scan.
func (h *ScanHandler) stop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.StopScan())
}

// filter handles POST /api/objects/filter.
func (h *ScanHandler) filter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	objects := h.app.FilterObjects(r.Context(), req.Labels)
	if objects == nil {
		objects = []string{}
	}
	writeJSON(w, http.StatusOK, filterResponse{Objects: objects})
}

// quickScan handles POST /api/quickscan.
func (h *ScanHandler) quickScan(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.QuickScan(r.Context())
	if err != nil {
		log.Printf("Quick scan failed: %v", err)
		writeError(w, statusFor(err), "Quick scan failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// sentence handles GET /api/sentence?word=.
func (h *ScanHandler) sentence(w http.ResponseWriter, r *http.Request) {
	word := strings.TrimSpace(r.URL.Query().Get("word"))
	if word == "" {
		writeError(w, http.StatusBadRequest, "Word is required")
		return
	}

	sentence, ok := h.app.WordSentence(r.Context(), word)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "Sentence unavailable")
		return
	}
	writeJSON(w, http.StatusOK, sentenceResponse{Word: word, Sentence: sentence})
}

// releaseCamera handles DELETE /api/camera.
func (h *ScanHandler) releaseCamera(w http.ResponseWriter, r *http.Request) {
	h.app.ReleaseCamera()
	w.WriteHeader(http.StatusNoContent)
}
