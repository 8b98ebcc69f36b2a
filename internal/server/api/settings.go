package api

import (
	"net/http"

	"github.com/ayusman/lingolens/internal/app"
	"github.com/ayusman/lingolens/internal/capture"
	"github.com/ayusman/lingolens/internal/lang"
	"github.com/gorilla/mux"
)

// SettingsHandler serves the language catalogue, the learner settings and
// device orientation reports.
type SettingsHandler struct {
	app *app.App
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(a *app.App) *SettingsHandler {
	return &SettingsHandler{app: a}
}

// Register adds the handler's routes to r.
func (h *SettingsHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/languages", h.languages).Methods(http.MethodGet)
	r.HandleFunc("/api/settings", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/settings", h.update).Methods(http.MethodPut)
	r.HandleFunc("/api/device/orientation", h.orientation).Methods(http.MethodPut)
}

type languageResponse struct {
	Name string `json:"name"`
	Code string `json:"code"`
	Flag string `json:"flag"`
}

type settingsResponse struct {
	Language    languageResponse `json:"language"`
	Orientation string           `json:"orientation"`
}

type updateSettingsRequest struct {
	Language string `json:"language"`
}

type orientationRequest struct {
	Orientation string `json:"orientation"`
}

func toLanguage(l lang.Language) languageResponse {
	return languageResponse{Name: l.DisplayName(), Code: l.Code(), Flag: l.Flag()}
}

func (h *SettingsHandler) settings() settingsResponse {
	return settingsResponse{
		Language:    toLanguage(h.app.Language()),
		Orientation: h.app.Orientation().String(),
	}
}

// languages handles GET /api/languages.
func (h *SettingsHandler) languages(w http.ResponseWriter, r *http.Request) {
	all := h.app.Languages()
	response := make([]languageResponse, 0, len(all))
	for _, l := range all {
		response = append(response, toLanguage(l))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"languages": response})
}

// get handles GET /api/settings.
func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings())
}

// update handles PUT /api/settings.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Language == "" {
		writeError(w, http.StatusBadRequest, "Language is required")
		return
	}

	l, err := lang.Parse(req.Language)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.app.SetLanguage(l); err != nil {
		writeError(w, statusFor(err), "Failed to save settings")
		return
	}

	writeJSON(w, http.StatusOK, h.settings())
}

// orientation handles PUT /api/device/orientation.
func (h *SettingsHandler) orientation(w http.ResponseWriter, r *http.Request) {
	var req orientationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	d, err := capture.ParseDeviceOrientation(req.Orientation)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.app.SetOrientation(d)

	writeJSON(w, http.StatusOK, h.settings())
}
