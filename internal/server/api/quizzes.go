package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/ayusman/lingolens/internal/app"
	"github.com/ayusman/lingolens/internal/quiz"
	"github.com/ayusman/lingolens/internal/store"
	"github.com/gorilla/mux"
)

// DefaultHistoryLimit is the number of past quizzes listed when the
// request does not ask for a limit.
const DefaultHistoryLimit = 20

// QuizHandler serves quiz sessions and their history.
type QuizHandler struct {
	app *app.App
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(a *app.App) *QuizHandler {
	return &QuizHandler{app: a}
}

// Register adds the handler's routes to r.
func (h *QuizHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/quizzes", h.list).Methods(http.MethodGet)
	r.HandleFunc("/api/quizzes", h.create).Methods(http.MethodPost)
	r.HandleFunc("/api/quizzes/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/api/quizzes/{id}/attempt", h.attempt).Methods(http.MethodPost)
	r.HandleFunc("/api/quizzes/{id}/reveal", h.reveal).Methods(http.MethodPost)
	r.HandleFunc("/api/quizzes/{id}/next", h.next).Methods(http.MethodPost)
	r.HandleFunc("/api/quizzes/{id}/sentences/{slot}", h.sentence).Methods(http.MethodPost)
}

type createQuizRequest struct {
	Objects []string `json:"objects"`
}

type quizErrorResponse struct {
	Error string         `json:"error"`
	State *app.QuizState `json:"state,omitempty"`
}

type getQuizResponse struct {
	State  *app.QuizState  `json:"state,omitempty"`
	Record *app.QuizRecord `json:"record,omitempty"`
}

type listQuizzesResponse struct {
	Quizzes []*store.QuizSession `json:"quizzes"`
}

// writeQuiz writes state, or the error together with the state it left
// the quiz in.
func writeQuiz(w http.ResponseWriter, state app.QuizState, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, state)
		return
	}

	response := quizErrorResponse{Error: err.Error()}
	if state.ID != "" {
		response.State = &state
	}
	writeJSON(w, statusFor(err), response)
}

// list handles GET /api/quizzes.
func (h *QuizHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	sessions, err := h.app.History(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list quizzes")
		return
	}
	if sessions == nil {
		sessions = []*store.QuizSession{}
	}
	writeJSON(w, http.StatusOK, listQuizzesResponse{Quizzes: sessions})
}

// create handles POST /api/quizzes.
func (h *QuizHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, err := h.app.StartQuiz(r.Context(), req.Objects)
	if err != nil {
		if !errors.Is(err, quiz.ErrNoItems) {
			log.Printf("Failed to start quiz: %v", err)
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// get handles GET /api/quizzes/{id}. A running quiz reports its live
// state; otherwise the stored record is returned.
func (h *QuizHandler) get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if state, err := h.app.Quiz(id); err == nil {
		writeJSON(w, http.StatusOK, getQuizResponse{State: &state})
		return
	}

	record, err := h.app.Record(id)
	if err != nil {
		writeError(w, statusFor(err), "Quiz not found")
		return
	}
	writeJSON(w, http.StatusOK, getQuizResponse{Record: &record})
}

// attempt handles POST /api/quizzes/{id}/attempt.
func (h *QuizHandler) attempt(w http.ResponseWriter, r *http.Request) {
	state, err := h.app.Attempt(r.Context(), mux.Vars(r)["id"])
	writeQuiz(w, state, err)
}

// reveal handles POST /api/quizzes/{id}/reveal.
func (h *QuizHandler) reveal(w http.ResponseWriter, r *http.Request) {
	state, err := h.app.Reveal(mux.Vars(r)["id"])
	writeQuiz(w, state, err)
}

// next handles POST /api/quizzes/{id}/next.
func (h *QuizHandler) next(w http.ResponseWriter, r *http.Request) {
	state, err := h.app.Next(mux.Vars(r)["id"])
	writeQuiz(w, state, err)
}

// sentence handles POST /api/quizzes/{id}/sentences/{slot}.
func (h *QuizHandler) sentence(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	slot, err := quiz.ParseSlot(vars["slot"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := h.app.LoadSentence(vars["id"], slot)
	writeQuiz(w, state, err)
}
