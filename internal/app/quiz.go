package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ayusman/lingolens/internal/lang"
	"github.com/ayusman/lingolens/internal/quiz"
	"github.com/ayusman/lingolens/internal/store"
	"github.com/google/uuid"
)

// QuizState is the live state of a quiz as reported to the front-end.
type QuizState struct {
	ID       string        `json:"id"`
	Language lang.Language `json:"language"`
	quiz.State
}

// QuizRecord is a quiz as persisted in the history.
type QuizRecord struct {
	Session *store.QuizSession `json:"session"`
	Items   []store.QuizItem   `json:"items"`
}

type quizEntry struct {
	id       string
	language lang.Language
	runner   *quiz.Runner
}

func (e *quizEntry) state() QuizState {
	return QuizState{ID: e.id, Language: e.language, State: e.runner.Snapshot()}
}

func quizOwner(id string) string {
	return ownerQuiz + id
}

// StartQuiz builds a quiz from objects, or from the last scan when objects
// is empty, and hands the camera to it. Any previous quiz is abandoned.
func (a *App) StartQuiz(ctx context.Context, objects []string) (QuizState, error) {
	a.mu.Lock()
	a.stopScanLocked()
	if len(objects) == 0 && a.scanner != nil {
		objects = a.scanner.session.Objects()
	}
	a.mu.Unlock()

	language := a.settings.Language()
	items := a.assembler.AssembleWithFallback(ctx, objects, language)
	if len(items) == 0 {
		return QuizState{}, quiz.ErrNoItems
	}

	runner, err := quiz.NewRunner(items, a.classifier, a.llm, quiz.Options{
		Language:    language,
		Interval:    a.config.HuntInterval,
		RetryDelay:  a.config.RetryDelay,
		Orientation: a.orientation,
	})
	if err != nil {
		return QuizState{}, err
	}

	e := &quizEntry{id: uuid.NewString(), language: language, runner: runner}
	if err := a.recordQuiz(e); err != nil {
		runner.Close()
		return QuizState{}, err
	}

	a.mu.Lock()
	previous := a.quizzes[a.activeID]
	delete(a.quizzes, a.activeID)
	a.quizzes[e.id] = e
	a.activeID = e.id
	a.mu.Unlock()

	if previous != nil {
		a.abandon(previous)
	}

	if err := a.controller.Acquire(quizOwner(e.id)); err != nil {
		log.Printf("Camera not available for quiz %s: %v", e.id, err)
	}

	log.Printf("Quiz %s started with %d items in %s", e.id, len(items), language)
	return e.state(), nil
}

func (a *App) recordQuiz(e *quizEntry) error {
	if a.config.Store == nil {
		return nil
	}

	items := e.runner.Items()
	rows := make([]store.QuizItem, len(items))
	for i, it := range items {
		rows[i] = store.QuizItem{
			ID:             it.ID,
			TranslatedWord: it.TranslatedWord,
			CorrectEnglish: it.CorrectEnglish,
		}
	}

	session := &store.QuizSession{ID: e.id, Language: string(e.language)}
	if err := a.config.Store.Quizzes().Create(session, rows); err != nil {
		return fmt.Errorf("record quiz: %w", err)
	}
	return nil
}

func (a *App) abandon(e *quizEntry) {
	e.runner.Stop()
	a.controller.Release(quizOwner(e.id))
	a.persistOutcomes(e)
	go e.runner.Close()
	log.Printf("Quiz %s abandoned", e.id)
}

func (a *App) entry(id string) (*quizEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.quizzes[id]
	if !ok {
		return nil, ErrQuizNotFound
	}
	return e, nil
}

// Quiz returns the live state of a running quiz.
func (a *App) Quiz(id string) (QuizState, error) {
	e, err := a.entry(id)
	if err != nil {
		return QuizState{}, err
	}
	return e.state(), nil
}

// Attempt checks the current camera frame against the quiz's current item.
func (a *App) Attempt(ctx context.Context, id string) (QuizState, error) {
	e, err := a.entry(id)
	if err != nil {
		return QuizState{}, err
	}

	// The camera is only taken while the quiz is still live, so a quiz
	// replaced in the meantime cannot steal it back from its successor.
	a.mu.Lock()
	if a.quizzes[id] != e {
		a.mu.Unlock()
		return e.state(), ErrQuizNotFound
	}
	err = a.acquireCamera(quizOwner(id))
	a.mu.Unlock()
	if err != nil {
		return e.state(), err
	}

	frame, err := a.latestFrame(ctx)
	if err != nil {
		return e.state(), err
	}
	defer frame.Close()

	_, err = e.runner.Attempt(ctx, frame)
	return e.state(), err
}

// Reveal shows the answer for the quiz's current item.
func (a *App) Reveal(id string) (QuizState, error) {
	e, err := a.entry(id)
	if err != nil {
		return QuizState{}, err
	}
	err = e.runner.Reveal()
	return e.state(), err
}

// Next advances the quiz. When the last item is done the outcome is
// recorded, the camera released and the quiz removed from the live set.
func (a *App) Next(id string) (QuizState, error) {
	e, err := a.entry(id)
	if err != nil {
		return QuizState{}, err
	}

	progress, err := e.runner.Advance()
	if err != nil {
		return e.state(), err
	}
	if !progress.Done {
		return e.state(), nil
	}

	state := e.state()

	a.mu.Lock()
	delete(a.quizzes, id)
	if a.activeID == id {
		a.activeID = ""
	}
	a.mu.Unlock()

	e.runner.Stop()
	a.controller.Release(quizOwner(id))
	a.persistOutcomes(e)
	if a.config.Store != nil {
		if err := a.config.Store.Quizzes().Finish(id, progress.Score); err != nil {
			log.Printf("Failed to record score for quiz %s: %v", id, err)
		}
	}
	go e.runner.Close()

	log.Printf("Quiz %s finished with score %d/%d", id, progress.Score, state.Total)
	return state, nil
}

// LoadSentence starts loading one of the current item's sentences.
func (a *App) LoadSentence(id string, slot quiz.Slot) (QuizState, error) {
	e, err := a.entry(id)
	if err != nil {
		return QuizState{}, err
	}
	_, err = e.runner.LoadSentence(slot)
	return e.state(), err
}

func (a *App) persistOutcomes(e *quizEntry) {
	if a.config.Store == nil {
		return
	}

	repo := a.config.Store.Quizzes()
	for _, r := range e.runner.Results() {
		var outcome store.Outcome
		switch {
		case r.Matched:
			outcome = store.OutcomeMatched
		case r.Revealed:
			outcome = store.OutcomeRevealed
		default:
			continue
		}
		if err := repo.SetOutcome(r.Item.ID, outcome); err != nil {
			log.Printf("Failed to record outcome of %s: %v", r.Item.ID, err)
		}
	}
}

// History lists the most recent quizzes, newest first.
func (a *App) History(limit int) ([]*store.QuizSession, error) {
	if a.config.Store == nil {
		return nil, nil
	}
	return a.config.Store.Quizzes().List(limit)
}

// Record returns a persisted quiz with its items.
func (a *App) Record(id string) (QuizRecord, error) {
	if a.config.Store == nil {
		return QuizRecord{}, ErrQuizNotFound
	}

	repo := a.config.Store.Quizzes()
	session, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return QuizRecord{}, ErrQuizNotFound
		}
		return QuizRecord{}, err
	}
	items, err := repo.Items(id)
	if err != nil {
		return QuizRecord{}, err
	}
	return QuizRecord{Session: session, Items: items}, nil
}
