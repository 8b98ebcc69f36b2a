package store

import (
	"database/sql"
	"errors"
	"time"
)

// Outcome records how a quiz item ended.
type Outcome string

const (
	// OutcomePending means the learner never finished the item.
	OutcomePending Outcome = "pending"
	// OutcomeMatched means the object was found with the camera.
	OutcomeMatched Outcome = "matched"
	// OutcomeRevealed means the learner gave up and revealed the answer.
	OutcomeRevealed Outcome = "revealed"
)

// QuizSession is a persisted scavenger hunt.
type QuizSession struct {
	ID         string     `json:"id"`
	Language   string     `json:"language"`
	Total      int        `json:"total"`
	Score      int        `json:"score"`
	Finished   bool       `json:"finished"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// QuizItem is one word of a persisted hunt.
type QuizItem struct {
	ID             string  `json:"id"`
	SessionID      string  `json:"session_id"`
	Position       int     `json:"position"`
	TranslatedWord string  `json:"translated_word"`
	CorrectEnglish string  `json:"correct_english"`
	Outcome        Outcome `json:"outcome"`
}

// QuizRepository provides storage for quiz sessions and their items.
type QuizRepository struct {
	db *sql.DB
}

// Quizzes returns the quiz repository for this store.
func (s *Store) Quizzes() *QuizRepository {
	return &QuizRepository{db: s.db}
}

// Create inserts a session and its items in a single transaction.
func (r *QuizRepository) Create(q *QuizSession, items []QuizItem) error {
	q.CreatedAt = time.Now()
	q.Total = len(items)

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO quiz_sessions (id, language, total, score, finished, created_at)
		 VALUES (?, ?, ?, 0, 0, ?)`,
		q.ID, q.Language, q.Total, q.CreatedAt,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO quiz_items (id, session_id, position, translated_word, correct_english, outcome)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range items {
		outcome := item.Outcome
		if outcome == "" {
			outcome = OutcomePending
		}
		if _, err := stmt.Exec(item.ID, q.ID, i, item.TranslatedWord, item.CorrectEnglish, string(outcome)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetOutcome records how a single item ended.
func (r *QuizRepository) SetOutcome(itemID string, outcome Outcome) error {
	result, err := r.db.Exec(`UPDATE quiz_items SET outcome = ? WHERE id = ?`, string(outcome), itemID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Finish marks a session as complete with its final score.
func (r *QuizRepository) Finish(id string, score int) error {
	result, err := r.db.Exec(
		`UPDATE quiz_sessions SET score = ?, finished = 1, finished_at = ? WHERE id = ?`,
		score, time.Now(), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a session by its ID.
func (r *QuizRepository) GetByID(id string) (*QuizSession, error) {
	row := r.db.QueryRow(
		`SELECT id, language, total, score, finished, created_at, finished_at
		 FROM quiz_sessions WHERE id = ?`,
		id,
	)

	q, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return q, nil
}

// List retrieves the most recent sessions, newest first.
// A limit of zero or less returns every session.
func (r *QuizRepository) List(limit int) ([]*QuizSession, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, language, total, score, finished, created_at, finished_at
		 FROM quiz_sessions ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*QuizSession
	for rows.Next() {
		q, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Items retrieves the items of a session in quiz order.
func (r *QuizRepository) Items(sessionID string) ([]QuizItem, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, position, translated_word, correct_english, outcome
		 FROM quiz_items WHERE session_id = ? ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QuizItem
	for rows.Next() {
		var item QuizItem
		var outcome string
		if err := rows.Scan(&item.ID, &item.SessionID, &item.Position, &item.TranslatedWord, &item.CorrectEnglish, &outcome); err != nil {
			return nil, err
		}
		item.Outcome = Outcome(outcome)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// Delete removes a session and, through the foreign key, its items.
func (r *QuizRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM quiz_sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*QuizSession, error) {
	q := &QuizSession{}
	var finished int
	var finishedAt sql.NullTime

	if err := row.Scan(&q.ID, &q.Language, &q.Total, &q.Score, &finished, &q.CreatedAt, &finishedAt); err != nil {
		return nil, err
	}

	q.Finished = finished != 0
	if finishedAt.Valid {
		t := finishedAt.Time
		q.FinishedAt = &t
	}
	return q, nil
}
