package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Quiz sessions table - one row per scavenger hunt
		`CREATE TABLE IF NOT EXISTS quiz_sessions (
			id TEXT PRIMARY KEY,
			language TEXT NOT NULL,
			total INTEGER NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			finished INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		)`,

		// Quiz items table - the shuffled words of a session and how each ended
		`CREATE TABLE IF NOT EXISTS quiz_items (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES quiz_sessions(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			translated_word TEXT NOT NULL,
			correct_english TEXT NOT NULL,
			outcome TEXT NOT NULL DEFAULT 'pending'
				CHECK(outcome IN ('pending', 'matched', 'revealed'))
		)`,

		`CREATE INDEX IF NOT EXISTS idx_quiz_items_session_id ON quiz_items(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_quiz_sessions_created_at ON quiz_sessions(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
