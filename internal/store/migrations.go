package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per control loop run
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			frame_width INTEGER NOT NULL,
			frame_height INTEGER NOT NULL,
			volume_min REAL NOT NULL DEFAULT 0,
			volume_max REAL NOT NULL DEFAULT 0,
			volume_enabled INTEGER NOT NULL DEFAULT 1,
			brightness_enabled INTEGER NOT NULL DEFAULT 1,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			exit_reason TEXT NOT NULL DEFAULT ''
		)`,

		// Events table - failures, resets and other noteworthy loop events
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			kind TEXT NOT NULL CHECK(kind IN ('actuation_failure', 'malformed_observation', 'backend_unavailable', 'reset', 'capture_failure', 'detect_failure')),
			channel TEXT NOT NULL DEFAULT '',
			level REAL NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
