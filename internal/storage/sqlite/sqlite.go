// Package sqlite opens the shared scene store on a local SQLite file.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/AaronLay10/FrameScene/internal/storage"
)

// Dialect is the SQLite flavor of the store's SQL.
var Dialect = storage.Dialect{
	Name: "sqlite",
	EventsTable: `
		CREATE TABLE IF NOT EXISTS events (
			event_id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts       INTEGER NOT NULL,
			level    TEXT NOT NULL,
			event    TEXT NOT NULL,
			msg      TEXT,
			fields   TEXT,
			frame_id TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_events_frame_id ON events(frame_id);
	`,
	Numbered: storage.DollarToQuestion,
}

// Open opens or creates the database at path and returns a store scoped
// to frameID.
func Open(path, frameID string) (*storage.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	store, err := storage.NewStore(db, frameID, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
