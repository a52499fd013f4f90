// Package postgres opens the shared scene store on PostgreSQL.
package postgres

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/AaronLay10/FrameScene/internal/config"
	"github.com/AaronLay10/FrameScene/internal/storage"
)

// Dialect is the PostgreSQL flavor of the store's SQL.
var Dialect = storage.Dialect{
	Name: "postgres",
	EventsTable: `
		CREATE TABLE IF NOT EXISTS events (
			event_id BIGSERIAL PRIMARY KEY,
			ts       BIGINT NOT NULL,
			level    TEXT NOT NULL,
			event    TEXT NOT NULL,
			msg      TEXT,
			fields   TEXT,
			frame_id TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_events_frame_id ON events(frame_id);
	`,
}

// ConnString builds a lib/pq connection string from the standard PG*
// environment variables. The password may come from PGPASSWORD_FILE.
func ConnString() (string, error) {
	host := getEnv("PGHOST", "127.0.0.1")
	port := getEnv("PGPORT", "5432")
	user := getEnv("PGUSER", "framescene")
	dbname := getEnv("PGDATABASE", "framescene")
	sslmode := getEnv("PGSSLMODE", "disable")

	password, err := config.ResolveSecret("PGPASSWORD")
	if err != nil {
		return "", err
	}
	if password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode), nil
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		host, port, user, dbname, sslmode), nil
}

// New connects using the PG* environment and returns a store scoped to
// frameID.
func New(frameID string) (*storage.Store, error) {
	connStr, err := ConnString()
	if err != nil {
		return nil, err
	}
	return Open(connStr, frameID)
}

// Open connects with an explicit connection string.
func Open(connStr, frameID string) (*storage.Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	store, err := storage.NewStore(db, frameID, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
