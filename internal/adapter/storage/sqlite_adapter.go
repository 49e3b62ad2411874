package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name: "sqlite",
	createTable: `
		CREATE TABLE IF NOT EXISTS cart_slots (
			slot_key   TEXT    NOT NULL PRIMARY KEY,
			payload    BLOB    NOT NULL,
			version    INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	upsert: `
		INSERT INTO cart_slots (slot_key, payload, version, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(slot_key) DO UPDATE SET
			payload = excluded.payload,
			version = cart_slots.version + 1,
			updated_at = CURRENT_TIMESTAMP`,
}

// SQLiteAdapter keeps the slot in a local database file, the closest thing
// to browser local storage on a workstation.
type SQLiteAdapter struct {
	sqlSlotStore
}

func NewSQLiteAdapter(db *sql.DB) *SQLiteAdapter {
	return &SQLiteAdapter{sqlSlotStore{db: db, dialect: sqliteDialect}}
}

// OpenSQLite opens path with a single connection so writers never contend
// for the file lock inside one process.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite %s: %w", path, err)
	}
	return db, nil
}
