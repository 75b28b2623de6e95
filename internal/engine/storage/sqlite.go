package storage

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/rendis/leadtap/internal/engine/dedupe"
	"github.com/rendis/leadtap/internal/model"
)

// Store persists discovered places in SQLite. Its UNIQUE constraint on the
// identity key is the second line of defense behind the run-scoped dedup
// set: re-running a scan over the same area inserts nothing twice.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// Optimize for write throughput
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS places (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identity_key TEXT NOT NULL UNIQUE,
		source_name TEXT NOT NULL,
		source_ref TEXT,
		name TEXT NOT NULL,
		website TEXT,
		phone TEXT,
		email TEXT,
		address TEXT,
		lat REAL,
		lng REAL,
		rating REAL,
		review_count INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_places_name ON places(name);
	CREATE INDEX IF NOT EXISTS idx_places_source ON places(source_name, source_ref);
	CREATE INDEX IF NOT EXISTS idx_places_coords ON places(lat, lng);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Add inserts a single place, ignoring identity-key duplicates. It
// satisfies the importer's result sink.
func (s *Store) Add(p model.Place) error {
	_, err := s.InsertBatch([]model.Place{p})
	return err
}

// InsertBatch inserts places in one transaction and returns how many rows
// were actually new.
func (s *Store) InsertBatch(places []model.Place) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO places
		(identity_key, source_name, source_ref, name, website, phone, email,
		 address, lat, lng, rating, review_count)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, p := range places {
		res, err := stmt.Exec(
			dedupe.Key(p), p.SourceName, p.SourceRef, p.Name, p.Website,
			p.Phone, p.Email, p.Address, p.Lat, p.Lng, p.Rating, p.ReviewCount,
		)
		if err != nil {
			continue
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}

	return inserted, nil
}

// ListPlaces returns all stored places ordered by name, for export.
func (s *Store) ListPlaces() ([]model.Place, error) {
	rows, err := s.db.Query(`
		SELECT source_name, source_ref, name, website, phone, email,
		       address, lat, lng, rating, review_count
		FROM places ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []model.Place
	for rows.Next() {
		var p model.Place
		var ref, website, phone, email, address sql.NullString
		err := rows.Scan(
			&p.SourceName, &ref, &p.Name, &website, &phone, &email,
			&address, &p.Lat, &p.Lng, &p.Rating, &p.ReviewCount,
		)
		if err != nil {
			continue
		}
		p.SourceRef = ref.String
		p.Website = website.String
		p.Phone = phone.String
		p.Email = email.String
		p.Address = address.String
		places = append(places, p)
	}
	return places, rows.Err()
}

func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM places").Scan(&count)
	return count, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
