// Package catalog implements the event catalog as a document store backed
// by SQLite. Events are stored as JSON documents; a few fields are
// duplicated into columns for filtering. The catalog is fully independent
// of the enrollment ledger: no transaction spans both stores.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"inscribo/internal/domain"
)

// Store implements domain.EventCatalog on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the catalog database at path and migrates the
// schema. Use ":memory:" for tests. WAL mode keeps readers unblocked while
// a write is in flight.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog store: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		category TEXT NOT NULL,
		event_date TEXT NOT NULL,
		doc TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_status ON events (status);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events (category);
	CREATE INDEX IF NOT EXISTS idx_events_date ON events (event_date);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Create(ctx context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	doc, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, status, category, event_date, doc)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID, event.Title, string(event.Status), string(event.Category), event.Date.UTC().Format(time.RFC3339), string(doc))
	return err
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM events WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return unmarshalEvent(doc)
}

func (s *Store) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		clauses []string
		args    []any
	)
	if filter.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.Category != nil {
		clauses = append(clauses, "category = ?")
		args = append(args, string(*filter.Category))
	}
	if filter.Search != "" {
		clauses = append(clauses, "(title LIKE ? OR doc LIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.From != nil {
		clauses = append(clauses, "event_date >= ?")
		args = append(args, filter.From.UTC().Format(time.RFC3339))
	}
	if filter.To != nil {
		clauses = append(clauses, "event_date <= ?")
		args = append(args, filter.To.UTC().Format(time.RFC3339))
	}
	if filter.UpcomingOnly {
		clauses = append(clauses, "event_date > ?")
		args = append(args, time.Now().UTC().Format(time.RFC3339))
	}

	query := "SELECT doc FROM events"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY event_date ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*domain.Event{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		event, err := unmarshalEvent(doc)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *Store) Update(ctx context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event document: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET title = ?, status = ?, category = ?, event_date = ?, doc = ?
		WHERE id = ?
	`, event.Title, string(event.Status), string(event.Category), event.Date.UTC().Format(time.RFC3339), string(doc), event.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func unmarshalEvent(doc string) (*domain.Event, error) {
	event := &domain.Event{}
	if err := json.Unmarshal([]byte(doc), event); err != nil {
		return nil, fmt.Errorf("unmarshal event document: %w", err)
	}
	return event, nil
}
