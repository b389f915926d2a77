package level

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/khuttun/labyrinth/internal/models"
)

//go:embed levels/*.json
var builtins embed.FS

// ErrNotFound is returned when a level id does not exist.
var ErrNotFound = errors.New("level not found")

// Store serves level documents. When a database is configured levels live in
// Postgres; without one the embedded built-in levels are served from memory,
// so the game works with no infrastructure at all.
type Store struct {
	db *sqlx.DB

	mu    sync.RWMutex
	local map[int]*Document
	order []int
	next  int
}

// NewStore loads the built-in levels and wires the optional database. db may
// be nil.
func NewStore(db *sqlx.DB) (*Store, error) {
	s := &Store{
		db:    db,
		local: make(map[int]*Document),
	}

	entries, err := builtins.ReadDir("levels")
	if err != nil {
		return nil, fmt.Errorf("read built-in levels: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := builtins.ReadFile("levels/" + name)
		if err != nil {
			return nil, fmt.Errorf("read built-in level %s: %w", name, err)
		}
		doc, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("built-in level %s: %w", name, err)
		}
		s.next++
		s.local[s.next] = doc
		s.order = append(s.order, s.next)
	}

	log.Printf("[LEVEL] Loaded %d built-in levels", len(s.order))
	return s, nil
}

// Seed inserts the built-in levels into the database when the levels table is
// empty. Called once on startup.
func (s *Store) Seed(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM levels`); err != nil {
		return fmt.Errorf("count levels: %w", err)
	}
	if n > 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		doc := s.local[id]
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO levels (name, document, created_at) VALUES ($1, $2::jsonb, NOW())`,
			doc.Name, string(data)); err != nil {
			return fmt.Errorf("seed level %q: %w", doc.Name, err)
		}
	}
	log.Printf("[LEVEL] Seeded %d built-in levels into the database", len(s.order))
	return nil
}

// List returns id and name of every available level.
func (s *Store) List(ctx context.Context) ([]models.LevelRecord, error) {
	if s.db != nil {
		var recs []models.LevelRecord
		err := s.db.SelectContext(ctx, &recs, `SELECT id, name, created_at FROM levels ORDER BY id`)
		if err == nil {
			return recs, nil
		}
		log.Printf("[LEVEL] DB list failed, serving built-ins: %v", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]models.LevelRecord, 0, len(s.order))
	for _, id := range s.order {
		recs = append(recs, models.LevelRecord{ID: id, Name: s.local[id].Name})
	}
	return recs, nil
}

// Get returns the parsed document for a level id.
func (s *Store) Get(ctx context.Context, id int) (*Document, error) {
	if s.db != nil {
		var rec models.LevelRecord
		err := s.db.GetContext(ctx, &rec, `SELECT id, name, document, created_at FROM levels WHERE id = $1`, id)
		switch {
		case err == nil:
			return Parse(rec.Document)
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			log.Printf("[LEVEL] DB get failed, serving built-ins: %v", err)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.local[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Put stores a new level and returns its id. Used by the admin upload
// endpoint; the document must already be validated.
func (s *Store) Put(ctx context.Context, doc *Document) (int, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}

	if s.db != nil {
		var id int
		err := s.db.GetContext(ctx, &id,
			`INSERT INTO levels (name, document, created_at) VALUES ($1, $2::jsonb, NOW()) RETURNING id`,
			doc.Name, string(data))
		if err != nil {
			return 0, fmt.Errorf("insert level: %w", err)
		}
		return id, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.local[s.next] = doc
	s.order = append(s.order, s.next)
	return s.next, nil
}

// Delete removes a level.
func (s *Store) Delete(ctx context.Context, id int) error {
	if s.db != nil {
		res, err := s.db.ExecContext(ctx, `DELETE FROM levels WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete level: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.local[id]; !ok {
		return ErrNotFound
	}
	delete(s.local, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
