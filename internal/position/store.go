package position

import (
	"context"
	"sync"
	"time"

	"coinhunter/pkg/db"
)

// Store errors. Conflict and not-found indicate loop bugs when they occur,
// since the scheduler checks position existence before acting, but the
// store still rejects conflicting writes defensively.
var (
	ErrConflict = db.ErrPositionExists
	ErrNotFound = db.ErrPositionNotFound
)

// Store keeps an in-memory view of open positions backed by sqlite, so a
// restarted loop resumes existing holdings instead of double-entering.
// Writes hit the database first; the cache is only updated after the
// durable write succeeds.
type Store struct {
	mu        sync.RWMutex
	db        *db.Database
	positions map[string]db.Position
}

// NewStore wraps a database handle.
func NewStore(database *db.Database) *Store {
	return &Store{
		db:        database,
		positions: make(map[string]db.Position),
	}
}

// Load seeds the in-memory view from the database on startup.
func (s *Store) Load(ctx context.Context) error {
	positions, err := s.db.ListPositions(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range positions {
		s.positions[p.Symbol] = p
	}
	return nil
}

// Get returns the open position for a symbol, or nil when flat.
func (s *Store) Get(symbol string) *db.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.positions[symbol]; ok {
		cp := p
		return &cp
	}
	return nil
}

// Open records a new HOLD position. Returns ErrConflict when one is
// already open for the symbol.
func (s *Store) Open(ctx context.Context, p db.Position) error {
	if p.Status == "" {
		p.Status = db.StatusHold
	}
	if p.EntryTime.IsZero() {
		p.EntryTime = time.Now().UTC()
	}

	if err := s.db.OpenPosition(ctx, p); err != nil {
		return err
	}

	s.mu.Lock()
	s.positions[p.Symbol] = p
	s.mu.Unlock()
	return nil
}

// Close removes the HOLD position for a symbol. Returns ErrNotFound when
// nothing was open.
func (s *Store) Close(ctx context.Context, symbol string) error {
	if err := s.db.ClosePosition(ctx, symbol); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.positions, symbol)
	s.mu.Unlock()
	return nil
}

// All returns a snapshot of every open position.
func (s *Store) All() []db.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]db.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out
}
