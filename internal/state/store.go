// Package state persists the analyzer's working document between
// runs: per-game inventory state, the acquisition event log and the
// portfolio value history.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/epokrso/steam-analyzer/config"
	"github.com/epokrso/steam-analyzer/internal/model"
	"github.com/epokrso/steam-analyzer/logger"
)

const (
	// maxEvents bounds the acquisition log; older entries are dropped
	// first.
	maxEvents = 10000
	// maxValueHistory bounds the portfolio value series the same way.
	maxValueHistory = 10000
)

// Document is the persisted state file layout. Unknown fields in an
// existing file are dropped on the next save.
type Document struct {
	Games        map[string]*model.GameState `json:"games"`
	Events       []model.Event               `json:"events"`
	ValueHistory []model.ValueHistoryPoint   `json:"value_history"`
}

// Store owns the state document and its file. The poll loop is the
// only writer; the dashboard reads concurrently, so all access goes
// through the lock.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  Document
	log  *logger.Entry
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		doc: Document{
			Games: make(map[string]*model.GameState),
		},
		log: logger.GetLogger().WithComponent("state_store"),
	}
}

// Load reads the state file and makes sure every catalog entry has a
// game state, so later code never sees a nil game. A missing file is
// a normal first run, not an error.
func (s *Store) Load(catalog []config.CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.log.WithFields(logger.Fields{"path": s.path}).Info("no state file, starting fresh")
	case err != nil:
		return fmt.Errorf("read state file: %w", err)
	default:
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return fmt.Errorf("parse state file %s: %w", s.path, err)
		}
	}

	if s.doc.Games == nil {
		s.doc.Games = make(map[string]*model.GameState)
	}
	for _, entry := range catalog {
		id := entry.ID()
		if s.doc.Games[id] == nil {
			s.doc.Games[id] = model.NewGameState()
		} else {
			s.doc.Games[id].Normalize()
		}
	}
	return nil
}

// Save writes the document atomically: marshal to a temp file in the
// same directory, then rename over the target. A crash mid-save
// leaves the previous file intact.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.doc, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Update runs fn with exclusive access to one game's state. The
// pointer must not be retained after fn returns.
func (s *Store) Update(catalogID string, fn func(*model.GameState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game := s.doc.Games[catalogID]
	if game == nil {
		game = model.NewGameState()
		s.doc.Games[catalogID] = game
	}
	fn(game)
}

// AppendEvent records an acquisition event, dropping the oldest entry
// once the log is full.
func (s *Store) AppendEvent(e model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Events = append(s.doc.Events, e)
	if len(s.doc.Events) > maxEvents {
		s.doc.Events = s.doc.Events[len(s.doc.Events)-maxEvents:]
	}
}

// AppendValueHistory records one portfolio value sample per poll
// cycle, with the same drop-oldest bound as the event log.
func (s *Store) AppendValueHistory(p model.ValueHistoryPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.ValueHistory = append(s.doc.ValueHistory, p)
	if len(s.doc.ValueHistory) > maxValueHistory {
		s.doc.ValueHistory = s.doc.ValueHistory[len(s.doc.ValueHistory)-maxValueHistory:]
	}
}

// Game returns a deep copy of one game's state.
func (s *Store) Game(catalogID string) model.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game := s.doc.Games[catalogID]
	if game == nil {
		return *model.NewGameState()
	}
	return game.Clone()
}

// Games returns a deep copy of all game states.
func (s *Store) Games() map[string]model.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.GameState, len(s.doc.Games))
	for id, game := range s.doc.Games {
		out[id] = game.Clone()
	}
	return out
}

// Events returns a copy of the acquisition log, oldest first.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, len(s.doc.Events))
	copy(out, s.doc.Events)
	return out
}

// ValueHistory returns a copy of the portfolio value series.
func (s *Store) ValueHistory() []model.ValueHistoryPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ValueHistoryPoint, len(s.doc.ValueHistory))
	copy(out, s.doc.ValueHistory)
	return out
}

// TotalInventoryCents sums the recomputed inventory value across all
// games.
func (s *Store) TotalInventoryCents() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, game := range s.doc.Games {
		total += game.InventoryTotalCents
	}
	return total
}
