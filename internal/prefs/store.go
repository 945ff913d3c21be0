// Package prefs provides the dashboard's theme preference: held in memory,
// persisted to a JSON file, and pushed to subscribers for SSE.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"stockdash/internal/domain"
)

// ErrInvalidTheme is returned by Set for anything but light or dark.
var ErrInvalidTheme = errors.New("invalid theme")

// Event is the wire format for SSE messages.
type Event struct {
	Type  string       `json:"type"` // "snapshot", "set"
	Theme domain.Theme `json:"theme"`
}

// file is the on-disk layout.
type file struct {
	Theme domain.Theme `json:"theme,omitempty"`
}

// Store holds the theme preference with JSON persistence and pub/sub.
type Store struct {
	mu       sync.RWMutex
	theme    domain.Theme // empty until the user picks one
	fallback domain.Theme
	filePath string
	log      *slog.Logger

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Event
}

// NewStore creates a Store, loading persisted state from filePath. fallback
// is used when neither a stored nor a client-preferred theme is known.
func NewStore(filePath string, fallback domain.Theme, log *slog.Logger) *Store {
	if !fallback.Valid() {
		fallback = domain.ThemeLight
	}
	s := &Store{
		fallback: fallback,
		filePath: filePath,
		log:      log,
		subs:     make(map[int]chan Event),
	}
	s.load()
	return s
}

// Stored returns the persisted theme and whether one has been chosen.
func (s *Store) Stored() (domain.Theme, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme, s.theme != ""
}

// Effective resolves the theme to display: the stored preference, else the
// client's preferred scheme if valid, else the configured fallback.
func (s *Store) Effective(preferred domain.Theme) domain.Theme {
	if t, ok := s.Stored(); ok {
		return t
	}
	if preferred.Valid() {
		return preferred
	}
	return s.fallback
}

// Set stores a theme, persists it, and broadcasts to subscribers.
func (s *Store) Set(t domain.Theme) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTheme, t)
	}
	s.mu.Lock()
	s.theme = t
	err := s.flush()
	s.mu.Unlock()

	s.broadcast(Event{Type: "set", Theme: t})
	return err
}

// Toggle flips the effective theme, persists it, and returns the new one.
func (s *Store) Toggle(preferred domain.Theme) (domain.Theme, error) {
	s.mu.Lock()
	cur := s.theme
	if cur == "" {
		cur = s.fallback
		if preferred.Valid() {
			cur = preferred
		}
	}
	next := cur.Opposite()
	s.theme = next
	err := s.flush()
	s.mu.Unlock()

	s.broadcast(Event{Type: "set", Theme: next})
	return next, err
}

// ToggleTitle returns the hint shown on the theme toggle button.
func ToggleTitle(t domain.Theme) string {
	if t == domain.ThemeDark {
		return "Switch to light mode"
	}
	return "Switch to dark mode"
}

// Subscribe returns a channel that receives events. bufSize controls the
// channel buffer; slow consumers will have events dropped.
func (s *Store) Subscribe(bufSize int) (int, <-chan Event) {
	ch := make(chan Event, bufSize)
	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.subsMu.Unlock()
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Store) Unsubscribe(id int) {
	s.subsMu.Lock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
}

// broadcast sends an event to all subscribers non-blocking (drop on full).
func (s *Store) broadcast(e Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			// Slow consumer, drop event.
		}
	}
}

// load reads the JSON file into memory.
func (s *Store) load() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return // no file yet, start empty
	}
	var loaded file
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.log.Warn("loading prefs file", "error", err)
		return
	}
	if loaded.Theme != "" && !loaded.Theme.Valid() {
		s.log.Warn("ignoring stored theme", "theme", loaded.Theme)
		return
	}
	s.theme = loaded.Theme
	s.log.Info("loaded prefs", "theme", loaded.Theme)
}

// flush writes the in-memory state to disk. Must be called with mu held.
// A write failure keeps the in-memory value.
func (s *Store) flush() error {
	if s.filePath == "" {
		return nil
	}
	data, err := json.Marshal(file{Theme: s.theme})
	if err != nil {
		return fmt.Errorf("marshalling prefs: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("creating prefs dir: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0o644); err != nil {
		s.log.Error("writing prefs file", "error", err)
		return fmt.Errorf("writing prefs file: %w", err)
	}
	return nil
}
