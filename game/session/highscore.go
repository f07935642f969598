package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/virodrop/virodrop/game/service"
)

// maxStoredScores bounds the on-disk high-score table.
const maxStoredScores = 50

// ScoreStore keeps the high-score table in a JSON file. Writes go through a
// temporary file and rename so a crash never leaves a truncated table.
type ScoreStore struct {
	path    string
	mu      sync.Mutex
	entries []service.ScoreEntry
}

// NewScoreStore opens the score file at path, creating its directory and
// loading any existing table.
func NewScoreStore(path string) (*ScoreStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create scores directory: %w", err)
	}

	store := &ScoreStore{path: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// Submit adds a finished game to the table and persists it.
func (st *ScoreStore) Submit(entry service.ScoreEntry) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.entries = append(st.entries, entry)
	sort.SliceStable(st.entries, func(i, j int) bool {
		return st.entries[i].Score > st.entries[j].Score
	})
	if len(st.entries) > maxStoredScores {
		st.entries = st.entries[:maxStoredScores]
	}

	return st.save()
}

// AttachName signs the session's most recent entry with a player name and
// persists the change. Reports whether an entry for the session existed.
func (st *ScoreStore) AttachName(sessionID, name string) (service.ScoreEntry, bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	latest := -1
	for i, e := range st.entries {
		if e.SessionID != sessionID {
			continue
		}
		if latest < 0 || e.When.After(st.entries[latest].When) {
			latest = i
		}
	}
	if latest < 0 {
		return service.ScoreEntry{}, false, nil
	}

	st.entries[latest].Name = name
	if err := st.save(); err != nil {
		return service.ScoreEntry{}, false, err
	}
	return st.entries[latest], true, nil
}

// Top returns the best n entries, highest score first.
func (st *ScoreStore) Top(n int) ([]service.ScoreEntry, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if n <= 0 || n > len(st.entries) {
		n = len(st.entries)
	}
	result := make([]service.ScoreEntry, n)
	copy(result, st.entries[:n])
	return result, nil
}

// load reads the score file into memory. A missing file is an empty table.
func (st *ScoreStore) load() error {
	jsonData, err := os.ReadFile(st.path)
	if os.IsNotExist(err) {
		st.entries = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read scores file: %w", err)
	}

	if err := json.Unmarshal(jsonData, &st.entries); err != nil {
		return fmt.Errorf("failed to unmarshal scores: %w", err)
	}
	return nil
}

// save writes the table atomically, caller must hold the lock.
func (st *ScoreStore) save() error {
	jsonData, err := json.MarshalIndent(st.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}

	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write scores file: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		return fmt.Errorf("failed to replace scores file: %w", err)
	}
	return nil
}
