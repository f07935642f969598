package service

import (
	"time"

	"github.com/virodrop/virodrop/game/engine"
)

// SessionInfo describes a session without exposing the underlying engine.
type SessionInfo struct {
	ID           string    `json:"id"`
	ConfigID     string    `json:"config_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	State        string    `json:"state"`
}

// CommandResult reports the outcome of a player command.
type CommandResult struct {
	Applied bool         `json:"applied"`
	State   engine.State `json:"state"`
	Stats   engine.Stats `json:"stats"`
}

// ConfigInfo describes a stored settings preset.
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Speed       string `json:"speed"`
	StartLevel  int    `json:"start_level"`
}

// ScoreEntry is a single row of the high-score table. Name is empty until
// the player signs the finished game via SubmitScore.
type ScoreEntry struct {
	SessionID string    `json:"session_id"`
	Name      string    `json:"name,omitempty"`
	Score     int       `json:"score"`
	Level     int       `json:"level"`
	Cleared   int       `json:"cleared"`
	When      time.Time `json:"when"`
}
