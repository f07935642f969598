package service

import (
	"context"
	"sync"
	"time"

	"github.com/virodrop/virodrop/game/engine"
)

// Session binds a session identifier to its engine instance. All engine
// access must go through Do, which serializes callers.
type Session struct {
	ID           string
	ConfigID     string
	CreatedAt    time.Time
	LastAccessed time.Time

	Engine *engine.Engine

	mu   sync.Mutex
	stop chan struct{}
}

// Do runs f with exclusive access to the session's engine.
func (s *Session) Do(f func(*engine.Engine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(s.Engine)
}

// SessionManager handles session lifecycle.
type SessionManager interface {
	Create(configID string, eng *engine.Engine) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ConfigManager loads and stores settings presets.
type ConfigManager interface {
	LoadSettings(configID string) (*engine.Settings, error)
	ListSettings() ([]ConfigInfo, error)
	GetDefault() string
	SetDefault(configID string) error
	SaveSettings(configID string, settings *engine.Settings) error
}

// ScoreStore persists the high-score table.
type ScoreStore interface {
	Submit(entry ScoreEntry) error
	AttachName(sessionID, name string) (ScoreEntry, bool, error)
	Top(n int) ([]ScoreEntry, error)
}

// Broadcaster receives engine notifications for fan-out to clients. All
// methods may be called from run-loop goroutines.
type Broadcaster interface {
	BroadcastState(sessionID string, state engine.State)
	BroadcastStats(sessionID string, stats engine.Stats)
	BroadcastBoard(sessionID string, snapshot *engine.Snapshot)
	BroadcastSound(sessionID string, sound engine.SoundEvent)
}

// GameService provides all game operations for the transport layer.
type GameService interface {
	CreateSession(ctx context.Context, configID string) (SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (SessionInfo, error)
	ListSessions(ctx context.Context) ([]SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	StartGame(ctx context.Context, sessionID string, level int, speed string) (CommandResult, error)
	Move(ctx context.Context, sessionID string, direction string) (CommandResult, error)
	Rotate(ctx context.Context, sessionID string) (CommandResult, error)
	Drop(ctx context.Context, sessionID string) (CommandResult, error)
	SetFastDrop(ctx context.Context, sessionID string, enabled bool) (CommandResult, error)
	Pause(ctx context.Context, sessionID string) (CommandResult, error)
	Resume(ctx context.Context, sessionID string) (CommandResult, error)

	GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetStats(ctx context.Context, sessionID string) (engine.Stats, error)
	GetGameState(ctx context.Context, sessionID string) (engine.State, error)

	ListConfigs(ctx context.Context) ([]ConfigInfo, error)
	LoadConfig(ctx context.Context, configID string) (*engine.Settings, error)
	SaveConfig(ctx context.Context, configID string, settings *engine.Settings) error
	TopScores(ctx context.Context, n int) ([]ScoreEntry, error)
	SubmitScore(ctx context.Context, sessionID, name string) (ScoreEntry, error)

	SetBroadcaster(b Broadcaster)
	Shutdown(ctx context.Context) error
}
