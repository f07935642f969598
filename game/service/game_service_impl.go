package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/virodrop/virodrop/game/engine"
)

// tickInterval is how often the run loop advances a playing session.
const tickInterval = time.Second / 60

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	scores   ScoreStore

	mu           sync.RWMutex
	broadcaster  Broadcaster
	wg           sync.WaitGroup
	shuttingDown bool
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, scores ScoreStore) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		scores:   scores,
	}
}

// SetBroadcaster installs the client fan-out target. Pass nil to detach.
func (s *gameServiceImpl) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcaster = b
}

func (s *gameServiceImpl) getBroadcaster() Broadcaster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.broadcaster
}

// CreateSession creates a new game session using the named settings preset.
// An empty configID selects the default preset.
func (s *gameServiceImpl) CreateSession(ctx context.Context, configID string) (SessionInfo, error) {
	if configID == "" {
		configID = s.configs.GetDefault()
	}

	settings, err := s.configs.LoadSettings(configID)
	if err != nil {
		available, listErr := s.configs.ListSettings()
		if listErr == nil && len(available) > 0 {
			ids := make([]string, 0, len(available))
			for _, cfg := range available {
				ids = append(ids, cfg.ConfigID)
			}
			return SessionInfo{}, fmt.Errorf("config '%s' not found. Available configs: %v", configID, ids)
		}
		return SessionInfo{}, fmt.Errorf("failed to load config %s: %w", configID, err)
	}

	eng, err := engine.NewEngine(settings)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("failed to create engine: %w", err)
	}

	sess, err := s.sessions.Create(configID, eng)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("failed to create session: %w", err)
	}

	eng.SetNotifier(&sessionNotifier{service: s, sessionID: sess.ID})
	eng.SetSoundPlayer(&sessionNotifier{service: s, sessionID: sess.ID})

	return s.infoFor(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (SessionInfo, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return s.infoFor(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.infoFor(sess))
	}
	return result, nil
}

// DeleteSession removes a session and stops its run loop if one is active.
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return fmt.Errorf("session not found: %w", err)
	}
	s.stopRunner(sess)
	return s.sessions.Delete(sessionID)
}

// StartGame begins a new game in the session and launches its run loop.
// An empty speed keeps the preset's speed setting.
func (s *gameServiceImpl) StartGame(ctx context.Context, sessionID string, level int, speed string) (CommandResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return CommandResult{}, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	var result CommandResult
	var startErr error
	sess.Do(func(e *engine.Engine) {
		sp := e.Settings().Speed
		if speed != "" {
			sp = engine.SpeedSetting(speed)
		}
		startErr = e.StartGame(level, sp)
		result = CommandResult{
			Applied: startErr == nil,
			State:   e.State(),
			Stats:   e.Stats(),
		}
	})
	if startErr != nil {
		return result, fmt.Errorf("failed to start game: %w", startErr)
	}

	s.startRunner(sess)
	return result, nil
}

// Move shifts the active piece one cell in the given direction.
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, direction string) (CommandResult, error) {
	dir := engine.Direction(direction)
	switch dir {
	case engine.DirLeft, engine.DirRight, engine.DirDown:
	default:
		return CommandResult{}, fmt.Errorf("invalid direction %q: must be left, right, or down", direction)
	}
	return s.command(sessionID, func(e *engine.Engine) bool {
		return e.MovePill(dir)
	})
}

// Rotate rotates the active capsule a quarter turn.
func (s *gameServiceImpl) Rotate(ctx context.Context, sessionID string) (CommandResult, error) {
	return s.command(sessionID, func(e *engine.Engine) bool {
		return e.RotatePill()
	})
}

// Drop hard-drops the active piece.
func (s *gameServiceImpl) Drop(ctx context.Context, sessionID string) (CommandResult, error) {
	return s.command(sessionID, func(e *engine.Engine) bool {
		return e.DropPill()
	})
}

// SetFastDrop toggles the accelerated fall interval.
func (s *gameServiceImpl) SetFastDrop(ctx context.Context, sessionID string, enabled bool) (CommandResult, error) {
	return s.command(sessionID, func(e *engine.Engine) bool {
		e.SetFastDrop(enabled)
		return true
	})
}

// Pause suspends the simulation.
func (s *gameServiceImpl) Pause(ctx context.Context, sessionID string) (CommandResult, error) {
	return s.command(sessionID, func(e *engine.Engine) bool {
		e.Pause()
		return e.State() == engine.StatePaused
	})
}

// Resume continues a paused game.
func (s *gameServiceImpl) Resume(ctx context.Context, sessionID string) (CommandResult, error) {
	return s.command(sessionID, func(e *engine.Engine) bool {
		e.Resume()
		return e.State() == engine.StatePlaying
	})
}

// GetSnapshot returns the full render state of a session.
func (s *gameServiceImpl) GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	var snap *engine.Snapshot
	sess.Do(func(e *engine.Engine) {
		snap = e.Snapshot()
	})
	return snap, nil
}

// GetStats returns the session's scoring counters.
func (s *gameServiceImpl) GetStats(ctx context.Context, sessionID string) (engine.Stats, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return engine.Stats{}, fmt.Errorf("session not found: %w", err)
	}

	var stats engine.Stats
	sess.Do(func(e *engine.Engine) {
		stats = e.Stats()
	})
	return stats, nil
}

// GetGameState returns the session's state machine position.
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (engine.State, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return "", fmt.Errorf("session not found: %w", err)
	}

	var state engine.State
	sess.Do(func(e *engine.Engine) {
		state = e.State()
	})
	return state, nil
}

// ListConfigs returns available settings presets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]ConfigInfo, error) {
	return s.configs.ListSettings()
}

// LoadConfig loads a specific settings preset
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configID string) (*engine.Settings, error) {
	return s.configs.LoadSettings(configID)
}

// SaveConfig saves a settings preset to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configID string, settings *engine.Settings) error {
	return s.configs.SaveSettings(configID, settings)
}

// TopScores returns the best finished games, highest score first.
func (s *gameServiceImpl) TopScores(ctx context.Context, n int) ([]ScoreEntry, error) {
	return s.scores.Top(n)
}

// SubmitScore signs a finished session's recorded score with a player name.
// The run loop records finished games unnamed; this attaches the name, or
// submits a fresh named entry when the session ended before the loop could
// record it.
func (s *gameServiceImpl) SubmitScore(ctx context.Context, sessionID, name string) (ScoreEntry, error) {
	if name == "" {
		return ScoreEntry{}, fmt.Errorf("player name is required")
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return ScoreEntry{}, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	var state engine.State
	var stats engine.Stats
	sess.Do(func(e *engine.Engine) {
		state = e.State()
		stats = e.Stats()
	})
	if state != engine.StateGameOver && state != engine.StateLevelComplete {
		return ScoreEntry{}, fmt.Errorf("no finished game to submit: session is %s", state)
	}

	entry, ok, err := s.scores.AttachName(sessionID, name)
	if err != nil {
		return ScoreEntry{}, fmt.Errorf("failed to record score: %w", err)
	}
	if ok {
		return entry, nil
	}

	entry = ScoreEntry{
		SessionID: sessionID,
		Name:      name,
		Score:     stats.Score,
		Level:     stats.Level,
		Cleared:   stats.LinesCleared,
		When:      time.Now(),
	}
	if err := s.scores.Submit(entry); err != nil {
		return ScoreEntry{}, fmt.Errorf("failed to record score: %w", err)
	}
	return entry, nil
}

// Shutdown stops all run loops and waits for them to exit.
func (s *gameServiceImpl) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()

	for _, sess := range s.sessions.List() {
		s.stopRunner(sess)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// command runs f against the session's engine and reports the outcome.
func (s *gameServiceImpl) command(sessionID string, f func(*engine.Engine) bool) (CommandResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return CommandResult{}, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	var result CommandResult
	sess.Do(func(e *engine.Engine) {
		result = CommandResult{
			Applied: f(e),
			State:   e.State(),
			Stats:   e.Stats(),
		}
	})
	return result, nil
}

func (s *gameServiceImpl) infoFor(sess *Session) SessionInfo {
	var state engine.State
	sess.Do(func(e *engine.Engine) {
		state = e.State()
	})
	return SessionInfo{
		ID:           sess.ID,
		ConfigID:     sess.ConfigID,
		CreatedAt:    sess.CreatedAt,
		LastAccessed: sess.LastAccessed,
		State:        string(state),
	}
}

// startRunner launches the session's run loop, replacing any previous one.
func (s *gameServiceImpl) startRunner(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return
	}

	s.stopRunnerLocked(sess)

	stop := make(chan struct{})
	sess.stop = stop

	s.wg.Add(1)
	go s.run(sess, stop)
}

func (s *gameServiceImpl) stopRunner(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRunnerLocked(sess)
}

func (s *gameServiceImpl) stopRunnerLocked(sess *Session) {
	if sess.stop != nil {
		close(sess.stop)
		sess.stop = nil
	}
}

// run advances the session's engine at a fixed cadence until the game
// reaches a terminal state or the runner is stopped. The engine's own
// accumulator handles any tick jitter.
func (s *gameServiceImpl) run(sess *Session, stop chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			var state engine.State
			sess.Do(func(e *engine.Engine) {
				e.Update(dt)
				state = e.State()
			})

			switch state {
			case engine.StateGameOver, engine.StateLevelComplete:
				s.recordScore(sess)
				return
			}
		}
	}
}

// recordScore submits the finished game to the high-score table.
func (s *gameServiceImpl) recordScore(sess *Session) {
	if s.scores == nil {
		return
	}

	var stats engine.Stats
	sess.Do(func(e *engine.Engine) {
		stats = e.Stats()
	})

	entry := ScoreEntry{
		SessionID: sess.ID,
		Score:     stats.Score,
		Level:     stats.Level,
		Cleared:   stats.LinesCleared,
		When:      time.Now(),
	}
	if err := s.scores.Submit(entry); err != nil {
		log.Printf("Warning: failed to record score for session %s: %v", sess.ID, err)
	}
}

// sessionNotifier forwards engine notifications to the broadcaster with the
// session identity attached. The engine calls these synchronously, so they
// must not call back into the session.
type sessionNotifier struct {
	service   *gameServiceImpl
	sessionID string
}

func (n *sessionNotifier) OnStateChange(state engine.State) {
	if b := n.service.getBroadcaster(); b != nil {
		b.BroadcastState(n.sessionID, state)
	}
}

func (n *sessionNotifier) OnStatsChange(stats engine.Stats) {
	if b := n.service.getBroadcaster(); b != nil {
		b.BroadcastStats(n.sessionID, stats)
	}
}

func (n *sessionNotifier) OnBoardChange() {
	b := n.service.getBroadcaster()
	if b == nil {
		return
	}
	sess, err := n.service.sessions.Get(n.sessionID)
	if err != nil {
		return
	}
	// Already inside the session's engine lock; read the snapshot directly.
	b.BroadcastBoard(n.sessionID, sess.Engine.Snapshot())
}

func (n *sessionNotifier) PlaySound(event engine.SoundEvent) {
	if b := n.service.getBroadcaster(); b != nil {
		b.BroadcastSound(n.sessionID, event)
	}
}
