package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/virodrop/virodrop/game/engine"
	"github.com/virodrop/virodrop/game/service"
	"github.com/virodrop/virodrop/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configID string) (service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Game Operations
	StartGameFunc   func(ctx context.Context, sessionID string, level int, speed string) (service.CommandResult, error)
	MoveFunc        func(ctx context.Context, sessionID, direction string) (service.CommandResult, error)
	RotateFunc      func(ctx context.Context, sessionID string) (service.CommandResult, error)
	DropFunc        func(ctx context.Context, sessionID string) (service.CommandResult, error)
	SetFastDropFunc func(ctx context.Context, sessionID string, enabled bool) (service.CommandResult, error)
	PauseFunc       func(ctx context.Context, sessionID string) (service.CommandResult, error)
	ResumeFunc      func(ctx context.Context, sessionID string) (service.CommandResult, error)

	// Game State
	GetSnapshotFunc  func(ctx context.Context, sessionID string) (*engine.Snapshot, error)
	GetStatsFunc     func(ctx context.Context, sessionID string) (engine.Stats, error)
	GetGameStateFunc func(ctx context.Context, sessionID string) (engine.State, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configID string) (*engine.Settings, error)
	SaveConfigFunc  func(ctx context.Context, configID string, settings *engine.Settings) error

	// Scores
	TopScoresFunc   func(ctx context.Context, n int) ([]service.ScoreEntry, error)
	SubmitScoreFunc func(ctx context.Context, sessionID, name string) (service.ScoreEntry, error)
}

func okResult() (service.CommandResult, error) {
	return service.CommandResult{Applied: true, State: engine.StatePlaying}, nil
}

func (m *MockGameService) CreateSession(ctx context.Context, configID string) (service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configID)
	}
	return service.SessionInfo{ID: "ab12", ConfigID: configID, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetSession(ctx context.Context, sessionID string) (service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return service.SessionInfo{ID: sessionID, ConfigID: "classic", CreatedAt: time.Now()}, nil
}

func (m *MockGameService) ListSessions(ctx context.Context) ([]service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []service.SessionInfo{}, nil
}

func (m *MockGameService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockGameService) StartGame(ctx context.Context, sessionID string, level int, speed string) (service.CommandResult, error) {
	if m.StartGameFunc != nil {
		return m.StartGameFunc(ctx, sessionID, level, speed)
	}
	return okResult()
}

func (m *MockGameService) Move(ctx context.Context, sessionID, direction string) (service.CommandResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, direction)
	}
	return okResult()
}

func (m *MockGameService) Rotate(ctx context.Context, sessionID string) (service.CommandResult, error) {
	if m.RotateFunc != nil {
		return m.RotateFunc(ctx, sessionID)
	}
	return okResult()
}

func (m *MockGameService) Drop(ctx context.Context, sessionID string) (service.CommandResult, error) {
	if m.DropFunc != nil {
		return m.DropFunc(ctx, sessionID)
	}
	return okResult()
}

func (m *MockGameService) SetFastDrop(ctx context.Context, sessionID string, enabled bool) (service.CommandResult, error) {
	if m.SetFastDropFunc != nil {
		return m.SetFastDropFunc(ctx, sessionID, enabled)
	}
	return okResult()
}

func (m *MockGameService) Pause(ctx context.Context, sessionID string) (service.CommandResult, error) {
	if m.PauseFunc != nil {
		return m.PauseFunc(ctx, sessionID)
	}
	return okResult()
}

func (m *MockGameService) Resume(ctx context.Context, sessionID string) (service.CommandResult, error) {
	if m.ResumeFunc != nil {
		return m.ResumeFunc(ctx, sessionID)
	}
	return okResult()
}

func (m *MockGameService) GetSnapshot(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
	if m.GetSnapshotFunc != nil {
		return m.GetSnapshotFunc(ctx, sessionID)
	}
	return &engine.Snapshot{State: engine.StateMenu}, nil
}

func (m *MockGameService) GetStats(ctx context.Context, sessionID string) (engine.Stats, error) {
	if m.GetStatsFunc != nil {
		return m.GetStatsFunc(ctx, sessionID)
	}
	return engine.Stats{}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, sessionID string) (engine.State, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, sessionID)
	}
	return engine.StateMenu, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, configID string) (*engine.Settings, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configID)
	}
	return engine.DefaultSettings(), nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, configID string, settings *engine.Settings) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configID, settings)
	}
	return nil
}

func (m *MockGameService) TopScores(ctx context.Context, n int) ([]service.ScoreEntry, error) {
	if m.TopScoresFunc != nil {
		return m.TopScoresFunc(ctx, n)
	}
	return []service.ScoreEntry{}, nil
}

func (m *MockGameService) SubmitScore(ctx context.Context, sessionID, name string) (service.ScoreEntry, error) {
	if m.SubmitScoreFunc != nil {
		return m.SubmitScoreFunc(ctx, sessionID, name)
	}
	return service.ScoreEntry{SessionID: sessionID, Name: name}, nil
}

func (m *MockGameService) SetBroadcaster(b service.Broadcaster) {}

func (m *MockGameService) Shutdown(ctx context.Context) error { return nil }

func newTestServer(mock *MockGameService) *Server {
	return NewServer(mock, websocket.NewHub(mock))
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestCreateSessionEndpoint(t *testing.T) {
	mock := &MockGameService{
		CreateSessionFunc: func(ctx context.Context, configID string) (service.SessionInfo, error) {
			if configID != "sprint" {
				t.Errorf("configID = %q, want sprint", configID)
			}
			return service.SessionInfo{ID: "ab12", ConfigID: configID}, nil
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "POST", "/api/sessions", map[string]string{"config_id": "sprint"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var info service.SessionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if info.ID != "ab12" {
		t.Errorf("ID = %q, want ab12", info.ID)
	}
}

func TestCreateSessionError(t *testing.T) {
	mock := &MockGameService{
		CreateSessionFunc: func(ctx context.Context, configID string) (service.SessionInfo, error) {
			return service.SessionInfo{}, fmt.Errorf("config %q not found", configID)
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "POST", "/api/sessions", map[string]string{"config_id": "nope"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] == "" {
		t.Error("expected error message in response")
	}
}

func TestListSessionsSorting(t *testing.T) {
	now := time.Now()
	mock := &MockGameService{
		ListSessionsFunc: func(ctx context.Context) ([]service.SessionInfo, error) {
			return []service.SessionInfo{
				{ID: "old1", CreatedAt: now.Add(-2 * time.Hour), LastAccessed: now.Add(-2 * time.Hour)},
				{ID: "new1", CreatedAt: now, LastAccessed: now},
			}, nil
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "GET", "/api/sessions?sort=created&order=asc", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Sessions[0].ID != "old1" {
		t.Errorf("first session = %q, want old1 with asc order", resp.Sessions[0].ID)
	}
}

func TestStartGameEndpoint(t *testing.T) {
	mock := &MockGameService{
		StartGameFunc: func(ctx context.Context, sessionID string, level int, speed string) (service.CommandResult, error) {
			if sessionID != "ab12" || level != 5 || speed != "high" {
				t.Errorf("got %s/%d/%s, want ab12/5/high", sessionID, level, speed)
			}
			return service.CommandResult{Applied: true, State: engine.StatePlaying}, nil
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "POST", "/api/sessions/ab12/start", map[string]interface{}{
		"level": 5,
		"speed": "high",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var result service.CommandResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Applied || result.State != engine.StatePlaying {
		t.Errorf("result = %+v, want applied playing", result)
	}
}

func TestMoveEndpoint(t *testing.T) {
	var gotDirection string
	mock := &MockGameService{
		MoveFunc: func(ctx context.Context, sessionID, direction string) (service.CommandResult, error) {
			gotDirection = direction
			return service.CommandResult{Applied: true}, nil
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "POST", "/api/sessions/ab12/move", map[string]string{"direction": "left"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotDirection != "left" {
		t.Errorf("direction = %q, want left", gotDirection)
	}
}

func TestSimpleCommandEndpoints(t *testing.T) {
	calls := map[string]int{}
	mock := &MockGameService{
		RotateFunc: func(ctx context.Context, sessionID string) (service.CommandResult, error) {
			calls["rotate"]++
			return okResult()
		},
		DropFunc: func(ctx context.Context, sessionID string) (service.CommandResult, error) {
			calls["drop"]++
			return okResult()
		},
		PauseFunc: func(ctx context.Context, sessionID string) (service.CommandResult, error) {
			calls["pause"]++
			return okResult()
		},
		ResumeFunc: func(ctx context.Context, sessionID string) (service.CommandResult, error) {
			calls["resume"]++
			return okResult()
		},
	}
	srv := newTestServer(mock)

	for _, op := range []string{"rotate", "drop", "pause", "resume"} {
		rec := doJSON(t, srv, "POST", "/api/sessions/ab12/"+op, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want %d", op, rec.Code, http.StatusOK)
		}
		if calls[op] != 1 {
			t.Errorf("%s called %d times, want 1", op, calls[op])
		}
	}
}

func TestFastDropEndpoint(t *testing.T) {
	var gotEnabled bool
	mock := &MockGameService{
		SetFastDropFunc: func(ctx context.Context, sessionID string, enabled bool) (service.CommandResult, error) {
			gotEnabled = enabled
			return okResult()
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "POST", "/api/sessions/ab12/fast-drop", map[string]bool{"enabled": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !gotEnabled {
		t.Error("enabled = false, want true")
	}
}

func TestGetBoardEndpoint(t *testing.T) {
	mock := &MockGameService{
		GetSnapshotFunc: func(ctx context.Context, sessionID string) (*engine.Snapshot, error) {
			return &engine.Snapshot{
				State: engine.StatePlaying,
				Stats: engine.Stats{Score: 800},
			}, nil
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "GET", "/api/sessions/ab12/board", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var snap engine.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if snap.State != engine.StatePlaying || snap.Stats.Score != 800 {
		t.Errorf("snapshot = %+v, want playing with score 800", snap)
	}
}

func TestGetStateEndpointNotFound(t *testing.T) {
	mock := &MockGameService{
		GetGameStateFunc: func(ctx context.Context, sessionID string) (engine.State, error) {
			return "", fmt.Errorf("session not found: %s", sessionID)
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "GET", "/api/sessions/zzzz/state", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestConfigEndpoints(t *testing.T) {
	saved := map[string]*engine.Settings{}
	mock := &MockGameService{
		ListConfigsFunc: func(ctx context.Context) ([]service.ConfigInfo, error) {
			return []service.ConfigInfo{{ConfigID: "classic", Name: "Classic"}}, nil
		},
		SaveConfigFunc: func(ctx context.Context, configID string, settings *engine.Settings) error {
			saved[configID] = settings
			return nil
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "GET", "/api/configs", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want %d", rec.Code, http.StatusOK)
	}
	var configs []service.ConfigInfo
	if err := json.NewDecoder(rec.Body).Decode(&configs); err != nil {
		t.Fatalf("decode configs: %v", err)
	}
	if len(configs) != 1 || configs[0].ConfigID != "classic" {
		t.Errorf("configs = %+v, want classic only", configs)
	}

	rec = doJSON(t, srv, "POST", "/api/configs", map[string]interface{}{
		"config_id": "sprint",
		"settings":  engine.DefaultSettings(),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", rec.Code, http.StatusCreated)
	}
	if saved["sprint"] == nil {
		t.Error("settings were not saved")
	}

	rec = doJSON(t, srv, "POST", "/api/configs", map[string]string{"config_id": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty config status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestTopScoresEndpoint(t *testing.T) {
	var gotN int
	mock := &MockGameService{
		TopScoresFunc: func(ctx context.Context, n int) ([]service.ScoreEntry, error) {
			gotN = n
			return []service.ScoreEntry{{SessionID: "ab12", Score: 3100}}, nil
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "GET", "/api/scores?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotN != 5 {
		t.Errorf("limit = %d, want 5", gotN)
	}

	var resp struct {
		Count  int                  `json:"count"`
		Scores []service.ScoreEntry `json:"scores"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || resp.Scores[0].Score != 3100 {
		t.Errorf("resp = %+v, want one entry with score 3100", resp)
	}
}

func TestSubmitScoreEndpoint(t *testing.T) {
	mock := &MockGameService{
		SubmitScoreFunc: func(ctx context.Context, sessionID, name string) (service.ScoreEntry, error) {
			if sessionID != "ab12" || name != "mags" {
				t.Errorf("got %q/%q, want ab12/mags", sessionID, name)
			}
			return service.ScoreEntry{SessionID: sessionID, Name: name, Score: 4200}, nil
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "POST", "/api/scores", map[string]string{"session_id": "ab12", "name": "mags"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var entry service.ScoreEntry
	if err := json.NewDecoder(rec.Body).Decode(&entry); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if entry.Name != "mags" || entry.Score != 4200 {
		t.Errorf("entry = %+v, want mags/4200", entry)
	}

	// Both fields are required.
	rec = doJSON(t, srv, "POST", "/api/scores", map[string]string{"session_id": "ab12"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// Unknown sessions map to 404.
	mock.SubmitScoreFunc = func(ctx context.Context, sessionID, name string) (service.ScoreEntry, error) {
		return service.ScoreEntry{}, fmt.Errorf("session not found")
	}
	rec = doJSON(t, srv, "POST", "/api/scores", map[string]string{"session_id": "zzzz", "name": "mags"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestDeleteSessionEndpoint(t *testing.T) {
	mock := &MockGameService{
		DeleteSessionFunc: func(ctx context.Context, sessionID string) error {
			if sessionID != "ab12" {
				t.Errorf("sessionID = %q, want ab12", sessionID)
			}
			return nil
		},
	}
	srv := newTestServer(mock)

	rec := doJSON(t, srv, "DELETE", "/api/sessions/ab12", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestWebSocketRequiresSession(t *testing.T) {
	srv := newTestServer(&MockGameService{})

	rec := doJSON(t, srv, "GET", "/ws", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	mock := &MockGameService{
		GetSessionFunc: func(ctx context.Context, sessionID string) (service.SessionInfo, error) {
			return service.SessionInfo{}, fmt.Errorf("session not found")
		},
	}
	srv = newTestServer(mock)
	rec = doJSON(t, srv, "GET", "/ws?session=zzzz", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&MockGameService{})

	rec := doJSON(t, srv, "GET", "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %q, want healthy", resp["status"])
	}
}
