package main

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	cellSize     = 36
	boardWidth   = 8
	boardHeight  = 16
	headerHeight = 60
	sideWidth    = 260 // Stats panel to the right of the bottle
	screenWidth  = boardWidth*cellSize + sideWidth
	screenHeight = boardHeight*cellSize + headerHeight + 30
	baseURL      = "http://localhost:8080"
)

// ScreenType represents different screens in the app
type ScreenType int

const (
	ScreenWelcome ScreenType = iota
	ScreenGame
)

// Cell mirrors one committed board cell from the server
type Cell struct {
	Kind  string `json:"kind"`
	Color string `json:"color,omitempty"`
}

// ColoredCell mirrors one cell of a falling piece
type ColoredCell struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

// FallingPiece mirrors an active falling entity
type FallingPiece struct {
	ID    int64         `json:"id"`
	Kind  string        `json:"kind"`
	Cells []ColoredCell `json:"cells"`
}

// Stats mirrors the scoring counters from the server
type Stats struct {
	Score          int `json:"score"`
	Level          int `json:"level"`
	InfectionCount int `json:"infection_count"`
	LinesCleared   int `json:"lines_cleared"`
	PiecesPlaced   int `json:"pieces_placed"`
	SpeedLevel     int `json:"speed_level"`
}

// Snapshot mirrors the full render state from the server
type Snapshot struct {
	Cells   [][]Cell       `json:"cells"`
	Falling []FallingPiece `json:"falling"`
	State   string         `json:"state"`
	Stats   Stats          `json:"stats"`
}

// WSMessage represents a WebSocket frame from the server
type WSMessage struct {
	SessionID string    `json:"session_id"`
	Event     string    `json:"event"`
	State     string    `json:"state,omitempty"`
	Stats     *Stats    `json:"stats,omitempty"`
	Snapshot  *Snapshot `json:"snapshot,omitempty"`
	Sound     string    `json:"sound,omitempty"`
}

// WSCommand is a player command sent over the WebSocket
type WSCommand struct {
	Action    string `json:"action"`
	Direction string `json:"direction,omitempty"`
	Enabled   bool   `json:"enabled,omitempty"`
}

// SessionListItem represents a session from the server
type SessionListItem struct {
	ID       string `json:"id"`
	ConfigID string `json:"config_id"`
	State    string `json:"state"`
}

// ConfigListItem represents a rule preset
type ConfigListItem struct {
	ConfigID    string `json:"config_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Speed       string `json:"speed"`
	StartLevel  int    `json:"start_level"`
}

// Game represents the desktop game client
type Game struct {
	sessionID     string
	snapshot      *Snapshot
	gameState     string
	wsConn        *websocket.Conn
	wsMutex       sync.Mutex
	stateMutex    sync.RWMutex
	lastUpdate    time.Time
	lastSound     string
	currentScreen ScreenType
	welcomeScreen *WelcomeScreen
}

// WelcomeScreen manages the welcome screen state
type WelcomeScreen struct {
	availableSessions []SessionListItem
	availableConfigs  []ConfigListItem
	cursorPos         int
	startLevel        int
	selectedConfig    string
	loading           bool
	errorMsg          string
}

// NewGame creates a new game instance
func NewGame(sessionID string) *Game {
	g := &Game{
		currentScreen: ScreenWelcome,
		welcomeScreen: &WelcomeScreen{
			availableSessions: make([]SessionListItem, 0),
			availableConfigs:  make([]ConfigListItem, 0),
		},
	}

	// If a session ID was provided, attach to it and skip the menu
	if sessionID != "" {
		g.attachSession(sessionID)
		g.currentScreen = ScreenGame
	} else {
		g.loadWelcomeData()
	}

	return g
}

// attachSession subscribes to a session and fetches its first snapshot
func (g *Game) attachSession(sessionID string) {
	g.sessionID = sessionID

	if err := g.connectWebSocket(); err != nil {
		log.Printf("Failed to connect WebSocket for %s: %v (falling back to polling)", sessionID, err)
	} else {
		go g.listenWebSocket()
	}

	if err := g.fetchSnapshot(); err != nil {
		log.Printf("Failed to fetch board for %s: %v", sessionID, err)
	}
}

// createSession creates a new game session with the selected preset
func (g *Game) createSession(configID string) (string, error) {
	payload := "{}"
	if configID != "" {
		payload = fmt.Sprintf(`{"config_id":%q}`, configID)
	}

	resp, err := http.Post(baseURL+"/api/sessions", "application/json", strings.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse session response: %v (body: %s)", err, string(body))
	}

	log.Printf("Created new session: %s (config: %s)", result.ID, configID)
	return result.ID, nil
}

// startGame asks the server to start playing in the attached session
func (g *Game) startGame(level int) error {
	payload := fmt.Sprintf(`{"level":%d}`, level)
	url := fmt.Sprintf("%s/api/sessions/%s/start", baseURL, g.sessionID)

	resp, err := http.Post(url, "application/json", strings.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("start failed: %s", string(body))
	}

	return g.fetchSnapshot()
}

// connectWebSocket establishes the WebSocket subscription
func (g *Game) connectWebSocket() error {
	if g.sessionID == "" {
		return fmt.Errorf("no session ID set")
	}

	wsURL := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	q := wsURL.Query()
	q.Set("session", g.sessionID)
	wsURL.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return err
	}

	g.wsConn = conn
	log.Printf("WebSocket connected for session %s", g.sessionID)
	return nil
}

// listenWebSocket consumes board, stats, state, and sound frames
func (g *Game) listenWebSocket() {
	defer func() {
		if g.wsConn != nil {
			g.wsConn.Close()
		}
	}()

	for {
		_, message, err := g.wsConn.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read error for %s: %v", g.sessionID, err)
			g.stateMutex.Lock()
			g.wsConn = nil
			g.stateMutex.Unlock()
			return
		}

		var wsMsg WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			log.Printf("WebSocket JSON parse error: %v", err)
			continue
		}

		g.stateMutex.Lock()
		switch wsMsg.Event {
		case "board":
			if wsMsg.Snapshot != nil {
				g.snapshot = wsMsg.Snapshot
				g.gameState = wsMsg.Snapshot.State
			}
		case "state":
			g.gameState = wsMsg.State
		case "stats":
			if g.snapshot != nil && wsMsg.Stats != nil {
				g.snapshot.Stats = *wsMsg.Stats
			}
		case "sound":
			g.lastSound = wsMsg.Sound
		}
		g.lastUpdate = time.Now()
		g.stateMutex.Unlock()
	}
}

// fetchSnapshot polls the REST API for the current board
func (g *Game) fetchSnapshot() error {
	if g.sessionID == "" {
		return fmt.Errorf("no session ID set")
	}

	url := fmt.Sprintf("%s/api/sessions/%s/board", baseURL, g.sessionID)
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return fmt.Errorf("failed to parse JSON: %v (body: %s)", err, string(body))
	}

	g.stateMutex.Lock()
	g.snapshot = &snapshot
	g.gameState = snapshot.State
	g.lastUpdate = time.Now()
	g.stateMutex.Unlock()

	return nil
}

// loadWelcomeData fetches available sessions and presets from the server
func (g *Game) loadWelcomeData() {
	ws := g.welcomeScreen
	ws.loading = true
	ws.errorMsg = ""

	resp, err := http.Get(baseURL + "/api/sessions")
	if err != nil {
		ws.errorMsg = fmt.Sprintf("Error loading sessions: %v", err)
		ws.loading = false
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var sessionsResp struct {
		Sessions []SessionListItem `json:"sessions"`
	}
	if err := json.Unmarshal(body, &sessionsResp); err == nil {
		ws.availableSessions = sessionsResp.Sessions
	}

	resp, err = http.Get(baseURL + "/api/configs")
	if err != nil {
		ws.errorMsg = fmt.Sprintf("Error loading presets: %v", err)
		ws.loading = false
		return
	}
	defer resp.Body.Close()

	body, _ = io.ReadAll(resp.Body)
	var configs []ConfigListItem
	if err := json.Unmarshal(body, &configs); err == nil {
		ws.availableConfigs = configs
		if ws.selectedConfig == "" && len(configs) > 0 {
			ws.selectedConfig = configs[0].ConfigID
		}
	}

	ws.loading = false
}

// sendCommand delivers a player command, over the WebSocket when connected
// and via REST otherwise
func (g *Game) sendCommand(cmd WSCommand) {
	g.stateMutex.RLock()
	conn := g.wsConn
	g.stateMutex.RUnlock()

	if conn != nil {
		g.wsMutex.Lock()
		err := conn.WriteJSON(cmd)
		g.wsMutex.Unlock()
		if err == nil {
			return
		}
		log.Printf("WebSocket write error: %v (falling back to REST)", err)
	}

	var path string
	var payload string
	switch cmd.Action {
	case "move":
		path = "move"
		payload = fmt.Sprintf(`{"direction":%q}`, cmd.Direction)
	case "fast_drop":
		path = "fast-drop"
		payload = fmt.Sprintf(`{"enabled":%t}`, cmd.Enabled)
	default:
		path = cmd.Action
		payload = "{}"
	}

	url := fmt.Sprintf("%s/api/sessions/%s/%s", baseURL, g.sessionID, path)
	resp, err := http.Post(url, "application/json", strings.NewReader(payload))
	if err != nil {
		log.Printf("Command %s failed: %v", cmd.Action, err)
		return
	}
	resp.Body.Close()
}

// Update updates game logic
func (g *Game) Update() error {
	switch g.currentScreen {
	case ScreenWelcome:
		return g.updateWelcomeScreen()
	case ScreenGame:
		return g.updateGameScreen()
	}
	return nil
}

// updateWelcomeScreen handles welcome screen input
func (g *Game) updateWelcomeScreen() error {
	ws := g.welcomeScreen

	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		g.loadWelcomeData()
	}

	// Navigate presets with arrow keys
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) {
		if ws.cursorPos < len(ws.availableConfigs)-1 {
			ws.cursorPos++
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) {
		if ws.cursorPos > 0 {
			ws.cursorPos--
		}
	}
	if ws.cursorPos < len(ws.availableConfigs) {
		ws.selectedConfig = ws.availableConfigs[ws.cursorPos].ConfigID
	}

	// Adjust the starting level
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) && ws.startLevel < 20 {
		ws.startLevel++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) && ws.startLevel > 0 {
		ws.startLevel--
	}

	// Enter: create a session with the selected preset and start playing
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		sessionID, err := g.createSession(ws.selectedConfig)
		if err != nil {
			ws.errorMsg = fmt.Sprintf("Failed to create session: %v", err)
			return nil
		}
		g.attachSession(sessionID)
		if err := g.startGame(ws.startLevel); err != nil {
			ws.errorMsg = fmt.Sprintf("Failed to start game: %v", err)
			return nil
		}
		g.currentScreen = ScreenGame
	}

	// Escape: back to game screen if a session is attached
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && g.sessionID != "" {
		g.currentScreen = ScreenGame
	}

	return nil
}

// updateGameScreen handles game screen input
func (g *Game) updateGameScreen() error {
	if g.sessionID == "" {
		return nil
	}

	// Poll when the WebSocket is down
	g.stateMutex.RLock()
	polling := g.wsConn == nil
	stale := time.Since(g.lastUpdate) > 250*time.Millisecond
	state := g.gameState
	g.stateMutex.RUnlock()

	if polling && stale {
		if err := g.fetchSnapshot(); err != nil {
			log.Printf("Error fetching board for %s: %v", g.sessionID, err)
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) || inpututil.IsKeyJustPressed(ebiten.KeyA) {
		g.sendCommand(WSCommand{Action: "move", Direction: "left"})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) || inpututil.IsKeyJustPressed(ebiten.KeyD) {
		g.sendCommand(WSCommand{Action: "move", Direction: "right"})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) || inpututil.IsKeyJustPressed(ebiten.KeyW) ||
		inpututil.IsKeyJustPressed(ebiten.KeyX) {
		g.sendCommand(WSCommand{Action: "rotate"})
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.sendCommand(WSCommand{Action: "drop"})
	}

	// Hold down for fast fall, release to restore gravity
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) || inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.sendCommand(WSCommand{Action: "fast_drop", Enabled: true})
	}
	if inpututil.IsKeyJustReleased(ebiten.KeyArrowDown) || inpututil.IsKeyJustReleased(ebiten.KeyS) {
		g.sendCommand(WSCommand{Action: "fast_drop", Enabled: false})
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		if state == "paused" {
			g.sendCommand(WSCommand{Action: "resume"})
		} else {
			g.sendCommand(WSCommand{Action: "pause"})
		}
	}

	// R: start over in the same session
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		if err := g.startGame(0); err != nil {
			log.Printf("Restart failed: %v", err)
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.currentScreen = ScreenWelcome
		g.loadWelcomeData()
	}

	return nil
}

// Draw renders the game
func (g *Game) Draw(screen *ebiten.Image) {
	switch g.currentScreen {
	case ScreenWelcome:
		g.drawWelcomeScreen(screen)
	case ScreenGame:
		g.drawGameScreen(screen)
	}
}

// drawWelcomeScreen renders the preset selection menu
func (g *Game) drawWelcomeScreen(screen *ebiten.Image) {
	ws := g.welcomeScreen

	screen.Fill(color.RGBA{20, 20, 30, 255})

	y := 20
	ebitenutil.DebugPrintAt(screen, "=== VIRODROP ===", 200, y)
	y += 30

	if ws.loading {
		ebitenutil.DebugPrintAt(screen, "Loading...", 20, y)
		return
	}

	if ws.errorMsg != "" {
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("ERROR: %s", ws.errorMsg), 20, y)
		y += 20
	}

	ebitenutil.DebugPrintAt(screen, "Choose a preset:", 20, y)
	y += 20

	if len(ws.availableConfigs) == 0 {
		ebitenutil.DebugPrintAt(screen, "  No presets found. Is the server running?", 20, y)
		y += 20
	} else {
		for i, cfg := range ws.availableConfigs {
			cursor := "  "
			if i == ws.cursorPos {
				cursor = "> "
			}
			line := fmt.Sprintf("%s%s - %s (speed: %s)", cursor, cfg.Name, cfg.Description, cfg.Speed)
			ebitenutil.DebugPrintAt(screen, line, 20, y)
			y += 15
		}
	}

	y += 20
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Starting level: %d  (←/→ to adjust)", ws.startLevel), 20, y)
	y += 20

	if len(ws.availableSessions) > 0 {
		y += 10
		ebitenutil.DebugPrintAt(screen, "Active sessions:", 20, y)
		y += 20
		for _, session := range ws.availableSessions {
			ebitenutil.DebugPrintAt(screen,
				fmt.Sprintf("  %s | %s | %s", session.ID, session.ConfigID, session.State), 20, y)
			y += 15
		}
	}

	y += 20
	ebitenutil.DebugPrintAt(screen, "CONTROLS:", 20, y)
	y += 20
	ebitenutil.DebugPrintAt(screen, "  ↑/↓    - Select preset", 20, y)
	y += 15
	ebitenutil.DebugPrintAt(screen, "  ←/→    - Starting level", 20, y)
	y += 15
	ebitenutil.DebugPrintAt(screen, "  ENTER  - New game", 20, y)
	y += 15
	ebitenutil.DebugPrintAt(screen, "  F5     - Refresh", 20, y)
	y += 15
	if g.sessionID != "" {
		ebitenutil.DebugPrintAt(screen, "  ESC    - Back to game", 20, y)
	}
}

// drawGameScreen renders the bottle, the falling pieces, and the stats panel
func (g *Game) drawGameScreen(screen *ebiten.Image) {
	g.stateMutex.RLock()
	defer g.stateMutex.RUnlock()

	screen.Fill(color.RGBA{15, 15, 25, 255})

	if g.snapshot == nil {
		ebitenutil.DebugPrint(screen, "Loading...")
		return
	}

	snapshot := g.snapshot

	ebitenutil.DebugPrintAt(screen,
		fmt.Sprintf("VIRODROP | session %s | %s", g.sessionID, snapshot.State), 10, 5)

	// Bottle interior
	gridOffsetY := headerHeight
	ebitenutil.DrawRect(screen, 0, float64(gridOffsetY),
		boardWidth*cellSize, boardHeight*cellSize, color.RGBA{30, 30, 45, 255})

	// Committed cells
	for y, row := range snapshot.Cells {
		for x, cell := range row {
			if cell.Kind == "empty" {
				continue
			}
			drawCell(screen, x, y, gridOffsetY, cell.Kind, cell.Color)
		}
	}

	// Falling pieces on top
	for _, piece := range snapshot.Falling {
		for _, cell := range piece.Cells {
			drawCell(screen, cell.X, cell.Y, gridOffsetY, "piece", cell.Color)
		}
	}

	// Stats panel
	statsX := boardWidth*cellSize + 15
	y := gridOffsetY
	stats := snapshot.Stats

	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Score:      %d", stats.Score), statsX, y)
	y += 20
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Level:      %d", stats.Level), statsX, y)
	y += 20
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Infections: %d", stats.InfectionCount), statsX, y)
	y += 20
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Cleared:    %d", stats.LinesCleared), statsX, y)
	y += 20
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Placed:     %d", stats.PiecesPlaced), statsX, y)
	y += 20
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Speed:      %d", stats.SpeedLevel), statsX, y)
	y += 40

	switch snapshot.State {
	case "paused":
		ebitenutil.DebugPrintAt(screen, "*** PAUSED ***", statsX, y)
	case "game_over":
		ebitenutil.DebugPrintAt(screen, "*** GAME OVER ***", statsX, y)
		y += 15
		ebitenutil.DebugPrintAt(screen, "R to play again", statsX, y)
	case "level_complete":
		ebitenutil.DebugPrintAt(screen, "*** LEVEL COMPLETE ***", statsX, y)
	}

	// Footer controls
	ebitenutil.DebugPrintAt(screen,
		"←/→: Move | ↑: Rotate | ↓: Fast | SPACE: Drop | P: Pause | R: Restart | ESC: Menu",
		10, screenHeight-20)
}

// drawCell paints one board cell. Infections render as smaller squares so
// they read differently from capsule halves of the same color.
func drawCell(screen *ebiten.Image, x, y, offsetY int, kind, colorName string) {
	c := cellColor(colorName)

	px := float64(x * cellSize)
	py := float64(y*cellSize + offsetY)

	if kind == "infection" {
		inset := 7.0
		ebitenutil.DrawRect(screen, px+inset, py+inset,
			cellSize-2*inset, cellSize-2*inset, c)
		return
	}

	ebitenutil.DrawRect(screen, px+2, py+2, cellSize-4, cellSize-4, c)
}

// cellColor maps a server color name to a display color
func cellColor(name string) color.RGBA {
	switch name {
	case "red":
		return color.RGBA{230, 70, 70, 255}
	case "yellow":
		return color.RGBA{235, 210, 70, 255}
	case "blue":
		return color.RGBA{80, 130, 240, 255}
	default:
		return color.RGBA{120, 120, 120, 255}
	}
}

// Layout returns the game screen size
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	// Accept an existing session ID as the only argument
	sessionID := ""
	if len(os.Args) > 1 {
		sessionID = os.Args[1]
	}

	game := NewGame(sessionID)

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("ViroDrop")

	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
