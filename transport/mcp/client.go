package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/virodrop/virodrop/game/engine"
	"github.com/virodrop/virodrop/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"ViroDrop",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`ViroDrop - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Clear every infection cell from the bottle by stacking falling two-color
capsules into runs of four or more same-colored cells.

AVAILABLE TOOLS:
- create_session: Create a new game session
- get_session: Get session details
- list_sessions: List all active sessions
- new_game: Start a game in a session (level, speed)
- game_state: Get the state machine position
- game_board: Render the board as ASCII
- move: Shift the falling piece (left/right/down)
- rotate: Rotate the falling capsule a quarter turn
- drop: Hard-drop the falling piece
- fast_drop: Toggle accelerated falling
- pause / resume: Suspend or continue the game
- list_configs: List available rule presets
- top_scores: Show the high-score table
- game_instructions: Get comprehensive game rules

NOTE: The game simulates in real time while playing. Poll game_board to see
where the piece is before issuing commands.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	sessionProp := map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}

	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional rule preset selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the rule preset to use (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_game",
		Description: "Start a new game in a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
				"level": map[string]interface{}{
					"type":        "integer",
					"description": "Starting level, 0-20 (default 0)",
				},
				"speed": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"low", "medium", "high"},
					"description": "Fall speed (optional, defaults to the preset's speed)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleNewGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current state machine position",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_board",
		Description: "Render the board, falling piece, and stats as ASCII",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameBoard)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Shift the falling piece one cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"left", "right", "down"},
					"description": "Direction to shift",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "rotate",
		Description: "Rotate the falling capsule a quarter turn",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
			},
			Required: []string{"session_id"},
		},
	}, c.handleRotate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "drop",
		Description: "Hard-drop the falling piece to the bottom",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
			},
			Required: []string{"session_id"},
		},
	}, c.handleDrop)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "fast_drop",
		Description: "Toggle accelerated falling for the active piece",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
				"enabled": map[string]interface{}{
					"type":        "boolean",
					"description": "true to fall fast, false to restore normal speed",
				},
			},
			Required: []string{"session_id", "enabled"},
		},
	}, c.handleFastDrop)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "pause",
		Description: "Pause the game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
			},
			Required: []string{"session_id"},
		},
	}, c.handlePause)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "resume",
		Description: "Resume a paused game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProp,
			},
			Required: []string{"session_id"},
		},
	}, c.handleResume)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available rule presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "top_scores",
		Description: "Show the best finished games",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of entries to show (default 10)",
				},
			},
		},
	}, c.handleTopScores)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall("POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\nUse new_game to start playing.\n",
		session.ID, session.ConfigID)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall("GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Config: %s, State: %s, Created: %s)\n",
			s.ID, s.ConfigID, s.State, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s", sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Session: %s\nConfig: %s\nState: %s\nCreated: %s\n",
		session.ID, session.ConfigID, session.State,
		session.CreatedAt.Format("2006-01-02 15:04:05"))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleNewGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	speed, _ := args["speed"].(string)
	level := 0
	if l, ok := args["level"].(float64); ok {
		level = int(l)
	}

	body := map[string]interface{}{
		"level": level,
		"speed": speed,
	}

	var result service.CommandResult
	if err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/start", sessionID), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := fmt.Sprintf("Game started at level %d.\n\n%s", level, formatResult(&result))
	return mcp.NewToolResultText(response), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var response struct {
		State string `json:"state"`
	}
	if err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s/state", sessionID), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("State: %s", response.State)), nil
}

func (c *Client) handleGameBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var snapshot engine.Snapshot
	if err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%s/board", sessionID), nil, &snapshot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSnapshot(&snapshot)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	direction, _ := args["direction"].(string)

	body := map[string]string{"direction": direction}

	var result service.CommandResult
	if err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/move", sessionID), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatResult(&result)), nil
}

func (c *Client) handleRotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.simpleCommand(request, "rotate")
}

func (c *Client) handleDrop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.simpleCommand(request, "drop")
}

func (c *Client) handlePause(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.simpleCommand(request, "pause")
}

func (c *Client) handleResume(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.simpleCommand(request, "resume")
}

// simpleCommand proxies the bodyless player commands.
func (c *Client) simpleCommand(request mcp.CallToolRequest, op string) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	var result service.CommandResult
	if err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/%s", sessionID, op), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatResult(&result)), nil
}

func (c *Client) handleFastDrop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	enabled, _ := args["enabled"].(bool)

	body := map[string]bool{"enabled": enabled}

	var result service.CommandResult
	if err := c.apiCall("POST", fmt.Sprintf("/api/sessions/%s/fast-drop", sessionID), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatResult(&result)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall("GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Presets:\n\n"
	for _, config := range configs {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Speed: %s, Start level: %d\n\n",
			config.Name, config.ConfigID, config.Description, config.Speed, config.StartLevel)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleTopScores(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	limit := 10
	if l, ok := args["limit"].(float64); ok && int(l) > 0 {
		limit = int(l)
	}

	var response struct {
		Count  int                  `json:"count"`
		Scores []service.ScoreEntry `json:"scores"`
	}
	if err := c.apiCall("GET", fmt.Sprintf("/api/scores?limit=%d", limit), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No finished games yet."), nil
	}

	result := "High Scores:\n\n"
	for i, entry := range response.Scores {
		who := entry.Name
		if who == "" {
			who = "session " + entry.SessionID
		}
		result += fmt.Sprintf("%d. %d points (%s, level %d, %d runs cleared)\n",
			i+1, entry.Score, who, entry.Level, entry.Cleared)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `ViroDrop - Complete Instructions

GAME OBJECTIVE:
Clear every infection cell from the 8x16 bottle. Two-color capsules fall
from the top; steer and rotate them so four or more same-colored cells
line up horizontally or vertically.

GAME MECHANICS:
• A capsule occupies two adjacent cells, each with its own color.
• Runs of 4+ matching cells clear. Capsule halves and infections both count.
• When half a capsule clears, the surviving half breaks off and falls.
• Falling debris can land into new runs, chaining cascades. Each cascade
  step multiplies scoring.
• Clearing the last infection completes the level.
• A new capsule spawning into occupied cells ends the game.

BOARD LEGEND (game_board output):
• .       - empty cell
• r y b   - infection cells (red, yellow, blue)
• R Y B   - capsule and fragment cells (red, yellow, blue)
• Falling piece cells are listed separately below the grid.

CONTROLS:
- move left/right: shift the falling piece one column
- move down: nudge it one row closer to the stack
- rotate: quarter turn; horizontal <-> vertical. Near walls the piece
  kicks one cell left to make room when possible.
- drop: slam the piece straight down
- fast_drop: hold-to-fall-fast toggle; send enabled=false to release

SCORING:
- 100 points per cleared cell, multiplied by the cascade step
- 200 bonus points per cleared infection cell
- Level completion bonus scales with the level number

PROGRESSION:
- Levels 0-20. Higher levels seed more infections, deeper in the bottle.
- Every 10 placed capsules the fall speed steps up, to a capped maximum.
- From level 8 two capsules queue per batch, from level 16 three.

STRATEGY FOR AGENTS:
- The game runs in real time while state is "playing". Poll game_board,
  then issue commands; the piece keeps falling between calls.
- Pause before long planning, resume when ready.
- Match capsule colors to the infections below them; vertical stacks of
  one color clear deepest infections fastest.
- Keep the spawn columns (3 and 4, top row) clear or the next capsule
  cannot enter.

SESSION MANAGEMENT:
- Multiple game sessions can run simultaneously
- Each session has a unique 4-character ID
- Sessions maintain independent state and rules`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatResult(result *service.CommandResult) string {
	status := "✗ rejected"
	if result.Applied {
		status = "✓ applied"
	}
	return fmt.Sprintf("%s\nState: %s\nScore: %d | Level: %d | Infections left: %d",
		status, result.State, result.Stats.Score, result.Stats.Level, result.Stats.InfectionCount)
}

// cellChar renders one committed cell: lowercase for infections, uppercase
// for capsule and fragment cells.
func cellChar(cell engine.Cell) string {
	letter := "?"
	switch cell.Color {
	case engine.ColorRed:
		letter = "r"
	case engine.ColorYellow:
		letter = "y"
	case engine.ColorBlue:
		letter = "b"
	}

	switch cell.Kind {
	case engine.CellEmpty:
		return "."
	case engine.CellInfection:
		return letter
	case engine.CellPiece:
		return strings.ToUpper(letter)
	default:
		return "?"
	}
}

func formatSnapshot(snapshot *engine.Snapshot) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("State: %s | Score: %d | Level: %d | Infections left: %d\n",
		snapshot.State, snapshot.Stats.Score, snapshot.Stats.Level, snapshot.Stats.InfectionCount))
	b.WriteString(fmt.Sprintf("Placed: %d | Cleared runs: %d | Speed level: %d\n\n",
		snapshot.Stats.PiecesPlaced, snapshot.Stats.LinesCleared, snapshot.Stats.SpeedLevel))

	// Overlay the falling pieces on the committed grid
	overlay := make(map[[2]int]string)
	for _, piece := range snapshot.Falling {
		for _, cell := range piece.Cells {
			letter := "?"
			switch cell.Color {
			case engine.ColorRed:
				letter = "R"
			case engine.ColorYellow:
				letter = "Y"
			case engine.ColorBlue:
				letter = "B"
			}
			overlay[[2]int{cell.X, cell.Y}] = letter
		}
	}

	for y, row := range snapshot.Cells {
		for x, cell := range row {
			if ch, ok := overlay[[2]int{x, y}]; ok {
				b.WriteString(ch)
				continue
			}
			b.WriteString(cellChar(cell))
		}
		b.WriteString("\n")
	}

	if len(snapshot.Falling) > 0 {
		b.WriteString("\nFalling:\n")
		for _, piece := range snapshot.Falling {
			var cells []string
			for _, cell := range piece.Cells {
				cells = append(cells, fmt.Sprintf("%s(%d,%d)", cell.Color, cell.X, cell.Y))
			}
			b.WriteString(fmt.Sprintf("- %s: %s\n", piece.Kind, strings.Join(cells, " ")))
		}
	}

	switch snapshot.State {
	case engine.StateGameOver:
		b.WriteString("\n💀 GAME OVER")
	case engine.StateLevelComplete:
		b.WriteString("\n🎉 LEVEL COMPLETE!")
	}

	return b.String()
}
