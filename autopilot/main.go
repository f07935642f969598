// Command autopilot plays ViroDrop against a running server over the REST
// API. It plans a landing spot for every capsule with a greedy placement
// score and steers the piece there with rotate and move commands.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
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
}

// Snapshot mirrors the full render state from the server
type Snapshot struct {
	Cells   [][]Cell       `json:"cells"`
	Falling []FallingPiece `json:"falling"`
	State   string         `json:"state"`
	Stats   Stats          `json:"stats"`
}

// CommandResult mirrors the server's response to a player command
type CommandResult struct {
	Applied bool   `json:"applied"`
	State   string `json:"state"`
	Stats   Stats  `json:"stats"`
}

type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) CreateSession(configID string) error {
	var reqBody []byte
	var err error

	if configID != "" {
		reqBody, err = json.Marshal(map[string]string{"config_id": configID})
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	resp, err := c.client.Post(c.baseURL+"/api/sessions", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("create session failed: %s - %s", resp.Status, string(body))
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return fmt.Errorf("parse session response: %w", err)
	}

	c.sessionID = session.ID
	return nil
}

func (c *Client) StartGame(level int) error {
	body, _ := json.Marshal(map[string]interface{}{"level": level})
	url := fmt.Sprintf("%s/api/sessions/%s/start", c.baseURL, c.sessionID)

	resp, err := c.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("start game failed: %s - %s", resp.Status, string(body))
	}
	return nil
}

func (c *Client) GetBoard() (*Snapshot, error) {
	url := fmt.Sprintf("%s/api/sessions/%s/board", c.baseURL, c.sessionID)
	resp, err := c.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	defer resp.Body.Close()

	var snapshot Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("parse board: %w", err)
	}

	return &snapshot, nil
}

func (c *Client) Move(direction string) (*CommandResult, error) {
	body, _ := json.Marshal(map[string]string{"direction": direction})
	return c.command("move", body)
}

func (c *Client) Rotate() (*CommandResult, error) {
	return c.command("rotate", nil)
}

func (c *Client) Drop() (*CommandResult, error) {
	return c.command("drop", nil)
}

func (c *Client) command(op string, body []byte) (*CommandResult, error) {
	url := fmt.Sprintf("%s/api/sessions/%s/%s", c.baseURL, c.sessionID, op)
	resp, err := c.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	var result CommandResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", op, err)
	}

	return &result, nil
}

// findCapsule returns the steerable capsule, or nil when none is falling.
func findCapsule(snapshot *Snapshot) *FallingPiece {
	for i := range snapshot.Falling {
		if snapshot.Falling[i].Kind == "capsule" && len(snapshot.Falling[i].Cells) == 2 {
			return &snapshot.Falling[i]
		}
	}
	return nil
}

// steer executes a plan for the observed capsule: rotations first, then
// horizontal shifts toward the target column, then the drop.
func steer(client *Client, snapshot *Snapshot, plan *Plan, verbose bool) error {
	for i := 0; i < plan.Rotations; i++ {
		if _, err := client.Rotate(); err != nil {
			return err
		}
	}

	// Re-observe after rotating: kicks can shift the anchor column.
	snapshot, err := client.GetBoard()
	if err != nil {
		return err
	}
	capsule := findCapsule(snapshot)
	if capsule == nil {
		return nil // already landed
	}

	current := anchorColumn(capsule)
	for current != plan.TargetX {
		direction := "right"
		if current > plan.TargetX {
			direction = "left"
		}
		result, err := client.Move(direction)
		if err != nil {
			return err
		}
		if !result.Applied {
			if verbose {
				log.Printf("Move %s rejected at column %d, dropping here", direction, current)
			}
			break
		}
		if direction == "right" {
			current++
		} else {
			current--
		}
	}

	_, err = client.Drop()
	return err
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	configID := flag.String("config", "", "Rule preset ID (empty = server default)")
	level := flag.Int("level", 0, "Starting level")
	games := flag.Int("games", 1, "Number of games to play")
	delayMs := flag.Int("delay", 50, "Delay between board polls in milliseconds")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	log.Printf("Connecting to game server at %s", *serverURL)
	client := NewClient(*serverURL)

	if err := client.CreateSession(*configID); err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	log.Printf("✨ Session created: %s", client.sessionID)

	wins := 0
	for gameNum := 1; gameNum <= *games; gameNum++ {
		log.Printf("\n=== 🎮 Game %d/%d (level %d) ===", gameNum, *games, *level)

		if err := client.StartGame(*level); err != nil {
			log.Fatalf("Failed to start game: %v", err)
		}

		var plannedID int64 = -1
		for {
			time.Sleep(time.Duration(*delayMs) * time.Millisecond)

			snapshot, err := client.GetBoard()
			if err != nil {
				log.Printf("Board fetch failed: %v", err)
				continue
			}

			if snapshot.State == "game_over" || snapshot.State == "level_complete" {
				stats := snapshot.Stats
				if snapshot.State == "level_complete" {
					wins++
					log.Printf("🎉 LEVEL COMPLETE! Score=%d Placed=%d Cleared=%d",
						stats.Score, stats.PiecesPlaced, stats.LinesCleared)
				} else {
					log.Printf("💀 Game over. Score=%d Infections left=%d Placed=%d",
						stats.Score, stats.InfectionCount, stats.PiecesPlaced)
				}
				break
			}

			if snapshot.State != "playing" {
				continue
			}

			capsule := findCapsule(snapshot)
			if capsule == nil || capsule.ID == plannedID {
				continue // waiting for the next capsule or for debris to settle
			}

			plan := PlanPlacement(snapshot, capsule)
			if plan == nil {
				continue
			}
			plannedID = capsule.ID

			if *verbose {
				log.Printf("Capsule %d: %d rotation(s), column %d, score %d",
					capsule.ID, plan.Rotations, plan.TargetX, plan.Score)
			}

			if err := steer(client, snapshot, plan, *verbose); err != nil {
				log.Printf("Steering failed: %v", err)
			}
		}
	}

	log.Printf("\nFinished: %d/%d level(s) cleared. Session: %s", wins, *games, client.sessionID)
	if wins == 0 {
		os.Exit(1)
	}
}
