// Package websocket pushes live game updates to connected clients and
// accepts player commands over the same connection.
package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/virodrop/virodrop/game/engine"
	"github.com/virodrop/virodrop/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Message is the envelope for every server-to-client frame.
type Message struct {
	SessionID string            `json:"session_id"`
	Event     string            `json:"event"`
	State     engine.State      `json:"state,omitempty"`
	Stats     *engine.Stats     `json:"stats,omitempty"`
	Snapshot  *engine.Snapshot  `json:"snapshot,omitempty"`
	Sound     engine.SoundEvent `json:"sound,omitempty"`
}

// Command is a client-to-server frame carrying a player action.
type Command struct {
	Action    string `json:"action"`
	Direction string `json:"direction,omitempty"`
	Enabled   bool   `json:"enabled,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub maintains the set of active clients and fans engine notifications out
// to them. It implements service.Broadcaster.
type Hub struct {
	game service.GameService

	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Outbound messages to session subscribers
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client
}

// NewHub creates a new WebSocket hub
func NewHub(game service.GameService) *Hub {
	return &Hub{
		game:       game,
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// BroadcastState sends a state machine transition to session subscribers.
func (h *Hub) BroadcastState(sessionID string, state engine.State) {
	h.send(&Message{SessionID: sessionID, Event: "state", State: state})
}

// BroadcastStats sends updated scoring counters to session subscribers.
func (h *Hub) BroadcastStats(sessionID string, stats engine.Stats) {
	h.send(&Message{SessionID: sessionID, Event: "stats", Stats: &stats})
}

// BroadcastBoard sends a full render snapshot to session subscribers.
func (h *Hub) BroadcastBoard(sessionID string, snapshot *engine.Snapshot) {
	h.send(&Message{SessionID: sessionID, Event: "board", Snapshot: snapshot})
}

// BroadcastSound tells session subscribers to play a sound.
func (h *Hub) BroadcastSound(sessionID string, sound engine.SoundEvent) {
	h.send(&Message{SessionID: sessionID, Event: "sound", Sound: sound})
}

// send queues a message for the hub loop, dropping it when the hub is
// saturated rather than stalling the game loop.
func (h *Hub) send(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		log.Printf("WebSocket hub saturated, dropping %s event for session %s",
			message.Event, message.SessionID)
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	log.Printf("Client registered for session %s (total clients: %d)",
		client.sessionID, len(h.sessions[client.sessionID]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			log.Printf("Client unregistered from session %s (remaining clients: %d)",
				client.sessionID, len(clients))
		}
	}
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal WebSocket message: %v", err)
		return
	}

	if clients, ok := h.sessions[message.SessionID]; ok {
		for client := range clients {
			select {
			case client.send <- data:
			default:
				// Client's send channel is full, close it
				h.unregisterClient(client)
			}
		}
	}
}

// readPump pumps player commands from the WebSocket connection into the
// game service.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			log.Printf("Invalid WebSocket command from session %s: %v", c.sessionID, err)
			continue
		}
		c.dispatch(cmd)
	}
}

// dispatch applies a client command to the session's game.
func (c *Client) dispatch(cmd Command) {
	ctx := context.Background()

	var err error
	switch cmd.Action {
	case "move":
		_, err = c.hub.game.Move(ctx, c.sessionID, cmd.Direction)
	case "rotate":
		_, err = c.hub.game.Rotate(ctx, c.sessionID)
	case "drop":
		_, err = c.hub.game.Drop(ctx, c.sessionID)
	case "fast_drop":
		_, err = c.hub.game.SetFastDrop(ctx, c.sessionID, cmd.Enabled)
	case "pause":
		_, err = c.hub.game.Pause(ctx, c.sessionID)
	case "resume":
		_, err = c.hub.game.Resume(ctx, c.sessionID)
	default:
		log.Printf("Unknown WebSocket action %q from session %s", cmd.Action, c.sessionID)
		return
	}
	if err != nil {
		log.Printf("WebSocket command %q failed for session %s: %v", cmd.Action, c.sessionID, err)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
