// Package websocket provides the real-time transport for ViroDrop.
//
// The websocket package implements:
//   - Push delivery of engine notifications: board snapshots, state machine
//     transitions, scoring updates, and sound cues
//   - Player commands over the same connection: move, rotate, drop,
//     fast_drop, pause, resume
//   - Session-aware fan-out: frames reach only the clients subscribed to the
//     originating session
//   - Connection lifecycle management with ping/pong keepalive
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a dedicated
// read goroutine and write goroutine. The Hub implements the game service's
// Broadcaster interface, so engine callbacks flow straight onto the wire.
//
// Because engine notifications fire from inside a session's game loop, the
// Hub never blocks the caller: frames enter a buffered channel and are
// dropped with a log line when the hub saturates. A client that falls behind
// is disconnected rather than allowed to stall the loop.
//
// Message Protocol:
//
// Frames are JSON-encoded:
//   - Outgoing: {session_id, event, ...} where event is one of "board"
//     (full snapshot), "state", "stats", or "sound"
//   - Incoming: {action, direction, enabled} player commands
//
// Clients subscribe by query parameter (?session=ab12) when establishing the
// connection.
//
// Usage:
//
//	hub := websocket.NewHub(gameService)
//	go hub.Run()
//	gameService.SetBroadcaster(hub)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
