// Package mcp provides the Model Context Protocol interface for ViroDrop.
//
// The package implements a thin MCP client that proxies every tool call to
// the REST API, so agents and browser players always share the same game
// sessions and the same rules.
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - create_session: Create a new game session with preset selection
//   - get_session: Get specific session details
//   - list_sessions: List all active sessions
//   - new_game: Start a game at a chosen level and speed
//   - game_state: Get the state machine position
//   - game_board: Render the board, falling piece, and stats as ASCII
//   - move: Shift the falling piece left, right, or down
//   - rotate: Rotate the falling capsule a quarter turn
//   - drop: Hard-drop the falling piece
//   - fast_drop: Toggle accelerated falling
//   - pause, resume: Suspend and continue the simulation
//   - list_configs: List available rule presets
//   - top_scores: Show the high-score table
//   - game_instructions: Get comprehensive game rules
//
// Real-time play:
//
// Unlike turn-based MCP games, ViroDrop keeps simulating while the state is
// "playing". Agents should poll game_board, pause while planning, and treat
// every command result's state and stats as the freshest view available.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
