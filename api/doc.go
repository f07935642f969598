// Package api provides the HTTP REST surface for ViroDrop.
//
// The api package implements:
//   - RESTful endpoints for game operations
//   - Session management endpoints
//   - Settings preset listing, loading, and creation
//   - High-score table access
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session
//   - GET /api/sessions - List all sessions
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Game Operations:
//   - POST /api/sessions/{id}/start - Begin a game {level, speed}
//   - POST /api/sessions/{id}/move - Shift the piece {direction}
//   - POST /api/sessions/{id}/rotate - Rotate the capsule
//   - POST /api/sessions/{id}/drop - Hard drop
//   - POST /api/sessions/{id}/fast-drop - Toggle fast fall {enabled}
//   - POST /api/sessions/{id}/pause - Pause the game
//   - POST /api/sessions/{id}/resume - Resume the game
//   - GET /api/sessions/{id}/state - State machine position
//   - GET /api/sessions/{id}/board - Full render snapshot
//   - GET /api/sessions/{id}/stats - Scoring counters
//
// Configuration:
//   - GET /api/configs - List available presets
//   - GET /api/configs/{id} - Load one preset
//   - POST /api/configs - Save a preset {config_id, settings}
//
// High Scores:
//   - GET /api/scores?limit=10 - Best finished games
//   - POST /api/scores - Sign a finished game {session_id, name}
//
// Request/Response Format:
//
// All endpoints accept and return JSON. Player commands return a
// CommandResult:
//
//	{
//	  "applied": true,
//	  "state": "playing",
//	  "stats": { "score": 1200, "level": 3, ... }
//	}
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{
//	  "error": "error message"
//	}
package api
