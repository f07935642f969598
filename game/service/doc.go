// Package service provides the business logic layer for ViroDrop.
//
// The service package implements:
//   - Multi-session game management
//   - Settings management and loading
//   - Command dispatch into per-session engines
//   - Per-session run loops driving the fixed-timestep simulation
//   - High-score collection
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game
// operations. SessionManager handles session creation, retrieval, and
// lifecycle. ConfigManager manages settings loading and validation.
// Broadcaster receives engine notifications for fan-out to connected
// clients, and ScoreStore persists the high-score table.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP)
// and the game engine, providing session isolation and orchestration. Each
// session owns an independent engine instance; while a game is playing, a
// per-session run loop ticks the engine at sixty hertz and the engine's
// notifications are forwarded to the broadcaster. All engine access is
// serialized per session, so the single-threaded core never sees concurrent
// mutation.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	scores, _ := session.NewScoreStore("highscores.json")
//	gameService := service.NewGameService(sessionMgr, configMgr, scores)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameService.StartGame(ctx, info.ID, 0, "medium")
//	gameService.Move(ctx, info.ID, "left")
package service
