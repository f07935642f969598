// Package engine provides the core simulation for ViroDrop, a falling-capsule
// matching puzzle.
//
// The engine package implements the game mechanics including:
//   - The fixed-size cell grid with bounds and occupancy queries
//   - Capsule, fragment, and fragment-group entities with movement and
//     rotation legality
//   - Match detection, clearing, capsule splitting, and post-clear gravity
//   - The fixed-timestep game loop and state machine (menu, playing, paused,
//     game over, level complete)
//
// Core Types:
//
// Engine orchestrates the simulation and exposes the command surface used by
// transports (MovePill, RotatePill, DropPill, SetFastDrop, Pause, Resume).
// Grid owns the cell matrix, Controllable is the closed capability set shared
// by Capsule, Fragment, and FragmentGroup, and Settings defines the tunable
// rules loaded from JSON files.
//
// Usage:
//
//	settings := engine.DefaultSettings()
//	eng, err := engine.NewEngine(settings)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng.StartGame(0, engine.SpeedMedium)
//	eng.Update(1.0 / 60) // called once per frame by the host loop
//	eng.MovePill(engine.DirLeft)
//
// Game Rules:
//
// Two-cell capsules fall into a grid seeded with static infection cells.
// Runs of four or more same-colored cells clear; surviving capsule halves
// break off as independent fragments, gravity compacts the board, and chained
// clears score with an increasing combo multiplier. The level is won when
// every infection cell is cleared, and lost when a spawn position is blocked.
package engine
