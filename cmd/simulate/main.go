// Command simulate runs headless games against the engine. It is the tuning
// tool for rule presets: play a single seeded game with the run subcommand,
// or measure clear rates across many games with bench.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/virodrop/virodrop/game/config"
	"github.com/virodrop/virodrop/game/engine"
)

// maxTicks bounds a single simulated game at one hour of play time.
const maxTicks = 60 * 60 * 60

// gameResult summarizes one finished simulated game.
type gameResult struct {
	State engine.State
	Stats engine.Stats
	Ticks int
}

func main() {
	cmd := &cli.Command{
		Name:  "simulate",
		Usage: "Headless game simulation for preset tuning",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Play one game and print the outcome",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "configs", Value: "configs", Usage: "Preset directory"},
					&cli.StringFlag{Name: "preset", Value: "", Usage: "Preset ID (empty = built-in defaults)"},
					&cli.IntFlag{Name: "level", Value: 0, Usage: "Starting level"},
					&cli.StringFlag{Name: "speed", Value: "", Usage: "Override fall speed (low, medium, high)"},
					&cli.IntFlag{Name: "seed", Value: 1, Usage: "Random seed"},
					&cli.BoolFlag{Name: "v", Usage: "Print the final board"},
				},
				Action: runAction,
			},
			{
				Name:  "bench",
				Usage: "Play many games and report the clear rate",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "configs", Value: "configs", Usage: "Preset directory"},
					&cli.StringFlag{Name: "preset", Value: "", Usage: "Preset ID (empty = built-in defaults)"},
					&cli.IntFlag{Name: "level", Value: 0, Usage: "Starting level"},
					&cli.IntFlag{Name: "games", Value: 100, Usage: "Number of games"},
					&cli.IntFlag{Name: "seed", Value: 1, Usage: "Seed of the first game"},
				},
				Action: benchAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadPreset resolves the settings for a run: a named preset from the config
// directory, or the built-in defaults.
func loadPreset(dir, preset string) (*engine.Settings, error) {
	if preset == "" {
		return engine.DefaultSettings(), nil
	}

	manager, err := config.NewManager(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open preset directory: %w", err)
	}
	settings, err := manager.LoadSettings(preset)
	if err != nil {
		return nil, fmt.Errorf("failed to load preset %q: %w", preset, err)
	}
	return settings, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadPreset(cmd.String("configs"), cmd.String("preset"))
	if err != nil {
		return err
	}
	settings.Seed = int64(cmd.Int("seed"))

	result, snapshot, err := playGame(settings, int(cmd.Int("level")),
		engine.SpeedSetting(cmd.String("speed")), settings.Seed)
	if err != nil {
		return err
	}

	fmt.Printf("Outcome: %s after %d ticks (%.1fs of play)\n",
		result.State, result.Ticks, float64(result.Ticks)/60)
	fmt.Printf("Score: %d | Level: %d | Placed: %d | Cleared runs: %d | Infections left: %d\n",
		result.Stats.Score, result.Stats.Level, result.Stats.PiecesPlaced,
		result.Stats.LinesCleared, result.Stats.InfectionCount)

	if cmd.Bool("v") {
		fmt.Println()
		printBoard(snapshot)
	}
	return nil
}

func benchAction(ctx context.Context, cmd *cli.Command) error {
	settings, err := loadPreset(cmd.String("configs"), cmd.String("preset"))
	if err != nil {
		return err
	}

	games := int(cmd.Int("games"))
	level := int(cmd.Int("level"))
	firstSeed := int64(cmd.Int("seed"))

	cleared := 0
	totalScore := 0
	totalPlaced := 0
	for i := 0; i < games; i++ {
		seed := firstSeed + int64(i)
		s := *settings
		s.Seed = seed

		result, _, err := playGame(&s, level, "", seed)
		if err != nil {
			return fmt.Errorf("game %d (seed %d): %w", i+1, seed, err)
		}
		if result.State == engine.StateLevelComplete {
			cleared++
		}
		totalScore += result.Stats.Score
		totalPlaced += result.Stats.PiecesPlaced
	}

	fmt.Printf("Preset: %s | Level: %d | Games: %d\n", settings.Name, level, games)
	fmt.Printf("Cleared: %d (%.1f%%)\n", cleared, 100*float64(cleared)/float64(games))
	fmt.Printf("Avg score: %.0f | Avg capsules placed: %.1f\n",
		float64(totalScore)/float64(games), float64(totalPlaced)/float64(games))
	return nil
}

// playGame simulates one full game with a random steering policy and returns
// the outcome plus the final board.
func playGame(settings *engine.Settings, level int, speed engine.SpeedSetting, seed int64) (*gameResult, *engine.Snapshot, error) {
	eng, err := engine.NewEngine(settings)
	if err != nil {
		return nil, nil, err
	}

	if speed == "" {
		speed = settings.Speed
	}
	if err := eng.StartGame(level, speed); err != nil {
		return nil, nil, err
	}

	// The policy rng is separate from the engine's so outcomes stay
	// reproducible per seed.
	rng := rand.New(rand.NewSource(seed))

	ticks := 0
	for ; ticks < maxTicks; ticks++ {
		state := eng.State()
		if state == engine.StateGameOver || state == engine.StateLevelComplete {
			break
		}

		steerRandomly(eng, rng)
		eng.Update(engine.FixedStep)
	}

	return &gameResult{
		State: eng.State(),
		Stats: eng.Stats(),
		Ticks: ticks,
	}, eng.Snapshot(), nil
}

// steerRandomly nudges the falling piece a few times per second. It is not a
// good player; it exists to exercise realistic command traffic and produce
// comparable baselines between presets.
func steerRandomly(eng *engine.Engine, rng *rand.Rand) {
	if rng.Intn(10) != 0 {
		return
	}
	switch rng.Intn(5) {
	case 0:
		eng.MovePill(engine.DirLeft)
	case 1:
		eng.MovePill(engine.DirRight)
	case 2:
		eng.MovePill(engine.DirDown)
	case 3:
		eng.RotatePill()
	case 4:
		eng.DropPill()
	}
}

// printBoard renders the final board as text, one character per cell.
func printBoard(snapshot *engine.Snapshot) {
	for _, row := range snapshot.Cells {
		for _, cell := range row {
			switch cell.Kind {
			case engine.CellEmpty:
				fmt.Print(".")
			case engine.CellInfection:
				fmt.Print(string(cell.Color[0]))
			default:
				fmt.Print(string(cell.Color[0] - 'a' + 'A'))
			}
		}
		fmt.Println()
	}
}
