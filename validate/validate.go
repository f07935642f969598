// Command validate checks the rule preset JSON files in the ./configs
// directory. It checks:
//   - JSON structure against the settings schema
//   - Every rule the engine itself enforces (speed, scoring, progression)
//   - Playability heuristics: how fast a game can get after every speed-up,
//     and whether fast drop actually outpaces normal gravity
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/virodrop/virodrop/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// baseIntervals mirrors the engine's speed table for the playability report.
var baseIntervals = map[engine.SpeedSetting]float64{
	engine.SpeedLow:    0.8,
	engine.SpeedMedium: 0.6,
	engine.SpeedHigh:   0.4,
}

// validatePreset loads and validates a single preset JSON file. Structural
// problems and engine rule violations mark the file invalid; the playability
// analysis only produces informational lines and warnings.
func validatePreset(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	// Files are deltas over the defaults, the same way the server loads them.
	settings := engine.DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := engine.ValidateSettings(settings); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	// Playability analysis.
	base := baseIntervals[settings.Speed]
	final := base
	for i := 0; i < settings.Progression.MaxSpeedUps; i++ {
		final *= settings.Progression.SpeedUpFactor
		if final < settings.Progression.MinFallInterval {
			final = settings.Progression.MinFallInterval
			break
		}
	}

	result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", settings.Name))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Speed: %s (%.2fs per row)", settings.Speed, base))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Start level: %d (%d infections)",
		settings.StartLevel, engine.InfectionCountForLevel(settings.StartLevel)))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Scoring: %d/cell, %d/infection, %d/level",
		settings.Scoring.CellPoints, settings.Scoring.InfectionBonus, settings.Scoring.LevelBonus))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Fastest fall after %d speed-ups: %.3fs per row",
		settings.Progression.MaxSpeedUps, final))

	if settings.FastDropInterval >= final {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"⚠ fast drop (%.3fs) is no faster than end-game gravity (%.3fs)",
			settings.FastDropInterval, final))
	}
	if final < engine.FixedStep {
		result.Errors = append(result.Errors, fmt.Sprintf(
			"⚠ fastest interval %.4fs is below one simulation step (%.4fs); gravity saturates",
			final, engine.FixedStep))
	}

	return result
}

// main scans the preset directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are
// invalid.
func main() {
	configDir := flag.String("configs", "configs", "Preset directory to validate")
	flag.Parse()

	files, err := filepath.Glob(filepath.Join(*configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding preset files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No preset files found in %s\n", *configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validatePreset(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All presets are valid!")
	} else {
		fmt.Println("❌ Some presets have errors")
		os.Exit(1)
	}
}
