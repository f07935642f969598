package engine

import (
	"fmt"
	"math/rand"
)

// SpeedSetting selects the base fall interval for a game.
type SpeedSetting string

const (
	SpeedLow    SpeedSetting = "low"
	SpeedMedium SpeedSetting = "medium"
	SpeedHigh   SpeedSetting = "high"
)

// Fixed-timestep and progression constants.
const (
	// FixedStep is the sub-step duration in seconds; gravity timing is
	// deterministic regardless of frame-rate jitter.
	FixedStep = 1.0 / 60

	// MaxFrameDelta clamps the per-frame delta to avoid runaway catch-up
	// after a stall.
	MaxFrameDelta = 0.25

	// MaxLevel caps the level parameter accepted by StartGame.
	MaxLevel = 20

	// MaxInfections caps the infection count regardless of level.
	MaxInfections = 84
)

// baseFallIntervals maps each speed setting to its starting fall interval in
// seconds.
var baseFallIntervals = map[SpeedSetting]float64{
	SpeedLow:    0.8,
	SpeedMedium: 0.6,
	SpeedHigh:   0.4,
}

// Generator seeds a cleared grid for the given level. It is injectable so
// configurations and tests can control board setup deterministically.
type Generator func(g *Grid, level int, rng *rand.Rand)

// ScoringSettings holds the point values awarded during play.
type ScoringSettings struct {
	// CellPoints is awarded per cleared cell, multiplied by the cascade
	// combo.
	CellPoints int `json:"cell_points"`
	// InfectionBonus is awarded per cleared infection cell.
	InfectionBonus int `json:"infection_bonus"`
	// LevelBonus is awarded per level number (plus one) on completion.
	LevelBonus int `json:"level_bonus"`
}

// ProgressionSettings controls how the fall speed ramps as capsules are
// placed.
type ProgressionSettings struct {
	// SpeedUpEvery is the number of placed capsules between speed-ups.
	SpeedUpEvery int `json:"speed_up_every"`
	// SpeedUpFactor multiplies the fall interval at each speed-up.
	SpeedUpFactor float64 `json:"speed_up_factor"`
	// MaxSpeedUps bounds the number of speed-ups per game.
	MaxSpeedUps int `json:"max_speed_ups"`
	// MinFallInterval is a hard floor on the fall interval in seconds.
	MinFallInterval float64 `json:"min_fall_interval"`
}

// Settings defines the tunable rules for a game. Board dimensions and the
// match length are engine constants and intentionally absent.
type Settings struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	StartLevel int          `json:"start_level"`
	Speed      SpeedSetting `json:"speed"`

	Scoring     ScoringSettings     `json:"scoring"`
	Progression ProgressionSettings `json:"progression"`

	// FastDropInterval is the fall interval while fast drop is held.
	FastDropInterval float64 `json:"fast_drop_interval"`

	// Seed fixes the random source when non-zero; zero seeds from the clock.
	Seed int64 `json:"seed,omitempty"`

	// Generator overrides the default infection generator when non-nil.
	Generator Generator `json:"-"`
}

// DefaultSettings returns the standard rule set.
func DefaultSettings() *Settings {
	return &Settings{
		Name:        "Classic",
		Description: "Standard rules: medium speed, progressive fall rate",
		StartLevel:  0,
		Speed:       SpeedMedium,
		Scoring: ScoringSettings{
			CellPoints:     100,
			InfectionBonus: 200,
			LevelBonus:     1000,
		},
		Progression: ProgressionSettings{
			SpeedUpEvery:    10,
			SpeedUpFactor:   0.9,
			MaxSpeedUps:     12,
			MinFallInterval: 0.12,
		},
		FastDropInterval: 0.05,
	}
}

// ValidateSettings validates a rule set for correctness and playability.
func ValidateSettings(s *Settings) error {
	if s == nil {
		return fmt.Errorf("settings validation: settings cannot be nil")
	}
	if s.Name == "" {
		return fmt.Errorf("settings validation: name is required")
	}
	if s.StartLevel < 0 || s.StartLevel > MaxLevel {
		return fmt.Errorf("settings validation: start_level must be between 0 and %d, got %d", MaxLevel, s.StartLevel)
	}
	if _, ok := baseFallIntervals[s.Speed]; !ok {
		return fmt.Errorf("settings validation: speed must be one of low, medium, high, got %q", s.Speed)
	}
	if s.Scoring.CellPoints <= 0 {
		return fmt.Errorf("settings validation: scoring.cell_points must be positive, got %d", s.Scoring.CellPoints)
	}
	if s.Scoring.InfectionBonus < 0 {
		return fmt.Errorf("settings validation: scoring.infection_bonus cannot be negative, got %d", s.Scoring.InfectionBonus)
	}
	if s.Scoring.LevelBonus < 0 {
		return fmt.Errorf("settings validation: scoring.level_bonus cannot be negative, got %d", s.Scoring.LevelBonus)
	}
	if s.Progression.SpeedUpEvery <= 0 {
		return fmt.Errorf("settings validation: progression.speed_up_every must be positive, got %d", s.Progression.SpeedUpEvery)
	}
	if s.Progression.SpeedUpFactor <= 0 || s.Progression.SpeedUpFactor >= 1 {
		return fmt.Errorf("settings validation: progression.speed_up_factor must be in (0, 1), got %v", s.Progression.SpeedUpFactor)
	}
	if s.Progression.MaxSpeedUps < 0 {
		return fmt.Errorf("settings validation: progression.max_speed_ups cannot be negative, got %d", s.Progression.MaxSpeedUps)
	}
	if s.Progression.MinFallInterval <= 0 {
		return fmt.Errorf("settings validation: progression.min_fall_interval must be positive, got %v", s.Progression.MinFallInterval)
	}
	if s.FastDropInterval <= 0 {
		return fmt.Errorf("settings validation: fast_drop_interval must be positive, got %v", s.FastDropInterval)
	}
	if s.FastDropInterval > s.Progression.MinFallInterval {
		return fmt.Errorf("settings validation: fast_drop_interval (%v) must not exceed progression.min_fall_interval (%v)",
			s.FastDropInterval, s.Progression.MinFallInterval)
	}
	return nil
}

// InfectionCountForLevel returns how many infection cells a level starts
// with: four per level step, capped at MaxInfections.
func InfectionCountForLevel(level int) int {
	count := (level + 1) * 4
	if count > MaxInfections {
		count = MaxInfections
	}
	return count
}

// infectionRowsForLevel returns how many bottom rows the generator may seed.
// Higher levels reach further up the board, but the top rows always stay
// clear for spawning.
func infectionRowsForLevel(level int) int {
	rows := 10 + level/2
	if rows > GridHeight-4 {
		rows = GridHeight - 4
	}
	return rows
}

// GenerateInfections is the default level generator: it scatters the
// level-scaled infection count across the lower region of the board,
// rejecting any placement that would create an immediate run of three
// same-colored cells. If random scatter cannot reach the quota on a dense
// board, a deterministic sweep fills the remainder, relaxing only to the
// point of never seeding a qualifying match.
func GenerateInfections(g *Grid, level int, rng *rand.Rand) {
	count := InfectionCountForLevel(level)
	rows := infectionRowsForLevel(level)
	top := GridHeight - rows

	placed := 0
	for attempts := 0; placed < count && attempts < 4000; attempts++ {
		x := rng.Intn(GridWidth)
		y := top + rng.Intn(rows)
		if !g.IsEmpty(x, y) {
			continue
		}
		color := Colors[rng.Intn(len(Colors))]
		if wouldRun(g, x, y, color, MinMatchLength-1) {
			continue
		}
		g.Set(x, y, Cell{Kind: CellInfection, Color: color})
		placed++
	}

	if placed < count {
		placed += fillSweep(g, top, count-placed, rng, MinMatchLength-1)
	}
	if placed < count {
		fillSweep(g, top, count-placed, rng, MinMatchLength)
	}
}

// fillSweep walks the allowed region bottom-up and places up to n infections
// using any color that would not complete a run of limit cells. Returns how
// many it placed.
func fillSweep(g *Grid, top, n int, rng *rand.Rand, limit int) int {
	placed := 0
	for y := GridHeight - 1; y >= top && placed < n; y-- {
		for x := 0; x < GridWidth && placed < n; x++ {
			if !g.IsEmpty(x, y) {
				continue
			}
			for _, i := range rng.Perm(len(Colors)) {
				color := Colors[i]
				if wouldRun(g, x, y, color, limit) {
					continue
				}
				g.Set(x, y, Cell{Kind: CellInfection, Color: color})
				placed++
				break
			}
		}
	}
	return placed
}

// wouldRun reports whether placing color at (x, y) would produce a
// horizontal or vertical run of at least n same-colored cells.
func wouldRun(g *Grid, x, y int, color Color, n int) bool {
	count := 1
	for i := x - 1; i >= 0 && sameColor(g.Get(i, y), color); i-- {
		count++
	}
	for i := x + 1; i < GridWidth && sameColor(g.Get(i, y), color); i++ {
		count++
	}
	if count >= n {
		return true
	}

	count = 1
	for i := y - 1; i >= 0 && sameColor(g.Get(x, i), color); i-- {
		count++
	}
	for i := y + 1; i < GridHeight && sameColor(g.Get(x, i), color); i++ {
		count++
	}
	return count >= n
}

func sameColor(c Cell, color Color) bool {
	return matchable(c) && c.Color == color
}
