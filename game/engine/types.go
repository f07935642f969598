package engine

// Color identifies one of the three capsule/infection colors.
type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorBlue   Color = "blue"
)

// Colors lists every playable color, used by spawning and level generation.
var Colors = []Color{ColorRed, ColorYellow, ColorBlue}

// CellKind tags the content of a single grid cell.
type CellKind string

const (
	CellEmpty     CellKind = "empty"
	CellInfection CellKind = "infection"
	CellPiece     CellKind = "piece"

	// CellOutOfBounds is the sentinel returned by Grid.Get for coordinates
	// off the board. It is distinct from CellEmpty so movement checks treat
	// boundary and collision uniformly.
	CellOutOfBounds CellKind = "out_of_bounds"
)

// Cell is one grid unit. Piece cells carry the identity of the capsule or
// fragment group that committed them; infection cells carry only a color.
type Cell struct {
	Kind    CellKind `json:"kind"`
	Color   Color    `json:"color,omitempty"`
	GroupID int64    `json:"group_id,omitempty"`
}

// Position is a 0-indexed grid coordinate, origin top-left, y increasing
// downward.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ColoredCell is a position plus the color occupying it, used to describe the
// cells of an active falling entity.
type ColoredCell struct {
	X     int   `json:"x"`
	Y     int   `json:"y"`
	Color Color `json:"color"`
}

// Direction is a player movement command.
type Direction string

const (
	DirLeft  Direction = "left"
	DirRight Direction = "right"
	DirDown  Direction = "down"
)

// State identifies the engine state machine position.
type State string

const (
	StateMenu          State = "menu"
	StatePlaying       State = "playing"
	StatePaused        State = "paused"
	StateGameOver      State = "game_over"
	StateLevelComplete State = "level_complete"
)

// Stats is an immutable snapshot of the scoring counters, published through
// Notifier.OnStatsChange after every change.
type Stats struct {
	Score          int `json:"score"`
	Level          int `json:"level"`
	InfectionCount int `json:"infection_count"`
	LinesCleared   int `json:"lines_cleared"`
	PiecesPlaced   int `json:"pieces_placed"`
	SpeedLevel     int `json:"speed_level"`
}

// SoundEvent names a sound the host may play in response to engine activity.
type SoundEvent string

const (
	SoundMove          SoundEvent = "move"
	SoundRotate        SoundEvent = "rotate"
	SoundDrop          SoundEvent = "drop"
	SoundPlace         SoundEvent = "place"
	SoundClear         SoundEvent = "clear"
	SoundCascade       SoundEvent = "cascade"
	SoundLevelComplete SoundEvent = "level_complete"
	SoundGameOver      SoundEvent = "game_over"
)

// Notifier receives push notifications from the engine. All methods are
// called synchronously after the phase that caused them, never mid-phase.
type Notifier interface {
	OnStateChange(state State)
	OnStatsChange(stats Stats)
	OnBoardChange()
}

// SoundPlayer is the injected audio capability. The engine never depends on a
// concrete audio backend.
type SoundPlayer interface {
	PlaySound(event SoundEvent)
}

// FallingPiece is a transport-friendly view of one active falling entity.
type FallingPiece struct {
	ID    int64         `json:"id"`
	Kind  string        `json:"kind"` // "capsule", "fragment", "fragment_group"
	Cells []ColoredCell `json:"cells"`
}

// Snapshot captures everything a renderer needs: the committed board, the
// active falling entities, and the current state and stats.
type Snapshot struct {
	Cells   [][]Cell       `json:"cells"`
	Falling []FallingPiece `json:"falling"`
	State   State          `json:"state"`
	Stats   Stats          `json:"stats"`
}
