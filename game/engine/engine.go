package engine

import (
	"fmt"
	"math/rand"
	"time"
)

// spawnColumns are the anchor columns used for batch spawns, ordered so the
// player-controlled capsule appears center first and extras stay clear of it.
var spawnColumns = []int{3, 0, 6}

// Engine drives the simulation: it owns the grid, the falling set, the state
// machine, and the fixed-timestep loop. It is single-threaded by design; the
// host calls Update once per frame and commands between frames.
type Engine struct {
	settings *Settings
	grid     *Grid
	falling  []Controllable
	state    State
	stats    Stats
	rng      *rand.Rand

	notifier Notifier
	sound    SoundPlayer

	accumulator  float64
	fallTimer    float64
	fallInterval float64
	fastDrop     bool
	speedUps     int
	placedSince  int
	combo        int
	nextID       int64
}

// NewEngine creates an engine in the menu state with the given rule set.
func NewEngine(settings *Settings) (*Engine, error) {
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		settings: settings,
		grid:     NewGrid(),
		state:    StateMenu,
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// SetNotifier installs the push-notification sink. Pass nil to detach.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// SetSoundPlayer installs the injected audio capability. Pass nil to mute.
func (e *Engine) SetSoundPlayer(p SoundPlayer) {
	e.sound = p
}

// State returns the current state machine position.
func (e *Engine) State() State { return e.state }

// Stats returns the current stats snapshot.
func (e *Engine) Stats() Stats { return e.stats }

// Board returns the committed grid. Callers must not mutate it; transports
// should use Snapshot.
func (e *Engine) Board() *Grid { return e.grid }

// Settings returns the rule set the engine was created with.
func (e *Engine) Settings() *Settings { return e.settings }

// FallingPieces returns a view of every active falling entity.
func (e *Engine) FallingPieces() []FallingPiece {
	out := make([]FallingPiece, 0, len(e.falling))
	for _, c := range e.falling {
		out = append(out, FallingPiece{
			ID:    c.ID(),
			Kind:  entityKind(c),
			Cells: c.Positions(),
		})
	}
	return out
}

func entityKind(c Controllable) string {
	switch c.(type) {
	case *Capsule:
		return "capsule"
	case *Fragment:
		return "fragment"
	case *FragmentGroup:
		return "fragment_group"
	default:
		return "unknown"
	}
}

// Snapshot returns a renderer-ready copy of the board, falling set, state,
// and stats.
func (e *Engine) Snapshot() *Snapshot {
	return &Snapshot{
		Cells:   e.grid.Cells(),
		Falling: e.FallingPieces(),
		State:   e.state,
		Stats:   e.stats,
	}
}

// StartGame resets the board and stats, seeds the level, transitions to
// playing, and spawns the first capsules. A blocked spawn position
// immediately transitions to game over, before any update tick.
func (e *Engine) StartGame(level int, speed SpeedSetting) error {
	if level < 0 || level > MaxLevel {
		return fmt.Errorf("start game: level must be between 0 and %d, got %d", MaxLevel, level)
	}
	base, ok := baseFallIntervals[speed]
	if !ok {
		return fmt.Errorf("start game: unknown speed setting %q", speed)
	}

	e.grid.Clear()
	generator := e.settings.Generator
	if generator == nil {
		generator = GenerateInfections
	}
	generator(e.grid, level, e.rng)

	e.falling = nil
	e.fallInterval = base
	e.fastDrop = false
	e.speedUps = 0
	e.placedSince = 0
	e.combo = 0
	e.accumulator = 0
	e.fallTimer = 0
	e.stats = Stats{
		Level:          level,
		InfectionCount: e.grid.CountInfection(),
	}

	e.setState(StatePlaying)
	e.notifyStats()
	e.notifyBoard()

	e.spawn()
	return nil
}

// Update advances the simulation by dt seconds. The delta is clamped and fed
// into an accumulator that drives fixed sub-steps, so fall timing does not
// depend on the host frame rate. Outside the playing state this is a no-op.
func (e *Engine) Update(dt float64) {
	if e.state != StatePlaying {
		return
	}
	if dt < 0 {
		return
	}
	if dt > MaxFrameDelta {
		dt = MaxFrameDelta
	}

	e.accumulator += dt
	for e.accumulator >= FixedStep {
		e.accumulator -= FixedStep
		e.step()
		if e.state != StatePlaying {
			return
		}
	}
}

// step advances one fixed sub-step, applying gravity to every active entity
// when the fall timer expires.
func (e *Engine) step() {
	e.fallTimer += FixedStep

	interval := e.fallInterval
	if e.fastDrop {
		interval = e.settings.FastDropInterval
	}
	if e.fallTimer < interval {
		return
	}
	e.fallTimer = 0
	e.applyFallPass()
}

// applyFallPass moves every falling entity down one row, placing the ones
// that cannot move. Placement decisions are collected during the scan and
// applied afterward, so the falling set is never spliced mid-iteration.
func (e *Engine) applyFallPass() {
	var landed []Controllable
	moved := false
	for _, c := range e.falling {
		if c.CanMove(e.grid, 0, 1) {
			c.Move(0, 1)
			moved = true
		} else {
			landed = append(landed, c)
		}
	}

	if len(landed) == 0 {
		if moved {
			e.notifyBoard()
		}
		return
	}

	placedCapsule := false
	for _, c := range landed {
		c.Place(e.grid)
		if _, ok := c.(*Capsule); ok {
			e.stats.PiecesPlaced++
			e.placedSince++
			placedCapsule = true
		}
	}
	e.removeInactive()
	e.playSound(SoundPlace)
	if placedCapsule {
		e.maybeSpeedUp()
		e.notifyStats()
	}
	e.notifyBoard()

	if len(e.falling) == 0 {
		e.resolve()
	}
}

// removeInactive compacts the falling set after placements.
func (e *Engine) removeInactive() {
	active := e.falling[:0]
	for _, c := range e.falling {
		if c.Active() {
			active = append(active, c)
		}
	}
	e.falling = active
}

// maybeSpeedUp raises the fall speed every SpeedUpEvery placed capsules,
// bounded by MaxSpeedUps and the interval floor. Placements are counted
// since the last speed-up, so a batch pass placing several capsules at once
// cannot step over the threshold.
func (e *Engine) maybeSpeedUp() {
	p := e.settings.Progression
	for e.placedSince >= p.SpeedUpEvery {
		e.placedSince -= p.SpeedUpEvery
		if e.speedUps >= p.MaxSpeedUps {
			continue
		}
		e.fallInterval *= p.SpeedUpFactor
		if e.fallInterval < p.MinFallInterval {
			e.fallInterval = p.MinFallInterval
		}
		e.speedUps++
		e.stats.SpeedLevel = e.speedUps
	}
}

// resolve runs cascade resolution after the falling set drains: repeated
// match-clear-gravity cycles with an increasing combo multiplier. Freed
// fragments re-enter the falling set and postpone further resolution until
// they land. Afterward either the win check or the next spawn fires.
func (e *Engine) resolve() {
	for {
		infectionsBefore := e.grid.CountInfection()
		result := ProcessMatches(e.grid)
		if result.Cleared == 0 {
			break
		}

		e.combo++
		infectionsCleared := infectionsBefore - e.grid.CountInfection()
		e.stats.Score += e.settings.Scoring.CellPoints * result.Cleared * e.combo
		e.stats.Score += e.settings.Scoring.InfectionBonus * infectionsCleared
		e.stats.LinesCleared += len(result.Runs)
		e.stats.InfectionCount = e.grid.CountInfection()

		if e.combo > 1 {
			e.playSound(SoundCascade)
		} else {
			e.playSound(SoundClear)
		}
		e.notifyStats()
		e.notifyBoard()

		if len(result.Freed) > 0 {
			e.releaseFragments(result.Freed)
			if len(e.falling) > 0 {
				return
			}
		}
	}

	if e.stats.InfectionCount == 0 {
		e.stats.Score += e.settings.Scoring.LevelBonus * (e.stats.Level + 1)
		e.notifyStats()
		e.playSound(SoundLevelComplete)
		e.setState(StateLevelComplete)
		return
	}

	e.spawn()
}

// releaseFragments turns freed clear-cycle survivors into new falling
// entities: a lone survivor becomes a Fragment, several become one
// FragmentGroup falling as a rigid unit. Post-clear gravity may have slid a
// grid piece into a freed cell, so each fragment is lifted to the lowest
// empty cell in its column at or above its recorded position. Cells claimed
// by an earlier fragment in the same release count as occupied, so two
// survivors in one column never stack on the same cell; a column full to the
// top crushes the fragment.
func (e *Engine) releaseFragments(freed []FreedFragment) {
	claimed := make(map[Position]bool, len(freed))
	fragments := make([]*Fragment, 0, len(freed))
	for _, f := range freed {
		y := f.Pos.Y
		for y >= 0 && (!e.grid.IsEmpty(f.Pos.X, y) || claimed[Position{X: f.Pos.X, Y: y}]) {
			y--
		}
		if y < 0 {
			continue
		}
		claimed[Position{X: f.Pos.X, Y: y}] = true
		fragments = append(fragments, NewFragment(e.newID(), f.Pos.X, y, f.Color))
	}

	switch len(fragments) {
	case 0:
		return
	case 1:
		e.falling = append(e.falling, fragments[0])
	default:
		id := e.newID()
		for _, f := range fragments {
			f.id = id
		}
		e.falling = append(e.falling, NewFragmentGroup(id, fragments))
	}
	e.notifyBoard()
}

// spawnBatchSize returns how many capsules spawn together at the given
// level.
func spawnBatchSize(level int) int {
	switch {
	case level < 8:
		return 1
	case level < 16:
		return 2
	default:
		return 3
	}
}

// spawn creates the next capsule batch at the top of the board. If any spawn
// position is already occupied the game is over.
func (e *Engine) spawn() {
	e.combo = 0
	e.fallTimer = 0

	count := spawnBatchSize(e.stats.Level)
	batch := make([]*Capsule, 0, count)
	for i := 0; i < count; i++ {
		c := NewCapsule(
			e.newID(),
			spawnColumns[i], 0,
			Colors[e.rng.Intn(len(Colors))],
			Colors[e.rng.Intn(len(Colors))],
		)
		if !c.CanMove(e.grid, 0, 0) {
			e.playSound(SoundGameOver)
			e.setState(StateGameOver)
			return
		}
		batch = append(batch, c)
	}

	for _, c := range batch {
		e.falling = append(e.falling, c)
	}
	e.notifyBoard()
}

func (e *Engine) newID() int64 {
	e.nextID++
	return e.nextID
}

// target returns the entity player commands operate on: the first active
// entity in the falling set. Only one entity is controllable at a time even
// when several are falling.
func (e *Engine) target() Controllable {
	if len(e.falling) == 0 {
		return nil
	}
	return e.falling[0]
}

// MovePill moves the controlled entity one cell in the given direction.
// Illegal moves are silently rejected; returns whether the move happened.
func (e *Engine) MovePill(dir Direction) bool {
	if e.state != StatePlaying {
		return false
	}
	t := e.target()
	if t == nil {
		return false
	}

	dx, dy := 0, 0
	switch dir {
	case DirLeft:
		dx = -1
	case DirRight:
		dx = 1
	case DirDown:
		dy = 1
	default:
		return false
	}

	if !t.CanMove(e.grid, dx, dy) {
		return false
	}
	t.Move(dx, dy)
	e.playSound(SoundMove)
	e.notifyBoard()
	return true
}

// RotatePill rotates the controlled entity if its kick table allows it.
// Fragments never rotate; returns whether the rotation happened.
func (e *Engine) RotatePill() bool {
	if e.state != StatePlaying {
		return false
	}
	t := e.target()
	if t == nil || !t.CanRotate(e.grid) {
		return false
	}
	t.Rotate()
	e.playSound(SoundRotate)
	e.notifyBoard()
	return true
}

// DropPill hard-drops the controlled entity: it moves down while legal.
// Placement happens on the next gravity pass, which is pulled forward so the
// landing commits on the next sub-step.
func (e *Engine) DropPill() bool {
	if e.state != StatePlaying {
		return false
	}
	t := e.target()
	if t == nil {
		return false
	}

	moved := false
	for t.CanMove(e.grid, 0, 1) {
		t.Move(0, 1)
		moved = true
	}
	if moved {
		e.fallTimer = e.fallInterval
		e.playSound(SoundDrop)
		e.notifyBoard()
	}
	return moved
}

// SetFastDrop switches the active fall interval to the fast constant while
// held, reverting to the progressive speed on release.
func (e *Engine) SetFastDrop(on bool) {
	if e.state != StatePlaying {
		return
	}
	e.fastDrop = on
}

// Pause freezes the loop. Commands issued while paused are no-ops except
// Resume.
func (e *Engine) Pause() {
	if e.state != StatePlaying {
		return
	}
	e.setState(StatePaused)
}

// Resume returns a paused game to play.
func (e *Engine) Resume() {
	if e.state != StatePaused {
		return
	}
	e.setState(StatePlaying)
}

func (e *Engine) setState(s State) {
	if e.state == s {
		return
	}
	e.state = s
	if e.notifier != nil {
		e.notifier.OnStateChange(s)
	}
}

func (e *Engine) notifyStats() {
	if e.notifier != nil {
		e.notifier.OnStatsChange(e.stats)
	}
}

func (e *Engine) notifyBoard() {
	if e.notifier != nil {
		e.notifier.OnBoardChange()
	}
}

func (e *Engine) playSound(event SoundEvent) {
	if e.sound != nil {
		e.sound.PlaySound(event)
	}
}
