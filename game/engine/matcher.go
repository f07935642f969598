package engine

import "sort"

// MinMatchLength is the shortest run of same-colored cells that clears.
const MinMatchLength = 4

// Run is a maximal horizontal or vertical sequence of adjacent same-colored,
// non-empty cells that reached MinMatchLength.
type Run struct {
	Color Color      `json:"color"`
	Cells []Position `json:"cells"`
}

// FreedFragment records the surviving half of a split group: its position at
// the moment of the clear and its color. The engine turns these into new
// falling Fragment entities.
type FreedFragment struct {
	Pos   Position `json:"pos"`
	Color Color    `json:"color"`
}

// MatchResult summarizes one find-clear-gravity cycle.
type MatchResult struct {
	Cleared int
	Runs    []Run
	Freed   []FreedFragment
}

// matchable reports whether a cell participates in run detection.
func matchable(c Cell) bool {
	return c.Kind == CellPiece || c.Kind == CellInfection
}

// FindMatches scans every row left to right and every column top to bottom
// and returns all qualifying runs. The scans are independent: a cell may
// belong to both a horizontal and a vertical run.
func FindMatches(g *Grid) []Run {
	var runs []Run

	for y := 0; y < GridHeight; y++ {
		x := 0
		for x < GridWidth {
			start := g.Get(x, y)
			if !matchable(start) {
				x++
				continue
			}
			end := x + 1
			for end < GridWidth {
				next := g.Get(end, y)
				if !matchable(next) || next.Color != start.Color {
					break
				}
				end++
			}
			if end-x >= MinMatchLength {
				run := Run{Color: start.Color}
				for i := x; i < end; i++ {
					run.Cells = append(run.Cells, Position{X: i, Y: y})
				}
				runs = append(runs, run)
			}
			x = end
		}
	}

	for x := 0; x < GridWidth; x++ {
		y := 0
		for y < GridHeight {
			start := g.Get(x, y)
			if !matchable(start) {
				y++
				continue
			}
			end := y + 1
			for end < GridHeight {
				next := g.Get(x, end)
				if !matchable(next) || next.Color != start.Color {
					break
				}
				end++
			}
			if end-y >= MinMatchLength {
				run := Run{Color: start.Color}
				for i := y; i < end; i++ {
					run.Cells = append(run.Cells, Position{X: x, Y: i})
				}
				runs = append(runs, run)
			}
			y = end
		}
	}

	return runs
}

// ClearMatches empties every cell in the given runs. When a cleared cell
// belonged to a multi-cell group whose other cells are not all in the clear
// set, the surviving cells are recorded as freed fragments and cleared from
// the grid as well; the engine re-spawns them as independent falling
// entities. Returns the total number of cells emptied.
func ClearMatches(g *Grid, runs []Run) (int, []FreedFragment) {
	clearSet := make(map[Position]bool)
	hitGroups := make(map[int64]bool)

	for _, run := range runs {
		for _, pos := range run.Cells {
			clearSet[pos] = true
			cell := g.Get(pos.X, pos.Y)
			if cell.Kind == CellPiece && cell.GroupID != 0 {
				hitGroups[cell.GroupID] = true
			}
		}
	}

	var freed []FreedFragment
	for y := 0; y < GridHeight; y++ {
		for x := 0; x < GridWidth; x++ {
			pos := Position{X: x, Y: y}
			if clearSet[pos] {
				continue
			}
			cell := g.Get(x, y)
			if cell.Kind == CellPiece && hitGroups[cell.GroupID] {
				freed = append(freed, FreedFragment{Pos: pos, Color: cell.Color})
				clearSet[pos] = true
			}
		}
	}

	for pos := range clearSet {
		g.Set(pos.X, pos.Y, emptyCell)
	}

	return len(clearSet), freed
}

// ApplyGravity performs one downward pass: every piece cell (or rigid group
// of cells sharing an identity) with free space below shifts down one row.
// Infection cells never move. Returns whether anything moved; callers repeat
// until false to reach the fixed point.
func ApplyGravity(g *Grid) bool {
	groups := make(map[int64][]Position)
	for y := 0; y < GridHeight; y++ {
		for x := 0; x < GridWidth; x++ {
			cell := g.Get(x, y)
			if cell.Kind == CellPiece {
				groups[cell.GroupID] = append(groups[cell.GroupID], Position{X: x, Y: y})
			}
		}
	}

	// Process the lowest groups first so freed space propagates upward
	// within a single pass.
	ids := make([]int64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bottomRow(groups[ids[i]]) > bottomRow(groups[ids[j]])
	})

	moved := false
	for _, id := range ids {
		cells := groups[id]
		if !groupCanFall(g, cells) {
			continue
		}
		// Lift the whole group, then re-write it one row lower.
		saved := make([]Cell, len(cells))
		for i, pos := range cells {
			saved[i] = g.Get(pos.X, pos.Y)
			g.Set(pos.X, pos.Y, emptyCell)
		}
		for i, pos := range cells {
			g.Set(pos.X, pos.Y+1, saved[i])
		}
		moved = true
	}
	return moved
}

func bottomRow(cells []Position) int {
	max := cells[0].Y
	for _, pos := range cells[1:] {
		if pos.Y > max {
			max = pos.Y
		}
	}
	return max
}

// groupCanFall reports whether every cell of a rigid group has either empty
// space or another cell of the same group directly beneath it.
func groupCanFall(g *Grid, cells []Position) bool {
	member := make(map[Position]bool, len(cells))
	for _, pos := range cells {
		member[pos] = true
	}
	for _, pos := range cells {
		below := Position{X: pos.X, Y: pos.Y + 1}
		if member[below] {
			continue
		}
		if !g.IsEmpty(below.X, below.Y) {
			return false
		}
	}
	return true
}

// ProcessMatches composes one cascade iteration: find runs, clear them, then
// apply gravity to its fixed point. Callers loop until Cleared is zero to
// resolve a full cascade. A grid with no qualifying runs is left untouched.
func ProcessMatches(g *Grid) MatchResult {
	runs := FindMatches(g)
	if len(runs) == 0 {
		return MatchResult{}
	}
	cleared, freed := ClearMatches(g, runs)
	for ApplyGravity(g) {
	}
	return MatchResult{Cleared: cleared, Runs: runs, Freed: freed}
}
