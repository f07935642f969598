package main

// Plan is a landing decision for one capsule: how many quarter turns to
// apply, then which column to park the anchor in before dropping.
type Plan struct {
	Rotations int
	TargetX   int
	Score     int
}

// placement is one simulated landing: two cells with their colors.
type placement struct {
	cells [2]ColoredCell
}

// anchorColumn returns the column the engine treats as the capsule's anchor:
// the left cell when horizontal, the bottom cell when vertical.
func anchorColumn(capsule *FallingPiece) int {
	a, b := capsule.Cells[0], capsule.Cells[1]
	if a.Y == b.Y {
		if a.X < b.X {
			return a.X
		}
		return b.X
	}
	return a.X
}

// normalize reduces the observed capsule to its base horizontal reading and
// the number of quarter turns already applied relative to that base. A
// horizontal capsule reads left-to-right; a vertical one is base plus one
// turn, reading bottom-to-top.
func normalize(capsule *FallingPiece) (left, right string, applied int) {
	a, b := capsule.Cells[0], capsule.Cells[1]
	if a.Y == b.Y {
		if a.X > b.X {
			a, b = b, a
		}
		return a.Color, b.Color, 0
	}
	bottom, top := a, b
	if bottom.Y < top.Y {
		bottom, top = top, bottom
	}
	return bottom.Color, top.Color, 1
}

// orientedColors returns the cell layout after r quarter turns from the base
// horizontal reading. The engine swaps colors when returning to horizontal,
// so the cycle has period four.
//
// r=0: horizontal left,right   r=1: vertical bottom,top
// r=2: horizontal right,left   r=3: vertical top,bottom
func orientedColors(left, right string, r int) (horizontal bool, first, second string) {
	switch r % 4 {
	case 0:
		return true, left, right
	case 1:
		return false, left, right
	case 2:
		return true, right, left
	default:
		return false, right, left
	}
}

// PlanPlacement evaluates every reachable column and orientation for the
// capsule and returns the highest scoring landing. Returns nil when the
// board leaves no legal landing.
func PlanPlacement(snapshot *Snapshot, capsule *FallingPiece) *Plan {
	height := len(snapshot.Cells)
	if height == 0 {
		return nil
	}
	width := len(snapshot.Cells[0])

	// restRow[x] is the row a single cell dropped in column x would occupy.
	restRow := make([]int, width)
	for x := 0; x < width; x++ {
		restRow[x] = height - 1
		for y := 0; y < height; y++ {
			if snapshot.Cells[y][x].Kind != "empty" {
				restRow[x] = y - 1
				break
			}
		}
	}

	left, right, applied := normalize(capsule)

	var best *Plan
	for r := 0; r < 4; r++ {
		horizontal, first, second := orientedColors(left, right, r)
		rotations := (r - applied + 4) % 4

		if horizontal {
			for x := 0; x < width-1; x++ {
				y := restRow[x]
				if restRow[x+1] < y {
					y = restRow[x+1]
				}
				if y < 0 {
					continue
				}
				p := placement{cells: [2]ColoredCell{
					{X: x, Y: y, Color: first},
					{X: x + 1, Y: y, Color: second},
				}}
				best = better(best, rotations, x, scorePlacement(snapshot, p))
			}
			continue
		}

		for x := 0; x < width; x++ {
			y := restRow[x]
			if y < 1 {
				continue
			}
			p := placement{cells: [2]ColoredCell{
				{X: x, Y: y, Color: first},
				{X: x, Y: y - 1, Color: second},
			}}
			best = better(best, rotations, x, scorePlacement(snapshot, p))
		}
	}

	return best
}

func better(best *Plan, rotations, targetX, score int) *Plan {
	// Fewer rotations win ties so the piece spends less time in transit.
	if best == nil || score > best.Score ||
		(score == best.Score && rotations < best.Rotations) {
		return &Plan{Rotations: rotations, TargetX: targetX, Score: score}
	}
	return best
}

// scorePlacement rates a simulated landing. Completed runs of four dominate,
// then contact with same-colored infections, then resting depth. Burying an
// infection under a mismatched color is penalized because it blocks the
// column until the cover is cleared.
func scorePlacement(snapshot *Snapshot, p placement) int {
	score := 0

	for _, cell := range p.cells {
		runH := runLength(snapshot, p, cell.X, cell.Y, cell.Color, 1, 0)
		runV := runLength(snapshot, p, cell.X, cell.Y, cell.Color, 0, 1)

		for _, run := range []int{runH, runV} {
			if run >= 4 {
				score += 1000 * run
			} else {
				score += 50 * (run - 1)
			}
		}

		// Contact bonus for touching a same-colored infection.
		for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			nx, ny := cell.X+d[0], cell.Y+d[1]
			neighbor := cellAt(snapshot, p, nx, ny)
			if neighbor != nil && neighbor.Kind == "infection" {
				if neighbor.Color == cell.Color {
					score += 150
				} else {
					score -= 60
				}
			}
		}

		// Prefer deep landings; a tall stack near the spawn row loses games.
		score += cell.Y * 4
	}

	return score
}

// cellAt reads the board with the simulated placement overlaid.
func cellAt(snapshot *Snapshot, p placement, x, y int) *Cell {
	if y < 0 || y >= len(snapshot.Cells) || x < 0 || x >= len(snapshot.Cells[0]) {
		return nil
	}
	for _, cell := range p.cells {
		if cell.X == x && cell.Y == y {
			return &Cell{Kind: "piece", Color: cell.Color}
		}
	}
	return &snapshot.Cells[y][x]
}

// runLength counts the same-colored run through (x, y) along the given axis,
// including committed cells of either kind and the simulated placement.
func runLength(snapshot *Snapshot, p placement, x, y int, color string, dx, dy int) int {
	count := 1
	for _, sign := range []int{1, -1} {
		cx, cy := x+dx*sign, y+dy*sign
		for {
			cell := cellAt(snapshot, p, cx, cy)
			if cell == nil || cell.Kind == "empty" || cell.Color != color {
				break
			}
			count++
			cx += dx * sign
			cy += dy * sign
		}
	}
	return count
}
