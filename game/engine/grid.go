package engine

// Board dimensions are fixed; there is no runtime configuration of the grid
// size.
const (
	GridWidth  = 8
	GridHeight = 16
)

var (
	emptyCell       = Cell{Kind: CellEmpty}
	outOfBoundsCell = Cell{Kind: CellOutOfBounds}
)

// Grid owns the committed cell matrix. Active falling entities are not part
// of the grid; they are written in via Controllable.Place when they land.
type Grid struct {
	cells [GridHeight][GridWidth]Cell
}

// NewGrid returns an empty grid.
func NewGrid() *Grid {
	g := &Grid{}
	g.Clear()
	return g
}

// InBounds reports whether (x, y) is a valid board coordinate.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < GridWidth && y >= 0 && y < GridHeight
}

// Get returns the cell at (x, y), or the out-of-bounds sentinel for
// coordinates off the board.
func (g *Grid) Get(x, y int) Cell {
	if !g.InBounds(x, y) {
		return outOfBoundsCell
	}
	return g.cells[y][x]
}

// Set writes the cell at (x, y). Out-of-bounds writes are ignored.
func (g *Grid) Set(x, y int, c Cell) {
	if !g.InBounds(x, y) {
		return
	}
	g.cells[y][x] = c
}

// IsEmpty reports whether (x, y) is in bounds and unoccupied.
func (g *Grid) IsEmpty(x, y int) bool {
	return g.Get(x, y).Kind == CellEmpty
}

// CountInfection returns the number of infection cells remaining.
func (g *Grid) CountInfection() int {
	count := 0
	for y := 0; y < GridHeight; y++ {
		for x := 0; x < GridWidth; x++ {
			if g.cells[y][x].Kind == CellInfection {
				count++
			}
		}
	}
	return count
}

// Clear resets every cell to empty.
func (g *Grid) Clear() {
	for y := 0; y < GridHeight; y++ {
		for x := 0; x < GridWidth; x++ {
			g.cells[y][x] = emptyCell
		}
	}
}

// Cells returns a row-major copy of the board for transports and renderers.
func (g *Grid) Cells() [][]Cell {
	out := make([][]Cell, GridHeight)
	for y := 0; y < GridHeight; y++ {
		row := make([]Cell, GridWidth)
		copy(row, g.cells[y][:])
		out[y] = row
	}
	return out
}
