package engine

import "testing"

func TestCapsulePositionsHorizontal(t *testing.T) {
	c := NewCapsule(1, 3, 5, ColorRed, ColorBlue)

	cells := c.Positions()
	if len(cells) != 2 {
		t.Fatalf("Expected 2 cells, got %d", len(cells))
	}
	if cells[0].X != 3 || cells[0].Y != 5 || cells[0].Color != ColorRed {
		t.Errorf("Unexpected anchor cell %+v", cells[0])
	}
	if cells[1].X != 4 || cells[1].Y != 5 || cells[1].Color != ColorBlue {
		t.Errorf("Unexpected partner cell %+v", cells[1])
	}
}

func TestCapsuleCanMove(t *testing.T) {
	g := NewGrid()
	g.Set(5, 6, Cell{Kind: CellInfection, Color: ColorRed})

	c := NewCapsule(1, 3, 5, ColorRed, ColorBlue)

	tests := []struct {
		name   string
		dx, dy int
		want   bool
	}{
		{"down into empty", 0, 1, true},
		{"left", -1, 0, true},
		{"diagonal onto infection", 1, 1, false},
		{"past the left wall", -4, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.CanMove(g, tt.dx, tt.dy); got != tt.want {
				t.Errorf("CanMove(%d,%d) = %v, want %v", tt.dx, tt.dy, got, tt.want)
			}
		})
	}
}

func TestCapsuleRotateSwapsColorsBackToHorizontal(t *testing.T) {
	g := NewGrid()
	c := NewCapsule(1, 3, 5, ColorRed, ColorBlue)

	if !c.CanRotate(g) {
		t.Fatal("Expected rotation to be legal on an empty board")
	}
	c.Rotate()
	if c.Orientation() != Vertical {
		t.Fatalf("Expected vertical after first rotation, got %q", c.Orientation())
	}
	cells := c.Positions()
	// Vertical keeps the anchor color at the anchor; partner sits above.
	if cells[0].Color != ColorRed || cells[1].Color != ColorBlue {
		t.Errorf("Expected colors unchanged after horizontal->vertical, got %+v", cells)
	}
	if cells[1].Y != cells[0].Y-1 {
		t.Errorf("Expected partner above anchor, got anchor y=%d partner y=%d", cells[0].Y, cells[1].Y)
	}

	if !c.CanRotate(g) {
		t.Fatal("Expected second rotation to be legal")
	}
	c.Rotate()
	if c.Orientation() != Horizontal {
		t.Fatalf("Expected horizontal after second rotation, got %q", c.Orientation())
	}
	cells = c.Positions()
	// Vertical->horizontal swaps the colors.
	if cells[0].Color != ColorBlue || cells[1].Color != ColorRed {
		t.Errorf("Expected swapped colors after vertical->horizontal, got %+v", cells)
	}
}

func TestCapsuleWallKickAtRightmostColumn(t *testing.T) {
	g := NewGrid()

	// Build a vertical capsule on the rightmost column.
	c := NewCapsule(1, GridWidth-2, 5, ColorRed, ColorBlue)
	if !c.CanRotate(g) {
		t.Fatal("Setup rotation failed")
	}
	c.Rotate()
	c.Move(1, 0)
	if c.Anchor().X != GridWidth-1 || c.Orientation() != Vertical {
		t.Fatalf("Setup produced %+v %q", c.Anchor(), c.Orientation())
	}

	// The natural destination (GridWidth, 5) is out of bounds, so the one
	// column left kick must make the rotation legal.
	if !c.CanRotate(g) {
		t.Fatal("Expected wall kick to allow rotation at the rightmost column")
	}
	c.Rotate()
	if c.Orientation() != Horizontal {
		t.Fatalf("Expected horizontal after kick rotation, got %q", c.Orientation())
	}
	for _, cell := range c.Positions() {
		if !g.InBounds(cell.X, cell.Y) {
			t.Errorf("Cell %+v out of bounds after kick rotation", cell)
		}
	}
}

func TestCapsuleRotationBlocked(t *testing.T) {
	g := NewGrid()

	c := NewCapsule(1, GridWidth-2, 5, ColorRed, ColorBlue)
	if !c.CanRotate(g) {
		t.Fatal("Setup rotation failed")
	}
	c.Rotate()
	c.Move(1, 0) // vertical at the rightmost column

	// Block the kick target; the only remaining kick shifts down and lands a
	// cell out of bounds, so rotation must be rejected.
	g.Set(GridWidth-2, 5, Cell{Kind: CellPiece, Color: ColorYellow, GroupID: 9})

	if c.CanRotate(g) {
		t.Error("Expected rotation to be illegal with every kick blocked")
	}
}

func TestCapsuleRotateOnSpawnRowKicksDown(t *testing.T) {
	g := NewGrid()
	c := NewCapsule(1, 3, 0, ColorRed, ColorBlue)

	// Horizontal on the top row: the partner's natural vertical destination
	// is above the board, so the down kick applies.
	if !c.CanRotate(g) {
		t.Fatal("Expected spawn-row rotation to be legal via the down kick")
	}
	c.Rotate()
	if c.Orientation() != Vertical {
		t.Fatalf("Expected vertical, got %q", c.Orientation())
	}
	for _, cell := range c.Positions() {
		if !g.InBounds(cell.X, cell.Y) {
			t.Errorf("Cell %+v out of bounds after spawn-row rotation", cell)
		}
	}
}

func TestCapsulePlace(t *testing.T) {
	g := NewGrid()
	c := NewCapsule(7, 2, 14, ColorYellow, ColorRed)

	c.Place(g)

	if c.Active() {
		t.Error("Expected capsule to be inactive after Place")
	}
	anchor := g.Get(2, 14)
	partner := g.Get(3, 14)
	if anchor.Kind != CellPiece || anchor.Color != ColorYellow || anchor.GroupID != 7 {
		t.Errorf("Unexpected anchor cell %+v", anchor)
	}
	if partner.Kind != CellPiece || partner.Color != ColorRed || partner.GroupID != 7 {
		t.Errorf("Unexpected partner cell %+v", partner)
	}
}

func TestFragmentCannotRotate(t *testing.T) {
	g := NewGrid()
	f := NewFragment(3, 4, 4, ColorBlue)

	if f.CanRotate(g) {
		t.Error("Expected CanRotate to always be false for fragments")
	}
	before := f.Positions()
	f.Rotate()
	after := f.Positions()
	if before[0] != after[0] {
		t.Errorf("Expected Rotate to be a no-op, got %+v -> %+v", before[0], after[0])
	}
}

func TestFragmentMoveAndPlace(t *testing.T) {
	g := NewGrid()
	f := NewFragment(3, 4, 4, ColorBlue)

	if !f.CanMove(g, 0, 1) {
		t.Fatal("Expected downward move to be legal")
	}
	f.Move(0, 1)
	f.Place(g)

	if f.Active() {
		t.Error("Expected fragment to be inactive after Place")
	}
	cell := g.Get(4, 5)
	if cell.Kind != CellPiece || cell.Color != ColorBlue || cell.GroupID != 3 {
		t.Errorf("Unexpected cell after Place: %+v", cell)
	}
}

func TestFragmentGroupMovesAtomically(t *testing.T) {
	g := NewGrid()
	g.Set(2, 10, Cell{Kind: CellInfection, Color: ColorRed})

	fragments := []*Fragment{
		NewFragment(5, 2, 9, ColorRed),  // directly above the infection
		NewFragment(5, 6, 3, ColorBlue), // free column
	}
	group := NewFragmentGroup(5, fragments)

	// One member is blocked, so the whole cohort is blocked.
	if group.CanMove(g, 0, 1) {
		t.Error("Expected all-or-nothing move test to fail when one member is blocked")
	}
	if !group.CanMove(g, 1, 0) {
		t.Error("Expected sideways move to be legal for both members")
	}

	group.Place(g)
	if group.Active() {
		t.Error("Expected group to be inactive after Place")
	}
	for _, pos := range []Position{{X: 2, Y: 9}, {X: 6, Y: 3}} {
		cell := g.Get(pos.X, pos.Y)
		if cell.Kind != CellPiece || cell.GroupID != 5 {
			t.Errorf("Expected group cell with shared identity at %+v, got %+v", pos, cell)
		}
	}
}
