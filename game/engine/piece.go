package engine

// Orientation describes how a capsule's two cells are laid out.
type Orientation string

const (
	// Horizontal places the partner cell one column right of the anchor.
	Horizontal Orientation = "horizontal"
	// Vertical places the partner cell one row above the anchor.
	Vertical Orientation = "vertical"
)

// Controllable is the capability set shared by every falling entity. The
// implementations form a closed set: Capsule, Fragment, and FragmentGroup.
// Collision tests only consult committed grid state; active entities never
// collide with each other.
type Controllable interface {
	// ID returns the identity the entity commits its cells under.
	ID() int64
	// Positions returns the entity's current cells with their colors.
	Positions() []ColoredCell
	// CanMove reports whether every cell shifted by (dx, dy) lands on an
	// in-bounds, empty grid cell.
	CanMove(g *Grid, dx, dy int) bool
	// Move shifts the entity without legality checks; callers test CanMove.
	Move(dx, dy int)
	// CanRotate reports whether the entity can rotate, trying the kick table
	// for capsules. A successful check arms the following Rotate call.
	CanRotate(g *Grid) bool
	// Rotate applies the rotation validated by the preceding CanRotate.
	Rotate()
	// Place writes the entity's cells into the grid tagged with its identity
	// and marks it inactive. This is the only way falling entities mutate the
	// grid.
	Place(g *Grid)
	// Active reports whether the entity is still falling.
	Active() bool
}

// rotationKicks is the offset table tried in order when the natural rotation
// destination is blocked: in place, one column left, one row down. The down
// kick lets a capsule on the spawn row rotate to vertical.
var rotationKicks = []Position{
	{X: 0, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
}

// Capsule is the two-cell player-controlled falling unit. Colors[0] belongs
// to the anchor cell, Colors[1] to the partner.
type Capsule struct {
	id          int64
	anchor      Position
	orientation Orientation
	colors      [2]Color
	active      bool

	// kick chosen by the last successful CanRotate, applied by Rotate.
	kick Position
}

// NewCapsule creates an active horizontal capsule anchored at (x, y).
func NewCapsule(id int64, x, y int, anchorColor, partnerColor Color) *Capsule {
	return &Capsule{
		id:          id,
		anchor:      Position{X: x, Y: y},
		orientation: Horizontal,
		colors:      [2]Color{anchorColor, partnerColor},
		active:      true,
	}
}

// ID returns the capsule's commit identity.
func (c *Capsule) ID() int64 { return c.id }

// Active reports whether the capsule is still falling.
func (c *Capsule) Active() bool { return c.active }

// Orientation returns the capsule's current orientation.
func (c *Capsule) Orientation() Orientation { return c.orientation }

// Anchor returns the capsule's anchor position.
func (c *Capsule) Anchor() Position { return c.anchor }

func (c *Capsule) partner() Position {
	if c.orientation == Horizontal {
		return Position{X: c.anchor.X + 1, Y: c.anchor.Y}
	}
	return Position{X: c.anchor.X, Y: c.anchor.Y - 1}
}

// Positions returns the anchor and partner cells with their colors.
func (c *Capsule) Positions() []ColoredCell {
	p := c.partner()
	return []ColoredCell{
		{X: c.anchor.X, Y: c.anchor.Y, Color: c.colors[0]},
		{X: p.X, Y: p.Y, Color: c.colors[1]},
	}
}

// CanMove reports whether both cells shifted by (dx, dy) are free.
func (c *Capsule) CanMove(g *Grid, dx, dy int) bool {
	for _, cell := range c.Positions() {
		if !g.IsEmpty(cell.X+dx, cell.Y+dy) {
			return false
		}
	}
	return true
}

// Move shifts the capsule by (dx, dy).
func (c *Capsule) Move(dx, dy int) {
	c.anchor.X += dx
	c.anchor.Y += dy
}

// rotatedCells returns the cells the capsule would occupy after rotating with
// the given kick offset applied to the anchor.
func (c *Capsule) rotatedCells(kick Position) [2]Position {
	anchor := Position{X: c.anchor.X + kick.X, Y: c.anchor.Y + kick.Y}
	if c.orientation == Horizontal {
		// Becomes vertical: partner moves above the anchor.
		return [2]Position{anchor, {X: anchor.X, Y: anchor.Y - 1}}
	}
	// Becomes horizontal: partner moves to the anchor's right.
	return [2]Position{anchor, {X: anchor.X + 1, Y: anchor.Y}}
}

// CanRotate tries the kick table and reports whether any offset yields a
// legal rotation. The first legal kick is remembered for Rotate.
func (c *Capsule) CanRotate(g *Grid) bool {
	for _, kick := range rotationKicks {
		cells := c.rotatedCells(kick)
		if g.IsEmpty(cells[0].X, cells[0].Y) && g.IsEmpty(cells[1].X, cells[1].Y) {
			c.kick = kick
			return true
		}
	}
	return false
}

// Rotate toggles the orientation using the kick armed by CanRotate. Rotating
// from vertical to horizontal swaps the two colors, preserving the
// anchor/partner color convention.
func (c *Capsule) Rotate() {
	c.anchor.X += c.kick.X
	c.anchor.Y += c.kick.Y
	if c.orientation == Horizontal {
		c.orientation = Vertical
	} else {
		c.orientation = Horizontal
		c.colors[0], c.colors[1] = c.colors[1], c.colors[0]
	}
	c.kick = Position{}
}

// Place commits both cells to the grid under the capsule's identity and
// deactivates it.
func (c *Capsule) Place(g *Grid) {
	for _, cell := range c.Positions() {
		g.Set(cell.X, cell.Y, Cell{Kind: CellPiece, Color: cell.Color, GroupID: c.id})
	}
	c.active = false
}

// Fragment is a single-cell piece: the surviving half of a capsule whose
// partner was cleared by a match. Fragments cannot rotate.
type Fragment struct {
	id     int64
	pos    Position
	color  Color
	active bool
}

// NewFragment creates an active fragment at (x, y).
func NewFragment(id int64, x, y int, color Color) *Fragment {
	return &Fragment{
		id:     id,
		pos:    Position{X: x, Y: y},
		color:  color,
		active: true,
	}
}

// ID returns the fragment's commit identity.
func (f *Fragment) ID() int64 { return f.id }

// Active reports whether the fragment is still falling.
func (f *Fragment) Active() bool { return f.active }

// Positions returns the fragment's single cell.
func (f *Fragment) Positions() []ColoredCell {
	return []ColoredCell{{X: f.pos.X, Y: f.pos.Y, Color: f.color}}
}

// CanMove reports whether the shifted cell is free.
func (f *Fragment) CanMove(g *Grid, dx, dy int) bool {
	return g.IsEmpty(f.pos.X+dx, f.pos.Y+dy)
}

// Move shifts the fragment by (dx, dy).
func (f *Fragment) Move(dx, dy int) {
	f.pos.X += dx
	f.pos.Y += dy
}

// CanRotate always reports false; fragments have no orientation.
func (f *Fragment) CanRotate(g *Grid) bool { return false }

// Rotate is a no-op for fragments.
func (f *Fragment) Rotate() {}

// Place commits the fragment's cell and deactivates it.
func (f *Fragment) Place(g *Grid) {
	g.Set(f.pos.X, f.pos.Y, Cell{Kind: CellPiece, Color: f.color, GroupID: f.id})
	f.active = false
}

// FragmentGroup owns fragments freed by the same clear cycle. The cohort
// tests, moves, and places atomically under one commit identity; each member
// keeps its own color and position.
type FragmentGroup struct {
	id        int64
	fragments []*Fragment
	active    bool
}

// NewFragmentGroup creates an active group over the given fragments. The
// members adopt the group's identity when placed.
func NewFragmentGroup(id int64, fragments []*Fragment) *FragmentGroup {
	return &FragmentGroup{
		id:        id,
		fragments: fragments,
		active:    true,
	}
}

// ID returns the group's shared commit identity.
func (fg *FragmentGroup) ID() int64 { return fg.id }

// Active reports whether the group is still falling.
func (fg *FragmentGroup) Active() bool { return fg.active }

// Fragments returns the group's members.
func (fg *FragmentGroup) Fragments() []*Fragment { return fg.fragments }

// Positions returns every member cell.
func (fg *FragmentGroup) Positions() []ColoredCell {
	cells := make([]ColoredCell, 0, len(fg.fragments))
	for _, f := range fg.fragments {
		cells = append(cells, f.Positions()...)
	}
	return cells
}

// CanMove reports whether every member can shift by (dx, dy); the test is
// all-or-nothing.
func (fg *FragmentGroup) CanMove(g *Grid, dx, dy int) bool {
	for _, f := range fg.fragments {
		if !f.CanMove(g, dx, dy) {
			return false
		}
	}
	return true
}

// Move shifts every member by (dx, dy).
func (fg *FragmentGroup) Move(dx, dy int) {
	for _, f := range fg.fragments {
		f.Move(dx, dy)
	}
}

// CanRotate always reports false; fragment groups have no orientation.
func (fg *FragmentGroup) CanRotate(g *Grid) bool { return false }

// Rotate is a no-op for fragment groups.
func (fg *FragmentGroup) Rotate() {}

// Place commits every member cell under the group identity and deactivates
// the group.
func (fg *FragmentGroup) Place(g *Grid) {
	for _, f := range fg.fragments {
		for _, cell := range f.Positions() {
			g.Set(cell.X, cell.Y, Cell{Kind: CellPiece, Color: cell.Color, GroupID: fg.id})
		}
		f.active = false
	}
	fg.active = false
}
