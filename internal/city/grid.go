package city

import "fmt"

// Point is a grid position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Neighbors returns the four orthogonal neighbours in N, E, S, W order.
func (p Point) Neighbors() [4]Point {
	return [4]Point{
		{X: p.X, Y: p.Y - 1},
		{X: p.X + 1, Y: p.Y},
		{X: p.X, Y: p.Y + 1},
		{X: p.X - 1, Y: p.Y},
	}
}

// Links is a bitmask of orthogonal neighbours carrying the same
// infrastructure kind.
type Links uint8

const (
	LinkNorth Links = 1 << iota
	LinkEast
	LinkSouth
	LinkWest
)

// Cell is one grid square. It holds at most one occupant: a building
// (anchor or footprint cell) or an infrastructure tile.
type Cell struct {
	BuildingID string    `json:"building_id,omitempty"`
	Anchor     bool      `json:"anchor,omitempty"`
	Infra      InfraKind `json:"infra,omitempty"`
	Links      Links     `json:"links,omitempty"`
}

// Empty reports whether nothing occupies the cell.
func (c Cell) Empty() bool {
	return c.BuildingID == "" && c.Infra == InfraNone
}

// Grid is a fixed-size row-major array of cells.
type Grid struct {
	Width  int
	Height int
	cells  []Cell
}

// NewGrid creates an empty grid.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid dimensions %dx%d", ErrInvalidConfiguration, width, height)
	}
	return &Grid{
		Width:  width,
		Height: height,
		cells:  make([]Cell, width*height),
	}, nil
}

// InBounds reports whether (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// At returns the cell at (x, y). Out-of-bounds positions return an empty
// cell and false.
func (g *Grid) At(x, y int) (Cell, bool) {
	if !g.InBounds(x, y) {
		return Cell{}, false
	}
	return g.cells[y*g.Width+x], true
}

func (g *Grid) cell(x, y int) *Cell {
	return &g.cells[y*g.Width+x]
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	cells := make([]Cell, len(g.cells))
	copy(cells, g.cells)
	return &Grid{Width: g.Width, Height: g.Height, cells: cells}
}

// CanPlace checks that every cell of the footprint anchored at (x, y) is on
// the grid and empty.
func (g *Grid) CanPlace(x, y int, fp Footprint) error {
	for dy := 0; dy < fp.Height; dy++ {
		for dx := 0; dx < fp.Width; dx++ {
			cx, cy := x+dx, y+dy
			if !g.InBounds(cx, cy) {
				return fmt.Errorf("%w: (%d,%d) is off the %dx%d grid", ErrInvalidGridState, cx, cy, g.Width, g.Height)
			}
			if c := g.cells[cy*g.Width+cx]; !c.Empty() {
				return fmt.Errorf("%w: (%d,%d) is already occupied", ErrInvalidGridState, cx, cy)
			}
		}
	}
	return nil
}

// PlaceBuilding claims the building's footprint.
func (g *Grid) PlaceBuilding(b *Building) error {
	if b.ID == "" {
		return fmt.Errorf("%w: building has no id", ErrInvalidGridState)
	}
	if err := g.CanPlace(b.X, b.Y, b.Footprint()); err != nil {
		return err
	}
	for i, p := range b.Cells() {
		c := g.cell(p.X, p.Y)
		c.BuildingID = b.ID
		c.Anchor = i == 0
	}
	return nil
}

// ClearBuilding releases every cell owned by the building.
func (g *Grid) ClearBuilding(b *Building) {
	for _, p := range b.Cells() {
		if !g.InBounds(p.X, p.Y) {
			continue
		}
		if c := g.cell(p.X, p.Y); c.BuildingID == b.ID {
			*c = Cell{}
		}
	}
}

// PlaceInfrastructure lays one infrastructure tile on an empty cell.
func (g *Grid) PlaceInfrastructure(x, y int, kind InfraKind) error {
	if kind == InfraNone || kind > InfraWater {
		return fmt.Errorf("%w: infrastructure kind %d", ErrInvalidConfiguration, kind)
	}
	if err := g.CanPlace(x, y, Footprint{Width: 1, Height: 1}); err != nil {
		return err
	}
	g.cell(x, y).Infra = kind
	g.relink(Point{X: x, Y: y})
	return nil
}

// RemoveInfrastructure clears an infrastructure tile. It reports whether a
// tile was present.
func (g *Grid) RemoveInfrastructure(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	c := g.cell(x, y)
	if c.Infra == InfraNone {
		return false
	}
	*c = Cell{}
	g.relink(Point{X: x, Y: y})
	return true
}

// relink recomputes adjacency flags for p and its neighbours.
func (g *Grid) relink(p Point) {
	g.updateLinks(p)
	for _, n := range p.Neighbors() {
		g.updateLinks(n)
	}
}

func (g *Grid) updateLinks(p Point) {
	if !g.InBounds(p.X, p.Y) {
		return
	}
	c := g.cell(p.X, p.Y)
	c.Links = 0
	if c.Infra == InfraNone {
		return
	}
	for i, n := range p.Neighbors() {
		if nc, ok := g.At(n.X, n.Y); ok && nc.Infra == c.Infra {
			c.Links |= 1 << i
		}
	}
}

// Infrastructure returns the positions of every tile of the given kind in
// row-major order.
func (g *Grid) Infrastructure(kind InfraKind) []Point {
	var pts []Point
	for i, c := range g.cells {
		if c.Infra == kind {
			pts = append(pts, Point{X: i % g.Width, Y: i / g.Width})
		}
	}
	return pts
}

// Validate checks the grid against a building collection: every footprint
// is on the grid and owned by its building, ids are unique, and no cell
// references a building outside the collection.
func Validate(g *Grid, buildings []*Building) error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", ErrInvalidGridState)
	}
	if len(g.cells) != g.Width*g.Height {
		return fmt.Errorf("%w: %d cells for a %dx%d grid", ErrInvalidGridState, len(g.cells), g.Width, g.Height)
	}

	owned := make(map[string]int, len(buildings))
	for _, b := range buildings {
		if b == nil {
			return fmt.Errorf("%w: nil building", ErrInvalidGridState)
		}
		if _, dup := owned[b.ID]; dup {
			return fmt.Errorf("%w: duplicate building id %q", ErrInvalidGridState, b.ID)
		}
		cells := b.Cells()
		for i, p := range cells {
			c, ok := g.At(p.X, p.Y)
			if !ok {
				return fmt.Errorf("%w: building %s covers (%d,%d) off the grid", ErrInvalidGridState, b.ID, p.X, p.Y)
			}
			if c.BuildingID != b.ID {
				return fmt.Errorf("%w: building %s overlaps (%d,%d) owned by %q", ErrInvalidGridState, b.ID, p.X, p.Y, c.BuildingID)
			}
			if c.Anchor != (i == 0) {
				return fmt.Errorf("%w: building %s has a misplaced anchor at (%d,%d)", ErrInvalidGridState, b.ID, p.X, p.Y)
			}
		}
		owned[b.ID] = len(cells)
	}

	for i, c := range g.cells {
		if c.BuildingID == "" {
			continue
		}
		if c.Infra != InfraNone {
			return fmt.Errorf("%w: cell (%d,%d) holds both a building and infrastructure", ErrInvalidGridState, i%g.Width, i/g.Width)
		}
		if _, ok := owned[c.BuildingID]; !ok {
			return fmt.Errorf("%w: cell (%d,%d) references unknown building %q", ErrInvalidGridState, i%g.Width, i/g.Width, c.BuildingID)
		}
		owned[c.BuildingID]--
	}
	for id, n := range owned {
		if n != 0 {
			return fmt.Errorf("%w: building %s footprint does not match its cells", ErrInvalidGridState, id)
		}
	}
	return nil
}
