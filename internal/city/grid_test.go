package city

import (
	"errors"
	"testing"
)

func newTestGrid(t *testing.T, w, h int) *Grid {
	t.Helper()
	g, err := NewGrid(w, h)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestPlaceBlockClaimsFootprint(t *testing.T) {
	g := newTestGrid(t, 6, 6)
	b, err := New("blk", 1, 1, Spec{Zone: ZoneCommercial, Block: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.PlaceBuilding(b); err != nil {
		t.Fatalf("PlaceBuilding: %v", err)
	}

	claimed := 0
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			c, _ := g.At(x, y)
			if c.BuildingID == "blk" {
				claimed++
				if c.Anchor != (x == 1 && y == 1) {
					t.Errorf("(%d,%d) anchor = %v", x, y, c.Anchor)
				}
			}
		}
	}
	if claimed != 4 {
		t.Errorf("claimed %d cells, want 4", claimed)
	}

	g.ClearBuilding(b)
	for _, p := range b.Cells() {
		if c, _ := g.At(p.X, p.Y); !c.Empty() {
			t.Errorf("(%d,%d) not cleared", p.X, p.Y)
		}
	}
}

func TestPlaceRejectsOverlapAndBounds(t *testing.T) {
	g := newTestGrid(t, 4, 4)
	a, _ := New("a", 0, 0, Spec{Zone: ZoneResidential, Block: true})
	if err := g.PlaceBuilding(a); err != nil {
		t.Fatal(err)
	}

	b, _ := New("b", 1, 1, Spec{Zone: ZoneResidential})
	if err := g.PlaceBuilding(b); !errors.Is(err, ErrInvalidGridState) {
		t.Errorf("overlap err = %v", err)
	}
	edge, _ := New("edge", 3, 3, Spec{Zone: ZoneIndustrial, Block: true})
	if err := g.PlaceBuilding(edge); !errors.Is(err, ErrInvalidGridState) {
		t.Errorf("bounds err = %v", err)
	}
	if err := g.PlaceInfrastructure(0, 1, InfraRoad); !errors.Is(err, ErrInvalidGridState) {
		t.Errorf("road on building err = %v", err)
	}
}

func TestInfrastructureLinks(t *testing.T) {
	g := newTestGrid(t, 3, 3)
	for _, p := range []Point{{1, 0}, {1, 1}, {2, 1}} {
		if err := g.PlaceInfrastructure(p.X, p.Y, InfraRoad); err != nil {
			t.Fatal(err)
		}
	}
	if err := g.PlaceInfrastructure(0, 1, InfraWater); err != nil {
		t.Fatal(err)
	}

	c, _ := g.At(1, 1)
	if want := LinkNorth | LinkEast; c.Links != want {
		t.Errorf("center links = %04b, want %04b", c.Links, want)
	}

	g.RemoveInfrastructure(1, 0)
	c, _ = g.At(1, 1)
	if c.Links != LinkEast {
		t.Errorf("after removal links = %04b, want %04b", c.Links, LinkEast)
	}
	if got := len(g.Infrastructure(InfraRoad)); got != 2 {
		t.Errorf("roads = %d, want 2", got)
	}
}

func TestValidate(t *testing.T) {
	g := newTestGrid(t, 5, 5)
	a, _ := New("a", 0, 0, Spec{Zone: ZoneResidential, Block: true})
	if err := g.PlaceBuilding(a); err != nil {
		t.Fatal(err)
	}
	if err := Validate(g, []*Building{a}); err != nil {
		t.Fatalf("valid grid: %v", err)
	}

	overlap, _ := New("o", 1, 1, Spec{Zone: ZoneResidential})
	if err := Validate(g, []*Building{a, overlap}); !errors.Is(err, ErrInvalidGridState) {
		t.Errorf("overlap err = %v", err)
	}

	off, _ := New("off", -1, 2, Spec{Zone: ZoneResidential})
	if err := Validate(g, []*Building{a, off}); !errors.Is(err, ErrInvalidGridState) {
		t.Errorf("off-grid err = %v", err)
	}

	if err := Validate(g, nil); !errors.Is(err, ErrInvalidGridState) {
		t.Errorf("orphan cells err = %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := newTestGrid(t, 2, 2)
	c := g.Clone()
	if err := c.PlaceInfrastructure(0, 0, InfraPower); err != nil {
		t.Fatal(err)
	}
	if cell, _ := g.At(0, 0); !cell.Empty() {
		t.Error("clone shares cells with original")
	}
}
