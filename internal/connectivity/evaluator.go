// Package connectivity decides which buildings are served by road, power,
// and water infrastructure.
//
// Road service is single-hop adjacency: a cell is served when it is a road
// tile or orthogonally touches one. Power and water are range based: a cell
// is served when it lies within Chebyshev distance of a source. A building
// is served when any cell of its footprint is served.
package connectivity

import (
	"github.com/talgya/cityscape/internal/city"
)

// LineRange is the reach in cells of a power-line or water-pipe tile.
const LineRange = 2

// Links is the connectivity of one building.
type Links struct {
	HasRoad  bool `json:"has_road"`
	HasPower bool `json:"has_power"`
	HasWater bool `json:"has_water"`
}

// Coverage holds one served mask per infrastructure kind, row-major.
type Coverage struct {
	Width  int
	Height int
	Road   []bool
	Power  []bool
	Water  []bool
}

// Served reports whether (x, y) is served by the given kind.
func (c *Coverage) Served(kind city.InfraKind, x, y int) bool {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return false
	}
	i := y*c.Width + x
	switch kind {
	case city.InfraRoad:
		return c.Road[i]
	case city.InfraPower:
		return c.Power[i]
	case city.InfraWater:
		return c.Water[i]
	}
	return false
}

// Result maps building ID to its connectivity.
type Result map[string]Links

// Evaluate validates the grid against the building collection and computes
// per-building connectivity. It is a pure function of its inputs.
func Evaluate(g *city.Grid, buildings []*city.Building) (Result, error) {
	if err := city.Validate(g, buildings); err != nil {
		return nil, err
	}
	cov := NewCoverage(g, buildings)

	res := make(Result, len(buildings))
	for _, b := range buildings {
		var l Links
		for _, p := range b.Cells() {
			l.HasRoad = l.HasRoad || cov.Served(city.InfraRoad, p.X, p.Y)
			l.HasPower = l.HasPower || cov.Served(city.InfraPower, p.X, p.Y)
			l.HasWater = l.HasWater || cov.Served(city.InfraWater, p.X, p.Y)
		}
		res[b.ID] = l
	}
	return res, nil
}

// NewCoverage computes the served masks. The caller must have validated the
// grid against the buildings.
func NewCoverage(g *city.Grid, buildings []*city.Building) *Coverage {
	n := g.Width * g.Height
	cov := &Coverage{
		Width:  g.Width,
		Height: g.Height,
		Road:   make([]bool, n),
		Power:  make([]bool, n),
		Water:  make([]bool, n),
	}

	for _, p := range g.Infrastructure(city.InfraRoad) {
		cov.mark(cov.Road, p.X, p.Y)
		for _, nb := range p.Neighbors() {
			cov.mark(cov.Road, nb.X, nb.Y)
		}
	}
	for _, p := range g.Infrastructure(city.InfraPower) {
		cov.fill(cov.Power, p, LineRange)
	}
	for _, p := range g.Infrastructure(city.InfraWater) {
		cov.fill(cov.Water, p, LineRange)
	}
	for _, b := range buildings {
		if b.Kind() != city.KindPowerPlant {
			continue
		}
		r := b.Stats().ServiceRange
		for _, p := range b.Cells() {
			cov.fill(cov.Power, p, r)
		}
	}
	return cov
}

func (c *Coverage) mark(mask []bool, x, y int) {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return
	}
	mask[y*c.Width+x] = true
}

// fill marks every cell within Chebyshev distance r of center.
func (c *Coverage) fill(mask []bool, center city.Point, r int) {
	x0, x1 := max(center.X-r, 0), min(center.X+r, c.Width-1)
	y0, y1 := max(center.Y-r, 0), min(center.Y+r, c.Height-1)
	for y := y0; y <= y1; y++ {
		row := mask[y*c.Width : (y+1)*c.Width]
		for x := x0; x <= x1; x++ {
			row[x] = true
		}
	}
}

// WithinRange reports whether any cell of the footprint of b lies within
// Chebyshev distance r of any cell of the footprint of src.
func WithinRange(src, b *city.Building, r int) bool {
	sfp, bfp := src.Footprint(), b.Footprint()
	dx := gap(src.X, src.X+sfp.Width-1, b.X, b.X+bfp.Width-1)
	dy := gap(src.Y, src.Y+sfp.Height-1, b.Y, b.Y+bfp.Height-1)
	return max(dx, dy) <= r
}

// gap is the distance between two closed integer intervals, 0 if they overlap.
func gap(a0, a1, b0, b1 int) int {
	switch {
	case b0 > a1:
		return b0 - a1
	case a0 > b1:
		return a0 - b1
	}
	return 0
}
