// Package scenario generates starter cities from a seed.
//
// The map is cut into square lots by a road lattice. Each lot gets a water
// pipe and a power line in its interior; its edge cells are zoned from a
// simplex-noise land-value field, with dense lots taking a 2x2 block.
package scenario

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/cityscape/internal/city"
	"github.com/talgya/cityscape/internal/store"
)

// lotSize is the side of a lot; roads run every lotSize+1 cells.
const lotSize = 4

// GenConfig holds generation parameters.
type GenConfig struct {
	Width   int
	Height  int
	Seed    int64   // 0 = random
	Funds   int     // Starting treasury
	Density float64 // Chance a zonable cell is built on (0.0–1.0)
	Scale   float64 // Noise frequency; smaller gives broader districts
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:   41,
		Height:  41,
		Seed:    0,
		Funds:   50000,
		Density: 0.6,
		Scale:   0.08,
	}
}

// SmallTestConfig returns a tiny city for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:   16,
		Height:  16,
		Seed:    42,
		Funds:   10000,
		Density: 0.8,
		Scale:   0.15,
	}
}

// Zone thresholds on normalized land value.
const (
	industrialBelow = 0.33
	commercialAbove = 0.75
	blockAbove      = 0.7 // Lots this valuable get a 2x2 block
	parkAbove       = 0.5
)

type generator struct {
	cfg   GenConfig
	rng   *rand.Rand
	value opensimplex.Noise
	grid  *city.Grid
	st    store.State
}

// Generate creates the saved state of a fresh city.
func Generate(cfg GenConfig) (store.State, error) {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	grid, err := city.NewGrid(cfg.Width, cfg.Height)
	if err != nil {
		return store.State{}, err
	}

	g := &generator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
		value: opensimplex.NewNormalized(seed),
		grid:  grid,
		st: store.State{
			Width:  cfg.Width,
			Height: cfg.Height,
			Funds:  cfg.Funds,
		},
	}

	if err := g.layRoads(); err != nil {
		return store.State{}, err
	}

	lotsX := (cfg.Width - 1) / (lotSize + 1)
	lotsY := (cfg.Height - 1) / (lotSize + 1)
	centerX, centerY := lotsX/2, lotsY/2
	for ly := 0; ly < lotsY; ly++ {
		for lx := 0; lx < lotsX; lx++ {
			if err := g.fillLot(lx, ly, lx == centerX && ly == centerY); err != nil {
				return store.State{}, fmt.Errorf("lot (%d,%d): %w", lx, ly, err)
			}
		}
	}
	return g.st, nil
}

// landValue samples the noise field at a cell, in [0, 1].
func (g *generator) landValue(x, y int) float64 {
	s := g.cfg.Scale
	return g.value.Eval2(float64(x)*s, float64(y)*s)
}

func (g *generator) layRoads() error {
	for y := 0; y < g.cfg.Height; y++ {
		for x := 0; x < g.cfg.Width; x++ {
			if x%(lotSize+1) != 0 && y%(lotSize+1) != 0 {
				continue
			}
			if err := g.tile(x, y, city.InfraRoad); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *generator) tile(x, y int, kind city.InfraKind) error {
	if err := g.grid.PlaceInfrastructure(x, y, kind); err != nil {
		return err
	}
	g.st.Infrastructure = append(g.st.Infrastructure, store.Tile{X: x, Y: y, Kind: kind})
	return nil
}

func (g *generator) build(x, y int, spec city.Spec) error {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return err
	}
	b, err := city.New(id.String(), x, y, spec, city.WithRand(g.rng))
	if err != nil {
		return err
	}
	if err := g.grid.PlaceBuilding(b); err != nil {
		return err
	}
	g.st.Buildings = append(g.st.Buildings, b.Record())
	return nil
}

func zoneFor(v float64) city.Zone {
	switch {
	case v < industrialBelow:
		return city.ZoneIndustrial
	case v > commercialAbove:
		return city.ZoneCommercial
	}
	return city.ZoneResidential
}

// fillLot populates one lot. Local (1,1) holds water and (2,2) power, which
// between them reach every cell of the lot. The cell at (1,2) has no road
// frontage and can only take a park.
func (g *generator) fillLot(lx, ly int, civic bool) error {
	ox, oy := lx*(lotSize+1)+1, ly*(lotSize+1)+1
	if err := g.tile(ox+1, oy+1, city.InfraWater); err != nil {
		return err
	}
	if err := g.tile(ox+2, oy+2, city.InfraPower); err != nil {
		return err
	}

	lotValue := g.landValue(ox+1, oy+1)
	if lotValue > parkAbove {
		if err := g.build(ox+1, oy+2, city.Spec{Service: city.ServicePark}); err != nil {
			return err
		}
	}

	switch {
	case civic:
		if err := g.build(ox, oy, city.Spec{Service: city.ServiceHospital}); err != nil {
			return err
		}
		if err := g.build(ox+3, oy+3, city.Spec{Service: city.ServicePolice}); err != nil {
			return err
		}
	case (lx*3+ly)%4 == 0:
		if err := g.build(ox, oy, city.Spec{Service: city.ServiceSchool}); err != nil {
			return err
		}
	}

	if lotValue > blockAbove {
		zone := zoneFor(g.landValue(ox+2, oy))
		if err := g.build(ox+2, oy, city.Spec{Zone: zone, Block: true}); err != nil {
			return err
		}
	}

	for j := 0; j < lotSize; j++ {
		for i := 0; i < lotSize; i++ {
			onEdge := i == 0 || j == 0 || i == lotSize-1 || j == lotSize-1
			if !onEdge {
				continue
			}
			x, y := ox+i, oy+j
			if c, _ := g.grid.At(x, y); !c.Empty() {
				continue
			}
			if g.rng.Float64() >= g.cfg.Density {
				continue
			}
			if err := g.build(x, y, city.Spec{Zone: zoneFor(g.landValue(x, y))}); err != nil {
				return err
			}
		}
	}
	return nil
}
