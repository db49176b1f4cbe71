package store

import (
	"fmt"

	"github.com/talgya/cityscape/internal/city"
)

// Tile is one persisted infrastructure tile.
type Tile struct {
	X    int            `json:"x" db:"x"`
	Y    int            `json:"y" db:"y"`
	Kind city.InfraKind `json:"kind" db:"kind"`
}

// State is everything needed to rebuild a City.
type State struct {
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	Funds          int           `json:"funds"`
	Tick           uint64        `json:"tick"`
	Buildings      []city.Record `json:"buildings"`
	Infrastructure []Tile        `json:"infrastructure"`
}

// Export captures the city's persistent state.
func (c *City) Export() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := State{
		Width:     c.grid.Width,
		Height:    c.grid.Height,
		Funds:     c.funds,
		Tick:      c.tick,
		Buildings: make([]city.Record, len(c.buildings)),
	}
	for i, b := range c.buildings {
		st.Buildings[i] = b.Record()
	}
	for _, kind := range []city.InfraKind{city.InfraRoad, city.InfraPower, city.InfraWater} {
		for _, p := range c.grid.Infrastructure(kind) {
			st.Infrastructure = append(st.Infrastructure, Tile{X: p.X, Y: p.Y, Kind: kind})
		}
	}
	return st
}

// Restore builds a City from saved state. Building records are loaded as
// stored, without rerolling stats.
func Restore(st State, opts ...Option) (*City, error) {
	c, err := New(st.Width, st.Height, st.Funds, opts...)
	if err != nil {
		return nil, err
	}
	c.tick = st.Tick

	for _, t := range st.Infrastructure {
		if err := c.grid.PlaceInfrastructure(t.X, t.Y, t.Kind); err != nil {
			return nil, fmt.Errorf("restore tile (%d,%d): %w", t.X, t.Y, err)
		}
	}
	for _, rec := range st.Buildings {
		b, err := city.FromRecord(rec, city.WithRand(c.rng))
		if err != nil {
			return nil, err
		}
		if _, dup := c.index[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate building id %q", city.ErrInvalidGridState, b.ID)
		}
		if err := c.grid.PlaceBuilding(b); err != nil {
			return nil, fmt.Errorf("restore building %s: %w", b.ID, err)
		}
		c.buildings = append(c.buildings, b)
		c.index[b.ID] = b
	}
	return c, nil
}
