// Package store owns the mutable city: the grid, the building collection,
// and the treasury. It is the only caller of the engine and applies each
// tick's snapshot before the next tick can start.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/cityscape/internal/city"
	"github.com/talgya/cityscape/internal/connectivity"
	"github.com/talgya/cityscape/internal/engine"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

// Event is a notable change to the city.
type Event struct {
	Seq         uint64 `json:"seq" db:"-"`
	Tick        uint64 `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "build", "demolish", "upgrade", "economy"
}

// HistoryPoint is the city summary after one tick.
type HistoryPoint struct {
	Tick       uint64  `json:"tick"`
	Population int     `json:"population"`
	Jobs       int     `json:"jobs"`
	Funds      int     `json:"funds"`
	Happiness  int     `json:"happiness"`
	Pollution  int     `json:"pollution"`
	Employment float64 `json:"employment"`
}

const (
	maxEvents  = 1000
	maxHistory = engine.TicksPerYear
)

// City is the mutable city state. All methods are safe for concurrent use;
// ticks and mutations are serialized.
type City struct {
	mu        sync.RWMutex
	grid      *city.Grid
	buildings []*city.Building
	index     map[string]*city.Building
	funds     int
	tick      uint64
	last      engine.Snapshot
	events    []Event
	eventSeq  uint64
	history   []HistoryPoint

	newID func() string
	rng   city.Rand
}

// Option configures a City.
type Option func(*City)

// WithIDGenerator replaces the UUID generator for building IDs.
func WithIDGenerator(fn func() string) Option {
	return func(c *City) { c.newID = fn }
}

// WithRand sets the perturbation source for new and upgraded buildings.
func WithRand(r city.Rand) Option {
	return func(c *City) { c.rng = r }
}

// New creates an empty city.
func New(width, height, funds int, opts ...Option) (*City, error) {
	g, err := city.NewGrid(width, height)
	if err != nil {
		return nil, err
	}
	c := &City{
		grid:  g,
		index: make(map[string]*city.Building),
		funds: funds,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Funds returns the treasury balance.
func (c *City) Funds() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.funds
}

// Tick returns the number of ticks applied.
func (c *City) Tick() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tick
}

// Grid returns a copy of the grid.
func (c *City) Grid() *city.Grid {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.grid.Clone()
}

// Buildings returns the persisted form of every building in placement order.
func (c *City) Buildings() []city.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]city.Record, len(c.buildings))
	for i, b := range c.buildings {
		out[i] = b.Record()
	}
	return out
}

// Building returns one building's record.
func (c *City) Building(id string) (city.Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.index[id]
	if !ok {
		return city.Record{}, fmt.Errorf("building %s: %w", id, ErrNotFound)
	}
	return b.Record(), nil
}

// LastSnapshot returns the most recent tick result.
func (c *City) LastSnapshot() engine.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Events returns the most recent events, oldest first.
func (c *City) Events(limit int) []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	start := 0
	if limit > 0 && len(c.events) > limit {
		start = len(c.events) - limit
	}
	return append([]Event(nil), c.events[start:]...)
}

// EventsAfter returns the retained events with a sequence number above seq.
func (c *City) EventsAfter(seq uint64) []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Event
	for _, e := range c.events {
		if e.Seq > seq {
			out = append(out, e)
		}
	}
	return out
}

// Coverage computes the current served masks for road, power and water.
func (c *City) Coverage() *connectivity.Coverage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return connectivity.NewCoverage(c.grid, c.buildings)
}

// History returns per-tick summaries, oldest first.
func (c *City) History() []HistoryPoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]HistoryPoint(nil), c.history...)
}

// AddZone places a small zoned building.
func (c *City) AddZone(x, y int, zone city.Zone) (string, error) {
	return c.place(x, y, city.Spec{Zone: zone}, -1)
}

// AddZoneBlock places a 2x2 zoned block.
func (c *City) AddZoneBlock(x, y int, zone city.Zone) (string, error) {
	return c.place(x, y, city.Spec{Zone: zone, Block: true}, -1)
}

// AddBuilding places a named building from the catalog at its list price.
func (c *City) AddBuilding(x, y int, name string) (string, error) {
	entry, ok := Catalog[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown building %q", city.ErrInvalidConfiguration, name)
	}
	return c.place(x, y, entry.Spec, entry.Price)
}

// place builds and charges for a building. A negative price charges the
// building's own construction cost.
func (c *City) place(x, y int, spec city.Spec, price int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := city.New(c.newID(), x, y, spec, city.WithRand(c.rng))
	if err != nil {
		return "", err
	}
	if err := c.grid.CanPlace(x, y, b.Footprint()); err != nil {
		return "", err
	}
	if price < 0 {
		price = b.ConstructionCost()
	}
	if price > c.funds {
		return "", fmt.Errorf("%w: %s costs %d, treasury has %d", ErrInsufficientFunds, b.Kind(), price, c.funds)
	}
	if err := c.grid.PlaceBuilding(b); err != nil {
		return "", err
	}

	c.funds -= price
	c.buildings = append(c.buildings, b)
	c.index[b.ID] = b
	c.record("build", fmt.Sprintf("%s %s built at (%d,%d) for %d", b.Size(), b.Kind(), x, y, price))
	return b.ID, nil
}

// AddInfrastructure lays one road, power-line or water-pipe tile.
func (c *City) AddInfrastructure(x, y int, kind city.InfraKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	price, ok := InfrastructurePrice[kind]
	if !ok {
		return fmt.Errorf("%w: infrastructure kind %s", city.ErrInvalidConfiguration, kind)
	}
	if err := c.grid.CanPlace(x, y, city.Footprint{Width: 1, Height: 1}); err != nil {
		return err
	}
	if price > c.funds {
		return fmt.Errorf("%w: %s costs %d, treasury has %d", ErrInsufficientFunds, kind, price, c.funds)
	}
	if err := c.grid.PlaceInfrastructure(x, y, kind); err != nil {
		return err
	}
	c.funds -= price
	return nil
}

// RemoveInfrastructure clears one infrastructure tile.
func (c *City) RemoveInfrastructure(x, y int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.grid.RemoveInfrastructure(x, y) {
		return fmt.Errorf("infrastructure at (%d,%d): %w", x, y, ErrNotFound)
	}
	return nil
}

// Upgrade advances a building one size tier, charging the difference in
// construction cost. It reports false when the building cannot grow.
func (c *City) Upgrade(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.index[id]
	if !ok {
		return false, fmt.Errorf("building %s: %w", id, ErrNotFound)
	}
	delta, ok := b.UpgradeCost()
	if !ok {
		return false, nil
	}
	if delta > c.funds {
		return false, fmt.Errorf("%w: upgrade costs %d, treasury has %d", ErrInsufficientFunds, delta, c.funds)
	}
	b.Upgrade()
	c.funds -= delta
	c.record("upgrade", fmt.Sprintf("%s upgraded to %s for %d", b.Kind(), b.Size(), delta))
	return true, nil
}

// Remove demolishes a building.
func (c *City) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.index[id]
	if !ok {
		return fmt.Errorf("building %s: %w", id, ErrNotFound)
	}
	c.grid.ClearBuilding(b)
	delete(c.index, id)
	for i, other := range c.buildings {
		if other == b {
			c.buildings = append(c.buildings[:i], c.buildings[i+1:]...)
			break
		}
	}
	c.record("demolish", fmt.Sprintf("%s at (%d,%d) demolished", b.Kind(), b.X, b.Y))
	return nil
}

// Step runs one tick and applies its snapshot. Ticks never overlap.
func (c *City) Step() (engine.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := engine.Simulate(c.grid, c.buildings)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("tick %d: %w", c.tick+1, err)
	}
	c.apply(snap)
	return snap, nil
}

// apply folds a snapshot into the city. Caller holds the write lock.
func (c *City) apply(snap engine.Snapshot) {
	for _, u := range snap.Buildings {
		if b, ok := c.index[u.ID]; ok {
			b.SetHappiness(u.Happiness)
		}
	}

	wasSolvent := c.funds >= 0
	c.funds += snap.Economics.NetIncome
	c.tick++
	c.last = snap

	if wasSolvent && c.funds < 0 {
		c.record("economy", fmt.Sprintf("treasury in deficit: %d", c.funds))
		slog.Warn("treasury in deficit", "tick", c.tick, "funds", c.funds)
	}

	c.history = append(c.history, HistoryPoint{
		Tick:       c.tick,
		Population: snap.Economics.Population,
		Jobs:       snap.Economics.Jobs,
		Funds:      c.funds,
		Happiness:  snap.Happiness,
		Pollution:  snap.Pollution,
		Employment: snap.Economics.EmploymentRate,
	})
	if len(c.history) > maxHistory {
		c.history = c.history[len(c.history)-maxHistory:]
	}
}

func (c *City) record(category, desc string) {
	c.eventSeq++
	c.events = append(c.events, Event{Seq: c.eventSeq, Tick: c.tick, Description: desc, Category: category})
	// Trim old events to prevent unbounded growth.
	if len(c.events) > maxEvents {
		c.events = c.events[len(c.events)-maxEvents:]
	}
}
