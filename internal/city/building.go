package city

import "fmt"

// Default block footprint.
const (
	DefaultBlockWidth  = 2
	DefaultBlockHeight = 2
)

// Spec describes the building to create. Exactly one of Zone or Service
// must be set. Block buildings are always zoned and use SizeBlock.
type Spec struct {
	Zone        Zone
	Service     Service
	Size        Size
	Block       bool
	BlockWidth  int // Zero means the default; only valid with Block
	BlockHeight int
}

// Kind resolves the spec into its building category.
func (s Spec) Kind() (Kind, error) {
	if s.Zone != ZoneNone && s.Service != ServiceNone {
		return 0, fmt.Errorf("%w: both zone %s and service %s supplied", ErrInvalidConfiguration, s.Zone, s.Service)
	}
	if s.Zone == ZoneNone && s.Service == ServiceNone {
		return 0, fmt.Errorf("%w: neither zone nor service supplied", ErrInvalidConfiguration)
	}
	if !s.Block && (s.BlockWidth != 0 || s.BlockHeight != 0) {
		return 0, fmt.Errorf("%w: block dimensions without block flag", ErrInvalidConfiguration)
	}
	if !s.Block && s.Size == SizeBlock {
		return 0, fmt.Errorf("%w: block size tier on a non-block building", ErrInvalidConfiguration)
	}
	if s.Block && s.Service != ServiceNone {
		return 0, fmt.Errorf("%w: service %s cannot be a block", ErrInvalidConfiguration, s.Service)
	}
	if s.Size > SizeBlock {
		return 0, fmt.Errorf("%w: unknown size %d", ErrInvalidConfiguration, s.Size)
	}

	switch s.Service {
	case ServicePark:
		return KindPark, nil
	case ServiceSchool:
		return KindSchool, nil
	case ServiceHospital:
		return KindHospital, nil
	case ServicePowerPlant:
		return KindPowerPlant, nil
	case ServicePolice:
		return KindPolice, nil
	case ServiceNone:
	default:
		return 0, fmt.Errorf("%w: unknown service %d", ErrInvalidConfiguration, s.Service)
	}

	switch s.Zone {
	case ZoneResidential:
		if s.Block {
			return KindResidentialBlock, nil
		}
		return KindResidential, nil
	case ZoneCommercial:
		if s.Block {
			return KindCommercialBlock, nil
		}
		return KindCommercial, nil
	case ZoneIndustrial:
		if s.Block {
			return KindIndustrialBlock, nil
		}
		return KindIndustrial, nil
	}
	return 0, fmt.Errorf("%w: unknown zone %d", ErrInvalidConfiguration, s.Zone)
}

// Building is one zoned structure, block building, or service building
// anchored at (X, Y).
type Building struct {
	ID string
	X  int
	Y  int

	spec      Spec
	kind      Kind
	stats     Stats
	happiness int
	rng       Rand
}

// Option configures a Building at construction.
type Option func(*Building)

// WithRand sets the source of the stat perturbation rolled at creation and
// on upgrade.
func WithRand(r Rand) Option {
	return func(b *Building) { b.rng = r }
}

// New creates a building and rolls its initial stats.
func New(id string, x, y int, spec Spec, opts ...Option) (*Building, error) {
	b, err := newBuilding(id, x, y, spec)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(b)
	}
	b.RecalculateStats()
	return b, nil
}

func newBuilding(id string, x, y int, spec Spec) (*Building, error) {
	if spec.Block {
		spec.Size = SizeBlock
		if spec.BlockWidth == 0 {
			spec.BlockWidth = DefaultBlockWidth
		}
		if spec.BlockHeight == 0 {
			spec.BlockHeight = DefaultBlockHeight
		}
		if spec.BlockWidth < 1 || spec.BlockHeight < 1 {
			return nil, fmt.Errorf("%w: block dimensions %dx%d", ErrInvalidConfiguration, spec.BlockWidth, spec.BlockHeight)
		}
	}
	k, err := spec.Kind()
	if err != nil {
		return nil, err
	}
	return &Building{
		ID:        id,
		X:         x,
		Y:         y,
		spec:      spec,
		kind:      k,
		happiness: DefaultHappiness,
	}, nil
}

// Spec returns the building's classification.
func (b *Building) Spec() Spec { return b.spec }

// Kind returns the building's category.
func (b *Building) Kind() Kind { return b.kind }

// Zone returns the zone category, or ZoneNone for service buildings.
func (b *Building) Zone() Zone { return b.spec.Zone }

// Service returns the service kind, or ServiceNone for zoned buildings.
func (b *Building) Service() Service { return b.spec.Service }

// Size returns the current size tier.
func (b *Building) Size() Size { return b.spec.Size }

// IsService reports whether this is a service building.
func (b *Building) IsService() bool { return b.kind.IsService() }

// IsBlock reports whether this building covers a multi-cell footprint.
func (b *Building) IsBlock() bool { return b.spec.Block }

// Stats returns the most recently rolled capacity.
func (b *Building) Stats() Stats { return b.stats }

// Happiness returns the building's happiness in [0, 100].
func (b *Building) Happiness() int { return b.happiness }

// SetHappiness stores a happiness value clamped to [0, 100].
func (b *Building) SetHappiness(h int) {
	b.happiness = clampInt(h, 0, 100)
}

// Footprint returns the building's size in cells.
func (b *Building) Footprint() Footprint {
	if b.spec.Block {
		return Footprint{Width: b.spec.BlockWidth, Height: b.spec.BlockHeight}
	}
	return Footprint{Width: 1, Height: 1}
}

// Cells returns every grid position the building covers, anchor first.
func (b *Building) Cells() []Point {
	fp := b.Footprint()
	cells := make([]Point, 0, fp.Area())
	for dy := 0; dy < fp.Height; dy++ {
		for dx := 0; dx < fp.Width; dx++ {
			cells = append(cells, Point{X: b.X + dx, Y: b.Y + dy})
		}
	}
	return cells
}

// RecalculateStats rolls fresh stats for the current kind and size.
func (b *Building) RecalculateStats() {
	b.stats = ComputeStats(b.kind, b.spec.Size, b.Footprint(), b.rng)
}

// nextSize returns the tier above the current one. Services have flat
// prices and keep the size they were built at.
func (b *Building) nextSize() (Size, bool) {
	if b.kind.IsService() {
		return b.spec.Size, false
	}
	switch b.spec.Size {
	case SizeSmall:
		return SizeMedium, true
	case SizeMedium:
		return SizeLarge, true
	}
	return b.spec.Size, false
}

// UpgradeCost returns the extra construction cost of one upgrade, or false
// if the building cannot grow.
func (b *Building) UpgradeCost() (int, bool) {
	next, ok := b.nextSize()
	if !ok {
		return 0, false
	}
	return constructionCost(b.kind, next) - constructionCost(b.kind, b.spec.Size), true
}

// Upgrade advances one size tier and rerolls stats. It returns false at the
// largest tier, for block buildings and for services.
func (b *Building) Upgrade() bool {
	next, ok := b.nextSize()
	if !ok {
		return false
	}
	b.spec.Size = next
	b.RecalculateStats()
	return true
}

// EffectiveOutput scales stored capacity by infrastructure efficiency.
func (b *Building) EffectiveOutput(efficiency float64) Output {
	return b.stats.Scale(efficiency)
}

// Tax returns the per-tick tax revenue. Service buildings pay nothing.
func (b *Building) Tax() int {
	if b.kind.IsService() {
		return 0
	}
	return taxBase(b.kind) * taxSizeMultiplier[b.spec.Size]
}

// ConstructionCost returns the price of placing this building.
func (b *Building) ConstructionCost() int {
	return constructionCost(b.kind, b.spec.Size)
}

// MaintenanceCost returns the per-tick upkeep.
func (b *Building) MaintenanceCost() int {
	return maintenanceCost(b.kind, b.spec.Size)
}

// RequiresRoad reports whether the building needs road access. Parks don't.
func (b *Building) RequiresRoad() bool {
	return b.kind != KindPark
}

// RequiresPower reports whether the building needs power. Power plants don't.
func (b *Building) RequiresPower() bool {
	return b.kind != KindPowerPlant
}

// RequiresWater reports whether the building needs water. Power plants don't.
func (b *Building) RequiresWater() bool {
	return b.kind != KindPowerPlant
}

// PowerDemand returns the building's draw on the grid.
func (b *Building) PowerDemand() float64 {
	if !b.RequiresPower() {
		return 0
	}
	demand := 10 * sizeMultiplier(b.spec.Size)
	switch {
	case b.kind.IsService():
		return demand * 2
	case b.spec.Block:
		return demand * 1.5
	}
	return demand
}

// requirements counts required services and those both required and present.
func (b *Building) requirements(hasRoad, hasPower, hasWater bool) (req, ok int) {
	for _, r := range [...]struct{ required, present bool }{
		{b.RequiresRoad(), hasRoad},
		{b.RequiresPower(), hasPower},
		{b.RequiresWater(), hasWater},
	} {
		if !r.required {
			continue
		}
		req++
		if r.present {
			ok++
		}
	}
	return req, ok
}

// Penalty multipliers for each required service that is missing.
const (
	missingRoadPenalty  = 0.2
	missingPowerPenalty = 0.3
	missingWaterPenalty = 0.4
	minEfficiency       = 0.1
)

// InfrastructureEfficiency returns the output multiplier in [0.1, 1.0] for
// the given connectivity.
func (b *Building) InfrastructureEfficiency(hasRoad, hasPower, hasWater bool) float64 {
	req, ok := b.requirements(hasRoad, hasPower, hasWater)
	if req == 0 {
		return 1.0
	}
	eff := float64(ok) / float64(req)
	if b.RequiresRoad() && !hasRoad {
		eff *= missingRoadPenalty
	}
	if b.RequiresPower() && !hasPower {
		eff *= missingPowerPenalty
	}
	if b.RequiresWater() && !hasWater {
		eff *= missingWaterPenalty
	}
	if eff < minEfficiency {
		return minEfficiency
	}
	return eff
}

// Status is the visual connectivity state of a building.
type Status uint8

const (
	StatusDark   Status = iota // Fewer than half of required services
	StatusDim                  // At least half
	StatusBright               // All required services present
)

func (s Status) String() string {
	switch s {
	case StatusBright:
		return "bright"
	case StatusDim:
		return "dim"
	}
	return "dark"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ConnectivityStatus classifies the building's connectivity.
func (b *Building) ConnectivityStatus(hasRoad, hasPower, hasWater bool) Status {
	req, ok := b.requirements(hasRoad, hasPower, hasWater)
	switch {
	case ok == req:
		return StatusBright
	case float64(ok) >= float64(req)*0.5:
		return StatusDim
	}
	return StatusDark
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
