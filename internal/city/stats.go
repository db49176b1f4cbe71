package city

import (
	"math"
	"math/rand"
)

// Default stat values for buildings whose kind does not set them and for
// persisted records with missing fields.
const (
	DefaultHappiness    = 50
	DefaultServiceRange = 3
)

// Stats is the capacity of a building at its current size tier. It is a
// value: recomputation produces a new Stats rather than mutating fields.
type Stats struct {
	Population   int `json:"population"`
	Jobs         int `json:"jobs"`
	Pollution    int `json:"pollution"`     // Negative for pollution-reducing services
	ServiceRange int `json:"service_range"` // Radius in cells
}

// Footprint is the width and height of a building in cells.
type Footprint struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the number of cells covered.
func (f Footprint) Area() int {
	return f.Width * f.Height
}

// Rand is the source of the one-time perturbation applied when stats are
// rolled. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// sizeMultiplier scales base stats and power demand by size tier.
func sizeMultiplier(s Size) float64 {
	switch s {
	case SizeSmall:
		return 1
	case SizeMedium:
		return 2
	case SizeLarge:
		return 4
	case SizeBlock:
		return 6
	}
	return 1
}

// ComputeStats rolls the stats for a building of the given kind, size, and
// footprint. Zoned kinds draw exactly one perturbation from rng; service
// kinds are fully deterministic.
func ComputeStats(k Kind, size Size, fp Footprint, rng Rand) Stats {
	if rng == nil {
		rng = globalRand{}
	}
	m := sizeMultiplier(size)
	area := float64(fp.Area())
	if area < 1 {
		area = 1
	}
	floor := func(v float64) int { return int(math.Floor(v)) }

	st := Stats{ServiceRange: DefaultServiceRange}
	switch k {
	case KindResidential:
		st.Population = floor(5*m + rng.Float64()*5)
		st.Pollution = floor(1 * m)
	case KindCommercial:
		st.Jobs = floor(8*m + rng.Float64()*4)
		st.Pollution = floor(2 * m)
	case KindIndustrial:
		st.Jobs = floor(12*m + rng.Float64()*8)
		st.Pollution = floor(8 * m)
	case KindResidentialBlock:
		st.Population = floor(8*m*area + rng.Float64()*8)
		st.Pollution = floor(1 * m)
	case KindCommercialBlock:
		st.Jobs = floor(12*m*area + rng.Float64()*8)
		st.Pollution = floor(2 * m)
	case KindIndustrialBlock:
		st.Jobs = floor(18*m*area + rng.Float64()*12)
		st.Pollution = floor(10 * m)
	case KindPark:
		st.Jobs = floor(2 * m)
		st.Pollution = floor(-2 * m)
		st.ServiceRange = 3
	case KindSchool:
		st.Jobs = floor(5 * m)
		st.Pollution = floor(1 * m)
		st.ServiceRange = 5
	case KindHospital:
		st.Jobs = floor(8 * m)
		st.Pollution = floor(2 * m)
		st.ServiceRange = 8
	case KindPowerPlant:
		st.Jobs = floor(6 * m)
		st.Pollution = floor(15 * m)
		st.ServiceRange = 10
	case KindPolice:
		st.Jobs = floor(3 * m)
		st.Pollution = floor(1 * m)
		st.ServiceRange = 3
	}
	return st
}

// Output is a building's contribution to city totals at a given efficiency.
type Output struct {
	Population int `json:"population"`
	Jobs       int `json:"jobs"`
	Pollution  int `json:"pollution"`
}

// Scale applies an infrastructure efficiency to stats. Population and jobs
// scale linearly; pollution does not.
func (st Stats) Scale(efficiency float64) Output {
	return Output{
		Population: int(math.Floor(float64(st.Population) * efficiency)),
		Jobs:       int(math.Floor(float64(st.Jobs) * efficiency)),
		Pollution:  st.Pollution,
	}
}

// Tax multipliers by size tier.
var taxSizeMultiplier = map[Size]int{
	SizeSmall:  1,
	SizeMedium: 3,
	SizeLarge:  8,
	SizeBlock:  12,
}

// taxBase returns the per-tick tax base for zoned kinds and 0 for services.
func taxBase(k Kind) int {
	switch k {
	case KindResidential, KindResidentialBlock:
		return 20
	case KindCommercial, KindCommercialBlock:
		return 50
	case KindIndustrial, KindIndustrialBlock:
		return 30
	case KindPark, KindSchool, KindHospital, KindPowerPlant, KindPolice:
		return 0
	}
	return 0
}

// Construction and maintenance size multipliers for single-cell zones.
var (
	constructionSizeMultiplier = map[Size]float64{
		SizeSmall:  1,
		SizeMedium: 1.5,
		SizeLarge:  2.5,
		SizeBlock:  3.5,
	}
	maintenanceSizeMultiplier = map[Size]float64{
		SizeSmall:  1,
		SizeMedium: 2,
		SizeLarge:  4,
		SizeBlock:  5,
	}
)

// constructionCost looks up the fixed price of a building.
func constructionCost(k Kind, size Size) int {
	switch k {
	case KindResidential:
		return int(math.Floor(200 * constructionSizeMultiplier[size]))
	case KindCommercial:
		return int(math.Floor(300 * constructionSizeMultiplier[size]))
	case KindIndustrial:
		return int(math.Floor(400 * constructionSizeMultiplier[size]))
	case KindResidentialBlock:
		return 800
	case KindCommercialBlock:
		return 1200
	case KindIndustrialBlock:
		return 1600
	case KindPark:
		return 500
	case KindSchool:
		return 2000
	case KindHospital:
		return 3000
	case KindPowerPlant:
		return 5000
	case KindPolice:
		return 500
	}
	return 0
}

// maintenanceCost looks up the fixed per-tick upkeep of a building.
func maintenanceCost(k Kind, size Size) int {
	switch k {
	case KindResidential:
		return int(math.Floor(10 * maintenanceSizeMultiplier[size]))
	case KindCommercial:
		return int(math.Floor(15 * maintenanceSizeMultiplier[size]))
	case KindIndustrial:
		return int(math.Floor(20 * maintenanceSizeMultiplier[size]))
	case KindResidentialBlock:
		return 40
	case KindCommercialBlock:
		return 60
	case KindIndustrialBlock:
		return 80
	case KindPark:
		return 25
	case KindSchool:
		return 100
	case KindHospital:
		return 150
	case KindPowerPlant:
		return 200
	case KindPolice:
		return 30
	}
	return 0
}
