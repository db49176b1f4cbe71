package engine

import (
	"math"

	"github.com/talgya/cityscape/internal/city"
	"github.com/talgya/cityscape/internal/connectivity"
)

// Update is the per-building result of one tick.
type Update struct {
	ID         string             `json:"id"`
	Links      connectivity.Links `json:"links"`
	Efficiency float64            `json:"efficiency"`
	Status     city.Status        `json:"status"`
	Output     city.Output        `json:"output"`    // Capacity scaled by efficiency
	Happiness  int                `json:"happiness"` // New stored happiness
}

// Economics is the city-wide money and labour picture for one tick.
type Economics struct {
	Population      int     `json:"population"`
	Jobs            int     `json:"jobs"`
	TaxRevenue      int     `json:"taxRevenue"`
	MaintenanceCost int     `json:"maintenanceCost"`
	NetIncome       int     `json:"netIncome"`
	EmploymentRate  float64 `json:"employmentRate"`
	PowerDemand     float64 `json:"powerDemand"`
}

// Transport summarises how well the city is connected.
type Transport struct {
	AverageConnectivity float64 `json:"averageConnectivity"` // Mean efficiency, 0–100
	WellConnected       int     `json:"wellConnected"`       // Buildings with every required service
	Isolated            int     `json:"isolated"`            // Buildings with under half
}

// Snapshot is the complete outcome of one tick. The caller applies it to
// its own state; Simulate keeps nothing between calls.
type Snapshot struct {
	Buildings []Update  `json:"buildings"`
	Economics Economics `json:"economics"`
	Happiness int       `json:"happiness"`
	Pollution int       `json:"pollution"` // Display value, never below 0
	Transport Transport `json:"transport"`
}

// Simulate runs one tick over the grid and building collection. Stored
// building stats are not touched: they are capacity, and only the
// aggregation sees connectivity-scaled output. Malformed grids fail with
// city.ErrInvalidGridState.
func Simulate(g *city.Grid, buildings []*city.Building) (Snapshot, error) {
	links, err := connectivity.Evaluate(g, buildings)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Buildings: make([]Update, 0, len(buildings))}
	eco := &snap.Economics
	pollution := 0
	totalEff := 0.0

	for _, b := range buildings {
		l := links[b.ID]
		eff := b.InfrastructureEfficiency(l.HasRoad, l.HasPower, l.HasWater)
		status := b.ConnectivityStatus(l.HasRoad, l.HasPower, l.HasWater)
		out := b.EffectiveOutput(eff)

		eco.Population += out.Population
		eco.Jobs += out.Jobs
		eco.TaxRevenue += b.Tax()
		eco.MaintenanceCost += b.MaintenanceCost()
		eco.PowerDemand += b.PowerDemand()
		pollution += out.Pollution
		totalEff += eff

		switch status {
		case city.StatusBright:
			snap.Transport.WellConnected++
		case city.StatusDark:
			snap.Transport.Isolated++
		}

		snap.Buildings = append(snap.Buildings, Update{
			ID:         b.ID,
			Links:      l,
			Efficiency: eff,
			Status:     status,
			Output:     out,
		})
	}

	eco.NetIncome = eco.TaxRevenue - eco.MaintenanceCost
	eco.EmploymentRate = EmploymentRate(eco.Jobs, eco.Population)
	snap.Pollution = max(pollution, 0)
	if len(buildings) > 0 {
		snap.Transport.AverageConnectivity = totalEff / float64(len(buildings)) * 100
	}

	snap.Happiness = CityHappiness(pollution, len(buildings), ServiceCoverage(buildings), eco.EmploymentRate)
	for i := range snap.Buildings {
		snap.Buildings[i].Happiness = BuildingHappiness(snap.Happiness, snap.Buildings[i].Efficiency)
	}
	return snap, nil
}

// EmploymentRate is jobs per resident, capped at 1 and 0 for an empty city.
func EmploymentRate(jobs, population int) float64 {
	if jobs <= 0 || population <= 0 {
		return 0
	}
	return math.Min(1, float64(jobs)/float64(population))
}
