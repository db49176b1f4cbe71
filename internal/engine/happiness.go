package engine

import (
	"math"

	"github.com/talgya/cityscape/internal/city"
	"github.com/talgya/cityscape/internal/connectivity"
)

// Happiness weights.
const (
	baseHappiness    = 50.0
	coverageWeight   = 40.0 // Fully covered residents
	employmentWeight = 10.0 // Full employment
	pollutionWeight  = 0.5  // Per unit of pollution per building
)

// isAmenity reports whether a service building improves residents' lives
// within its range.
func isAmenity(k city.Kind) bool {
	switch k {
	case city.KindPark, city.KindSchool, city.KindHospital, city.KindPolice:
		return true
	}
	return false
}

func isResidential(k city.Kind) bool {
	return k == city.KindResidential || k == city.KindResidentialBlock
}

// ServiceCoverage returns the fraction of residential buildings within range
// of at least one amenity. A city with no residents has no coverage.
func ServiceCoverage(buildings []*city.Building) float64 {
	var amenities []*city.Building
	homes := 0
	for _, b := range buildings {
		if isAmenity(b.Kind()) {
			amenities = append(amenities, b)
		}
		if isResidential(b.Kind()) {
			homes++
		}
	}
	if homes == 0 {
		return 0
	}

	covered := 0
	for _, b := range buildings {
		if !isResidential(b.Kind()) {
			continue
		}
		for _, a := range amenities {
			if connectivity.WithinRange(a, b, a.Stats().ServiceRange) {
				covered++
				break
			}
		}
	}
	return float64(covered) / float64(homes)
}

// CityHappiness combines pollution, service coverage, and employment into
// a score in [0, 100]. Net-negative pollution gives no bonus.
func CityHappiness(pollution, buildings int, coverage, employment float64) int {
	perBuilding := 0.0
	if buildings > 0 && pollution > 0 {
		perBuilding = float64(pollution) / float64(buildings)
	}
	h := baseHappiness + coverageWeight*coverage + employmentWeight*employment - pollutionWeight*perBuilding
	return clamp(int(math.Round(h)), 0, 100)
}

// BuildingHappiness scales the city score by how well a building is served.
func BuildingHappiness(cityHappiness int, efficiency float64) int {
	return clamp(int(math.Round(float64(cityHappiness)*(0.5+0.5*efficiency))), 0, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
