package city

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func mustNew(t *testing.T, spec Spec, opts ...Option) *Building {
	t.Helper()
	b, err := New("b1", 2, 2, spec, opts...)
	if err != nil {
		t.Fatalf("New(%+v): %v", spec, err)
	}
	return b
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"zone and service", Spec{Zone: ZoneResidential, Service: ServicePark}},
		{"neither", Spec{}},
		{"block dims without flag", Spec{Zone: ZoneCommercial, BlockWidth: 2, BlockHeight: 2}},
		{"block size without flag", Spec{Zone: ZoneCommercial, Size: SizeBlock}},
		{"service block", Spec{Service: ServiceSchool, Block: true}},
		{"negative block dims", Spec{Zone: ZoneIndustrial, Block: true, BlockWidth: -1, BlockHeight: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("x", 0, 0, tt.spec)
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("err = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestBlockDefaults(t *testing.T) {
	b := mustNew(t, Spec{Zone: ZoneResidential, Block: true})
	if b.Size() != SizeBlock {
		t.Errorf("size = %s, want block", b.Size())
	}
	if fp := b.Footprint(); fp.Width != 2 || fp.Height != 2 {
		t.Errorf("footprint = %+v, want 2x2", fp)
	}
	if b.Kind() != KindResidentialBlock {
		t.Errorf("kind = %s", b.Kind())
	}
	if got := len(b.Cells()); got != 4 {
		t.Errorf("cells = %d, want 4", got)
	}
}

func TestResidentialBlockPopulationRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	lo := int(math.Floor(8 * 6 * 4))
	for i := 0; i < 200; i++ {
		b := mustNew(t, Spec{Zone: ZoneResidential, Block: true, BlockWidth: 2, BlockHeight: 2}, WithRand(rng))
		pop := b.Stats().Population
		if pop < lo || pop >= lo+8 {
			t.Fatalf("population = %d, want [%d,%d)", pop, lo, lo+8)
		}
		if b.Stats().Jobs != 0 {
			t.Fatalf("residential block has %d jobs", b.Stats().Jobs)
		}
	}
}

func TestComputeStatsTable(t *testing.T) {
	tests := []struct {
		kind Kind
		size Size
		fp   Footprint
		want Stats
	}{
		{KindResidential, SizeSmall, Footprint{1, 1}, Stats{Population: 5, Pollution: 1, ServiceRange: 3}},
		{KindCommercial, SizeMedium, Footprint{1, 1}, Stats{Jobs: 16, Pollution: 4, ServiceRange: 3}},
		{KindIndustrial, SizeLarge, Footprint{1, 1}, Stats{Jobs: 48, Pollution: 32, ServiceRange: 3}},
		{KindCommercialBlock, SizeBlock, Footprint{2, 2}, Stats{Jobs: 288, Pollution: 12, ServiceRange: 3}},
		{KindIndustrialBlock, SizeBlock, Footprint{2, 2}, Stats{Jobs: 432, Pollution: 60, ServiceRange: 3}},
		{KindPark, SizeSmall, Footprint{1, 1}, Stats{Jobs: 2, Pollution: -2, ServiceRange: 3}},
		{KindSchool, SizeMedium, Footprint{1, 1}, Stats{Jobs: 10, Pollution: 2, ServiceRange: 5}},
		{KindHospital, SizeSmall, Footprint{1, 1}, Stats{Jobs: 8, Pollution: 2, ServiceRange: 8}},
		{KindPowerPlant, SizeSmall, Footprint{1, 1}, Stats{Jobs: 6, Pollution: 15, ServiceRange: 10}},
		{KindPolice, SizeLarge, Footprint{1, 1}, Stats{Jobs: 12, Pollution: 4, ServiceRange: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got := ComputeStats(tt.kind, tt.size, tt.fp, fixedRand(0))
			if got != tt.want {
				t.Errorf("ComputeStats = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUpgrade(t *testing.T) {
	b := mustNew(t, Spec{Zone: ZoneResidential}, WithRand(fixedRand(0)))
	if !b.Upgrade() || b.Size() != SizeMedium {
		t.Fatalf("first upgrade: size = %s", b.Size())
	}
	if !b.Upgrade() || b.Size() != SizeLarge {
		t.Fatalf("second upgrade: size = %s", b.Size())
	}
	if b.Stats().Population != 20 {
		t.Errorf("large population = %d, want 20", b.Stats().Population)
	}
	if b.Upgrade() {
		t.Error("third upgrade returned true")
	}
	if b.Size() != SizeLarge {
		t.Errorf("size changed to %s", b.Size())
	}

	block := mustNew(t, Spec{Zone: ZoneCommercial, Block: true})
	if block.Upgrade() {
		t.Error("block upgrade returned true")
	}

	hospital := mustNew(t, Spec{Service: ServiceHospital}, WithRand(fixedRand(0)))
	before := hospital.Stats()
	if _, ok := hospital.UpgradeCost(); ok {
		t.Error("service reports an upgrade cost")
	}
	if hospital.Upgrade() {
		t.Error("service upgrade returned true")
	}
	if hospital.Size() != SizeSmall || hospital.Stats() != before {
		t.Errorf("service changed: size %s, stats %+v", hospital.Size(), hospital.Stats())
	}
}

func TestInfrastructureEfficiency(t *testing.T) {
	res := mustNew(t, Spec{Zone: ZoneResidential})
	ind := mustNew(t, Spec{Zone: ZoneIndustrial, Size: SizeLarge})

	if got := res.InfrastructureEfficiency(false, false, false); got != 0.1 {
		t.Errorf("disconnected efficiency = %v, want 0.1", got)
	}
	if got := ind.InfrastructureEfficiency(true, false, true); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("missing power efficiency = %v, want 0.2", got)
	}
	if got := ind.InfrastructureEfficiency(true, true, true); got != 1.0 {
		t.Errorf("connected efficiency = %v, want 1", got)
	}
}

func TestEfficiencyBoundsAndMonotonic(t *testing.T) {
	specs := []Spec{
		{Zone: ZoneResidential},
		{Zone: ZoneCommercial, Block: true},
		{Service: ServicePark},
		{Service: ServicePowerPlant},
		{Service: ServiceHospital},
	}
	for _, spec := range specs {
		b := mustNew(t, spec)
		for mask := 0; mask < 8; mask++ {
			road, power, water := mask&1 != 0, mask&2 != 0, mask&4 != 0
			eff := b.InfrastructureEfficiency(road, power, water)
			if eff < 0.1 || eff > 1.0 {
				t.Errorf("%s %03b: efficiency %v out of range", b.Kind(), mask, eff)
			}
			// Adding any one service never lowers efficiency.
			for bit := 0; bit < 3; bit++ {
				if mask&(1<<bit) != 0 {
					continue
				}
				more := mask | 1<<bit
				eff2 := b.InfrastructureEfficiency(more&1 != 0, more&2 != 0, more&4 != 0)
				if eff2 < eff {
					t.Errorf("%s: %03b -> %03b lowered efficiency %v -> %v", b.Kind(), mask, more, eff, eff2)
				}
			}
		}
	}
}

func TestPowerPlantIgnoresPower(t *testing.T) {
	pp := mustNew(t, Spec{Service: ServicePowerPlant})
	for _, road := range []bool{false, true} {
		for _, water := range []bool{false, true} {
			if a, b := pp.InfrastructureEfficiency(road, false, water), pp.InfrastructureEfficiency(road, true, water); a != b {
				t.Errorf("road=%v water=%v: %v != %v", road, water, a, b)
			}
		}
	}
	if got := pp.InfrastructureEfficiency(false, false, false); got != 0.1 {
		t.Errorf("power plant without road = %v, want 0.1", got)
	}
	if pp.PowerDemand() != 0 {
		t.Errorf("power plant demand = %v", pp.PowerDemand())
	}
}

func TestEffectiveOutputKeepsPollution(t *testing.T) {
	b := mustNew(t, Spec{Zone: ZoneResidential}, WithRand(fixedRand(0.99)))
	base := b.Stats()
	out := b.EffectiveOutput(b.InfrastructureEfficiency(false, false, false))
	if want := int(math.Floor(float64(base.Population) * 0.1)); out.Population != want {
		t.Errorf("population = %d, want %d", out.Population, want)
	}
	if out.Pollution != base.Pollution {
		t.Errorf("pollution = %d, want %d", out.Pollution, base.Pollution)
	}
	if b.Stats() != base {
		t.Error("EffectiveOutput mutated stored stats")
	}
}

func TestTax(t *testing.T) {
	tests := []struct {
		spec Spec
		want int
	}{
		{Spec{Zone: ZoneResidential}, 20},
		{Spec{Zone: ZoneCommercial, Size: SizeMedium}, 150},
		{Spec{Zone: ZoneIndustrial, Size: SizeLarge}, 240},
		{Spec{Zone: ZoneResidential, Block: true}, 240},
		{Spec{Service: ServicePark}, 0},
		{Spec{Service: ServiceSchool, Size: SizeLarge}, 0},
		{Spec{Service: ServiceHospital}, 0},
		{Spec{Service: ServicePowerPlant}, 0},
		{Spec{Service: ServicePolice}, 0},
	}
	for _, tt := range tests {
		b := mustNew(t, tt.spec)
		if got := b.Tax(); got != tt.want {
			t.Errorf("%s/%s tax = %d, want %d", b.Kind(), b.Size(), got, tt.want)
		}
	}
}

func TestCosts(t *testing.T) {
	tests := []struct {
		spec         Spec
		construction int
		maintenance  int
	}{
		{Spec{Zone: ZoneResidential}, 200, 10},
		{Spec{Zone: ZoneCommercial, Size: SizeMedium}, 450, 30},
		{Spec{Zone: ZoneIndustrial, Size: SizeLarge}, 1000, 80},
		{Spec{Zone: ZoneIndustrial, Block: true}, 1600, 80},
		{Spec{Service: ServicePowerPlant}, 5000, 200},
		{Spec{Service: ServicePark}, 500, 25},
	}
	for _, tt := range tests {
		b := mustNew(t, tt.spec)
		if got := b.ConstructionCost(); got != tt.construction {
			t.Errorf("%s construction = %d, want %d", b.Kind(), got, tt.construction)
		}
		if got := b.MaintenanceCost(); got != tt.maintenance {
			t.Errorf("%s maintenance = %d, want %d", b.Kind(), got, tt.maintenance)
		}
	}
}

func TestRequirements(t *testing.T) {
	park := mustNew(t, Spec{Service: ServicePark})
	if park.RequiresRoad() || !park.RequiresPower() || !park.RequiresWater() {
		t.Error("park requirements wrong")
	}
	pp := mustNew(t, Spec{Service: ServicePowerPlant})
	if !pp.RequiresRoad() || pp.RequiresPower() || pp.RequiresWater() {
		t.Error("power plant requirements wrong")
	}
	res := mustNew(t, Spec{Zone: ZoneResidential})
	if !res.RequiresRoad() || !res.RequiresPower() || !res.RequiresWater() {
		t.Error("residential requirements wrong")
	}
}

func TestConnectivityStatus(t *testing.T) {
	res := mustNew(t, Spec{Zone: ZoneResidential})
	if s := res.ConnectivityStatus(true, true, true); s != StatusBright {
		t.Errorf("all = %s", s)
	}
	if s := res.ConnectivityStatus(true, true, false); s != StatusDim {
		t.Errorf("two of three = %s", s)
	}
	if s := res.ConnectivityStatus(true, false, false); s != StatusDark {
		t.Errorf("one of three = %s", s)
	}
	pp := mustNew(t, Spec{Service: ServicePowerPlant})
	if s := pp.ConnectivityStatus(false, true, true); s != StatusDark {
		t.Errorf("power plant without road = %s", s)
	}
}

func TestSetHappinessClamps(t *testing.T) {
	b := mustNew(t, Spec{Zone: ZoneResidential})
	if b.Happiness() != DefaultHappiness {
		t.Errorf("default happiness = %d", b.Happiness())
	}
	b.SetHappiness(150)
	if b.Happiness() != 100 {
		t.Errorf("happiness = %d, want 100", b.Happiness())
	}
	b.SetHappiness(-3)
	if b.Happiness() != 0 {
		t.Errorf("happiness = %d, want 0", b.Happiness())
	}
}
