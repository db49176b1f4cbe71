package store

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/talgya/cityscape/internal/city"
)

type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("b%d", n)
	}
}

func newTestCity(t *testing.T, funds int) *City {
	t.Helper()
	c, err := New(12, 12, funds, WithIDGenerator(sequentialIDs()), WithRand(fixedRand(0)))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestPlacementChargesTreasury(t *testing.T) {
	c := newTestCity(t, 10000)

	if _, err := c.AddZone(1, 1, city.ZoneResidential); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddZoneBlock(4, 4, city.ZoneCommercial); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddBuilding(8, 8, "school"); err != nil {
		t.Fatal(err)
	}
	if err := c.AddInfrastructure(1, 2, city.InfraRoad); err != nil {
		t.Fatal(err)
	}

	if want := 10000 - 200 - 1200 - 2000 - 10; c.Funds() != want {
		t.Errorf("funds = %d, want %d", c.Funds(), want)
	}
	if got := len(c.Buildings()); got != 3 {
		t.Errorf("buildings = %d, want 3", got)
	}
}

func TestPlacementErrors(t *testing.T) {
	c := newTestCity(t, 1000)
	if _, err := c.AddZoneBlock(0, 0, city.ZoneResidential); err != nil {
		t.Fatal(err)
	}

	if _, err := c.AddZone(1, 1, city.ZoneIndustrial); !errors.Is(err, city.ErrInvalidGridState) {
		t.Errorf("overlap err = %v", err)
	}
	if _, err := c.AddZone(12, 0, city.ZoneIndustrial); !errors.Is(err, city.ErrInvalidGridState) {
		t.Errorf("bounds err = %v", err)
	}
	if _, err := c.AddBuilding(5, 5, "powerplant"); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("funds err = %v", err)
	}
	if _, err := c.AddBuilding(5, 5, "spaceport"); !errors.Is(err, city.ErrInvalidConfiguration) {
		t.Errorf("catalog err = %v", err)
	}
	if err := c.Remove("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("remove err = %v", err)
	}
	if err := c.AddInfrastructure(2, 0, city.InfraRoad); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddBuilding(2, 0, "powerplant"); !errors.Is(err, city.ErrInvalidGridState) {
		t.Errorf("unaffordable overlap err = %v", err)
	}
	if err := c.AddInfrastructure(0, 0, city.InfraWater); !errors.Is(err, city.ErrInvalidGridState) {
		t.Errorf("tile on building err = %v", err)
	}
	if c.Funds() != 190 {
		t.Errorf("failed placements charged the treasury: funds = %d", c.Funds())
	}
}

func TestStepAppliesSnapshot(t *testing.T) {
	c := newTestCity(t, 5000)
	id, err := c.AddZone(2, 2, city.ZoneResidential)
	if err != nil {
		t.Fatal(err)
	}
	funds := c.Funds()

	snap, err := c.Step()
	if err != nil {
		t.Fatal(err)
	}
	if c.Tick() != 1 {
		t.Errorf("tick = %d", c.Tick())
	}
	if want := funds + 20 - 10; c.Funds() != want {
		t.Errorf("funds = %d, want %d", c.Funds(), want)
	}
	rec, err := c.Building(id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Happiness != snap.Buildings[0].Happiness {
		t.Errorf("stored happiness = %d, snapshot %d", rec.Happiness, snap.Buildings[0].Happiness)
	}
	if rec.Population != 5 {
		t.Errorf("stored population = %d, want unscaled 5", rec.Population)
	}
	if h := c.History(); len(h) != 1 || h[0].Tick != 1 {
		t.Errorf("history = %+v", h)
	}
}

func TestUpgradeAndRemove(t *testing.T) {
	c := newTestCity(t, 5000)
	id, _ := c.AddZone(3, 3, city.ZoneCommercial)
	funds := c.Funds()

	ok, err := c.Upgrade(id)
	if err != nil || !ok {
		t.Fatalf("Upgrade = %v, %v", ok, err)
	}
	if want := funds - 150; c.Funds() != want {
		t.Errorf("funds = %d, want %d", c.Funds(), want)
	}
	rec, _ := c.Building(id)
	if rec.Size != city.SizeMedium.String() {
		t.Errorf("size = %s", rec.Size)
	}

	if err := c.Remove(id); err != nil {
		t.Fatal(err)
	}
	if cell, _ := c.Grid().At(3, 3); !cell.Empty() {
		t.Error("cell still occupied after removal")
	}
	if _, err := c.AddZone(3, 3, city.ZoneResidential); err != nil {
		t.Errorf("rebuild on cleared cell: %v", err)
	}
}

func TestServicesDoNotUpgrade(t *testing.T) {
	c := newTestCity(t, 100000)
	id, err := c.AddBuilding(1, 1, "hospital")
	if err != nil {
		t.Fatal(err)
	}
	funds := c.Funds()
	before, _ := c.Building(id)

	ok, err := c.Upgrade(id)
	if err != nil || ok {
		t.Fatalf("Upgrade = %v, %v; want false, nil", ok, err)
	}
	after, _ := c.Building(id)
	if after != before {
		t.Errorf("hospital changed: %+v -> %+v", before, after)
	}
	if c.Funds() != funds {
		t.Errorf("funds = %d, want %d", c.Funds(), funds)
	}
	if n := len(c.Events(0)); n != 1 {
		t.Errorf("events = %d, want only the build event", n)
	}
}

func TestExportRestore(t *testing.T) {
	c := newTestCity(t, 20000)
	c.AddZoneBlock(0, 0, city.ZoneResidential)
	c.AddBuilding(5, 5, "park")
	c.AddInfrastructure(0, 2, city.InfraRoad)
	c.AddInfrastructure(1, 2, city.InfraRoad)
	c.AddInfrastructure(3, 3, city.InfraWater)
	if _, err := c.Step(); err != nil {
		t.Fatal(err)
	}

	st := c.Export()
	restored, err := Restore(st)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !reflect.DeepEqual(restored.Export(), st) {
		t.Errorf("restored state differs:\n%+v\n%+v", restored.Export(), st)
	}

	a, err := c.Step()
	if err != nil {
		t.Fatal(err)
	}
	b, err := restored.Step()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("restored city ticks differently:\n%+v\n%+v", a, b)
	}
}

func TestEventsAreRecorded(t *testing.T) {
	c := newTestCity(t, 5000)
	c.AddZone(1, 1, city.ZoneResidential)
	id, _ := c.AddZone(2, 2, city.ZoneIndustrial)
	c.Remove(id)

	ev := c.Events(0)
	if len(ev) != 3 {
		t.Fatalf("events = %d, want 3", len(ev))
	}
	if ev[2].Category != "demolish" {
		t.Errorf("last event = %+v", ev[2])
	}
	if got := c.Events(1); len(got) != 1 || got[0].Category != "demolish" {
		t.Errorf("Events(1) = %+v", got)
	}
}
