package persistence

import (
	"testing"

	"github.com/talgya/cityscape/internal/city"
)

func TestSaverAppendsOnlyNewEvents(t *testing.T) {
	db := openTestDB(t)
	c := sampleCity(t)
	s := NewSaver(db, c)

	if _, err := s.Save(); err != nil {
		t.Fatal(err)
	}
	first, err := db.RecentEvents(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(c.Events(0)) {
		t.Fatalf("saved events = %d, want %d", len(first), len(c.Events(0)))
	}

	if _, err := c.AddZone(8, 8, city.ZoneIndustrial); err != nil {
		t.Fatal(err)
	}
	tick, err := s.Save()
	if err != nil {
		t.Fatal(err)
	}
	if tick != c.Tick() {
		t.Errorf("tick = %d, want %d", tick, c.Tick())
	}
	if _, err := s.Save(); err != nil {
		t.Fatal(err)
	}
	all, _ := db.RecentEvents(100)
	if len(all) != len(first)+1 {
		t.Errorf("events = %d, want %d", len(all), len(first)+1)
	}
}
