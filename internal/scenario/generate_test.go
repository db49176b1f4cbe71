package scenario

import (
	"reflect"
	"testing"

	"github.com/talgya/cityscape/internal/city"
	"github.com/talgya/cityscape/internal/store"
)

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different cities")
	}
}

func TestGeneratedCityIsValid(t *testing.T) {
	cfg := SmallTestConfig()
	st, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if st.Width != cfg.Width || st.Height != cfg.Height || st.Funds != cfg.Funds {
		t.Errorf("state header = %dx%d funds %d", st.Width, st.Height, st.Funds)
	}
	if len(st.Buildings) == 0 {
		t.Fatal("no buildings generated")
	}

	c, err := store.Restore(st)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	snap, err := c.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}

	kinds := map[city.Kind]int{}
	for _, rec := range c.Buildings() {
		b, err := city.FromRecord(rec)
		if err != nil {
			t.Fatal(err)
		}
		kinds[b.Kind()]++
	}
	if kinds[city.KindHospital] != 1 || kinds[city.KindPolice] != 1 {
		t.Errorf("civic lot missing: %v", kinds)
	}

	// Every zoned building sits on a lot edge with road, power and water.
	for _, u := range snap.Buildings {
		rec, _ := c.Building(u.ID)
		if rec.Type == city.ServiceType {
			continue
		}
		if u.Status != city.StatusBright {
			t.Errorf("building %s (%s at %d,%d) is %s: %+v", u.ID, rec.Type, rec.X, rec.Y, u.Status, u.Links)
		}
	}
	if snap.Economics.Population == 0 && kinds[city.KindResidential]+kinds[city.KindResidentialBlock] > 0 {
		t.Error("residential buildings produced no population")
	}
}

func TestGenerateRejectsBadDimensions(t *testing.T) {
	cfg := SmallTestConfig()
	cfg.Width = 0
	if _, err := Generate(cfg); err == nil {
		t.Error("expected error for zero width")
	}
}
