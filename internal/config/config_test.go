package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "citysim.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
city:
  width: 20
  height: 10
  generate: false
simulation:
  interval: 500ms
api:
  port: 9090
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.City.Width != 20 || cfg.City.Height != 10 || cfg.City.Generate {
		t.Errorf("city = %+v", cfg.City)
	}
	if time.Duration(cfg.Simulation.Interval) != 500*time.Millisecond {
		t.Errorf("interval = %v", time.Duration(cfg.Simulation.Interval))
	}
	if cfg.API.Port != 9090 {
		t.Errorf("port = %d", cfg.API.Port)
	}
	// Untouched fields keep their defaults.
	if cfg.City.Funds != Default().City.Funds || cfg.Storage.Path != Default().Storage.Path {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":     "city: [",
		"bad duration": "simulation:\n  interval: soon\n",
		"zero width":   "city:\n  width: 0\n",
		"bad format":   "log:\n  format: xml\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAdminKeyFromEnv(t *testing.T) {
	t.Setenv("CITYSIM_ADMIN_KEY", "secret")
	cfg, err := Load(writeConfig(t, "api:\n  port: 1\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.AdminKey != "secret" {
		t.Errorf("admin key = %q", cfg.API.AdminKey)
	}
}
