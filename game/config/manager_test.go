package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/virodrop/virodrop/game/engine"
)

func writePreset(t *testing.T, dir, id string, settings *engine.Settings) {
	t.Helper()
	data, err := json.Marshal(settings)
	if err != nil {
		t.Fatalf("marshal settings: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".json"), data, 0644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
}

func TestNewManagerMissingDir(t *testing.T) {
	if _, err := NewManager(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing config directory")
	}
}

func TestNewManagerSeedsEmptyDir(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if got := m.GetDefault(); got != "classic" {
		t.Errorf("default = %q, want %q", got, "classic")
	}
	if _, err := os.Stat(filepath.Join(dir, "classic.json")); err != nil {
		t.Errorf("expected generated classic.json: %v", err)
	}

	settings, err := m.LoadSettings("classic")
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if err := engine.ValidateSettings(settings); err != nil {
		t.Errorf("generated default invalid: %v", err)
	}
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	want := engine.DefaultSettings()
	want.Name = "Sprint"
	want.Speed = engine.SpeedHigh
	want.StartLevel = 5
	writePreset(t, dir, "sprint", want)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	got, err := m.LoadSettings("sprint")
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if got.Name != "Sprint" || got.Speed != engine.SpeedHigh || got.StartLevel != 5 {
		t.Errorf("loaded settings = %q/%s/%d, want Sprint/high/5", got.Name, got.Speed, got.StartLevel)
	}

	// Second load comes from cache and returns the same instance
	again, err := m.LoadSettings("sprint")
	if err != nil {
		t.Fatalf("LoadSettings (cached): %v", err)
	}
	if again != got {
		t.Error("expected cached instance on second load")
	}
}

func TestLoadSettingsNotFound(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m.LoadSettings("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("err = %v, want ErrConfigNotFound", err)
	}
}

func TestLoadSettingsInvalid(t *testing.T) {
	dir := t.TempDir()
	bad := engine.DefaultSettings()
	bad.Speed = "warp"
	writePreset(t, dir, "bad", bad)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m.LoadSettings("bad"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestListSettingsSkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "classic", engine.DefaultSettings())

	bad := engine.DefaultSettings()
	bad.FastDropInterval = -1
	writePreset(t, dir, "broken", bad)

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	configs, err := m.ListSettings()
	if err != nil {
		t.Fatalf("ListSettings: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("got %d configs, want 1", len(configs))
	}
	if configs[0].ConfigID != "classic" {
		t.Errorf("config ID = %q, want classic", configs[0].ConfigID)
	}
}

func TestSetDefault(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "classic", engine.DefaultSettings())
	writePreset(t, dir, "chill", engine.DefaultSettings())

	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := m.SetDefault("chill"); err != nil {
		t.Fatalf("SetDefault: %v", err)
	}
	if got := m.GetDefault(); got != "chill" {
		t.Errorf("default = %q, want chill", got)
	}

	if err := m.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("SetDefault(missing) err = %v, want ErrConfigNotFound", err)
	}
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	s := engine.DefaultSettings()
	s.Name = "Chill"
	s.Speed = engine.SpeedLow
	if err := m.SaveSettings("chill", s); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	if err := m.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache: %v", err)
	}
	got, err := m.LoadSettings("chill")
	if err != nil {
		t.Fatalf("LoadSettings after save: %v", err)
	}
	if got.Name != "Chill" || got.Speed != engine.SpeedLow {
		t.Errorf("reloaded = %q/%s, want Chill/low", got.Name, got.Speed)
	}
}

func TestSaveSettingsRejectsInvalid(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	bad := engine.DefaultSettings()
	bad.Scoring.CellPoints = -10
	if err := m.SaveSettings("bad", bad); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}
