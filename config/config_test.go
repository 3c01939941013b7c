package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `
analyzer:
  name: steam-analyzer
  version: test
catalog:
  - app_id: 2923300
    name: Banana
    context_id: 2
  - app_id: 3419430
    name: Bongo Cat
    context_id: 2
poll:
  interval: 10m
market:
  min_delay: 2s
  jitter: 500ms
`

func TestLoadConfig(t *testing.T) {
	t.Setenv("STEAM_ID64", "")
	path := writeConfig(t, validConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if len(cfg.Catalog) != 2 {
		t.Fatalf("expected 2 catalog entries, got %d", len(cfg.Catalog))
	}
	if cfg.Catalog[0].ID() != "2923300" {
		t.Fatalf("unexpected catalog id %q", cfg.Catalog[0].ID())
	}
	if cfg.Poll.Interval != 10*time.Minute {
		t.Fatalf("poll interval not parsed: %s", cfg.Poll.Interval)
	}
	if cfg.Market.MinDelay != 2*time.Second {
		t.Fatalf("market min_delay not parsed: %s", cfg.Market.MinDelay)
	}

	// Defaults fill in everything the file omits.
	if cfg.Market.MaxRetries != 6 {
		t.Fatalf("expected default max_retries 6, got %d", cfg.Market.MaxRetries)
	}
	if cfg.Analysis.TurnoverThreshold != 0.15 {
		t.Fatalf("expected default turnover threshold, got %v", cfg.Analysis.TurnoverThreshold)
	}
	if cfg.Poll.StateFile != "inventory_state.json" {
		t.Fatalf("expected default state file, got %q", cfg.Poll.StateFile)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("STEAM_ID64", "76561199300997500")
	path := writeConfig(t, validConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Account.SteamID64 != "76561199300997500" {
		t.Fatalf("env override not applied: %q", cfg.Account.SteamID64)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty catalog", "poll:\n  interval: 10m\n"},
		{"bad app id", "catalog:\n  - app_id: 0\n    name: X\n    context_id: 2\n"},
		{"missing name", "catalog:\n  - app_id: 5\n    context_id: 2\n"},
		{"duplicate app id", "catalog:\n  - app_id: 5\n    name: A\n    context_id: 2\n  - app_id: 5\n    name: B\n    context_id: 2\n"},
		{"bad interval", "catalog:\n  - app_id: 5\n    name: A\n    context_id: 2\npoll:\n  interval: -1s\n"},
		{"bad threshold", "catalog:\n  - app_id: 5\n    name: A\n    context_id: 2\nanalysis:\n  turnover_threshold: 3\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := LoadConfig(path); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
