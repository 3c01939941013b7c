package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Settings mirrors the settings.json written by the login step.
type Settings struct {
	SteamID64 string `json:"steamid64"`
}

// LoadSettings reads settings.json. A missing file yields empty
// settings, not an error; the configured fallback ID is used instead.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}
	return s, nil
}

// ResolveSteamID returns the account identity to track: the one the
// login step recorded when present, otherwise the configured fallback.
func ResolveSteamID(settingsPath, fallback string) (string, error) {
	s, err := LoadSettings(settingsPath)
	if err != nil {
		return "", err
	}
	if s.SteamID64 != "" {
		return s.SteamID64, nil
	}
	if fallback == "" {
		return "", fmt.Errorf("no steam id: settings file %s has none and no fallback configured", settingsPath)
	}
	return fallback, nil
}
