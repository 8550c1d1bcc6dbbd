package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/screenrec/
//   - Linux:   ~/.local/share/screenrec/
//   - Windows: %APPDATA%\screenrec\
//
// Falls back to ~/.screenrec if platform detection fails.
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Application Support", "screenrec")
	case "linux":
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "screenrec")
		}
		return filepath.Join(homeDir(), ".local", "share", "screenrec")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "screenrec")
		}
		return fallbackDataDir()
	default:
		return fallbackDataDir()
	}
}

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/screenrec/
//   - Linux:   ~/.config/screenrec/
//   - Windows: %APPDATA%\screenrec\
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "screenrec")
		}
		return filepath.Join(homeDir(), ".config", "screenrec")
	default:
		return PlatformDataDir()
	}
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	home, _ := os.UserHomeDir()
	return home
}

func fallbackDataDir() string {
	return filepath.Join(homeDir(), ".screenrec")
}
