package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under the XDG base directories.
const AppName = "fluentchat"

// Paths contains the standard paths for fluentchat data.
type Paths struct {
	Data   string // ~/.local/share/fluentchat
	Config string // ~/.config/fluentchat
	Cache  string // ~/.cache/fluentchat
	State  string // ~/.local/state/fluentchat
}

// GetPaths returns the standard paths for fluentchat data.
func GetPaths() *Paths {
	return &Paths{
		Data:   filepath.Join(getEnvOrDefault("XDG_DATA_HOME", defaultDataHome()), AppName),
		Config: filepath.Join(getEnvOrDefault("XDG_CONFIG_HOME", defaultConfigHome()), AppName),
		Cache:  filepath.Join(getEnvOrDefault("XDG_CACHE_HOME", defaultCacheHome()), AppName),
		State:  filepath.Join(getEnvOrDefault("XDG_STATE_HOME", defaultStateHome()), AppName),
	}
}

// EnsurePaths creates all required directories.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Data, p.Config, p.Cache, p.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// LogDir returns the directory for log files.
func (p *Paths) LogDir() string {
	return filepath.Join(p.State, "log")
}

// PolicyPath returns the default location of the safety policy file.
func (p *Paths) PolicyPath() string {
	return filepath.Join(p.Config, "policy.yaml")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultDataHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share")
}

func defaultConfigHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".config")
}

func defaultCacheHome() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "cache")
	}
	return filepath.Join(os.Getenv("HOME"), ".cache")
}

func defaultStateHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state")
}

// GlobalConfigPath returns the path to the global config file.
func GlobalConfigPath() string {
	return filepath.Join(GetPaths().Config, "fluentchat.json")
}

// ProjectConfigPath returns the path to the project config file.
func ProjectConfigPath(directory string) string {
	return filepath.Join(directory, ".fluentchat", "fluentchat.json")
}

// ResolvePath makes a configured path absolute: "~/" expands to HOME and
// relative paths are taken from baseDir.
func ResolvePath(path, baseDir string) string {
	if path == "" {
		return ""
	}
	if len(path) >= 2 && path[:2] == "~/" {
		return filepath.Join(os.Getenv("HOME"), path[2:])
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
