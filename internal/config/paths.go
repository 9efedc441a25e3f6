package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".gork"

// Paths holds resolved filesystem paths for gork data.
type Paths struct {
	Base   string // ~/.gork
	Config string // ~/.gork/config.yaml
	Data   string // ~/.gork/data
	Media  string // ~/.gork/media
	Logs   string // ~/.gork/logs
}

// ResolvePaths computes all standard paths from the home directory.
// GORK_HOME overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("GORK_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Data:   filepath.Join(base, "data"),
		Media:  filepath.Join(base, "media"),
		Logs:   filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data, p.Media, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// Resolve returns path unchanged when absolute, otherwise joined to Base.
func (p Paths) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Base, path)
}

// DatabasePath is the SQLite file used when store.path is unset.
func (p Paths) DatabasePath() string {
	return filepath.Join(p.Data, "gork.db")
}
