// Package config reads and writes a repository's ".gait/config" file,
// the one piece of repository state that is neither an object nor a
// ref.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const FileName = "config"

// User identifies whoever is recording turns. It is stamped into the
// "by" field of memory-reflog entries; commits carry no author. Neither
// field is required -- an anonymous repo is valid.
type User struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

func (u User) Empty() bool {
	return u.Name == "" && u.Email == ""
}

// Core holds repository-wide behavior toggles. Compression has no
// omitempty: false is a meaningful setting, not an absent one, and must
// survive a save/load round trip.
type Core struct {
	DefaultBranch string `toml:"defaultBranch,omitempty"`
	Compression   bool   `toml:"compression"`
}

// Config is the parsed ".gait/config" file.
type Config struct {
	User User `toml:"user,omitempty"`
	Core Core `toml:"core"`
}

// Default returns the configuration a freshly initialized repository
// uses when no config file has been written yet.
func Default() Config {
	return Config{
		Core: Core{DefaultBranch: "main", Compression: true},
	}
}

// Path returns the config file path under a repository's ".gait" dir.
func Path(gaitDir string) string {
	return filepath.Join(gaitDir, FileName)
}

// Load reads the config file at gaitDir/config, falling back to
// Default() when the file doesn't exist yet (a freshly init'd repo has
// no config file until something writes one).
func Load(gaitDir string) (Config, error) {
	path := Path(gaitDir)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: read: %w", err)
	}
	cfg := Default()
	if _, err := toml.Decode(string(b), &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if cfg.Core.DefaultBranch == "" {
		cfg.Core.DefaultBranch = "main"
	}
	return cfg, nil
}

// Save writes cfg to gaitDir/config, overwriting whatever was there.
func Save(gaitDir string, cfg Config) error {
	path := Path(gaitDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}
