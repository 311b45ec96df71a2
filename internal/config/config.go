// Package config loads conjecture.ini for the conjecture command.
//
//	[cli]
//	db_url = sqlite:app.db
//	table = users
//	count = 5
//	profile = ci
//
//	[profile.ci]
//	max_examples = 1000
//
// Profile sections are read by proptest.LoadProfilesFile; this package only
// interprets the [cli] section.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shipq/conjecture/dburl"
	"github.com/shipq/conjecture/inifile"
)

// ConfigFilename is the name of the config file.
const ConfigFilename = "conjecture.ini"

// DefaultCount is the number of rows sampled when neither the flag nor the
// config sets one.
const DefaultCount = 10

// ErrNotFound is returned when conjecture.ini is not found.
var ErrNotFound = errors.New("conjecture.ini not found")

// Config holds the configuration from conjecture.ini.
type Config struct {
	// Path is the config file that was read.
	Path string

	CLI CLIConfig
}

// CLIConfig holds command defaults from the [cli] section.
type CLIConfig struct {
	DBURL   string
	Table   string
	Count   int
	Profile string
	Pretty  bool
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{CLI: CLIConfig{Count: DefaultCount, DBURL: os.Getenv("DATABASE_URL")}}
}

// Load reads conjecture.ini from the given directory (or CWD if empty).
// Returns an error wrapping ErrNotFound if the file does not exist.
func Load(dir string) (*Config, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	path := filepath.Join(dir, ConfigFilename)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNotFound, dir)
	}

	f, err := inifile.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFilename, err)
	}

	cfg := Default()
	cfg.Path = path
	if err := parseCLISection(f, &cfg.CLI); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default when the file is missing.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// parseCLISection parses the [cli] section from the INI file.
func parseCLISection(f *inifile.File, cfg *CLIConfig) error {
	sec := f.Section("cli")
	if sec == nil {
		return nil
	}

	if v := sec.Get("db_url"); v != "" {
		if _, err := dburl.InferDialect(v); err != nil {
			return fmt.Errorf("%s: cli.db_url: %w", ConfigFilename, err)
		}
		cfg.DBURL = v
	}
	cfg.Table = sec.Get("table")
	cfg.Profile = sec.Get("profile")

	var err error
	if cfg.Count, err = sec.Int("count", cfg.Count); err != nil {
		return fmt.Errorf("%s: %w", ConfigFilename, err)
	}
	if cfg.Count <= 0 {
		return fmt.Errorf("%s: cli.count must be positive, got %d", ConfigFilename, cfg.Count)
	}
	if cfg.Pretty, err = sec.Bool("pretty", cfg.Pretty); err != nil {
		return fmt.Errorf("%s: %w", ConfigFilename, err)
	}
	return nil
}

// Exists checks if conjecture.ini exists in the given directory.
func Exists(dir string) (bool, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return false, err
		}
	}

	_, err := os.Stat(filepath.Join(dir, ConfigFilename))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
