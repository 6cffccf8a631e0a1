// Package config loads the carddav2fb configuration from a TOML file and
// applies environment overrides on top, so that credentials can stay out of
// the file in containerized setups.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Account is one CardDAV endpoint to pull contacts from. When Addressbooks
// is empty the client discovers every addressbook the account can see.
type Account struct {
	Name         string   `toml:"name"`
	URL          string   `toml:"url"`
	Username     string   `toml:"username"`
	Password     string   `toml:"password"`
	Addressbooks []string `toml:"addressbooks"`
	Insecure     bool     `toml:"insecure"`
}

type Phonebook struct {
	Name   string   `toml:"name"`
	Output string   `toml:"output"`
	Format string   `toml:"format"`
	VIPs   []string `toml:"vips"`
}

type Cache struct {
	Path string `toml:"path"`
	TTL  string `toml:"ttl"`
}

type Config struct {
	LogLevel  string    `toml:"log_level"`
	Accounts  []Account `toml:"accounts"`
	Phonebook Phonebook `toml:"phonebook"`
	Cache     Cache     `toml:"cache"`
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// DefaultPath returns the config file location under XDG_CONFIG_HOME.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "carddav2fb", "config.toml")
}

// DefaultCachePath returns the download cache location under XDG_DATA_HOME.
func DefaultCachePath() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "carddav2fb", "cache.db")
}

// Load reads the config at path (or the default location when path is
// empty), fills in defaults and applies environment overrides. A missing
// file is not an error: local conversion needs no configuration at all.
func Load(path string) (*Config, error) {
	if path == "" {
		path = getenv("CARDDAV2FB_CONFIG", DefaultPath())
	}

	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, fmt.Errorf("config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Phonebook.Name == "" {
		cfg.Phonebook.Name = "Telefonbuch"
	}
	if cfg.Phonebook.Format == "" {
		cfg.Phonebook.Format = "json"
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = DefaultCachePath()
	}
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = "1h"
	}
	if _, err := cfg.CacheTTL(); err != nil {
		return nil, err
	}

	for i := range cfg.Accounts {
		if cfg.Accounts[i].Name == "" {
			cfg.Accounts[i].Name = fmt.Sprintf("account_%d", i)
		}
		if cfg.Accounts[i].URL == "" {
			return nil, fmt.Errorf("account %q: url missing", cfg.Accounts[i].Name)
		}
	}
	return &cfg, nil
}

// CacheTTL parses the cache TTL setting.
func (c *Config) CacheTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("cache ttl %q: %w", c.Cache.TTL, err)
	}
	return d, nil
}

// applyEnv layers environment overrides over the file values. Accounts can
// be supplied entirely from the environment via the indexed variables
// CARDDAV2FB_ACCOUNT_<N>_URL etc.
func applyEnv(cfg *Config) {
	cfg.LogLevel = getenv("CARDDAV2FB_LOG_LEVEL", cfg.LogLevel)
	cfg.Phonebook.Name = getenv("CARDDAV2FB_PHONEBOOK_NAME", cfg.Phonebook.Name)
	cfg.Cache.Path = getenv("CARDDAV2FB_CACHE_PATH", cfg.Cache.Path)

	for i := 0; i < 100; i++ {
		prefix := fmt.Sprintf("CARDDAV2FB_ACCOUNT_%d", i)
		if os.Getenv(prefix+"_URL") == "" {
			if i >= len(cfg.Accounts) {
				break
			}
			continue
		}
		acct := Account{
			Name:     getenv(prefix+"_NAME", fmt.Sprintf("account_%d", i)),
			URL:      os.Getenv(prefix + "_URL"),
			Username: os.Getenv(prefix + "_USERNAME"),
			Password: os.Getenv(prefix + "_PASSWORD"),
			Insecure: getenv(prefix+"_INSECURE", "false") == "true",
		}
		if i < len(cfg.Accounts) {
			merged := cfg.Accounts[i]
			merged.URL = acct.URL
			if acct.Username != "" {
				merged.Username = acct.Username
			}
			if acct.Password != "" {
				merged.Password = acct.Password
			}
			if os.Getenv(prefix+"_NAME") != "" {
				merged.Name = acct.Name
			}
			cfg.Accounts[i] = merged
		} else {
			cfg.Accounts = append(cfg.Accounts, acct)
		}
	}
}
