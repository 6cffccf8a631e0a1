package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[[accounts]]
name = "nextcloud"
url = "https://cloud.example.com/remote.php/dav/"
username = "forrest"
password = "secret"
addressbooks = ["/remote.php/dav/addressbooks/users/forrest/contacts/"]

[phonebook]
name = "Kontakte"
format = "xml"

[cache]
ttl = "30m"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if len(cfg.Accounts) != 1 || cfg.Accounts[0].Name != "nextcloud" {
		t.Fatalf("Accounts = %+v", cfg.Accounts)
	}
	if cfg.Accounts[0].Username != "forrest" {
		t.Errorf("Username = %q", cfg.Accounts[0].Username)
	}
	if len(cfg.Accounts[0].Addressbooks) != 1 {
		t.Errorf("Addressbooks = %v", cfg.Accounts[0].Addressbooks)
	}
	if cfg.Phonebook.Name != "Kontakte" || cfg.Phonebook.Format != "xml" {
		t.Errorf("Phonebook = %+v", cfg.Phonebook)
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		t.Fatalf("CacheTTL: %v", err)
	}
	if ttl != 30*time.Minute {
		t.Errorf("ttl = %v", ttl)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Phonebook.Name != "Telefonbuch" || cfg.Phonebook.Format != "json" {
		t.Errorf("Phonebook = %+v", cfg.Phonebook)
	}
	if cfg.Cache.TTL != "1h" {
		t.Errorf("Cache.TTL = %q", cfg.Cache.TTL)
	}
	if len(cfg.Accounts) != 0 {
		t.Errorf("Accounts = %+v", cfg.Accounts)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
[[accounts]]
name = "file-account"
url = "https://old.example.com/dav/"
username = "old"
`)
	t.Setenv("CARDDAV2FB_LOG_LEVEL", "warn")
	t.Setenv("CARDDAV2FB_ACCOUNT_0_URL", "https://new.example.com/dav/")
	t.Setenv("CARDDAV2FB_ACCOUNT_0_PASSWORD", "hunter2")
	t.Setenv("CARDDAV2FB_ACCOUNT_1_URL", "https://second.example.com/dav/")
	t.Setenv("CARDDAV2FB_ACCOUNT_1_NAME", "extra")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if len(cfg.Accounts) != 2 {
		t.Fatalf("Accounts = %+v", cfg.Accounts)
	}
	first := cfg.Accounts[0]
	if first.URL != "https://new.example.com/dav/" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Username != "old" || first.Password != "hunter2" {
		t.Errorf("credentials = %q/%q", first.Username, first.Password)
	}
	if first.Name != "file-account" {
		t.Errorf("Name = %q", first.Name)
	}
	if cfg.Accounts[1].Name != "extra" {
		t.Errorf("second account = %+v", cfg.Accounts[1])
	}
}

func TestLoadRejectsAccountWithoutURL(t *testing.T) {
	path := writeConfig(t, `
[[accounts]]
name = "broken"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error for account without url")
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	path := writeConfig(t, `
[cache]
ttl = "soonish"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error for unparsable ttl")
	}
}
