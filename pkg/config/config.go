// Package config loads mvnkit settings from a TOML file and the project's
// .env file.
//
// A settings file looks like:
//
//	cache_dir = "/var/cache/mvnkit"
//	enforce_checksums = true
//	update_interval = "24h"
//
//	[[repositories]]
//	id = "central"
//	url = "https://repo1.maven.org/maven2"
//
//	[[repositories]]
//	id = "internal"
//	url = "https://maven.example.com/releases"
//	affinity = ["com.example"]
//	rate_limit = 20
//
//	[[proxies]]
//	id = "corp"
//	active = true
//	host = "proxy.example.com"
//	port = 3128
//
//	[properties]
//	"java.version" = "17"
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/repository"
)

// Defaults for unset settings.
const (
	DefaultUpdateInterval = 24 * time.Hour
	DefaultHTTPTimeout    = 30 * time.Second
)

// Duration is a time.Duration written as a string such as "30s" or "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Settings is the content of a settings file.
type Settings struct {
	CacheDir         string   `toml:"cache_dir"`
	EnforceChecksums bool     `toml:"enforce_checksums"`
	Workers          int      `toml:"workers"`
	Sources          bool     `toml:"sources"`
	Offline          bool     `toml:"offline"`
	UpdateInterval   Duration `toml:"update_interval"`
	HTTPTimeout      Duration `toml:"http_timeout"`

	Repositories []Repository     `toml:"repositories"`
	Proxies      []Proxy           `toml:"proxies"`
	Properties   map[string]string `toml:"properties"`

	// Path is the file the settings were read from, if any.
	Path string `toml:"-"`
}

// Repository configures one remote repository.
type Repository struct {
	ID        string   `toml:"id"`
	URL       string   `toml:"url"`
	Affinity  []string `toml:"affinity"`
	RateLimit float64  `toml:"rate_limit"`
	Burst     int      `toml:"burst"`
}

// Proxy configures an HTTP proxy.
type Proxy struct {
	ID           string   `toml:"id"`
	Active       bool     `toml:"active"`
	Protocol     string   `toml:"protocol"`
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	Username     string   `toml:"username"`
	Password     string   `toml:"password"`
	Repositories []string `toml:"repositories"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{
		EnforceChecksums: true,
		UpdateInterval:   Duration{DefaultUpdateInterval},
		HTTPTimeout:      Duration{DefaultHTTPTimeout},
	}
}

// DefaultPath returns the settings file location: $MVNKIT_SETTINGS, or
// settings.toml in the user config directory.
func DefaultPath() (string, error) {
	if p := os.Getenv("MVNKIT_SETTINGS"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mvnkit", "settings.toml"), nil
}

// Load reads settings from path. An empty path selects [DefaultPath], and a
// missing default file yields [Default] settings; a missing explicit file
// is an error.
func Load(path string) (*Settings, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default().withDefaults(), nil
		}
		path = p
	}

	s := Default()
	md, err := toml.DecodeFile(path, s)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return s.withDefaults(), nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read settings %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown setting %q", path, undecoded[0].String())
	}
	s.Path = path
	s = s.withDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse reads settings from TOML text.
func Parse(data string) (*Settings, error) {
	s := Default()
	md, err := toml.Decode(data, s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse settings")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown setting %q", undecoded[0].String())
	}
	s = s.withDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) withDefaults() *Settings {
	if len(s.Repositories) == 0 {
		s.Repositories = []Repository{{ID: repository.CentralID, URL: repository.CentralURL}}
	}
	if s.UpdateInterval.Duration <= 0 {
		s.UpdateInterval.Duration = DefaultUpdateInterval
	}
	if s.HTTPTimeout.Duration <= 0 {
		s.HTTPTimeout.Duration = DefaultHTTPTimeout
	}
	return s
}

// Validate checks repositories and proxies.
func (s *Settings) Validate() error {
	if s.Workers < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "workers must not be negative")
	}
	seen := make(map[string]bool)
	for i, r := range s.Repositories {
		if r.ID == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "repository %d has no id", i+1)
		}
		if seen[r.ID] {
			return errors.New(errors.ErrCodeInvalidConfig, "duplicate repository id %q", r.ID)
		}
		seen[r.ID] = true
		if err := errors.ValidateURL(r.URL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "repository %q", r.ID)
		}
		if r.RateLimit < 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "repository %q: rate_limit must not be negative", r.ID)
		}
	}
	for _, p := range s.Proxies {
		if !p.Active {
			continue
		}
		if p.Host == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "proxy %q has no host", p.ID)
		}
		if p.Port < 0 || p.Port > 65535 {
			return errors.New(errors.ErrCodeInvalidConfig, "proxy %q: invalid port %d", p.ID, p.Port)
		}
		if p.Protocol != "" && p.Protocol != "http" && p.Protocol != "https" {
			return errors.New(errors.ErrCodeInvalidConfig, "proxy %q: unsupported protocol %q", p.ID, p.Protocol)
		}
	}
	return nil
}

// LoadEnv loads the .env file in dir, if present, without overriding
// variables that are already set.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	return nil
}
