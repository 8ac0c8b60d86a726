package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/mvnkit/pkg/errors"
	"github.com/matzehuels/mvnkit/pkg/repository"
)

func TestParse(t *testing.T) {
	s, err := Parse(`
cache_dir = "/tmp/mvnkit"
enforce_checksums = false
workers = 4
update_interval = "1h"

[[repositories]]
id = "internal"
url = "https://maven.example.com/releases"
affinity = ["com.example"]
rate_limit = 5

[[proxies]]
id = "corp"
active = true
host = "proxy.example.com"
port = 3128
repositories = ["internal"]

[properties]
"java.version" = "17"
`)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if s.CacheDir != "/tmp/mvnkit" || s.EnforceChecksums || s.Workers != 4 {
		t.Errorf("scalars = %+v", s)
	}
	if s.UpdateInterval.Duration != time.Hour {
		t.Errorf("UpdateInterval = %v, want 1h", s.UpdateInterval)
	}
	if s.HTTPTimeout.Duration != DefaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v, want default", s.HTTPTimeout)
	}
	want := []Repository{{ID: "internal", URL: "https://maven.example.com/releases", Affinity: []string{"com.example"}, RateLimit: 5}}
	if diff := cmp.Diff(want, s.Repositories); diff != "" {
		t.Errorf("Repositories mismatch (-want +got):\n%s", diff)
	}
	if s.Properties["java.version"] != "17" {
		t.Errorf("Properties = %v", s.Properties)
	}

	proxies := s.ProxyList()
	if len(proxies) != 1 || !proxies[0].Matches("internal", "https://maven.example.com") {
		t.Errorf("ProxyList() = %+v", proxies)
	}
}

func TestDefaults(t *testing.T) {
	s, err := Parse("")
	if err != nil {
		t.Fatal(err)
	}
	if !s.EnforceChecksums {
		t.Error("checksums not enforced by default")
	}
	want := []Repository{{ID: repository.CentralID, URL: repository.CentralURL}}
	if diff := cmp.Diff(want, s.Repositories); diff != "" {
		t.Errorf("Repositories mismatch (-want +got):\n%s", diff)
	}
	if s.UpdateInterval.Duration != DefaultUpdateInterval {
		t.Errorf("UpdateInterval = %v", s.UpdateInterval)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"missing id", `[[repositories]]
url = "https://x"`},
		{"bad url", `[[repositories]]
id = "x"
url = "ftp://x"`},
		{"duplicate id", `[[repositories]]
id = "x"
url = "https://a"
[[repositories]]
id = "x"
url = "https://b"`},
		{"proxy without host", `[[proxies]]
id = "p"
active = true`},
		{"bad protocol", `[[proxies]]
id = "p"
active = true
host = "h"
protocol = "socks5"`},
		{"negative workers", `workers = -1`},
		{"bad duration", `update_interval = "soon"`},
		{"unknown key", `worker = 4`},
		{"unknown repository key", `[[repositories]]
id = "x"
url = "https://x"
mirror_of = "central"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.toml)
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Parse() error = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	if err := os.WriteFile(path, []byte("sources = true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !s.Sources || s.Path != path {
		t.Errorf("Load() = %+v", s)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Load(missing) error = %v, want INVALID_CONFIG", err)
	}

	t.Setenv("MVNKIT_SETTINGS", filepath.Join(dir, "absent.toml"))
	if s, err := Load(""); err != nil || !s.EnforceChecksums {
		t.Errorf("Load(\"\") = %+v, %v; want defaults", s, err)
	}

	if err := os.WriteFile(path, []byte("unknown_key = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Load(unknown key) error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	content := "MVNKIT_TEST_A=from-file\nMVNKIT_TEST_B=from-file\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MVNKIT_TEST_A", "from-env")
	t.Setenv("MVNKIT_TEST_B", "")
	os.Unsetenv("MVNKIT_TEST_B")

	if err := LoadEnv(dir); err != nil {
		t.Fatalf("LoadEnv() error: %v", err)
	}
	if got := os.Getenv("MVNKIT_TEST_A"); got != "from-env" {
		t.Errorf("existing variable overridden: %q", got)
	}
	if got := os.Getenv("MVNKIT_TEST_B"); got != "from-file" {
		t.Errorf("MVNKIT_TEST_B = %q, want from-file", got)
	}

	if err := LoadEnv(t.TempDir()); err != nil {
		t.Errorf("LoadEnv() without .env error: %v", err)
	}
}
