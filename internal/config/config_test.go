package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/izzyreal/bbdash/internal/queueview"
)

const testConfigYAML = `
version: 1
dashboard:
  title: Haiku nightly
  history_window: 5
buildmasters:
  - id: haiku
    base_url: https://buildbot.haiku-os.org/
    unknown_architecture: error
    hide:
      - "haiku-r1beta*"
    queues:
      - id: haiku-master-x86_64
        architecture: x86_64Target
        builder: true
      - id: haiku-master-x86_gcc2
        platform: x86_gcc2
        architecture: x86_gcc2
        builder: true
        debug: true
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(testConfigYAML), "test-valid")
	if err != nil {
		t.Fatalf("parse valid config: %v", err)
	}
	if cfg.Dashboard.Title != "Haiku nightly" {
		t.Fatalf("unexpected title: %q", cfg.Dashboard.Title)
	}
	if got := cfg.HistoryWindow(); got != 5 {
		t.Fatalf("expected history window 5, got %d", got)
	}
	if got := cfg.HistoryMax(); got != DefaultHistoryMax {
		t.Fatalf("expected default history max, got %d", got)
	}
	m := cfg.Buildmasters[0]
	if m.Policy() != queueview.UnknownArchitectureError {
		t.Fatalf("expected error policy, got %q", m.Policy())
	}
	if !m.Hidden("haiku-r1beta4-x86_64") || m.Hidden("haiku-master-x86_64") {
		t.Fatalf("unexpected hide matching")
	}
	if got := m.Queues[0].PlatformName(); got != "x86_64" {
		t.Fatalf("expected platform derived from architecture, got %q", got)
	}
	if !m.Queues[1].Debug {
		t.Fatalf("expected debug queue")
	}
	if _, q, ok := cfg.FindQueue("haiku-master-x86_gcc2"); !ok || q.Platform != "x86_gcc2" {
		t.Fatalf("find queue: ok=%v queue=%+v", ok, q)
	}
	if _, _, ok := cfg.FindQueue("missing"); ok {
		t.Fatalf("expected missing queue lookup to fail")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("default config invalid: %v", errs)
	}
	if len(cfg.Buildmasters) != 1 || len(cfg.Buildmasters[0].Queues) != 3 {
		t.Fatalf("unexpected default config: %+v", cfg)
	}
	if cfg.Buildmasters[0].Queues[0].ID != "haiku-master-x86_gcc2" {
		t.Fatalf("unexpected default queue order: %+v", cfg.Buildmasters[0].Queues)
	}
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	_, err := Parse([]byte(`
version: 2
buildmasters: []
`), "test-version")
	if err == nil || !strings.Contains(err.Error(), "unsupported config version") {
		t.Fatalf("expected unsupported version error, got: %v", err)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`
version: 1
buildmasters:
  - id: haiku
    base_url: https://buildbot.haiku-os.org/
    colour: blue
    queues:
      - id: q
        architecture: x86
`), "test-unknown")
	if err == nil || !strings.Contains(err.Error(), "parse YAML") {
		t.Fatalf("expected parse YAML error for unknown field, got: %v", err)
	}
}

func TestParseCollectsValidationErrors(t *testing.T) {
	_, err := Parse([]byte(`
version: 1
buildmasters:
  - id: haiku
    base_url: not-a-url
    unknown_architecture: ignore
    needs_authentication: true
    hide:
      - "haiku-[x86"
    queues:
      - id: q
        architecture: x86
      - id: q
        architecture: ""
`), "test-errors")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{
		"base_url must be an absolute URL",
		"unknown_architecture must be one of drop,error",
		"auth requires username and password_env",
		"invalid pattern",
		`queues[1].id duplicate "q"`,
		"queues[1].architecture is required",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in error, got: %v", want, err)
		}
	}
}

func TestParseRejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("version: ["), "test-yaml")
	if err == nil || !strings.Contains(err.Error(), "parse YAML") {
		t.Fatalf("expected parse YAML error, got: %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("load default: %v", err)
	}
	if cfg.Buildmasters[0].ID != "haiku" {
		t.Fatalf("expected default haiku buildmaster, got %q", cfg.Buildmasters[0].ID)
	}

	path := filepath.Join(t.TempDir(), "bbdash.yaml")
	if err := os.WriteFile(path, []byte(testConfigYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = LoadOrDefault(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.Dashboard.Title != "Haiku nightly" {
		t.Fatalf("unexpected title from file: %q", cfg.Dashboard.Title)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil || !strings.Contains(err.Error(), "read config file") {
		t.Fatalf("expected read error, got: %v", err)
	}
}

func TestAuthPasswordFromEnv(t *testing.T) {
	t.Setenv("BBDASH_TEST_PASSWORD", "s3cret")
	a := &Auth{Username: "dev", PasswordEnv: "BBDASH_TEST_PASSWORD"}
	if got := a.Password(); got != "s3cret" {
		t.Fatalf("unexpected password: %q", got)
	}
	var none *Auth
	if none.Password() != "" {
		t.Fatalf("nil auth should have empty password")
	}
}
