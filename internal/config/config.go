package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/izzyreal/bbdash/internal/buildbot"
	"github.com/izzyreal/bbdash/internal/queueview"
)

const (
	DefaultHistoryWindow = 10
	DefaultHistoryMax    = 200
)

type File struct {
	Version      int           `yaml:"version" json:"version"`
	Dashboard    Dashboard     `yaml:"dashboard" json:"dashboard"`
	Buildmasters []Buildmaster `yaml:"buildmasters" json:"buildmasters"`
}

type Dashboard struct {
	Title         string `yaml:"title,omitempty" json:"title,omitempty"`
	HistoryWindow int    `yaml:"history_window,omitempty" json:"history_window,omitempty"`
	HistoryMax    int    `yaml:"history_max,omitempty" json:"history_max,omitempty"`
}

type Buildmaster struct {
	ID                      string   `yaml:"id" json:"id"`
	BaseURL                 string   `yaml:"base_url" json:"base_url"`
	PerformanceDashboardURL string   `yaml:"performance_dashboard_url,omitempty" json:"performance_dashboard_url,omitempty"`
	NeedsAuthentication     bool     `yaml:"needs_authentication,omitempty" json:"needs_authentication,omitempty"`
	Auth                    *Auth    `yaml:"auth,omitempty" json:"auth,omitempty"`
	UnknownArchitecture     string   `yaml:"unknown_architecture,omitempty" json:"unknown_architecture,omitempty"`
	Hide                    []string `yaml:"hide,omitempty" json:"hide,omitempty"`
	Queues                  []Queue  `yaml:"queues" json:"queues"`
}

type Auth struct {
	Username    string `yaml:"username" json:"username"`
	PasswordEnv string `yaml:"password_env" json:"password_env"`
}

type Queue struct {
	ID           string `yaml:"id" json:"id"`
	Title        string `yaml:"title,omitempty" json:"title,omitempty"`
	Platform     string `yaml:"platform,omitempty" json:"platform,omitempty"`
	Architecture string `yaml:"architecture" json:"architecture"`
	Builder      bool   `yaml:"builder" json:"builder"`
	Debug        bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
}

// Default is the Haiku buildmaster with its three builder queues.
func Default() File {
	return File{
		Version:   1,
		Dashboard: Dashboard{Title: "Haiku build status"},
		Buildmasters: []Buildmaster{{
			ID:                      "haiku",
			BaseURL:                 buildbot.HaikuBaseURL,
			PerformanceDashboardURL: buildbot.DefaultPerformanceDashboardURL,
			Queues: []Queue{
				{ID: "haiku-master-x86_gcc2", Platform: "x86_gcc2", Builder: true, Architecture: "x86_gcc2Target"},
				{ID: "haiku-master-x86_64", Platform: "x86_64", Builder: true, Architecture: "x86_64Target"},
				{ID: "haiku-master-x86", Platform: "x86", Builder: true, Architecture: "x86Target"},
			},
		}},
	}
}

func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	return Parse(data, path)
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (File, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return Load(path)
}

func Parse(data []byte, source string) (File, error) {
	var cfg File

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse YAML in %q: %w", source, err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config in %q: %s", source, strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (cfg File) Validate() []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported config version %d", cfg.Version))
	}
	if cfg.Dashboard.HistoryWindow < 0 {
		errs = append(errs, "dashboard.history_window must be >= 0")
	}
	if cfg.Dashboard.HistoryMax < 0 {
		errs = append(errs, "dashboard.history_max must be >= 0")
	}

	if len(cfg.Buildmasters) == 0 {
		errs = append(errs, "buildmasters must contain at least one buildmaster")
		return errs
	}

	masterIDs := map[string]struct{}{}
	queueIDs := map[string]struct{}{}
	for i, m := range cfg.Buildmasters {
		if strings.TrimSpace(m.ID) == "" {
			errs = append(errs, fmt.Sprintf("buildmasters[%d].id is required", i))
		} else {
			if _, exists := masterIDs[m.ID]; exists {
				errs = append(errs, fmt.Sprintf("buildmasters[%d].id duplicate %q", i, m.ID))
			}
			masterIDs[m.ID] = struct{}{}
		}

		if u, err := url.Parse(strings.TrimSpace(m.BaseURL)); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("buildmasters[%d].base_url must be an absolute URL", i))
		}
		if _, err := queueview.ParseUnknownArchitecturePolicy(m.UnknownArchitecture); err != nil {
			errs = append(errs, fmt.Sprintf("buildmasters[%d].unknown_architecture must be one of drop,error", i))
		}
		if m.NeedsAuthentication {
			if m.Auth == nil || strings.TrimSpace(m.Auth.Username) == "" || strings.TrimSpace(m.Auth.PasswordEnv) == "" {
				errs = append(errs, fmt.Sprintf("buildmasters[%d].auth requires username and password_env when needs_authentication is set", i))
			}
		}
		for j, pattern := range m.Hide {
			if !doublestar.ValidatePattern(pattern) {
				errs = append(errs, fmt.Sprintf("buildmasters[%d].hide[%d] invalid pattern %q", i, j, pattern))
			}
		}

		if len(m.Queues) == 0 {
			errs = append(errs, fmt.Sprintf("buildmasters[%d].queues must contain at least one queue", i))
		}
		for j, q := range m.Queues {
			if strings.TrimSpace(q.ID) == "" {
				errs = append(errs, fmt.Sprintf("buildmasters[%d].queues[%d].id is required", i, j))
			} else {
				if _, exists := queueIDs[q.ID]; exists {
					errs = append(errs, fmt.Sprintf("buildmasters[%d].queues[%d].id duplicate %q", i, j, q.ID))
				}
				queueIDs[q.ID] = struct{}{}
			}
			if strings.TrimSpace(q.Architecture) == "" {
				errs = append(errs, fmt.Sprintf("buildmasters[%d].queues[%d].architecture is required", i, j))
			}
		}
	}

	return errs
}

func (cfg File) HistoryWindow() int {
	if cfg.Dashboard.HistoryWindow > 0 {
		return cfg.Dashboard.HistoryWindow
	}
	return DefaultHistoryWindow
}

func (cfg File) HistoryMax() int {
	if cfg.Dashboard.HistoryMax > 0 {
		return cfg.Dashboard.HistoryMax
	}
	return DefaultHistoryMax
}

// FindQueue returns the buildmaster and queue config for a queue id.
func (cfg File) FindQueue(queueID string) (Buildmaster, Queue, bool) {
	for _, m := range cfg.Buildmasters {
		for _, q := range m.Queues {
			if q.ID == queueID {
				return m, q, true
			}
		}
	}
	return Buildmaster{}, Queue{}, false
}

// Hidden reports whether a queue id matches one of the hide patterns.
func (m Buildmaster) Hidden(queueID string) bool {
	for _, pattern := range m.Hide {
		if ok, err := doublestar.Match(pattern, queueID); err == nil && ok {
			return true
		}
	}
	return false
}

func (m Buildmaster) Policy() queueview.UnknownArchitecturePolicy {
	p, err := queueview.ParseUnknownArchitecturePolicy(m.UnknownArchitecture)
	if err != nil {
		return queueview.UnknownArchitectureDrop
	}
	return p
}

// Password resolves the configured password from the environment.
func (a *Auth) Password() string {
	if a == nil {
		return ""
	}
	return os.Getenv(strings.TrimSpace(a.PasswordEnv))
}

// PlatformName is the platform a queue is shown under; queues without an
// explicit platform use their architecture.
func (q Queue) PlatformName() string {
	if p := strings.TrimSpace(q.Platform); p != "" {
		return p
	}
	arch, _ := buildbot.ParseArchitecture(q.Architecture)
	return string(arch)
}
