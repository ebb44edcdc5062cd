// Package config loads client configuration from a YAML file with
// environment-variable overrides for backend endpoints.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Config is the full configuration surface of the client.
type Config struct {
	// GlobalBaseURL and CNBaseURL are the per-region backend endpoints.
	// An empty value means calls against that region fail with a
	// missing-endpoint error before any network I/O.
	GlobalBaseURL string `koanf:"global_base_url"`
	CNBaseURL     string `koanf:"cn_base_url"`

	// RegionHosts maps hostnames to regions, format "global=a.com,b.com;cn=c.cn".
	RegionHosts string `koanf:"region_hosts"`

	// Hostname is an explicit host identity used for hostname-based region
	// resolution. Empty skips that resolution step.
	Hostname string `koanf:"hostname"`

	DefaultRegion string `koanf:"default_region"`
	DefaultLocale string `koanf:"default_locale"`

	// AuthMode selects the identity-provider flow ("token", "popup", "redirect").
	AuthMode       string `koanf:"auth_mode"`
	GoogleClientID string `koanf:"google_client_id"`

	// HTTPTimeout bounds every outbound request.
	HTTPTimeout time.Duration `koanf:"http_timeout"`
}

const defaultHTTPTimeout = 30 * time.Second

// Defaults returns a config with fallback values applied.
func Defaults() Config {
	return Config{
		DefaultRegion: "global",
		DefaultLocale: "en",
		AuthMode:      "token",
		HTTPTimeout:   defaultHTTPTimeout,
	}
}

// Dir returns the configuration directory, honoring XDG_CONFIG_HOME.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "learnhub")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "learnhub")
}

// DefaultPath returns the default config file location.
func DefaultPath() string { return filepath.Join(Dir(), "config.yaml") }

// Load reads the YAML config at path, applies defaults and env overrides.
// A missing file is not an error; defaults plus environment apply.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		k := koanf.New(".")
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
			return Config{}, fmt.Errorf("config: unmarshal %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg.applyEnv()
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}
	return cfg, nil
}

// applyEnv overlays LEARNHUB_* environment variables onto the file config.
func (c *Config) applyEnv() {
	overlay := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	overlay(&c.GlobalBaseURL, "LEARNHUB_GLOBAL_BASE_URL")
	overlay(&c.CNBaseURL, "LEARNHUB_CN_BASE_URL")
	overlay(&c.RegionHosts, "LEARNHUB_REGION_HOSTS")
	overlay(&c.Hostname, "LEARNHUB_HOSTNAME")
	overlay(&c.DefaultRegion, "LEARNHUB_DEFAULT_REGION")
	overlay(&c.DefaultLocale, "LEARNHUB_DEFAULT_LOCALE")
	overlay(&c.AuthMode, "LEARNHUB_AUTH_MODE")
	overlay(&c.GoogleClientID, "LEARNHUB_GOOGLE_CLIENT_ID")
}

// BaseURL returns the backend endpoint for a region name, trailing slash
// stripped. Empty when the region has no configured endpoint.
func (c Config) BaseURL(region string) string {
	url := c.GlobalBaseURL
	if region == "cn" {
		url = c.CNBaseURL
	}
	return strings.TrimRight(url, "/")
}
