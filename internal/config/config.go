// Package config loads settings from an optional .env file and the
// environment. Environment variables always win over .env values.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends selectable with STORE_BACKEND.
const (
	BackendGitHub  = "github"
	BackendJSONBin = "jsonbin"
	BackendS3      = "s3"
	BackendProxy   = "proxy"
	BackendMemory  = "memory"
)

type Config struct {
	// Server
	Addr           string   `env:"ADDR" envDefault:":8080"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envDefault:"127.0.0.1,::1"`
	TZName         string   `env:"TZ_NAME" envDefault:"Europe/Paris"`
	Debug          bool     `env:"DEBUG" envDefault:"false"`
	CORSOrigins    []string `env:"CORS_ORIGINS"`

	// Storage
	Backend   string `env:"STORE_BACKEND" envDefault:"github"`
	CachePath string `env:"CACHE_PATH" envDefault:"matchboard.db"`

	GitHubToken  string `env:"GITHUB_TOKEN"`
	GitHubRepo   string `env:"GITHUB_REPO"`
	GitHubFile   string `env:"GITHUB_FILE" envDefault:"data.json"`
	GitHubBranch string `env:"GITHUB_BRANCH" envDefault:"main"`
	GitHubAPIURL string `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`

	JSONBinID  string `env:"JSONBIN_BIN_ID"`
	JSONBinKey string `env:"JSONBIN_KEY"`
	JSONBinURL string `env:"JSONBIN_URL" envDefault:"https://api.jsonbin.io/v3"`

	S3AccountID       string `env:"S3_ACCOUNT_ID"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3Region          string `env:"S3_REGION" envDefault:"auto"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Bucket          string `env:"S3_BUCKET"`
	S3Key             string `env:"S3_KEY" envDefault:"data.json"`

	ProxyURL string `env:"PROXY_URL"`

	// Refresh
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
}

// Load reads .env (if present) and then parses the environment.
func Load(files ...string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	for i := range cfg.TrustedProxies {
		cfg.TrustedProxies[i] = strings.TrimSpace(cfg.TrustedProxies[i])
	}
	return cfg, nil
}

// Validate checks the values the selected backend needs.
func (c *Config) Validate() error {
	var errs []error
	need := func(v, name string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required for STORE_BACKEND=%s", name, c.Backend))
		}
	}
	switch c.Backend {
	case BackendGitHub:
		need(c.GitHubToken, "GITHUB_TOKEN")
		need(c.GitHubRepo, "GITHUB_REPO")
		if c.GitHubRepo != "" && strings.Count(c.GitHubRepo, "/") != 1 {
			errs = append(errs, fmt.Errorf("GITHUB_REPO must look like owner/name, got %q", c.GitHubRepo))
		}
	case BackendJSONBin:
		need(c.JSONBinID, "JSONBIN_BIN_ID")
		need(c.JSONBinKey, "JSONBIN_KEY")
	case BackendS3:
		need(c.S3AccessKeyID, "S3_ACCESS_KEY_ID")
		need(c.S3SecretAccessKey, "S3_SECRET_ACCESS_KEY")
		need(c.S3Bucket, "S3_BUCKET")
		if c.S3Endpoint == "" && c.S3AccountID == "" {
			errs = append(errs, errors.New("S3_ENDPOINT or S3_ACCOUNT_ID is required for STORE_BACKEND=s3"))
		}
	case BackendProxy:
		need(c.ProxyURL, "PROXY_URL")
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Backend))
	}
	if c.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("POLL_INTERVAL must be at least 1s, got %s", c.PollInterval))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout))
	}
	return errors.Join(errs...)
}

// Location resolves TZ_NAME.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TZName)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", c.TZName, err)
	}
	return loc, nil
}
