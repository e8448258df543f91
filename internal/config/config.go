// Package config resolves the Sentry connection settings for the MCP
// server. The environment is authoritative; an optional TOML file and
// an optional dotenv file can supply values the environment omits.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// DefaultTimeout bounds each outbound Sentry API call.
const DefaultTimeout = 30 * time.Second

// Config holds the resolved Sentry connection settings. It is built
// once at startup and never mutated afterwards.
type Config struct {
	Token       string
	Org         string
	ProjectID   string
	ProjectSlug string
	BaseURL     *url.URL
	Timeout     time.Duration
}

// Load resolves the configuration from the process environment.
func Load() (*Config, error) {
	return fromValues(envValues(), nil)
}

// LoadFile resolves the configuration from a TOML file, with the
// process environment taking precedence over file values.
func LoadFile(path string) (*Config, error) {
	fileVals, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	return fromValues(envValues(), fileVals)
}

// LoadEnvFile loads a dotenv file into the process environment before
// resolving the configuration. Existing environment variables win, per
// godotenv's semantics.
func LoadEnvFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}
	return Load()
}

// Resolve loads an optional dotenv file into the environment, then
// resolves the configuration, with an optional TOML file beneath the
// environment. Either path may be empty.
func Resolve(envFile, configFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
		}
	}
	if configFile != "" {
		return LoadFile(configFile)
	}
	return Load()
}

// values carries raw, pre-validation settings from one source.
type values struct {
	Token       string
	Org         string
	ProjectID   string
	ProjectSlug string
	BaseURL     string
	Timeout     string
}

func envValues() values {
	return values{
		Token:       os.Getenv("SENTRY_TOKEN"),
		Org:         os.Getenv("SENTRY_ORG"),
		ProjectID:   os.Getenv("SENTRY_PROJECT_ID"),
		ProjectSlug: os.Getenv("SENTRY_PROJECT_SLUG"),
		BaseURL:     os.Getenv("SENTRY_BASE_URL"),
		Timeout:     os.Getenv("SENTRY_TIMEOUT"),
	}
}

// merge fills empty fields of primary from fallback.
func merge(primary values, fallback *values) values {
	if fallback == nil {
		return primary
	}
	if primary.Token == "" {
		primary.Token = fallback.Token
	}
	if primary.Org == "" {
		primary.Org = fallback.Org
	}
	if primary.ProjectID == "" {
		primary.ProjectID = fallback.ProjectID
	}
	if primary.ProjectSlug == "" {
		primary.ProjectSlug = fallback.ProjectSlug
	}
	if primary.BaseURL == "" {
		primary.BaseURL = fallback.BaseURL
	}
	if primary.Timeout == "" {
		primary.Timeout = fallback.Timeout
	}
	return primary
}

func fromValues(env values, file *values) (*Config, error) {
	v := merge(env, file)

	var errs []error
	if v.Token == "" {
		errs = append(errs, ErrMissingToken)
	}
	if v.Org == "" {
		errs = append(errs, ErrMissingOrg)
	}
	if v.ProjectID == "" && v.ProjectSlug == "" {
		errs = append(errs, ErrMissingProject)
	}

	var baseURL *url.URL
	switch {
	case v.BaseURL == "":
		errs = append(errs, ErrMissingBaseURL)
	default:
		u, err := url.Parse(v.BaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidBaseURL, v.BaseURL))
		} else {
			baseURL = u
		}
	}

	timeout := DefaultTimeout
	if v.Timeout != "" {
		d, err := time.ParseDuration(v.Timeout)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidTimeout, v.Timeout))
		} else {
			timeout = d
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToLoadConfig, err)
	}

	return &Config{
		Token:       v.Token,
		Org:         v.Org,
		ProjectID:   v.ProjectID,
		ProjectSlug: v.ProjectSlug,
		BaseURL:     baseURL,
		Timeout:     timeout,
	}, nil
}

// ProjectRef returns the identifier used in URL path positions that
// address a project. The slug is preferred; Sentry also accepts the
// numeric ID there.
func (c *Config) ProjectRef() string {
	if c.ProjectSlug != "" {
		return c.ProjectSlug
	}
	return c.ProjectID
}

// String renders the resolved configuration with the token redacted.
func (c *Config) String() string {
	return fmt.Sprintf(
		"org=%s project_id=%s project_slug=%s base_url=%s timeout=%s token=<redacted>",
		c.Org, c.ProjectID, c.ProjectSlug, c.BaseURL, c.Timeout,
	)
}
