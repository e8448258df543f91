package config

import "errors"

var (
	ErrFailedToLoadConfig = errors.New("failed to load config")
	ErrMissingToken       = errors.New("SENTRY_TOKEN is required")
	ErrMissingOrg         = errors.New("SENTRY_ORG is required")
	ErrMissingProject     = errors.New("at least one of SENTRY_PROJECT_ID or SENTRY_PROJECT_SLUG is required")
	ErrMissingBaseURL     = errors.New("SENTRY_BASE_URL is required")
	ErrInvalidBaseURL     = errors.New("SENTRY_BASE_URL must be an absolute http(s) URL")
	ErrInvalidTimeout     = errors.New("SENTRY_TIMEOUT must be a positive Go duration")
)
