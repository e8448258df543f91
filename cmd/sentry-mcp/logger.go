package main

import (
	"github.com/opsline/sentry-mcp/internal/logging"
)

// SetupLogger configures the default logger based on provided log level and format
func SetupLogger(logLevel, format string) {
	logging.SetupLogger(logLevel, format)
}
