package tools

import (
	"fmt"
	"regexp"
)

const (
	defaultPeriod      = "24h"
	defaultThresholdMS = 2000.0
	maxLimit           = 100
)

// periodPattern matches Sentry statsPeriod strings: "90m", "24h", "7d", "2w".
var periodPattern = regexp.MustCompile(`^[0-9]+[mhdw]$`)

func validatePeriod(period string) (string, error) {
	if period == "" {
		return defaultPeriod, nil
	}
	if !periodPattern.MatchString(period) {
		return "", fmt.Errorf("invalid period %q (expected forms like 90m, 24h, 7d, 2w)", period)
	}
	return period, nil
}

func validateLimit(limit, fallback int) (int, error) {
	if limit == 0 {
		return fallback, nil
	}
	if limit < 1 || limit > maxLimit {
		return 0, fmt.Errorf("invalid limit %d (must be between 1 and %d)", limit, maxLimit)
	}
	return limit, nil
}

func validateThreshold(thresholdMS float64) (float64, error) {
	if thresholdMS == 0 {
		return defaultThresholdMS, nil
	}
	if thresholdMS < 0 {
		return 0, fmt.Errorf("invalid threshold_ms %v (must be non-negative)", thresholdMS)
	}
	return thresholdMS, nil
}
