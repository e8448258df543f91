package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

var validExtensions = []string{".toml", ".tml"}

// fileConfig mirrors the optional TOML config file.
type fileConfig struct {
	Token       string `toml:"token"`
	Org         string `toml:"org"`
	ProjectID   string `toml:"project_id"`
	ProjectSlug string `toml:"project_slug"`
	BaseURL     string `toml:"base_url"`
	Timeout     string `toml:"timeout"`
}

// readFile loads raw settings from a TOML file.
func readFile(path string) (*values, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	ext := filepath.Ext(path)
	if !slices.Contains(validExtensions, ext) {
		return nil, fmt.Errorf("unsupported config file extension %q (expected .toml)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &values{
		Token:       fc.Token,
		Org:         fc.Org,
		ProjectID:   fc.ProjectID,
		ProjectSlug: fc.ProjectSlug,
		BaseURL:     fc.BaseURL,
		Timeout:     fc.Timeout,
	}, nil
}
