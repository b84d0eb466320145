package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MirrorConfig is the optional YAML file overriding the built-in mirror
// endpoint lists and naming per-provider health feeds.
type MirrorConfig struct {
	Providers   map[string][]string `yaml:"providers"`
	HealthFeeds map[string]string   `yaml:"healthFeeds"`
}

// DefaultMirrors returns the built-in endpoint lists, ordered fastest and
// most reliable first.
func DefaultMirrors() map[string][]string {
	return map[string][]string{
		"tidal": {
			"https://tidal.kinoplus.online",
			"https://tidal-api.binimum.org",
			"https://wolf.qqdl.site",
			"https://maus.qqdl.site",
			"https://vogel.qqdl.site",
			"https://katze.qqdl.site",
			"https://hund.qqdl.site",
		},
	}
}

// LoadMirrors merges the YAML mirror file at path over the built-in lists.
// An empty path returns the defaults unchanged.
func LoadMirrors(path string) (MirrorConfig, error) {
	cfg := MirrorConfig{
		Providers:   DefaultMirrors(),
		HealthFeeds: map[string]string{},
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read mirrors file: %w", err)
	}
	var file MirrorConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse mirrors file: %w", err)
	}

	for provider, endpoints := range file.Providers {
		if len(endpoints) > 0 {
			cfg.Providers[provider] = endpoints
		}
	}
	for provider, feed := range file.HealthFeeds {
		if feed != "" {
			cfg.HealthFeeds[provider] = feed
		}
	}
	return cfg, nil
}
